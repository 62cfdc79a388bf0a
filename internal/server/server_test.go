package server

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"diskdock/agent/smart-agent/internal/config"
	"diskdock/agent/smart-agent/internal/devio"
	"diskdock/agent/smart-agent/internal/smart"
)

const (
	testAtaPassThrough uint32 = 0x0004D02C
	testStorageQuery   uint32 = 0x002D1400
)

// fakeChannel answers device-control calls from a test function.
type fakeChannel struct {
	control func(code uint32, request []byte, responseCap int) ([]byte, error)
	closed  int
}

func (c *fakeChannel) Control(code uint32, request []byte, responseCap int) ([]byte, error) {
	return c.control(code, request, responseCap)
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return &Server{
		cfg:    config.Config{Socket: "/tmp/test.sock"},
		logger: zerolog.New(os.Stderr).Level(zerolog.Disabled),
		openDevice: func(index int) (devio.Channel, error) {
			return nil, devio.ErrOpenFailed
		},
		runSmartctl: func(args ...string) ([]byte, error) {
			return nil, errors.New("smartctl not wired")
		},
	}
}

// ataTableResponse builds a pass-through response carrying a 512-byte
// table whose first slot holds the given attribute.
func ataTableResponse(id, current, worst byte, raw uint64) []byte {
	resp := make([]byte, 568)
	table := resp[52 : 52+512]
	table[2] = id
	table[5] = current
	table[6] = worst
	for i := 0; i < 6; i++ {
		table[7+i] = byte(raw >> (8 * i))
	}
	return resp
}

func ataThresholdResponse(id, threshold byte) []byte {
	resp := make([]byte, 568)
	table := resp[52 : 52+512]
	table[2] = id
	table[3] = threshold
	return resp
}

func TestSmartEndpointRawIndex(t *testing.T) {
	s := newTestServer(t)
	var ch *fakeChannel
	s.openDevice = func(index int) (devio.Channel, error) {
		if index != 0 {
			t.Fatalf("unexpected device index %d", index)
		}
		ch = &fakeChannel{control: func(code uint32, request []byte, responseCap int) ([]byte, error) {
			if code != testAtaPassThrough {
				return nil, errors.New("unexpected code")
			}
			if request[40] == 0xD1 {
				return ataThresholdResponse(194, 0), nil
			}
			return ataTableResponse(194, 114, 103, 38), nil
		}}
		return ch, nil
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/smart?device=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var data smart.SmartData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.ReadMethod != smart.ReadMethodAtaPassThrough {
		t.Fatalf("read method %q", data.ReadMethod)
	}
	if data.TemperatureC == nil || *data.TemperatureC != 38 {
		t.Fatalf("temperature %+v", data.TemperatureC)
	}
	if ch.closed != 1 {
		t.Fatalf("channel closed %d times", ch.closed)
	}
}

func TestSmartEndpointInvalidDevice(t *testing.T) {
	s := newTestServer(t)
	for _, dev := range []string{"", "abc", "-1", "/etc/passwd", "/dev/sda; rm"} {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/smart?device="+url.QueryEscape(dev), nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("device %q: status %d", dev, rec.Code)
		}
	}
}

func TestSmartEndpointUnsupportedPlatform(t *testing.T) {
	s := newTestServer(t)
	s.openDevice = func(index int) (devio.Channel, error) {
		return nil, devio.ErrUnsupportedPlatform
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/smart?device=1", nil))
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestSmartEndpointAllMethodsFail(t *testing.T) {
	s := newTestServer(t)
	var ch *fakeChannel
	s.openDevice = func(index int) (devio.Channel, error) {
		ch = &fakeChannel{control: func(code uint32, request []byte, responseCap int) ([]byte, error) {
			return nil, errors.New("device rejected command")
		}}
		return ch, nil
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/smart?device=2", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ch.closed != 1 {
		t.Fatalf("channel closed %d times", ch.closed)
	}
}

func TestSmartEndpointPathUsesSmartctl(t *testing.T) {
	s := newTestServer(t)
	fixture, err := os.ReadFile("testdata/smartctl_ata.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var gotDev string
	s.runSmartctl = func(args ...string) ([]byte, error) {
		gotDev = args[len(args)-1]
		return fixture, nil
	}
	s.openDevice = func(index int) (devio.Channel, error) {
		t.Fatal("raw engine must not be used for /dev paths")
		return nil, nil
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/smart?device=/dev/sda", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if gotDev != "/dev/sda" {
		t.Fatalf("smartctl device arg %q", gotDev)
	}
	var data smart.SmartData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.ReadMethod != smart.ReadMethodSmartctl {
		t.Fatalf("read method %q", data.ReadMethod)
	}
	if !data.ThresholdsAvailable {
		t.Fatal("expected thresholds from fixture")
	}
	if data.PowerOnHours == nil || *data.PowerOnHours != 18321 {
		t.Fatalf("power on hours %+v", data.PowerOnHours)
	}
	if data.TemperatureC == nil || *data.TemperatureC != 36 {
		t.Fatalf("temperature %+v", data.TemperatureC)
	}
	if a := data.Attribute(5); a == nil || a.Threshold != 140 {
		t.Fatalf("attribute 5 %+v", a)
	}
}

func TestNVMeEndpointRawIndex(t *testing.T) {
	s := newTestServer(t)
	var ch *fakeChannel
	s.openDevice = func(index int) (devio.Channel, error) {
		ch = &fakeChannel{control: func(code uint32, request []byte, responseCap int) ([]byte, error) {
			if code != testStorageQuery {
				return nil, errors.New("unexpected code")
			}
			resp := make([]byte, 4144)
			binary.LittleEndian.PutUint32(resp[28:], 4096)
			page := resp[48:]
			binary.LittleEndian.PutUint16(page[1:], 315) // 42 C
			page[3] = 100
			page[4] = 10
			page[5] = 4
			page[32] = 0x2A
			return resp, nil
		}}
		return ch, nil
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nvme/smart?device=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var data smart.NVMeSmartData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.TemperatureC != 42 {
		t.Fatalf("temperature %d", data.TemperatureC)
	}
	if data.DataUnitsRead.Uint64() != 0x2A {
		t.Fatalf("data units read %v", data.DataUnitsRead)
	}
	if ch.closed != 1 {
		t.Fatalf("channel closed %d times", ch.closed)
	}
}

func TestIdentifyEndpointClosesChannelOnReadFailure(t *testing.T) {
	s := newTestServer(t)
	var ch *fakeChannel
	s.openDevice = func(index int) (devio.Channel, error) {
		ch = &fakeChannel{control: func(code uint32, request []byte, responseCap int) ([]byte, error) {
			return nil, errors.New("device rejected command")
		}}
		return ch, nil
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nvme/identify?device=0", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ch.closed != 1 {
		t.Fatalf("channel closed %d times", ch.closed)
	}
}

func TestNVMeEndpointPathUsesSmartctl(t *testing.T) {
	s := newTestServer(t)
	fixture, err := os.ReadFile("testdata/smartctl_nvme.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var gotArgs []string
	s.runSmartctl = func(args ...string) ([]byte, error) {
		gotArgs = args
		return fixture, nil
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nvme/smart?device=/dev/nvme0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	hasNvmeFlag := false
	for i := 0; i < len(gotArgs)-1; i++ {
		if gotArgs[i] == "-d" && gotArgs[i+1] == "nvme" {
			hasNvmeFlag = true
		}
	}
	if !hasNvmeFlag {
		t.Fatalf("expected -d nvme in args %v", gotArgs)
	}
	var data smart.NVMeSmartData
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.TemperatureC != 41 {
		t.Fatalf("temperature %d", data.TemperatureC)
	}
	if data.PowerOnHours.Uint64() != 4821 {
		t.Fatalf("power on hours %v", data.PowerOnHours)
	}
	if data.MediaErrors.Uint64() != 0 {
		t.Fatalf("media errors %v", data.MediaErrors)
	}
}

func TestIdentifyEndpointPathUsesSmartctl(t *testing.T) {
	s := newTestServer(t)
	fixture, err := os.ReadFile("testdata/smartctl_nvme.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	s.runSmartctl = func(args ...string) ([]byte, error) {
		return fixture, nil
	}
	before := testutil.ToFloat64(smartReadsTotal.WithLabelValues("nvme_identify", "ok"))

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/nvme/identify?device=/dev/nvme0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	after := testutil.ToFloat64(smartReadsTotal.WithLabelValues("nvme_identify", "ok"))
	if after != before+1 {
		t.Fatalf("identify read counter %v -> %v", before, after)
	}
	var info smart.NVMeIdentifyInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Model != "Samsung SSD 980 PRO 1TB" {
		t.Fatalf("model %q", info.Model)
	}
	if info.SerialNumber != "S5GXNF0R123456" {
		t.Fatalf("serial %q", info.SerialNumber)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK {
		t.Fatal("expected ok=true")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header")
	}
}

func TestValidDevicePath(t *testing.T) {
	cases := map[string]bool{
		"/dev/sda":      true,
		"/dev/nvme0n1":  true,
		"/dev/sda a":    false,
		"/etc/passwd":   false,
		"":              false,
		"/dev/sd\x00a":  false,
		"PhysicalDrive": false,
	}
	for p, want := range cases {
		if got := validDevicePath(p); got != want {
			t.Errorf("validDevicePath(%q) = %v, want %v", p, got, want)
		}
	}
}
