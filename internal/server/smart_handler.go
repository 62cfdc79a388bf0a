package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"diskdock/agent/smart-agent/internal/devio"
	"diskdock/agent/smart-agent/internal/smart"
	"diskdock/agent/smart-agent/pkg/httpx"
)

// deviceRef is a parsed "device" query parameter. Numeric indexes go
// to the raw engine; /dev paths go to the smartctl fallback.
type deviceRef struct {
	index int
	path  string
}

func parseDeviceRef(r *http.Request) (deviceRef, bool) {
	v := r.URL.Query().Get("device")
	if v == "" {
		return deviceRef{}, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return deviceRef{}, false
		}
		return deviceRef{index: n, path: ""}, true
	}
	if validDevicePath(v) {
		return deviceRef{index: -1, path: v}, true
	}
	return deviceRef{}, false
}

func (s *Server) handleATASmart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ref, ok := parseDeviceRef(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "device must be a drive index or /dev path")
		return
	}

	var (
		data *smart.SmartData
		err  error
	)
	if ref.path != "" {
		data, err = s.ataViaSmartctl(ref.path)
	} else {
		data, err = s.readATA(ref.index)
	}
	observeSmartRead(start)
	if err != nil {
		incSmartRead("ata", "error")
		s.writeReadError(w, err)
		return
	}
	incSmartRead("ata", "ok")
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleNVMeSmart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ref, ok := parseDeviceRef(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "device must be a drive index or /dev path")
		return
	}

	var (
		data *smart.NVMeSmartData
		err  error
	)
	if ref.path != "" {
		data, err = s.nvmeViaSmartctl(ref.path)
	} else {
		data, err = s.readNVMe(ref.index)
	}
	observeSmartRead(start)
	if err != nil {
		incSmartRead("nvme", "error")
		s.writeReadError(w, err)
		return
	}
	incSmartRead("nvme", "ok")
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleNVMeIdentify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ref, ok := parseDeviceRef(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "device must be a drive index or /dev path")
		return
	}

	var (
		info *smart.NVMeIdentifyInfo
		err  error
	)
	if ref.path != "" {
		info, err = s.identifyViaSmartctl(ref.path)
	} else {
		info, err = s.readNVMeIdentify(ref.index)
	}
	observeSmartRead(start)
	if err != nil {
		incSmartRead("nvme_identify", "error")
		s.writeReadError(w, err)
		return
	}
	incSmartRead("nvme_identify", "ok")
	httpx.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) readATA(index int) (*smart.SmartData, error) {
	ch, err := s.openDevice(index)
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	return smart.ReadATASmart(ch)
}

func (s *Server) readNVMe(index int) (*smart.NVMeSmartData, error) {
	ch, err := s.openDevice(index)
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	return smart.ReadNVMeSmart(ch)
}

func (s *Server) readNVMeIdentify(index int) (*smart.NVMeIdentifyInfo, error) {
	ch, err := s.openDevice(index)
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	return smart.ReadNVMeIdentify(ch)
}

// writeReadError maps engine errors onto HTTP statuses. Exhausted
// fallback chains are a gateway-style failure: the agent worked but the
// device would not answer.
func (s *Server) writeReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, devio.ErrUnsupportedPlatform):
		httpx.WriteError(w, http.StatusNotImplemented, "raw device access not supported on this platform")
	case errors.Is(err, smart.ErrNoMethodSucceeded), errors.Is(err, smart.ErrNoDataAvailable):
		s.logger.Warn().Err(err).Msg("diagnostics unavailable")
		httpx.WriteError(w, http.StatusBadGateway, "diagnostics unavailable: "+err.Error())
	case errors.Is(err, devio.ErrOpenFailed):
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error().Err(err).Msg("smart read failed")
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
