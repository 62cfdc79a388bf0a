package server

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os/exec"
	"strings"

	"diskdock/agent/smart-agent/internal/smart"
)

// smartctlRunner executes smartctl with the given arguments and
// returns its stdout. Tests substitute canned JSON.
type smartctlRunner func(args ...string) ([]byte, error)

func execSmartctl(path string) smartctlRunner {
	if path == "" {
		path = "smartctl"
	}
	return func(args ...string) ([]byte, error) {
		return exec.Command(path, args...).CombinedOutput()
	}
}

// smartctlOutput covers the subset of `smartctl -j` output the agent
// consumes. Field names follow the smartctl JSON schema.
type smartctlOutput struct {
	ModelName       string `json:"model_name"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`

	ATASmartAttributes *struct {
		Table []smartctlATAAttr `json:"table"`
	} `json:"ata_smart_attributes,omitempty"`

	NVMeHealthLog *smartctlNVMeHealth `json:"nvme_smart_health_information_log,omitempty"`
}

type smartctlATAAttr struct {
	ID     uint8  `json:"id"`
	Value  uint8  `json:"value"`
	Worst  uint8  `json:"worst"`
	Thresh *uint8 `json:"thresh,omitempty"`
	Raw    struct {
		Value uint64 `json:"value"`
	} `json:"raw"`
}

type smartctlNVMeHealth struct {
	CriticalWarning         uint8  `json:"critical_warning"`
	Temperature             int    `json:"temperature"`
	AvailableSpare          uint8  `json:"available_spare"`
	AvailableSpareThreshold uint8  `json:"available_spare_threshold"`
	PercentageUsed          uint8  `json:"percentage_used"`
	DataUnitsRead           uint64 `json:"data_units_read"`
	DataUnitsWritten        uint64 `json:"data_units_written"`
	HostReads               uint64 `json:"host_reads"`
	HostWrites              uint64 `json:"host_writes"`
	ControllerBusyTime      uint64 `json:"controller_busy_time"`
	PowerCycles             uint64 `json:"power_cycles"`
	PowerOnHours            uint64 `json:"power_on_hours"`
	UnsafeShutdowns         uint64 `json:"unsafe_shutdowns"`
	MediaErrors             uint64 `json:"media_errors"`
	NumErrLogEntries        uint64 `json:"num_err_log_entries"`
	WarningTempTime         uint32 `json:"warning_temp_time"`
	CriticalCompTime        uint32 `json:"critical_comp_time"`
}

func (s *Server) smartctlQuery(dev string, extra ...string) (*smartctlOutput, error) {
	args := append([]string{"-H", "-A", "-i", "-j"}, extra...)
	args = append(args, dev)
	raw, err := s.runSmartctl(args...)
	if err != nil {
		return nil, fmt.Errorf("smartctl: %w", err)
	}
	var out smartctlOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartctl json: %w", err)
	}
	return &out, nil
}

// ataViaSmartctl reads attributes for a device path the raw engine
// cannot address, normalizing the table into the engine's result type.
func (s *Server) ataViaSmartctl(dev string) (*smart.SmartData, error) {
	out, err := s.smartctlQuery(dev)
	if err != nil {
		return nil, err
	}
	if out.ATASmartAttributes == nil || len(out.ATASmartAttributes.Table) == 0 {
		return nil, smart.ErrNoAttributes
	}
	attrs := make([]smart.SmartAttribute, 0, len(out.ATASmartAttributes.Table))
	thresholds := false
	for _, row := range out.ATASmartAttributes.Table {
		a := smart.SmartAttribute{
			ID:      row.ID,
			Current: row.Value,
			Worst:   row.Worst,
			Raw:     row.Raw.Value,
		}
		if row.Thresh != nil {
			a.Threshold = *row.Thresh
			thresholds = true
		}
		attrs = append(attrs, a)
	}
	return smart.NewSmartData(attrs, smart.ReadMethodSmartctl, thresholds), nil
}

func (s *Server) nvmeViaSmartctl(dev string) (*smart.NVMeSmartData, error) {
	out, err := s.smartctlQuery(dev, "-d", "nvme")
	if err != nil {
		return nil, err
	}
	h := out.NVMeHealthLog
	if h == nil {
		return nil, smart.ErrNoDataAvailable
	}
	return &smart.NVMeSmartData{
		CriticalWarning:         h.CriticalWarning,
		TemperatureC:            h.Temperature,
		AvailableSpare:          h.AvailableSpare,
		AvailableSpareThreshold: h.AvailableSpareThreshold,
		PercentageUsed:          h.PercentageUsed,
		DataUnitsRead:           new(big.Int).SetUint64(h.DataUnitsRead),
		DataUnitsWritten:        new(big.Int).SetUint64(h.DataUnitsWritten),
		HostReadCommands:        new(big.Int).SetUint64(h.HostReads),
		HostWriteCommands:       new(big.Int).SetUint64(h.HostWrites),
		ControllerBusyTime:      new(big.Int).SetUint64(h.ControllerBusyTime),
		PowerCycles:             new(big.Int).SetUint64(h.PowerCycles),
		PowerOnHours:            new(big.Int).SetUint64(h.PowerOnHours),
		UnsafeShutdowns:         new(big.Int).SetUint64(h.UnsafeShutdowns),
		MediaErrors:             new(big.Int).SetUint64(h.MediaErrors),
		NumErrLogEntries:        new(big.Int).SetUint64(h.NumErrLogEntries),
		WarningTempTime:         h.WarningTempTime,
		CriticalTempTime:        h.CriticalCompTime,
	}, nil
}

func (s *Server) identifyViaSmartctl(dev string) (*smart.NVMeIdentifyInfo, error) {
	out, err := s.smartctlQuery(dev, "-d", "nvme")
	if err != nil {
		return nil, err
	}
	return &smart.NVMeIdentifyInfo{
		Model:           strings.TrimSpace(out.ModelName),
		SerialNumber:    strings.TrimSpace(out.SerialNumber),
		FirmwareVersion: strings.TrimSpace(out.FirmwareVersion),
	}, nil
}

// validDevicePath accepts absolute /dev paths without shell-hostile
// characters, matching what smartctl itself will open.
func validDevicePath(p string) bool {
	if p == "" || strings.ContainsAny(p, " \t\n\r\x00") {
		return false
	}
	return strings.HasPrefix(p, "/dev/")
}
