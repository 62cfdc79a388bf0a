package smart

import "math/big"

// ReadMethod records which ATA access path produced a SMART table.
type ReadMethod string

const (
	// ReadMethodAtaPassThrough is the ATA pass-through IOCTL.
	ReadMethodAtaPassThrough ReadMethod = "ata_pass_through"
	// ReadMethodDirectIoctl is the legacy receive-drive-data IOCTL.
	ReadMethodDirectIoctl ReadMethod = "direct_ioctl"
	// ReadMethodSatBridge is ATA tunneled over SCSI pass-through for
	// USB-SATA bridge chips.
	ReadMethodSatBridge ReadMethod = "sat_bridge"
	// ReadMethodSmartctl marks data obtained from the smartctl
	// fallback. The raw engine never produces it.
	ReadMethodSmartctl ReadMethod = "smartctl"
)

// TemperatureUnavailable is reported when a device returns a Kelvin
// reading outside the valid range.
const TemperatureUnavailable = -1000

// SmartAttribute is one decoded slot of an ATA SMART attribute table.
// An attribute never has id 0; id 0 marks an empty slot and is skipped
// during decoding.
type SmartAttribute struct {
	ID        uint8  `json:"id"`
	Current   uint8  `json:"current"`
	Worst     uint8  `json:"worst"`
	Threshold uint8  `json:"threshold"`
	Raw       uint64 `json:"raw"`
}

// SmartData is the normalized result of one ATA SMART read. Derived
// fields are computed once at construction and never mutated.
type SmartData struct {
	ReadMethod          ReadMethod       `json:"read_method"`
	ThresholdsAvailable bool             `json:"thresholds_available"`
	Attributes          []SmartAttribute `json:"attributes"`
	TemperatureC        *int             `json:"temperature_c,omitempty"`
	PowerOnHours        *uint64          `json:"power_on_hours,omitempty"`
	PowerCycleCount     *uint64          `json:"power_cycle_count,omitempty"`
}

// Attribute returns the attribute with the given id, or nil.
func (d *SmartData) Attribute(id uint8) *SmartAttribute {
	for i := range d.Attributes {
		if d.Attributes[i].ID == id {
			return &d.Attributes[i]
		}
	}
	return nil
}

// NewSmartData builds a SmartData result from decoded attributes,
// deriving the cross-cutting metrics once at construction.
func NewSmartData(attrs []SmartAttribute, method ReadMethod, thresholdsAvailable bool) *SmartData {
	d := &SmartData{
		ReadMethod:          method,
		ThresholdsAvailable: thresholdsAvailable,
		Attributes:          attrs,
	}
	// Attribute 194 is Temperature_Celsius; some vendors only report
	// 190 (Airflow_Temperature_Cel). Vendors packing min/max readings
	// into the upper raw bytes are handled by masking to the low byte.
	tempAttr := d.Attribute(194)
	if tempAttr == nil {
		tempAttr = d.Attribute(190)
	}
	if tempAttr != nil {
		t := int(tempAttr.Raw)
		if tempAttr.Raw > 200 {
			t = int(tempAttr.Raw & 0xFF)
		}
		d.TemperatureC = &t
	}
	if a := d.Attribute(9); a != nil {
		v := a.Raw
		d.PowerOnHours = &v
	}
	if a := d.Attribute(12); a != nil {
		v := a.Raw
		d.PowerCycleCount = &v
	}
	return d
}

// NVMeSmartData is the decoded NVMe health-information log page. NVMe
// defines the wide counters as 128-bit, so they are carried as big.Int
// values.
type NVMeSmartData struct {
	CriticalWarning         uint8    `json:"critical_warning"`
	TemperatureC            int      `json:"temperature_c"`
	AvailableSpare          uint8    `json:"available_spare"`
	AvailableSpareThreshold uint8    `json:"available_spare_threshold"`
	PercentageUsed          uint8    `json:"percentage_used"`
	DataUnitsRead           *big.Int `json:"data_units_read"`
	DataUnitsWritten        *big.Int `json:"data_units_written"`
	HostReadCommands        *big.Int `json:"host_read_commands"`
	HostWriteCommands       *big.Int `json:"host_write_commands"`
	ControllerBusyTime      *big.Int `json:"controller_busy_time"`
	PowerCycles             *big.Int `json:"power_cycles"`
	PowerOnHours            *big.Int `json:"power_on_hours"`
	UnsafeShutdowns         *big.Int `json:"unsafe_shutdowns"`
	MediaErrors             *big.Int `json:"media_errors"`
	NumErrLogEntries        *big.Int `json:"num_err_log_entries"`
	WarningTempTime         uint32   `json:"warning_temp_time"`
	CriticalTempTime        uint32   `json:"critical_temp_time"`
	TempSensorsC            [8]int   `json:"temperature_sensors_c"`
}

// NVMeIdentifyInfo holds the ASCII identity fields of an NVMe
// controller, trimmed of padding.
type NVMeIdentifyInfo struct {
	Model           string `json:"model"`
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
}
