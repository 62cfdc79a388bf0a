package smart

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"diskdock/agent/smart-agent/internal/devio"
)

// Storage-query-property request constants for NVMe protocol data.
const (
	ioctlStorageQueryProperty = 0x002D1400

	storageAdapterProtocolProperty = 49
	storageDeviceProtocolProperty  = 50
	propertyStandardQuery          = 0

	protocolTypeNvme     = 3
	nvmeDataTypeIdentify = 1
	nvmeDataTypeLogPage  = 2
	nvmeLogPageHealth    = 0x02

	nvmeIdentifyController = 1
)

// STORAGE_PROPERTY_QUERY (8 bytes) followed by
// STORAGE_PROTOCOL_SPECIFIC_DATA (40 bytes) and the data area.
const (
	nvmeProtoDataOff   = 8
	nvmeProtoHeaderLen = 40
	nvmeDataOff        = nvmeProtoDataOff + nvmeProtoHeaderLen
	nvmeDataLen        = 4096
	nvmeQueryLen       = nvmeDataOff + nvmeDataLen

	nvmeHealthPageLen  = 512
	nvmeIdentifyMinLen = 72
)

// nvmePropertyScopes is the query order: the adapter-scoped property
// first, then the device-scoped one.
var nvmePropertyScopes = []uint32{
	storageAdapterProtocolProperty,
	storageDeviceProtocolProperty,
}

// ReadNVMeSmart reads the health-information log page (0x02) of an NVMe
// controller. Both property scopes are tried, each with sub-value 0 and
// 0xFFFFFFFF; the first response whose first 512 bytes contain a
// non-zero byte wins.
func ReadNVMeSmart(ch devio.Channel) (*NVMeSmartData, error) {
	for _, scope := range nvmePropertyScopes {
		for _, subValue := range []uint32{0, 0xFFFFFFFF} {
			data, err := storageQuery(ch, scope, nvmeDataTypeLogPage, nvmeLogPageHealth, subValue)
			if err != nil {
				continue
			}
			if len(data) < nvmeHealthPageLen || allZero(data[:nvmeHealthPageLen]) {
				continue
			}
			return decodeNVMeHealthPage(data[:nvmeHealthPageLen])
		}
	}
	return nil, ErrNoDataAvailable
}

// ReadNVMeIdentify reads the controller identify page and returns its
// ASCII identity fields.
func ReadNVMeIdentify(ch devio.Channel) (*NVMeIdentifyInfo, error) {
	for _, scope := range nvmePropertyScopes {
		data, err := storageQuery(ch, scope, nvmeDataTypeIdentify, nvmeIdentifyController, 0)
		if err != nil {
			continue
		}
		if allZero(data) {
			continue
		}
		return decodeNVMeIdentify(data), nil
	}
	return nil, ErrNoDataAvailable
}

// storageQuery issues one storage-query-property control call with an
// NVMe protocol-specific sub-request and returns the protocol data.
func storageQuery(ch devio.Channel, propertyID, dataType, requestValue, requestSubValue uint32) ([]byte, error) {
	req := make([]byte, nvmeQueryLen)
	binary.LittleEndian.PutUint32(req[0:], propertyID)
	binary.LittleEndian.PutUint32(req[4:], propertyStandardQuery)

	proto := req[nvmeProtoDataOff:]
	binary.LittleEndian.PutUint32(proto[0:], protocolTypeNvme)
	binary.LittleEndian.PutUint32(proto[4:], dataType)
	binary.LittleEndian.PutUint32(proto[8:], requestValue)
	binary.LittleEndian.PutUint32(proto[12:], requestSubValue)
	binary.LittleEndian.PutUint32(proto[16:], nvmeProtoHeaderLen) // ProtocolDataOffset
	binary.LittleEndian.PutUint32(proto[20:], nvmeDataLen)        // ProtocolDataLength

	resp, err := ch.Control(ioctlStorageQueryProperty, req, nvmeQueryLen)
	if err != nil {
		return nil, fmt.Errorf("storage query property %d/%d: %w", propertyID, dataType, err)
	}

	// The driver reports the actual protocol data length back in the
	// out copy of the request header; 0 means take the requested size.
	reported := binary.LittleEndian.Uint32(resp[nvmeProtoDataOff+20:])
	copyLen := int(reported)
	if copyLen == 0 || copyLen > nvmeDataLen {
		copyLen = nvmeDataLen
	}
	return resp[nvmeDataOff : nvmeDataOff+copyLen], nil
}

// decodeNVMeHealthPage decodes the fixed offsets of the 512-byte
// health-information log page.
func decodeNVMeHealthPage(page []byte) (*NVMeSmartData, error) {
	if len(page) < nvmeHealthPageLen {
		return nil, ErrTableTooSmall
	}

	data := &NVMeSmartData{
		CriticalWarning:         page[0],
		TemperatureC:            kelvinToCelsius(binary.LittleEndian.Uint16(page[1:3])),
		AvailableSpare:          page[3],
		AvailableSpareThreshold: page[4],
		PercentageUsed:          page[5],
		DataUnitsRead:           uint128LE(page[32:48]),
		DataUnitsWritten:        uint128LE(page[48:64]),
		HostReadCommands:        uint128LE(page[64:80]),
		HostWriteCommands:       uint128LE(page[80:96]),
		ControllerBusyTime:      uint128LE(page[96:112]),
		PowerCycles:             uint128LE(page[112:128]),
		PowerOnHours:            uint128LE(page[128:144]),
		UnsafeShutdowns:         uint128LE(page[144:160]),
		MediaErrors:             uint128LE(page[160:176]),
		NumErrLogEntries:        uint128LE(page[176:192]),
		WarningTempTime:         binary.LittleEndian.Uint32(page[192:196]),
		CriticalTempTime:        binary.LittleEndian.Uint32(page[196:200]),
	}
	for i := 0; i < 8; i++ {
		off := 200 + i*2
		data.TempSensorsC[i] = kelvinToCelsius(binary.LittleEndian.Uint16(page[off : off+2]))
	}
	return data, nil
}

// kelvinToCelsius converts a raw NVMe temperature word. Values outside
// [1, 0x7FFF) are reported as TemperatureUnavailable.
func kelvinToCelsius(kelvin uint16) int {
	if kelvin >= 1 && kelvin < 0x7FFF {
		return int(kelvin) - 273
	}
	return TemperatureUnavailable
}

// uint128LE interprets 16 bytes as a little-endian unsigned integer.
func uint128LE(b []byte) *big.Int {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	return new(big.Int).SetBytes(be)
}

// decodeNVMeIdentify extracts the ASCII identity fields. Buffers
// shorter than the firmware-revision end yield an empty result rather
// than an error.
func decodeNVMeIdentify(data []byte) *NVMeIdentifyInfo {
	if len(data) < nvmeIdentifyMinLen {
		return &NVMeIdentifyInfo{}
	}
	return &NVMeIdentifyInfo{
		SerialNumber:    asciiField(data[4:24]),
		Model:           asciiField(data[24:64]),
		FirmwareVersion: asciiField(data[64:72]),
	}
}

// asciiField trims NUL and space padding from a fixed-width field.
func asciiField(b []byte) string {
	return strings.TrimSpace(strings.Trim(string(b), "\x00"))
}
