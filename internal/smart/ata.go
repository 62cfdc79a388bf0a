package smart

import (
	"encoding/binary"
	"fmt"

	"diskdock/agent/smart-agent/internal/devio"
)

// Device-control codes for the three ATA access methods.
const (
	ioctlAtaPassThrough  = 0x0004D02C
	ioctlScsiPassThrough = 0x0004D004
	dfpReceiveDriveData  = 0x0007C088
)

// ATA_PASS_THROUGH_EX layout (64-bit), followed by a 4-byte filler and
// the 512-byte data area.
const (
	aptFlagDrdyRequired = 0x01
	aptFlagDataIn       = 0x02
	aptTimeoutSeconds   = 2

	aptHeaderLen = 48
	aptDataOff   = aptHeaderLen + 4
	aptTotalLen  = 568 // header + filler + data, padded to 8
)

// SENDCMDINPARAMS / SENDCMDOUTPARAMS layout for the legacy
// receive-drive-data IOCTL. The out-params size counts the one-byte
// data placeholder, so the data area starts one byte before it ends.
const (
	sendCmdInLen   = 36
	sendCmdOutLen  = 20
	sendCmdDataOff = sendCmdOutLen - 1
)

// SCSI_PASS_THROUGH layout, followed by a 4-byte filler, the 32-byte
// sense area and the 512-byte data area.
const (
	scsiDataIn        = 1
	sptTimeoutSeconds = 4
	sptSenseLen       = 32
	sptHeaderLen      = 44
	sptSenseOff       = sptHeaderLen + 4
	sptDataOff        = sptSenseOff + sptSenseLen
	sptTotalLen       = sptDataOff + smartBufferSize
)

// ReadATASmart reads the SMART attribute and threshold tables from an
// ATA/SATA device, trying the access methods in fixed priority order:
// ATA pass-through, the legacy receive-drive-data IOCTL, then SAT
// tunneling for USB bridges. Nothing is cached between calls; every
// method is attempted at most once.
func ReadATASmart(ch devio.Channel) (*SmartData, error) {
	if data, err := readViaAtaPassThrough(ch); err == nil {
		return data, nil
	}
	if data, err := readViaReceiveDriveData(ch); err == nil {
		return data, nil
	}
	if data, err := readViaSatBridge(ch); err == nil {
		return data, nil
	}
	return nil, ErrNoMethodSucceeded
}

func readViaAtaPassThrough(ch devio.Channel) (*SmartData, error) {
	attrData, err := ataPassThroughCommand(ch, subCmdReadAttributes)
	if err != nil {
		return nil, err
	}
	// The threshold table is optional on some controllers; a failure
	// here only disables thresholds, not the whole method.
	thresholdData, err := ataPassThroughCommand(ch, subCmdReadThresholds)
	if err != nil {
		thresholdData = nil
	}
	return parseSmartTables(attrData, thresholdData, ReadMethodAtaPassThrough)
}

func readViaReceiveDriveData(ch devio.Channel) (*SmartData, error) {
	attrData, err := receiveDriveDataCommand(ch, subCmdReadAttributes)
	if err != nil {
		return nil, err
	}
	thresholdData, err := receiveDriveDataCommand(ch, subCmdReadThresholds)
	if err != nil {
		thresholdData = nil
	}
	return parseSmartTables(attrData, thresholdData, ReadMethodDirectIoctl)
}

func readViaSatBridge(ch devio.Channel) (*SmartData, error) {
	var lastErr error = ErrNoMethodSucceeded
	for _, pattern := range satAttempts {
		attrData, err := satCommand(ch, subCmdReadAttributes, pattern)
		if err != nil {
			lastErr = err
			continue
		}
		if allZero(attrData) {
			// Some bridges ack the command without moving data.
			lastErr = ErrEmptyPayload
			continue
		}
		// The bridge answered with this layout; reuse it for the
		// best-effort threshold read.
		thresholdData, err := satCommand(ch, subCmdReadThresholds, pattern)
		if err != nil || allZero(thresholdData) {
			thresholdData = nil
		}
		return parseSmartTables(attrData, thresholdData, ReadMethodSatBridge)
	}
	return nil, lastErr
}

// ataPassThroughCommand issues one SMART command via the ATA
// pass-through IOCTL and returns the 512-byte data area.
func ataPassThroughCommand(ch devio.Channel, subCommand byte) ([]byte, error) {
	req := make([]byte, aptTotalLen)
	binary.LittleEndian.PutUint16(req[0:], aptHeaderLen)                      // Length
	binary.LittleEndian.PutUint16(req[2:], aptFlagDataIn|aptFlagDrdyRequired) // AtaFlags
	binary.LittleEndian.PutUint32(req[8:], smartBufferSize)                   // DataTransferLength
	binary.LittleEndian.PutUint32(req[12:], aptTimeoutSeconds)                // TimeOutValue
	binary.LittleEndian.PutUint64(req[24:], aptDataOff)                       // DataBufferOffset
	tf := taskFileBytes(subCommand)
	copy(req[40:48], tf[:]) // CurrentTaskFile

	resp, err := ch.Control(ioctlAtaPassThrough, req, aptTotalLen)
	if err != nil {
		return nil, fmt.Errorf("ata pass-through %#02x: %w", subCommand, err)
	}
	return resp[aptDataOff : aptDataOff+smartBufferSize], nil
}

// receiveDriveDataCommand issues one SMART command via the legacy
// receive-drive-data IOCTL with the task-file registers embedded in
// the request parameters.
func receiveDriveDataCommand(ch devio.Channel, subCommand byte) ([]byte, error) {
	req := make([]byte, sendCmdInLen)
	binary.LittleEndian.PutUint32(req[0:], smartBufferSize) // cBufferSize
	tf := taskFileBytes(subCommand)
	copy(req[4:12], tf[:]) // irDriveRegs

	respCap := sendCmdOutLen + smartBufferSize - 1
	resp, err := ch.Control(dfpReceiveDriveData, req, respCap)
	if err != nil {
		return nil, fmt.Errorf("receive drive data %#02x: %w", subCommand, err)
	}
	return resp[sendCmdDataOff : sendCmdDataOff+smartBufferSize], nil
}

// satCommand issues one SMART command tunneled in a SCSI CDB built for
// the given bridge layout and returns the 512-byte data area.
func satCommand(ch devio.Channel, subCommand byte, pattern satPattern) ([]byte, error) {
	req := make([]byte, sptTotalLen)
	binary.LittleEndian.PutUint16(req[0:], sptHeaderLen)       // Length
	req[6] = pattern.cdbLength()                               // CdbLength
	req[7] = sptSenseLen                                       // SenseInfoLength
	req[8] = scsiDataIn                                        // DataIn
	binary.LittleEndian.PutUint32(req[12:], smartBufferSize)   // DataTransferLength
	binary.LittleEndian.PutUint32(req[16:], sptTimeoutSeconds) // TimeOutValue
	binary.LittleEndian.PutUint32(req[20:], sptDataOff)        // DataBufferOffset
	binary.LittleEndian.PutUint32(req[24:], sptSenseOff)       // SenseInfoOffset

	var cdb [16]byte
	buildSATCDB(&cdb, subCommand, pattern)
	copy(req[28:44], cdb[:])

	resp, err := ch.Control(ioctlScsiPassThrough, req, sptTotalLen)
	if err != nil {
		return nil, fmt.Errorf("scsi/sat pass-through %#02x: %w", subCommand, err)
	}
	return resp[sptDataOff : sptDataOff+smartBufferSize], nil
}
