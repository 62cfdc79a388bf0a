package smart

// ATA SMART command codes shared by every access method.
const (
	ataSmartCmd = 0xB0

	// SMART feature-register sub-commands.
	subCmdReadAttributes = 0xD0
	subCmdReadThresholds = 0xD1

	// Fixed cylinder-register values required by the ATA spec to
	// unlock the SMART feature set.
	smartCylLow  = 0x4F
	smartCylHigh = 0xC2

	smartDriveHead = 0xA0

	smartBufferSize = 512
)

// Attribute and threshold tables share one layout: 30 twelve-byte
// record slots starting at offset 2 and ending before offset 362.
const (
	tableSlotStart = 2
	tableSlotSize  = 12
	tableEnd       = 362
)

// taskFileBytes encodes the 8-byte ATA task-file register block for a
// SMART command with the given feature-register sub-command.
func taskFileBytes(subCommand byte) [8]byte {
	return [8]byte{
		subCommand,     // features: SMART sub-command
		1,              // sector count
		1,              // sector number
		smartCylLow,    // cylinder low, SMART signature
		smartCylHigh,   // cylinder high, SMART signature
		smartDriveHead, // drive/head
		ataSmartCmd,    // command
		0,              // reserved
	}
}

// decodeAttributeTable parses a raw READ_ATTRIBUTES payload, looking up
// each attribute's threshold in thresholdData when a valid threshold
// table is supplied. Empty (id 0) slots are skipped.
func decodeAttributeTable(attrData, thresholdData []byte) ([]SmartAttribute, bool, error) {
	if len(attrData) < tableEnd {
		return nil, false, ErrTableTooSmall
	}
	if len(thresholdData) < tableEnd {
		thresholdData = nil
	}

	var attrs []SmartAttribute
	for i := tableSlotStart; i < tableEnd; i += tableSlotSize {
		id := attrData[i]
		if id == 0 {
			continue
		}
		// Slot layout: id +0, flags +1..+2, current +3, worst +4,
		// 48-bit little-endian raw value +5..+10, vendor byte +11.
		raw := uint64(attrData[i+5]) |
			uint64(attrData[i+6])<<8 |
			uint64(attrData[i+7])<<16 |
			uint64(attrData[i+8])<<24 |
			uint64(attrData[i+9])<<32 |
			uint64(attrData[i+10])<<40
		attrs = append(attrs, SmartAttribute{
			ID:        id,
			Current:   attrData[i+3],
			Worst:     attrData[i+4],
			Threshold: lookupThreshold(thresholdData, id),
			Raw:       raw,
		})
	}
	if len(attrs) == 0 {
		return nil, false, ErrNoAttributes
	}
	return attrs, thresholdData != nil, nil
}

// lookupThreshold scans a threshold table for the slot matching id and
// returns its threshold byte, or 0 when the table is absent or the id
// is not listed.
func lookupThreshold(thresholdData []byte, id byte) byte {
	if thresholdData == nil {
		return 0
	}
	for i := tableSlotStart; i < tableEnd; i += tableSlotSize {
		if thresholdData[i] == id {
			return thresholdData[i+1]
		}
	}
	return 0
}

// parseSmartTables combines the two raw tables into a SmartData result.
// thresholdData may be nil when the threshold read failed; thresholds
// then report 0 and ThresholdsAvailable is false.
func parseSmartTables(attrData, thresholdData []byte, method ReadMethod) (*SmartData, error) {
	attrs, thresholdsAvailable, err := decodeAttributeTable(attrData, thresholdData)
	if err != nil {
		return nil, err
	}
	return NewSmartData(attrs, method, thresholdsAvailable), nil
}

// allZero reports whether every byte of b is zero.
func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
