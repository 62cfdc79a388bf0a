package smart

// satPattern selects one CDB layout for tunneling an ATA SMART command
// through a SCSI/SAT bridge. USB-SATA bridge chips disagree on the CDB
// shape, so the reader walks a fixed list of known layouts.
type satPattern struct {
	kind satKind
	// flags is the protocol/direction byte for the generic ATA12 and
	// ATA16 layouts (0x2E or 0x0E); unused by the vendor layouts.
	flags byte
}

type satKind int

const (
	satAta12 satKind = iota
	satAta16
	satSunplus
	satIoData
	satLogitec
	satProlific
	satJMicron
	satCypress
)

// satAttempts is the bridge probe order: the two generic SAT layouts
// with both known flag bytes first, then the vendor-specific ones.
var satAttempts = []satPattern{
	{kind: satAta12, flags: 0x2E},
	{kind: satAta16, flags: 0x2E},
	{kind: satAta12, flags: 0x0E},
	{kind: satAta16, flags: 0x0E},
	{kind: satJMicron},
	{kind: satSunplus},
	{kind: satIoData},
	{kind: satLogitec},
	{kind: satProlific},
	{kind: satCypress},
}

// cdbLength returns the CDB size the bridge expects for this layout.
func (p satPattern) cdbLength() byte {
	switch p.kind {
	case satAta16, satProlific, satCypress:
		return 16
	case satLogitec:
		return 10
	default:
		return 12
	}
}

// buildSATCDB fills a 16-byte CDB area with the pattern's layout for a
// SMART command carrying subCommand in the ATA feature register. Bytes
// past the pattern's CDB length stay zero.
func buildSATCDB(cdb *[16]byte, subCommand byte, p satPattern) {
	*cdb = [16]byte{}
	switch p.kind {
	case satAta12:
		cdb[0] = 0xA1 // ATA PASS-THROUGH (12)
		cdb[1] = 0x08 // PIO data-in
		cdb[2] = p.flags
		cdb[3] = subCommand
		cdb[4] = 0x01
		cdb[5] = 0x01
		cdb[6] = smartCylLow
		cdb[7] = smartCylHigh
		cdb[8] = smartDriveHead
		cdb[9] = ataSmartCmd
	case satAta16:
		cdb[0] = 0x85 // ATA PASS-THROUGH (16)
		cdb[1] = 0x08
		cdb[2] = p.flags
		cdb[4] = subCommand
		cdb[6] = 0x01
		cdb[10] = smartCylLow
		cdb[12] = smartCylHigh
		cdb[13] = smartDriveHead
		cdb[14] = ataSmartCmd
	case satSunplus:
		cdb[0] = 0xF8
		cdb[2] = 0x22
		cdb[3] = 0x10
		cdb[4] = 0x01
		cdb[5] = subCommand
		cdb[6] = 0x01
		cdb[8] = smartCylLow
		cdb[9] = smartCylHigh
		cdb[10] = smartDriveHead
		cdb[11] = ataSmartCmd
	case satIoData:
		cdb[0] = 0xE3
		cdb[2] = subCommand
		cdb[5] = smartCylLow
		cdb[6] = smartCylHigh
		cdb[7] = smartDriveHead
		cdb[8] = ataSmartCmd
	case satLogitec:
		cdb[0] = 0xE0
		cdb[2] = subCommand
		cdb[5] = smartCylLow
		cdb[6] = smartCylHigh
		cdb[7] = smartDriveHead
		cdb[8] = ataSmartCmd
		cdb[9] = 0x4C
	case satProlific:
		cdb[0] = 0xD8
		cdb[1] = 0x15
		cdb[3] = subCommand
		cdb[4] = 0x06
		cdb[5] = 0x7B
		cdb[8] = 0x02
		cdb[10] = 0x01
		cdb[12] = smartCylLow
		cdb[13] = smartCylHigh
		cdb[14] = smartDriveHead
		cdb[15] = ataSmartCmd
	case satJMicron:
		cdb[0] = 0xDF
		cdb[1] = 0x10
		cdb[3] = 0x02
		cdb[5] = subCommand
		cdb[6] = 0x01
		cdb[7] = 0x01
		cdb[8] = smartCylLow
		cdb[9] = smartCylHigh
		cdb[10] = smartDriveHead
		cdb[11] = ataSmartCmd
	case satCypress:
		cdb[0] = 0x24
		cdb[1] = 0x24
		cdb[3] = 0xBE
		cdb[4] = 0x01
		cdb[6] = subCommand
		cdb[9] = smartCylLow
		cdb[10] = smartCylHigh
		cdb[11] = smartDriveHead
		cdb[12] = ataSmartCmd
	}
}

// subCommandOffset returns the CDB byte index carrying the SMART
// sub-command for this layout.
func (p satPattern) subCommandOffset() int {
	switch p.kind {
	case satAta12:
		return 3
	case satAta16:
		return 4
	case satSunplus:
		return 5
	case satIoData, satLogitec:
		return 2
	case satProlific:
		return 3
	case satJMicron:
		return 5
	case satCypress:
		return 6
	}
	return -1
}
