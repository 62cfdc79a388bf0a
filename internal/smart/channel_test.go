package smart

import (
	"encoding/binary"
	"errors"
)

// scriptedChannel routes Control calls to a test-supplied function and
// records every call for order assertions.
type scriptedChannel struct {
	control func(call int, code uint32, request []byte, responseCap int) ([]byte, error)
	calls   []uint32
	closed  int
}

func (c *scriptedChannel) Control(code uint32, request []byte, responseCap int) ([]byte, error) {
	call := len(c.calls)
	c.calls = append(c.calls, code)
	return c.control(call, code, request, responseCap)
}

func (c *scriptedChannel) Close() error {
	c.closed++
	return nil
}

var errTransport = errors.New("transport failed")

// failAll rejects every control call.
func failAll(int, uint32, []byte, int) ([]byte, error) {
	return nil, errTransport
}

// testAttr describes one attribute slot for buildAttrTable.
type testAttr struct {
	slot      int
	id        byte
	current   byte
	worst     byte
	threshold byte
	raw       uint64
}

// buildAttrTable builds a 512-byte attribute table with the given
// slots populated; all other slots keep id 0.
func buildAttrTable(attrs []testAttr) []byte {
	buf := make([]byte, smartBufferSize)
	for _, a := range attrs {
		off := tableSlotStart + a.slot*tableSlotSize
		buf[off] = a.id
		buf[off+3] = a.current
		buf[off+4] = a.worst
		for i := 0; i < 6; i++ {
			buf[off+5+i] = byte(a.raw >> (8 * i))
		}
	}
	return buf
}

// buildThresholdTable builds a 512-byte threshold table listing the
// given attributes' thresholds.
func buildThresholdTable(attrs []testAttr) []byte {
	buf := make([]byte, smartBufferSize)
	for _, a := range attrs {
		off := tableSlotStart + a.slot*tableSlotSize
		buf[off] = a.id
		buf[off+1] = a.threshold
	}
	return buf
}

// aptResponse wraps a 512-byte table in an ATA pass-through response
// buffer at the data offset the reader extracts from.
func aptResponse(table []byte) []byte {
	buf := make([]byte, aptTotalLen)
	copy(buf[aptDataOff:], table)
	return buf
}

// driveDataResponse wraps a table in a receive-drive-data response.
func driveDataResponse(table []byte) []byte {
	buf := make([]byte, sendCmdOutLen+smartBufferSize-1)
	copy(buf[sendCmdDataOff:], table)
	return buf
}

// satResponse wraps a table in a SCSI pass-through response.
func satResponse(table []byte) []byte {
	buf := make([]byte, sptTotalLen)
	copy(buf[sptDataOff:], table)
	return buf
}

// nvmeResponse wraps protocol data in a storage-query-property
// response, reporting the full data area length back.
func nvmeResponse(data []byte) []byte {
	buf := make([]byte, nvmeQueryLen)
	binary.LittleEndian.PutUint32(buf[nvmeProtoDataOff+20:], nvmeDataLen)
	copy(buf[nvmeDataOff:], data)
	return buf
}

// requestSubCommand extracts the SMART sub-command from a request
// buffer for the given control code.
func requestSubCommand(code uint32, request []byte) byte {
	switch code {
	case ioctlAtaPassThrough:
		return request[40]
	case dfpReceiveDriveData:
		return request[4]
	}
	return 0
}
