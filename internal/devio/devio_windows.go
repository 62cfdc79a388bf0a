//go:build windows

package devio

import (
	"fmt"

	"golang.org/x/sys/windows"
)

type deviceChannel struct {
	handle windows.Handle
}

// Open opens \\.\PhysicalDriveN with the widest access the OS grants,
// trying read+write, then read-only, then no declared access. Drives
// behind some USB bridges reject GENERIC_WRITE but still answer
// device-control calls on a zero-access handle.
func Open(index int) (Channel, error) {
	path := fmt.Sprintf(`\\.\PhysicalDrive%d`, index)
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}

	accessAttempts := []uint32{
		windows.GENERIC_READ | windows.GENERIC_WRITE,
		windows.GENERIC_READ,
		0,
	}
	var lastErr error
	for _, access := range accessAttempts {
		h, err := windows.CreateFile(
			pathPtr,
			access,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
			nil,
			windows.OPEN_EXISTING,
			windows.FILE_ATTRIBUTE_NORMAL,
			0,
		)
		if err == nil && h != windows.InvalidHandle {
			return &deviceChannel{handle: h}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, lastErr)
}

func (c *deviceChannel) Control(code uint32, request []byte, responseCap int) ([]byte, error) {
	response := make([]byte, responseCap)
	var inPtr *byte
	if len(request) > 0 {
		inPtr = &request[0]
	}
	var outPtr *byte
	if responseCap > 0 {
		outPtr = &response[0]
	}
	var returned uint32
	err := windows.DeviceIoControl(
		c.handle,
		code,
		inPtr,
		uint32(len(request)),
		outPtr,
		uint32(responseCap),
		&returned,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("devio: control %#08x: %w", code, err)
	}
	return response, nil
}

func (c *deviceChannel) Close() error {
	if c.handle == windows.InvalidHandle {
		return nil
	}
	err := windows.CloseHandle(c.handle)
	c.handle = windows.InvalidHandle
	return err
}
