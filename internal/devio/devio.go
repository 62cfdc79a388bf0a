// Package devio provides exclusive raw control channels to physical
// storage devices. A Channel wraps one OS device handle and exposes a
// single generic device-control primitive; all command construction and
// response parsing happens in the callers.
package devio

import "errors"

var (
	// ErrOpenFailed means no access level (read+write, read-only, none)
	// yielded a usable handle for the requested device.
	ErrOpenFailed = errors.New("devio: open device failed")

	// ErrUnsupportedPlatform is returned by Open on platforms without a
	// raw device-control adapter.
	ErrUnsupportedPlatform = errors.New("devio: raw device access not supported on this platform")
)

// Channel is an exclusive control channel to one physical device. It is
// not safe for concurrent use; open one channel per diagnostic request
// and close it when the request finishes. Close is idempotent.
type Channel interface {
	// Control issues one device-control call. request is the input
	// payload (may be nil) and responseCap the size of the response
	// buffer to allocate. The returned slice has length responseCap;
	// callers decode it at fixed offsets.
	Control(code uint32, request []byte, responseCap int) ([]byte, error)
	Close() error
}
