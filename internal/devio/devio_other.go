//go:build !windows

package devio

// Open reports ErrUnsupportedPlatform on hosts without a raw
// device-control adapter. Callers are expected to fall back to an
// external tool such as smartctl.
func Open(index int) (Channel, error) {
	return nil, ErrUnsupportedPlatform
}
