package smart

import "errors"

var (
	// ErrTableTooSmall means an attribute or threshold payload was
	// shorter than the 362 bytes a SMART table occupies.
	ErrTableTooSmall = errors.New("smart: attribute table payload too small")

	// ErrNoAttributes means a structurally valid table contained only
	// empty (id 0) slots.
	ErrNoAttributes = errors.New("smart: attribute table is empty")

	// ErrEmptyPayload means a transport call reported success but the
	// device returned an all-zero buffer. Some USB bridges ack commands
	// without returning real data, so this counts as a failure.
	ErrEmptyPayload = errors.New("smart: device returned empty payload")

	// ErrNoMethodSucceeded is terminal for an ATA read: every access
	// method and SAT variant was attempted exactly once and failed.
	ErrNoMethodSucceeded = errors.New("smart: no ATA read method succeeded")

	// ErrNoDataAvailable is terminal for an NVMe query: every property
	// scope and sub-value variant failed or returned an empty payload.
	ErrNoDataAvailable = errors.New("smart: no NVMe data available")
)
