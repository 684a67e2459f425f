package hwaccess

import "errors"

var (
	// ErrNotSupported signals a capability the active backend cannot
	// provide. Callers treat it as "no data available this tick".
	ErrNotSupported = errors.New("not supported by PSU hardware")

	// ErrNoHardware signals that neither backend could be acquired.
	ErrNoHardware = errors.New("no PSU hardware access available")

	// ErrIndexOutOfRange signals a PSU index outside 1..Count().
	ErrIndexOutOfRange = errors.New("PSU index out of range")
)
