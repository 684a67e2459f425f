package hwaccess

// Access is the read-only capability set the monitor consumes. Two
// backends implement it: the platform attribute tree and the legacy
// flat layout. Callers never branch on which one is active.
type Access interface {
	// Variant identifies the active backend ("platform" or "legacy").
	Variant() string

	// Count returns the number of PSU slots. Fixed at acquire time;
	// PSU indexes are 1-based.
	Count() int

	Presence(index int) (bool, error)
	PowerGood(index int) (bool, error)
	Name(index int) (string, error)

	Voltage(index int) (Optional, error)
	VoltageHighThreshold(index int) (Optional, error)
	VoltageLowThreshold(index int) (Optional, error)
	Temperature(index int) (Optional, error)
	TemperatureHighThreshold(index int) (Optional, error)

	// SetStatusLED is best-effort; backends without LED control return
	// ErrNotSupported.
	SetStatusLED(index int, color string) error
	StatusLED(index int) (string, error)
}

// Optional is a sensor value that may be unavailable this tick. A zero
// reading is a valid reading; only Valid distinguishes "no data".
type Optional struct {
	Value float64
	Valid bool
}

// Some wraps a present sensor value
func Some(value float64) Optional {
	return Optional{Value: value, Valid: true}
}

// None is the unavailable sensor value
func None() Optional {
	return Optional{}
}

// Status LED colors
const (
	LEDGreen = "green"
	LEDRed   = "red"
)
