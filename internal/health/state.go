// Package health holds the per-PSU health state machine. Each Set
// operation feeds one new reading in and reports whether the stored
// classification flag actually flipped; unchanged readings are
// idempotent so callers can key logging and LED updates off the
// returned value alone.
package health

import (
	"codeberg.org/mutker/psumond/internal/hwaccess"
	"codeberg.org/mutker/psumond/internal/logger"
)

// State tracks the last evaluated health flags for one PSU slot. All
// flags start good so a PSU that comes up healthy stays silent.
type State struct {
	name            string
	presence        bool
	powerGood       bool
	voltageGood     bool
	temperatureGood bool
}

func NewState(name string) *State {
	return &State{
		name:            name,
		presence:        true,
		powerGood:       true,
		voltageGood:     true,
		temperatureGood: true,
	}
}

// SetPresence records the slot presence and reports whether it changed.
func (s *State) SetPresence(present bool) bool {
	changed := s.presence != present
	s.presence = present

	return changed
}

// SetPowerGood records the power-good flag and reports whether it
// changed. Only called while the PSU is present.
func (s *State) SetPowerGood(ok bool) bool {
	changed := s.powerGood != ok
	s.powerGood = ok

	return changed
}

// SetVoltage classifies the output voltage against its thresholds,
// inclusive at both bounds. When the reading or either threshold is
// unavailable the flag cannot be evaluated this tick: a flag stuck on
// bad is forced back to good with a single warning, and no change is
// reported either way. A sensor that stops reporting must not read as
// a hard fault, and the forced reset must not spam on every tick.
func (s *State) SetVoltage(voltage, high, low hwaccess.Optional) bool {
	if !voltage.Valid || !high.Valid || !low.Valid {
		if !s.voltageGood {
			s.voltageGood = true
			logger.Warn().
				Str("psu", s.name).
				Msg("PSU voltage or thresholds become unavailable, resetting voltage status")
		}

		return false
	}

	good := voltage.Value >= low.Value && voltage.Value <= high.Value
	changed := good != s.voltageGood
	s.voltageGood = good

	return changed
}

// SetTemperature classifies the temperature against its high
// threshold, exclusive at the bound. Same unavailable-input policy as
// SetVoltage.
func (s *State) SetTemperature(temperature, high hwaccess.Optional) bool {
	if !temperature.Valid || !high.Valid {
		if !s.temperatureGood {
			s.temperatureGood = true
			logger.Warn().
				Str("psu", s.name).
				Msg("PSU temperature or threshold become unavailable, resetting temperature status")
		}

		return false
	}

	good := temperature.Value < high.Value
	changed := good != s.temperatureGood
	s.temperatureGood = good

	return changed
}

// IsOk reports the aggregate health classification.
func (s *State) IsOk() bool {
	return s.presence && s.powerGood && s.voltageGood && s.temperatureGood
}

func (s *State) Name() string {
	return s.name
}

func (s *State) Presence() bool {
	return s.presence
}

func (s *State) PowerGood() bool {
	return s.powerGood
}

func (s *State) VoltageGood() bool {
	return s.voltageGood
}

func (s *State) TemperatureGood() bool {
	return s.temperatureGood
}
