// Package monitor drives the per-tick update cycle: read every PSU
// through the hardware-access layer, classify the readings, publish
// the resulting fields to the state store, and update the status LED
// exactly when the health classification transitioned.
package monitor

import (
	"fmt"
	"strconv"

	"codeberg.org/mutker/psumond/internal/errors"
	"codeberg.org/mutker/psumond/internal/health"
	"codeberg.org/mutker/psumond/internal/hwaccess"
	"codeberg.org/mutker/psumond/internal/logger"
	"codeberg.org/mutker/psumond/internal/statestore"
)

const (
	// NotAvailable is published in place of a value that could not be
	// read this tick.
	NotAvailable = "N/A"

	// ChassisKey is the state store row carrying chassis-wide fields.
	ChassisKey = "chassis 1"
)

// PsuKey returns the state store row key for a PSU slot.
func PsuKey(index int) string {
	return fmt.Sprintf("PSU %d", index)
}

type Monitor struct {
	hw     hwaccess.Access
	store  statestore.Store
	states map[int]*health.State
	count  int
}

func New(hw hwaccess.Access, store statestore.Store) *Monitor {
	return &Monitor{
		hw:     hw,
		store:  store,
		states: make(map[int]*health.State),
		count:  hw.Count(),
	}
}

func (m *Monitor) Count() int {
	return m.count
}

// PublishChassis writes the chassis row. Called once when the daemon
// enters the running state.
func (m *Monitor) PublishChassis() error {
	errFactory := errors.New()

	if err := m.store.SetField(ChassisKey, "psu_num", strconv.Itoa(m.count)); err != nil {
		return errFactory.Wrap(errors.ErrWriteStore, err)
	}

	return nil
}

// RunCycle executes one update pass over every PSU slot. A failure on
// one slot is logged and never stops the remaining slots.
func (m *Monitor) RunCycle() {
	for index := 1; index <= m.count; index++ {
		if err := m.updatePsu(index); err != nil {
			logger.Warn().
				Int("index", index).
				Err(err).
				Msg("Failed to update PSU status")
		}
	}

	m.publishLEDStatus()
}

func (m *Monitor) updatePsu(index int) error {
	presence, err := m.hw.Presence(index)
	if err != nil {
		if !errors.Is(err, hwaccess.ErrNotSupported) {
			return err
		}
		// Presence not reported: a unit we cannot see is not present
		presence = false
	}

	powerGood := false
	if presence {
		pg, err := m.hw.PowerGood(index)
		if err != nil {
			if !errors.Is(err, hwaccess.ErrNotSupported) {
				return err
			}
		} else {
			powerGood = pg
		}
	}

	// Baseline publish: presence and power status go out every tick,
	// before classification
	if err := m.store.SetFields(PsuKey(index), map[string]string{
		"presence": strconv.FormatBool(presence),
		"status":   strconv.FormatBool(powerGood),
	}); err != nil {
		return err
	}

	name := m.displayName(index)

	state, ok := m.states[index]
	if !ok {
		state = health.NewState(name)
		m.states[index] = state
	}

	// An absent PSU has no readable sensors; do not query them
	var voltage, voltageHigh, voltageLow, temperature, temperatureHigh hwaccess.Optional
	if presence {
		if voltage, err = m.readSensor(m.hw.Voltage, index); err != nil {
			return err
		}
		if voltageHigh, err = m.readSensor(m.hw.VoltageHighThreshold, index); err != nil {
			return err
		}
		if voltageLow, err = m.readSensor(m.hw.VoltageLowThreshold, index); err != nil {
			return err
		}
		if temperature, err = m.readSensor(m.hw.Temperature, index); err != nil {
			return err
		}
		if temperatureHigh, err = m.readSensor(m.hw.TemperatureHighThreshold, index); err != nil {
			return err
		}
	}

	changed := false

	if state.SetPresence(presence) {
		changed = true
		if presence {
			logger.Notice().Str("psu", name).Msg("PSU presence: PSU is inserted")
		} else {
			logger.Warn().Str("psu", name).Msg("PSU absence warning: PSU is not present, possible swap-out")
		}
	}

	if presence {
		if state.SetPowerGood(powerGood) {
			changed = true
			if powerGood {
				logger.Notice().Str("psu", name).Msg("PSU power: PSU power is back to normal")
			} else {
				logger.Warn().Str("psu", name).Msg("PSU power warning: PSU is out of power")
			}
		}

		if state.SetVoltage(voltage, voltageHigh, voltageLow) {
			changed = true
			if state.VoltageGood() {
				logger.Notice().
					Str("psu", name).
					Float64("voltage", voltage.Value).
					Float64("low_threshold", voltageLow.Value).
					Float64("high_threshold", voltageHigh.Value).
					Msg("PSU voltage: PSU voltage is back in range")
			} else {
				logger.Warn().
					Str("psu", name).
					Float64("voltage", voltage.Value).
					Float64("low_threshold", voltageLow.Value).
					Float64("high_threshold", voltageHigh.Value).
					Msg("PSU voltage warning: PSU voltage is out of range")
			}
		}

		if state.SetTemperature(temperature, temperatureHigh) {
			changed = true
			if state.TemperatureGood() {
				logger.Notice().
					Str("psu", name).
					Float64("temperature", temperature.Value).
					Float64("high_threshold", temperatureHigh.Value).
					Msg("PSU temperature: PSU temperature is back to normal")
			} else {
				logger.Warn().
					Str("psu", name).
					Float64("temperature", temperature.Value).
					Float64("high_threshold", temperatureHigh.Value).
					Msg("PSU temperature warning: PSU temperature is too hot")
			}
		}
	}

	if changed {
		m.updateLED(index, state)
	}

	return m.store.SetFields(PsuKey(index), map[string]string{
		"temp":                  formatSensor(temperature),
		"temp_threshold":        formatSensor(temperatureHigh),
		"voltage":               formatSensor(voltage),
		"voltage_min_threshold": formatSensor(voltageLow),
		"voltage_max_threshold": formatSensor(voltageHigh),
	})
}

func (m *Monitor) updateLED(index int, state *health.State) {
	color := hwaccess.LEDRed
	if state.IsOk() {
		color = hwaccess.LEDGreen
	}

	if err := m.hw.SetStatusLED(index, color); err != nil {
		if errors.Is(err, hwaccess.ErrNotSupported) {
			return
		}
		logger.Warn().
			Int("index", index).
			Str("color", color).
			Err(err).
			Msg("Failed to set PSU status LED")
	}
}

// publishLEDStatus publishes the reported LED color once per cycle for
// every slot that has been classified at least once.
func (m *Monitor) publishLEDStatus() {
	for index := 1; index <= m.count; index++ {
		if _, ok := m.states[index]; !ok {
			continue
		}

		color, err := m.hw.StatusLED(index)
		if err != nil {
			color = NotAvailable
		}

		if err := m.store.SetField(PsuKey(index), "led_status", color); err != nil {
			logger.Warn().
				Int("index", index).
				Err(err).
				Msg("Failed to publish PSU LED status")
		}
	}
}

// ClearPublished deletes every row the monitor owns. Called when the
// daemon stops so the observer never reads stale state.
func (m *Monitor) ClearPublished() {
	for index := 1; index <= m.count; index++ {
		if err := m.store.DeleteKey(PsuKey(index)); err != nil {
			logger.Warn().
				Int("index", index).
				Err(err).
				Msg("Failed to delete PSU row")
		}
	}

	if err := m.store.DeleteKey(ChassisKey); err != nil {
		logger.Warn().Err(err).Msg("Failed to delete chassis row")
	}
}

func (m *Monitor) displayName(index int) string {
	name, err := m.hw.Name(index)
	if err != nil || name == "" {
		return PsuKey(index)
	}

	return name
}

func (m *Monitor) readSensor(read func(int) (hwaccess.Optional, error), index int) (hwaccess.Optional, error) {
	value, err := read(index)
	if err != nil {
		if errors.Is(err, hwaccess.ErrNotSupported) {
			return hwaccess.None(), nil
		}
		return hwaccess.None(), err
	}

	return value, nil
}

func formatSensor(value hwaccess.Optional) string {
	if !value.Valid {
		return NotAvailable
	}

	return strconv.FormatFloat(value.Value, 'f', -1, 64)
}
