package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/mutker/psumond/internal/hwaccess"
	"codeberg.org/mutker/psumond/internal/monitor"
	"codeberg.org/mutker/psumond/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePsu holds the readings one PSU slot reports this tick.
type fakePsu struct {
	present    bool
	presentErr error

	powerGood    bool
	powerGoodErr error

	name    string
	nameErr error

	voltage     hwaccess.Optional
	voltageErr  error
	voltageHigh hwaccess.Optional
	voltageLow  hwaccess.Optional

	temperature     hwaccess.Optional
	temperatureErr  error
	temperatureHigh hwaccess.Optional

	led       string
	ledGetErr error
	ledSetErr error

	setLEDCalls []string
}

type fakeAccess struct {
	psus []*fakePsu
}

func (f *fakeAccess) Variant() string { return "fake" }
func (f *fakeAccess) Count() int      { return len(f.psus) }

func (f *fakeAccess) psu(index int) *fakePsu { return f.psus[index-1] }

func (f *fakeAccess) Presence(index int) (bool, error) {
	p := f.psu(index)
	return p.present, p.presentErr
}

func (f *fakeAccess) PowerGood(index int) (bool, error) {
	p := f.psu(index)
	return p.powerGood, p.powerGoodErr
}

func (f *fakeAccess) Name(index int) (string, error) {
	p := f.psu(index)
	return p.name, p.nameErr
}

func (f *fakeAccess) Voltage(index int) (hwaccess.Optional, error) {
	p := f.psu(index)
	return p.voltage, p.voltageErr
}

func (f *fakeAccess) VoltageHighThreshold(index int) (hwaccess.Optional, error) {
	return f.psu(index).voltageHigh, nil
}

func (f *fakeAccess) VoltageLowThreshold(index int) (hwaccess.Optional, error) {
	return f.psu(index).voltageLow, nil
}

func (f *fakeAccess) Temperature(index int) (hwaccess.Optional, error) {
	p := f.psu(index)
	return p.temperature, p.temperatureErr
}

func (f *fakeAccess) TemperatureHighThreshold(index int) (hwaccess.Optional, error) {
	return f.psu(index).temperatureHigh, nil
}

func (f *fakeAccess) SetStatusLED(index int, color string) error {
	p := f.psu(index)
	if p.ledSetErr != nil {
		return p.ledSetErr
	}
	p.setLEDCalls = append(p.setLEDCalls, color)
	p.led = color
	return nil
}

func (f *fakeAccess) StatusLED(index int) (string, error) {
	p := f.psu(index)
	return p.led, p.ledGetErr
}

func healthyPsu() *fakePsu {
	return &fakePsu{
		present:         true,
		powerGood:       true,
		name:            "PSU 1",
		voltage:         hwaccess.Some(12.0),
		voltageHigh:     hwaccess.Some(13.0),
		voltageLow:      hwaccess.Some(11.0),
		temperature:     hwaccess.Some(40.0),
		temperatureHigh: hwaccess.Some(60.0),
		led:             "green",
	}
}

func TestHealthyPsuPublishesAllFields(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu()}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()

	fields, err := store.Fields("PSU 1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"presence":              "true",
		"status":                "true",
		"temp":                  "40",
		"temp_threshold":        "60",
		"voltage":               "12",
		"voltage_min_threshold": "11",
		"voltage_max_threshold": "13",
		"led_status":            "green",
	}, fields)

	// A healthy PSU never transitioned, so the LED was never driven
	assert.Empty(t, hw.psus[0].setLEDCalls)
}

func TestIdempotentRepublish(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu()}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()
	first, err := store.Fields("PSU 1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		m.RunCycle()
	}

	last, err := store.Fields("PSU 1")
	require.NoError(t, err)
	assert.Equal(t, first, last, "unchanging readings must republish identical fields")
	assert.Empty(t, hw.psus[0].setLEDCalls)
}

func TestPresenceTransitionDrivesLEDOnce(t *testing.T) {
	psu := healthyPsu()
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()
	require.Empty(t, psu.setLEDCalls)

	psu.present = false
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls, "absence must set the LED red exactly once")

	value, ok, err := store.GetField("PSU 1", "presence")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", value)

	value, ok, err = store.GetField("PSU 1", "status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", value, "an absent PSU reports power-good false")

	value, ok, err = store.GetField("PSU 1", "voltage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, monitor.NotAvailable, value, "absent PSU sensors publish the unavailable marker")

	// Still absent: no further LED updates or transitions
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)
}

func TestPresenceRecoveryDrivesLEDGreen(t *testing.T) {
	psu := healthyPsu()
	psu.present = false
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)

	psu.present = true
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed, hwaccess.LEDGreen}, psu.setLEDCalls)
}

func TestVoltageUnavailableAfterBadReportsNoTransition(t *testing.T) {
	psu := healthyPsu()
	psu.voltage = hwaccess.Some(15.0) // out of [11, 13]
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()
	require.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)

	// The reading disappears: forced back to good without a
	// "recovered" transition, so the LED stays untouched
	psu.voltage = hwaccess.None()
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)

	value, ok, err := store.GetField("PSU 1", "voltage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, monitor.NotAvailable, value)

	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)
}

func TestPowerGoodTransition(t *testing.T) {
	psu := healthyPsu()
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()

	psu.powerGood = false
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed}, psu.setLEDCalls)

	psu.powerGood = true
	m.RunCycle()
	assert.Equal(t, []string{hwaccess.LEDRed, hwaccess.LEDGreen}, psu.setLEDCalls)
}

func TestTransientFailureDoesNotStopOtherPsus(t *testing.T) {
	broken := healthyPsu()
	broken.presentErr = errors.New("bus timeout")
	working := healthyPsu()
	working.name = "PSU 2"

	hw := &fakeAccess{psus: []*fakePsu{broken, working}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()

	value, ok, err := store.GetField("PSU 2", "presence")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", value, "a failing slot must not block the others")
}

func TestNotSupportedPresenceTreatedAsAbsent(t *testing.T) {
	psu := healthyPsu()
	psu.presentErr = hwaccess.ErrNotSupported
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()

	value, ok, err := store.GetField("PSU 1", "presence")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", value)
}

func TestLEDSetNotSupportedIsSwallowed(t *testing.T) {
	psu := healthyPsu()
	psu.ledSetErr = hwaccess.ErrNotSupported
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()
	psu.present = false
	m.RunCycle() // transition fires, LED set fails silently

	value, ok, err := store.GetField("PSU 1", "presence")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "false", value)
}

func TestLEDStatusUnreadablePublishesMarker(t *testing.T) {
	psu := healthyPsu()
	psu.ledGetErr = hwaccess.ErrNotSupported
	hw := &fakeAccess{psus: []*fakePsu{psu}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	m.RunCycle()

	value, ok, err := store.GetField("PSU 1", "led_status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, monitor.NotAvailable, value)
}

func TestPublishChassis(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu(), healthyPsu()}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	require.NoError(t, m.PublishChassis())

	value, ok, err := store.GetField(monitor.ChassisKey, "psu_num")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", value)
}

func TestClearPublished(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu(), healthyPsu()}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	require.NoError(t, m.PublishChassis())
	m.RunCycle()
	require.NotEmpty(t, store.Keys())

	m.ClearPublished()
	assert.Empty(t, store.Keys())
}

func TestDaemonStopMidWaitClearsState(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu()}}
	store := statestore.NewMemory()
	m := monitor.New(hw, store)

	// Interval far longer than the test: a stop must not wait it out
	d, err := monitor.NewDaemon(m, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	// Wait for the first cycle to land
	require.Eventually(t, func() bool {
		_, ok, err := store.GetField("PSU 1", "presence")
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop promptly after cancellation")
	}

	assert.Equal(t, monitor.Stopping, d.State())
	assert.Empty(t, store.Keys(), "all published rows must be gone after shutdown")
}

func TestDaemonRejectsNonPositiveInterval(t *testing.T) {
	hw := &fakeAccess{psus: []*fakePsu{healthyPsu()}}
	m := monitor.New(hw, statestore.NewMemory())

	_, err := monitor.NewDaemon(m, 0)
	require.Error(t, err)

	_, err = monitor.NewDaemon(m, -time.Second)
	require.Error(t, err)
}
