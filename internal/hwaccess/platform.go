package hwaccess

import (
	"fmt"
	"os"
	"path/filepath"
)

// platformAccess reads the chassis/psu attribute tree: one directory
// per PSU slot, one file per attribute.
//
//	<root>/psu1/present
//	<root>/psu1/power_good
//	<root>/psu1/name
//	<root>/psu1/voltage
//	<root>/psu1/voltage_max
//	<root>/psu1/voltage_min
//	<root>/psu1/temp
//	<root>/psu1/temp_max
//	<root>/psu1/status_led
type platformAccess struct {
	root  string
	count int
}

func newPlatform(root string) (*platformAccess, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("platform tree %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("platform tree %s is not a directory", root)
	}

	count := 0
	for {
		slot := filepath.Join(root, fmt.Sprintf("psu%d", count+1))
		if info, err := os.Stat(slot); err != nil || !info.IsDir() {
			break
		}
		count++
	}

	if count == 0 {
		return nil, fmt.Errorf("platform tree %s: no PSU slots found", root)
	}

	return &platformAccess{root: root, count: count}, nil
}

func (p *platformAccess) Variant() string {
	return "platform"
}

func (p *platformAccess) Count() int {
	return p.count
}

func (p *platformAccess) attr(index int, name string) (string, error) {
	if index < 1 || index > p.count {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	return filepath.Join(p.root, fmt.Sprintf("psu%d", index), name), nil
}

func (p *platformAccess) Presence(index int) (bool, error) {
	path, err := p.attr(index, "present")
	if err != nil {
		return false, err
	}

	return readBoolAttr(path)
}

func (p *platformAccess) PowerGood(index int) (bool, error) {
	path, err := p.attr(index, "power_good")
	if err != nil {
		return false, err
	}

	return readBoolAttr(path)
}

func (p *platformAccess) Name(index int) (string, error) {
	path, err := p.attr(index, "name")
	if err != nil {
		return "", err
	}

	return readAttr(path)
}

func (p *platformAccess) Voltage(index int) (Optional, error) {
	return p.floatAttr(index, "voltage")
}

func (p *platformAccess) VoltageHighThreshold(index int) (Optional, error) {
	return p.floatAttr(index, "voltage_max")
}

func (p *platformAccess) VoltageLowThreshold(index int) (Optional, error) {
	return p.floatAttr(index, "voltage_min")
}

func (p *platformAccess) Temperature(index int) (Optional, error) {
	return p.floatAttr(index, "temp")
}

func (p *platformAccess) TemperatureHighThreshold(index int) (Optional, error) {
	return p.floatAttr(index, "temp_max")
}

func (p *platformAccess) floatAttr(index int, name string) (Optional, error) {
	path, err := p.attr(index, name)
	if err != nil {
		return None(), err
	}

	return readFloatAttr(path)
}

func (p *platformAccess) SetStatusLED(index int, color string) error {
	path, err := p.attr(index, "status_led")
	if err != nil {
		return err
	}

	// Only writable where the platform wired up the LED attribute
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotSupported
		}
		return fmt.Errorf("stat attribute %s: %w", path, err)
	}

	return writeAttr(path, color)
}

func (p *platformAccess) StatusLED(index int) (string, error) {
	path, err := p.attr(index, "status_led")
	if err != nil {
		return "", err
	}

	return readAttr(path)
}
