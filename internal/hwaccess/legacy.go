package hwaccess

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// legacyAccess reads the flat psuutil layout: one directory of
// per-attribute files named psu<N>_<attribute>, plus an optional
// psu_num file carrying the slot count. The legacy layout predates
// LED control, so SetStatusLED is not supported.
type legacyAccess struct {
	root  string
	count int
}

func newLegacy(root string) (*legacyAccess, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("legacy tree %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("legacy tree %s is not a directory", root)
	}

	count, err := legacyCount(root)
	if err != nil {
		return nil, err
	}

	return &legacyAccess{root: root, count: count}, nil
}

func legacyCount(root string) (int, error) {
	raw, err := readAttr(filepath.Join(root, "psu_num"))
	if err == nil {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("legacy tree %s: bad psu_num %q", root, raw)
		}
		if count > 0 {
			return count, nil
		}
	}

	// Older trees have no psu_num file; count the presence attributes
	count := 0
	for {
		path := filepath.Join(root, fmt.Sprintf("psu%d_present", count+1))
		if _, err := os.Stat(path); err != nil {
			break
		}
		count++
	}

	if count == 0 {
		return 0, fmt.Errorf("legacy tree %s: no PSU attributes found", root)
	}

	return count, nil
}

func (l *legacyAccess) Variant() string {
	return "legacy"
}

func (l *legacyAccess) Count() int {
	return l.count
}

func (l *legacyAccess) attr(index int, name string) (string, error) {
	if index < 1 || index > l.count {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	return filepath.Join(l.root, fmt.Sprintf("psu%d_%s", index, name)), nil
}

func (l *legacyAccess) Presence(index int) (bool, error) {
	path, err := l.attr(index, "present")
	if err != nil {
		return false, err
	}

	return readBoolAttr(path)
}

func (l *legacyAccess) PowerGood(index int) (bool, error) {
	path, err := l.attr(index, "power_good")
	if err != nil {
		return false, err
	}

	return readBoolAttr(path)
}

func (l *legacyAccess) Name(index int) (string, error) {
	path, err := l.attr(index, "name")
	if err != nil {
		return "", err
	}

	return readAttr(path)
}

func (l *legacyAccess) Voltage(index int) (Optional, error) {
	return l.floatAttr(index, "voltage")
}

func (l *legacyAccess) VoltageHighThreshold(index int) (Optional, error) {
	return l.floatAttr(index, "voltage_max")
}

func (l *legacyAccess) VoltageLowThreshold(index int) (Optional, error) {
	return l.floatAttr(index, "voltage_min")
}

func (l *legacyAccess) Temperature(index int) (Optional, error) {
	return l.floatAttr(index, "temp")
}

func (l *legacyAccess) TemperatureHighThreshold(index int) (Optional, error) {
	return l.floatAttr(index, "temp_max")
}

func (l *legacyAccess) floatAttr(index int, name string) (Optional, error) {
	path, err := l.attr(index, name)
	if err != nil {
		return None(), err
	}

	return readFloatAttr(path)
}

func (l *legacyAccess) SetStatusLED(index int, _ string) error {
	if index < 1 || index > l.count {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	return ErrNotSupported
}

func (l *legacyAccess) StatusLED(index int) (string, error) {
	path, err := l.attr(index, "status_led")
	if err != nil {
		return "", err
	}

	return readAttr(path)
}
