package hwaccess

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Attribute files are single-value text files in the style of sysfs
// hwmon attributes. A missing file means the capability is not wired
// up on this platform, not a read failure.

func readAttr(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotSupported
		}
		return "", fmt.Errorf("read attribute %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

func readBoolAttr(path string) (bool, error) {
	raw, err := readAttr(path)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}

	return false, fmt.Errorf("attribute %s: unrecognized boolean %q", path, raw)
}

func readFloatAttr(path string) (Optional, error) {
	raw, err := readAttr(path)
	if err != nil {
		return None(), err
	}

	// Some platforms report "N/A" for sensors the PSU model lacks
	if raw == "" || strings.EqualFold(raw, "n/a") {
		return None(), nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return None(), fmt.Errorf("attribute %s: %w", path, err)
	}

	return Some(value), nil
}

func writeAttr(path, value string) error {
	err := os.WriteFile(path, []byte(value+"\n"), 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotSupported
		}
		return fmt.Errorf("write attribute %s: %w", path, err)
	}

	return nil
}
