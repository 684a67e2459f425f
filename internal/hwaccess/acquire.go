package hwaccess

import (
	"fmt"

	"codeberg.org/mutker/psumond/internal/logger"
)

// Acquire selects the hardware backend once at startup, preferring the
// platform attribute tree over the legacy flat layout.
func Acquire(platformPath, legacyPath string) (Access, error) {
	platform, platformErr := newPlatform(platformPath)
	if platformErr == nil {
		logger.Debug().
			Str("root", platformPath).
			Int("psus", platform.Count()).
			Msg("Using platform PSU access")

		return platform, nil
	}
	logger.Debug().Err(platformErr).Msg("Platform PSU access unavailable")

	legacy, legacyErr := newLegacy(legacyPath)
	if legacyErr == nil {
		logger.Debug().
			Str("root", legacyPath).
			Int("psus", legacy.Count()).
			Msg("Using legacy PSU access")

		return legacy, nil
	}
	logger.Debug().Err(legacyErr).Msg("Legacy PSU access unavailable")

	return nil, fmt.Errorf("%w: platform: %v; legacy: %v", ErrNoHardware, platformErr, legacyErr)
}
