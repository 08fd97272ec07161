package helpers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const day = 24 * time.Hour

// ParseDuration reads durations from config values. It accepts everything
// time.ParseDuration does plus a leading day count ("7d", "1d12h"), and falls
// back to defaultDuration for empty, malformed or non-positive input.
func ParseDuration(value string, defaultDuration time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return defaultDuration
	}
	d, err := ParsePositiveDuration(value)
	if err != nil {
		log.Warn().Err(err).Str("value", value).Dur("default", defaultDuration).Msg("Invalid duration in configuration, using default")
		return defaultDuration
	}
	return d
}

// ParsePositiveDuration is the strict form of ParseDuration
func ParsePositiveDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	var days time.Duration
	if i := strings.IndexByte(value, 'd'); i > 0 {
		n, err := strconv.Atoi(value[:i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid day count in %q", value)
		}
		days = time.Duration(n) * day
		value = value[i+1:]
	}

	var rest time.Duration
	if value != "" {
		var err error
		if rest, err = time.ParseDuration(value); err != nil {
			return 0, err
		}
	}

	d := days + rest
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
