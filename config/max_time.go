package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/automl/errors"
)

var timeUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
}

// ParseMaxTime parses a wall-clock budget such as "60 seconds", "30 mins",
// "1 hour", "30 s" or a bare number of seconds. An empty string means no limit.
func ParseMaxTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, nil
	}
	fields := strings.Fields(s)
	if len(fields) == 1 {
		if secs, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return secondsToDuration(secs)
		}
		// Go duration syntax such as "90s" or "1h30m".
		if d, err := time.ParseDuration(fields[0]); err == nil && d >= 0 {
			return d, nil
		}
		return 0, errors.Configurationf("Parameter max_time must be a number of seconds or '<value> <unit>'. Received %q", s)
	}
	if len(fields) != 2 {
		return 0, errors.Configurationf("Parameter max_time must be '<value> <unit>'. Received %q", s)
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, errors.Configurationf("Parameter max_time has an invalid value %q", fields[0])
	}
	unit, ok := timeUnits[fields[1]]
	if !ok {
		return 0, errors.Configurationf("Invalid unit. Units must be hours, mins, or seconds. Received '%s'",
			strings.TrimSuffix(fields[1], "s"))
	}
	if value < 0 {
		return 0, errors.Configuration("Parameter max_time must be non-negative")
	}
	return time.Duration(value * float64(unit)), nil
}

func secondsToDuration(secs float64) (time.Duration, error) {
	if secs < 0 {
		return 0, errors.Configuration("Parameter max_time must be non-negative")
	}
	return time.Duration(secs * float64(time.Second)), nil
}
