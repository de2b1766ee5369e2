package models

import (
	"fmt"
	"time"
)

// Intervals accepted in configuration. Each source maps these to its own bar codes.
var Intervals = []string{"1min", "5min", "15min", "30min", "1h", "4h", "1day"}

// IntervalDuration converts a configured interval to the bar length
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1min":
		return time.Minute, nil
	case "5min":
		return 5 * time.Minute, nil
	case "15min":
		return 15 * time.Minute, nil
	case "30min":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1day":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}

// IntervalLabel renders an interval for alert bodies ("5m bars")
func IntervalLabel(interval string) string {
	d, err := IntervalDuration(interval)
	if err != nil {
		return interval
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd bars", int(d.Hours()/24))
	case d >= time.Hour:
		return fmt.Sprintf("%dh bars", int(d.Hours()))
	default:
		return fmt.Sprintf("%dm bars", int(d.Minutes()))
	}
}
