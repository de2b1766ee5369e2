package calculate

import (
	"errors"
	"fmt"

	"github.com/Alias1177/CrossWatch/models"
)

// DefaultHistoryLen is how many trailing current values are kept per window
const DefaultHistoryLen = 10

var (
	// ErrInsufficientData means the series does not cover the longest window plus one bar
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidWindow means a window spec cannot be averaged
	ErrInvalidWindow = errors.New("invalid window")
)

// RequiredSamples is the minimum series length for current and previous averages
func RequiredSamples(windows []models.WindowSpec) int {
	longest := 0
	for _, w := range windows {
		if w.Length > longest {
			longest = w.Length
		}
	}
	return longest + 1
}

// MovingAverages reduces a close series to current/previous simple averages per window.
// History values are aligned across windows: they start at the first bar on which every
// window is defined, so entry i of each history refers to the same bar.
func MovingAverages(series models.PriceSeries, windows []models.WindowSpec, historyLen int) (models.Snapshot, error) {
	if len(windows) == 0 {
		return models.Snapshot{}, fmt.Errorf("no windows: %w", ErrInvalidWindow)
	}
	for _, w := range windows {
		if w.Length < 1 || w.Name == "" {
			return models.Snapshot{}, fmt.Errorf("window %q length %d: %w", w.Name, w.Length, ErrInvalidWindow)
		}
	}

	need := RequiredSamples(windows)
	if series.Len() < need {
		return models.Snapshot{}, fmt.Errorf("have %d samples, need %d: %w", series.Len(), need, ErrInsufficientData)
	}

	closes := series.Closes()
	last := len(closes) - 1
	longest := need - 1

	// bars on which every window has a value
	available := len(closes) - longest + 1
	if historyLen < 1 {
		historyLen = DefaultHistoryLen
	}
	if historyLen > available {
		historyLen = available
	}

	snapshot := models.Snapshot{
		Windows:          make(map[string]models.WindowValues, len(windows)),
		CurrentPrice:     closes[last],
		CurrentTimestamp: series.Samples[last].Timestamp,
	}

	for _, w := range windows {
		history := make([]float64, 0, historyLen)
		for end := last - historyLen + 1; end <= last; end++ {
			history = append(history, averageEndingAt(closes, end, w.Length))
		}

		snapshot.Windows[w.Name] = models.WindowValues{
			Current:  averageEndingAt(closes, last, w.Length),
			Previous: averageEndingAt(closes, last-1, w.Length),
			History:  history,
		}
	}

	return snapshot, nil
}
