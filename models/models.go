package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// PriceSample is a single closed bar reduced to what the averages need
type PriceSample struct {
	Timestamp int64   `json:"timestamp"` // epoch millis, bar open time
	Close     float64 `json:"close"`
}

// Time returns the sample timestamp as local time
func (p PriceSample) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// PriceSeries is an ascending, de-duplicated run of samples from one source
type PriceSeries struct {
	Source  string        `json:"source"`
	Samples []PriceSample `json:"samples"`
}

// ErrNegativeClose is returned when a source hands back a negative close price
var ErrNegativeClose = errors.New("negative close price")

// NewPriceSeries sorts samples by timestamp and drops repeated timestamps, keeping
// the first sample seen for each one.
func NewPriceSeries(source string, samples []PriceSample) (PriceSeries, error) {
	sorted := make([]PriceSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	out := sorted[:0]
	for _, s := range sorted {
		if s.Close < 0 {
			return PriceSeries{}, fmt.Errorf("%s sample at %d: %w", source, s.Timestamp, ErrNegativeClose)
		}
		if len(out) > 0 && s.Timestamp == out[len(out)-1].Timestamp {
			continue
		}
		out = append(out, s)
	}

	return PriceSeries{Source: source, Samples: out}, nil
}

// Len returns the number of samples
func (s PriceSeries) Len() int {
	return len(s.Samples)
}

// Closes extracts the close prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		closes[i] = sample.Close
	}
	return closes
}

// Last returns the most recent sample
func (s PriceSeries) Last() (PriceSample, bool) {
	if len(s.Samples) == 0 {
		return PriceSample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// WindowSpec names a moving average window, e.g. MA20
type WindowSpec struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
}

// NewWindowSpec builds a spec named after its length ("MA20")
func NewWindowSpec(length int) WindowSpec {
	return WindowSpec{Name: fmt.Sprintf("MA%d", length), Length: length}
}

// WindowValues holds one window's averages for the latest two bars
type WindowValues struct {
	Current  float64   `json:"current"`
	Previous float64   `json:"previous"`
	History  []float64 `json:"history"` // trailing current values, oldest first
}

// Snapshot is derived fresh every check cycle
type Snapshot struct {
	Windows          map[string]WindowValues `json:"windows"`
	CurrentPrice     float64                 `json:"current_price"`
	CurrentTimestamp int64                   `json:"current_timestamp"`
}

// Window looks up a window by spec
func (s Snapshot) Window(spec WindowSpec) (WindowValues, bool) {
	v, ok := s.Windows[spec.Name]
	return v, ok
}

// CrossKind classifies the relationship between the two averages on the latest bar
type CrossKind int

const (
	CrossNone CrossKind = iota
	CrossGolden
	CrossDeath
)

func (k CrossKind) String() string {
	switch k {
	case CrossGolden:
		return "GOLDEN"
	case CrossDeath:
		return "DEATH"
	default:
		return "NONE"
	}
}

// Title is the human readable signal name
func (k CrossKind) Title() string {
	switch k {
	case CrossGolden:
		return "Golden Cross"
	case CrossDeath:
		return "Death Cross"
	default:
		return "No Cross"
	}
}

// CrossoverEvent is the detector output for one bar
type CrossoverEvent struct {
	Kind      CrossKind `json:"kind"`
	Confirmed bool      `json:"confirmed"`
}

// Strength is the qualitative tier of a confirmed crossover
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthStrong:
		return "STRONG"
	case StrengthMedium:
		return "MEDIUM"
	default:
		return "WEAK"
	}
}

// PricePosition describes where the current price sits against both averages
type PricePosition string

const (
	PositionAboveBoth PricePosition = "above both windows"
	PositionBelowBoth PricePosition = "below both windows"
	PositionBetween   PricePosition = "between windows"
)

// WindowReading is one window line of an alert body
type WindowReading struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	DeviationPct float64 `json:"deviation_pct"` // (price - value) / value * 100
}

// Alert is the record handed to a notifier
type Alert struct {
	ID        string          `json:"id"`
	Asset     string          `json:"asset"`
	Kind      CrossKind       `json:"kind"`
	Strength  Strength        `json:"strength"`
	Score     int             `json:"score"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Price     float64         `json:"price"`
	Windows   []WindowReading `json:"windows"`
	Position  PricePosition   `json:"position"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}
