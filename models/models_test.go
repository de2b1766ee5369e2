package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewPriceSeries(t *testing.T) {
	samples := []PriceSample{
		{Timestamp: 3000, Close: 3},
		{Timestamp: 1000, Close: 1},
		{Timestamp: 2000, Close: 2},
		{Timestamp: 2000, Close: 20},
	}

	series, err := NewPriceSeries("OKX", samples)
	if err != nil {
		t.Fatalf("NewPriceSeries returned error: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 samples after de-duplication, got %d", series.Len())
	}
	closes := series.Closes()
	expected := []float64{1, 2, 3}
	for i := range expected {
		if closes[i] != expected[i] {
			t.Fatalf("closes = %v, want %v", closes, expected)
		}
	}
	if samples[0].Timestamp != 3000 {
		t.Fatalf("input slice must not be reordered")
	}
	last, ok := series.Last()
	if !ok || last.Timestamp != 3000 {
		t.Fatalf("unexpected last sample %+v", last)
	}
}

func TestNewPriceSeriesNegativeClose(t *testing.T) {
	_, err := NewPriceSeries("OKX", []PriceSample{{Timestamp: 1, Close: -1}})
	if !errors.Is(err, ErrNegativeClose) {
		t.Fatalf("expected ErrNegativeClose, got %v", err)
	}
}

func TestEmptySeries(t *testing.T) {
	var s PriceSeries
	if _, ok := s.Last(); ok {
		t.Fatal("empty series has no last sample")
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		interval string
		expected time.Duration
		label    string
	}{
		{"1min", time.Minute, "1m bars"},
		{"5min", 5 * time.Minute, "5m bars"},
		{"4h", 4 * time.Hour, "4h bars"},
		{"1day", 24 * time.Hour, "1d bars"},
	}
	for _, tt := range tests {
		d, err := IntervalDuration(tt.interval)
		if err != nil || d != tt.expected {
			t.Errorf("IntervalDuration(%q) = %v, %v", tt.interval, d, err)
		}
		if got := IntervalLabel(tt.interval); got != tt.label {
			t.Errorf("IntervalLabel(%q) = %q, want %q", tt.interval, got, tt.label)
		}
	}

	if _, err := IntervalDuration("3min"); err == nil {
		t.Error("expected error for unsupported interval")
	}
	if got := IntervalLabel("3min"); got != "3min" {
		t.Errorf("unknown interval label = %q", got)
	}
}

func TestEnumStrings(t *testing.T) {
	if CrossGolden.String() != "GOLDEN" || CrossDeath.Title() != "Death Cross" || CrossNone.String() != "NONE" {
		t.Fatal("unexpected cross kind names")
	}
	if StrengthStrong.String() != "STRONG" || StrengthWeak.String() != "WEAK" {
		t.Fatal("unexpected strength names")
	}
	if spec := NewWindowSpec(20); spec.Name != "MA20" || spec.Length != 20 {
		t.Fatalf("unexpected window spec %+v", spec)
	}
}
