package calculate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/Alias1177/CrossWatch/models"
)

func seriesFromCloses(closes []float64) models.PriceSeries {
	samples := make([]models.PriceSample, len(closes))
	for i, c := range closes {
		samples[i] = models.PriceSample{Timestamp: int64(i) * 300000, Close: c}
	}
	return models.PriceSeries{Source: "test", Samples: samples}
}

func ascending(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	return closes
}

func defaultWindows() []models.WindowSpec {
	return []models.WindowSpec{models.NewWindowSpec(20), models.NewWindowSpec(60)}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMovingAveragesAscending(t *testing.T) {
	snapshot, err := MovingAverages(seriesFromCloses(ascending(100)), defaultWindows(), DefaultHistoryLen)
	if err != nil {
		t.Fatalf("MovingAverages returned error: %v", err)
	}

	tests := []struct {
		window   string
		current  float64
		previous float64
	}{
		{"MA20", 90.5, 89.5},
		{"MA60", 70.5, 69.5},
	}
	for _, tt := range tests {
		t.Run(tt.window, func(t *testing.T) {
			v, ok := snapshot.Windows[tt.window]
			if !ok {
				t.Fatalf("window %s missing", tt.window)
			}
			if !almostEqual(v.Current, tt.current) || !almostEqual(v.Previous, tt.previous) {
				t.Fatalf("got current=%v previous=%v, want %v/%v", v.Current, v.Previous, tt.current, tt.previous)
			}
			if len(v.History) != DefaultHistoryLen {
				t.Fatalf("history length %d, want %d", len(v.History), DefaultHistoryLen)
			}
			if !almostEqual(v.History[len(v.History)-1], v.Current) {
				t.Fatalf("last history entry %v should equal current %v", v.History[len(v.History)-1], v.Current)
			}
			if !almostEqual(v.History[len(v.History)-2], v.Previous) {
				t.Fatalf("second to last history entry should equal previous")
			}
		})
	}

	if snapshot.CurrentPrice != 100 || snapshot.CurrentTimestamp != 99*300000 {
		t.Fatalf("unexpected current price %v at %d", snapshot.CurrentPrice, snapshot.CurrentTimestamp)
	}
}

func TestMovingAveragesInsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"empty", 0, true},
		{"one short of longest", 59, true},
		{"exactly longest", 60, true},
		{"longest plus one", 61, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MovingAverages(seriesFromCloses(ascending(tt.n)), defaultWindows(), DefaultHistoryLen)
			if tt.wantErr && !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("expected ErrInsufficientData, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMovingAveragesShortHistory(t *testing.T) {
	snapshot, err := MovingAverages(seriesFromCloses(ascending(61)), defaultWindows(), DefaultHistoryLen)
	if err != nil {
		t.Fatalf("MovingAverages returned error: %v", err)
	}
	for name, v := range snapshot.Windows {
		if len(v.History) != 2 {
			t.Fatalf("%s: with 61 closes history should hold 2 aligned values, got %d", name, len(v.History))
		}
	}
}

func TestMovingAveragesInvalidWindow(t *testing.T) {
	tests := []struct {
		name    string
		windows []models.WindowSpec
	}{
		{"none", nil},
		{"zero length", []models.WindowSpec{{Name: "MA0", Length: 0}}},
		{"no name", []models.WindowSpec{{Length: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MovingAverages(seriesFromCloses(ascending(100)), tt.windows, DefaultHistoryLen)
			if !errors.Is(err, ErrInvalidWindow) {
				t.Fatalf("expected ErrInvalidWindow, got %v", err)
			}
		})
	}
}

// Cross-checks the averages against techan's SimpleMovingAverage on a noisy series
func TestMovingAveragesMatchTechan(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 60000 + 350*math.Sin(float64(i)/7) + float64(i%5)*12.5
	}

	ts := techan.NewTimeSeries()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candle := techan.NewCandle(techan.NewTimePeriod(start.Add(time.Duration(i)*5*time.Minute), 5*time.Minute))
		candle.ClosePrice = big.NewDecimal(c)
		ts.AddCandle(candle)
	}
	closeIndicator := techan.NewClosePriceIndicator(ts)

	snapshot, err := MovingAverages(seriesFromCloses(closes), defaultWindows(), DefaultHistoryLen)
	if err != nil {
		t.Fatalf("MovingAverages returned error: %v", err)
	}

	last := len(closes) - 1
	for _, w := range defaultWindows() {
		sma := techan.NewSimpleMovingAverage(closeIndicator, w.Length)
		v := snapshot.Windows[w.Name]

		if want := sma.Calculate(last).Float(); math.Abs(v.Current-want) > 1e-6 {
			t.Fatalf("%s current %v, techan %v", w.Name, v.Current, want)
		}
		if want := sma.Calculate(last - 1).Float(); math.Abs(v.Previous-want) > 1e-6 {
			t.Fatalf("%s previous %v, techan %v", w.Name, v.Previous, want)
		}
	}
}

func TestRequiredSamples(t *testing.T) {
	if got := RequiredSamples(defaultWindows()); got != 61 {
		t.Fatalf("RequiredSamples = %d, want 61", got)
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"single", []float64{42}, 42},
		{"mixed signs", []float64{-2, 4, 7}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.values); got != tt.expected {
				t.Errorf("Mean() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
