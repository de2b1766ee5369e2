package backtest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Alias1177/CrossWatch/internal/calculate"
	"github.com/Alias1177/CrossWatch/models"
)

type stubSource struct {
	series models.PriceSeries
	err    error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) FetchSeries(_ context.Context, _ int) (models.PriceSeries, error) {
	return s.series, s.err
}

// riseThenCrash is 60 flat bars, 20 rising bars and 40 falling bars
func riseThenCrash() models.PriceSeries {
	var closes []float64
	for i := 0; i < 60; i++ {
		closes = append(closes, 100)
	}
	for i := 1; i <= 20; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 0; i < 40; i++ {
		closes = append(closes, 80-float64(i))
	}

	samples := make([]models.PriceSample, len(closes))
	for i, c := range closes {
		samples[i] = models.PriceSample{Timestamp: int64(i) * 300000, Close: c}
	}
	return models.PriceSeries{Source: "test", Samples: samples}
}

func TestEvaluate(t *testing.T) {
	engine := NewEngine(nil, models.NewWindowSpec(20), models.NewWindowSpec(60), 12)

	results, err := engine.Evaluate(riseThenCrash())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if results.TotalSignals != 2 {
		t.Fatalf("expected 2 signals, got %d: %+v", results.TotalSignals, results.Signals)
	}
	if results.Signals[0].Kind != models.CrossGolden || results.Signals[1].Kind != models.CrossDeath {
		t.Fatalf("expected GOLDEN then DEATH, got %s then %s", results.Signals[0].Kind, results.Signals[1].Kind)
	}
	if results.Signals[0].Timestamp != 60*300000 {
		t.Fatalf("golden cross should fire on the first rising bar, got %d", results.Signals[0].Timestamp)
	}
	for _, s := range results.Signals {
		if !s.WasCorrect || s.MovePct <= 0 {
			t.Fatalf("both signals should be followed by a move in their direction: %+v", s)
		}
	}
	want := (results.Signals[0].MovePct + results.Signals[1].MovePct) / 2
	if math.Abs(results.AverageMovePct-want) > 1e-9 {
		t.Fatalf("average move %v, want %v", results.AverageMovePct, want)
	}
	if results.WinPercentage != 100 || results.MaxConsecutive.Wins != 2 || results.Wrong != 0 {
		t.Fatalf("unexpected summary %+v", results)
	}
}

func TestEvaluateNoSignals(t *testing.T) {
	samples := make([]models.PriceSample, 100)
	for i := range samples {
		samples[i] = models.PriceSample{Timestamp: int64(i), Close: 100}
	}
	results, err := NewEngine(nil, models.NewWindowSpec(20), models.NewWindowSpec(60), 5).
		Evaluate(models.PriceSeries{Samples: samples})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if results.TotalSignals != 0 || results.AverageMovePct != 0 {
		t.Fatalf("flat series should give no signals, got %+v", results)
	}
	if !strings.Contains(FormatResults(results), "Confirmed signals: 0") {
		t.Fatalf("unexpected report:\n%s", FormatResults(results))
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	series := riseThenCrash()
	series.Samples = series.Samples[:65]

	_, err := NewEngine(nil, models.NewWindowSpec(20), models.NewWindowSpec(60), 12).Evaluate(series)
	if !errors.Is(err, calculate.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRun(t *testing.T) {
	engine := NewEngine(stubSource{series: riseThenCrash()}, models.NewWindowSpec(20), models.NewWindowSpec(60), 0)
	results, err := engine.Run(context.Background(), 300)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if results.Horizon != DefaultHorizon {
		t.Fatalf("expected default horizon, got %d", results.Horizon)
	}

	report := FormatResults(results)
	for _, want := range []string{"CROSSOVER BACKTEST", "GOLDEN", "DEATH", "Performance by strength"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}

	cause := errors.New("offline")
	if _, err := NewEngine(stubSource{err: cause}, models.NewWindowSpec(20), models.NewWindowSpec(60), 0).
		Run(context.Background(), 300); !errors.Is(err, cause) {
		t.Fatalf("expected fetch error to be wrapped, got %v", err)
	}
}
