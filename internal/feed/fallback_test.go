package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Alias1177/CrossWatch/models"
)

type stubSource struct {
	name   string
	series models.PriceSeries
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchSeries(_ context.Context, _ int) (models.PriceSeries, error) {
	s.calls++
	return s.series, s.err
}

func seriesOf(source string, n int) models.PriceSeries {
	samples := make([]models.PriceSample, n)
	for i := range samples {
		samples[i] = models.PriceSample{Timestamp: int64(i) * 60000, Close: 100 + float64(i)}
	}
	return models.PriceSeries{Source: source, Samples: samples}
}

func TestFallbackUsesPrimary(t *testing.T) {
	primary := &stubSource{name: "OKX", series: seriesOf("OKX", 3)}
	secondary := &stubSource{name: "Binance", series: seriesOf("Binance", 3)}

	series, err := NewFallback(zerolog.Nop(), primary, secondary).FetchSeries(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchSeries returned error: %v", err)
	}
	if series.Source != "OKX" {
		t.Fatalf("expected OKX series, got %s", series.Source)
	}
	if secondary.calls != 0 {
		t.Fatalf("secondary should not be called when primary succeeds")
	}
}

func TestFallbackFallsThrough(t *testing.T) {
	tests := []struct {
		name    string
		primary *stubSource
	}{
		{name: "primary error", primary: &stubSource{name: "OKX", err: errors.New("boom")}},
		{name: "primary empty", primary: &stubSource{name: "OKX"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &stubSource{name: "Binance", series: seriesOf("Binance", 3)}
			series, err := NewFallback(zerolog.Nop(), tt.primary, secondary).FetchSeries(context.Background(), 100)
			if err != nil {
				t.Fatalf("FetchSeries returned error: %v", err)
			}
			if series.Source != "Binance" {
				t.Fatalf("expected Binance series, got %s", series.Source)
			}
		})
	}
}

func TestFallbackAllFail(t *testing.T) {
	cause := errors.New("timeout")
	chain := NewFallback(zerolog.Nop(),
		&stubSource{name: "OKX", err: cause},
		&stubSource{name: "Binance", err: errors.New("418")},
	)

	_, err := chain.FetchSeries(context.Background(), 100)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected underlying cause to be joined, got %v", err)
	}
}

func TestFallbackSources(t *testing.T) {
	chain := NewFallback(zerolog.Nop(), &stubSource{name: "OKX"}, &stubSource{name: "Binance"})
	names := chain.Sources()
	if len(names) != 2 || names[0] != "OKX" || names[1] != "Binance" {
		t.Fatalf("unexpected source order %v", names)
	}
}
