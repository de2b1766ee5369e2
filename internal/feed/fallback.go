// Package feed chains price sources so a failing primary falls back to the next one.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alias1177/CrossWatch/internal/metrics"
	"github.com/Alias1177/CrossWatch/models"
)

// ErrDataUnavailable means every configured source failed
var ErrDataUnavailable = errors.New("price data unavailable from all sources")

// Fallback tries each source in order and returns the first usable series
type Fallback struct {
	sources []models.SeriesSource
	log     zerolog.Logger
}

// NewFallback builds a chain; the first source is the primary
func NewFallback(log zerolog.Logger, sources ...models.SeriesSource) *Fallback {
	return &Fallback{sources: sources, log: log}
}

// Name implements models.SeriesSource
func (f *Fallback) Name() string { return "fallback" }

// Sources returns the source names in priority order
func (f *Fallback) Sources() []string {
	names := make([]string, len(f.sources))
	for i, s := range f.sources {
		names[i] = s.Name()
	}
	return names
}

// FetchSeries returns the first non-empty series. The series keeps the label of the
// source that produced it.
func (f *Fallback) FetchSeries(ctx context.Context, limit int) (models.PriceSeries, error) {
	errs := []error{ErrDataUnavailable}
	for _, src := range f.sources {
		series, err := src.FetchSeries(ctx, limit)
		if err == nil && series.Len() == 0 {
			err = fmt.Errorf("empty series")
		}
		if err == nil {
			return series, nil
		}

		metrics.SourceFailuresTotal.WithLabelValues(src.Name()).Inc()
		f.log.Warn().Err(err).Str("source", src.Name()).Msg("price source failed")
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	return models.PriceSeries{}, errors.Join(errs...)
}
