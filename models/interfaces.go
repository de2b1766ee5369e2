package models

import "context"

// SeriesSource supplies an ascending, de-duplicated close series for the monitored asset
type SeriesSource interface {
	Name() string
	FetchSeries(ctx context.Context, limit int) (PriceSeries, error)
}

// Notifier pushes a composed alert to the operator. A nil error means delivered.
type Notifier interface {
	Name() string
	Deliver(ctx context.Context, title, body string, strength Strength) error
}
