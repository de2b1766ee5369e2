// Package metrics exposes prometheus counters for the check loop.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crosswatch_checks_total", Help: "Check cycles by outcome"},
		[]string{"outcome"},
	)
	SourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crosswatch_source_failures_total", Help: "Failed series fetches per source"},
		[]string{"source"},
	)
	CrossoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crosswatch_crossovers_total", Help: "Detected crossovers"},
		[]string{"kind", "confirmed"},
	)
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crosswatch_alerts_total", Help: "Alert deliveries"},
		[]string{"notifier", "result"},
	)
	MovingAverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "crosswatch_moving_average", Help: "Latest moving average value"},
		[]string{"window"},
	)
	LastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "crosswatch_last_price", Help: "Latest close price"},
	)
)

func init() {
	prometheus.MustRegister(ChecksTotal, SourceFailuresTotal, CrossoversTotal, AlertsTotal, MovingAverage, LastPrice)
}

// Outcome labels for ChecksTotal
const (
	OutcomeNoData       = "no_data"
	OutcomeInsufficient = "insufficient"
	OutcomeNoSignal     = "no_signal"
	OutcomeSuppressed   = "suppressed"
	OutcomeAlerted      = "alerted"
	OutcomeDeliveryFail = "delivery_failed"
	OutcomeCancelled    = "cancelled"
)

// Serve exposes /metrics on addr in the background. A listen failure is logged;
// the caller owns shutdown of the returned server.
func Serve(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	return srv
}
