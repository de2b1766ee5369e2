// Package monitor runs check cycles: fetch closes, average them, detect a crossover,
// score it and push the alert.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alias1177/CrossWatch/internal/alert"
	"github.com/Alias1177/CrossWatch/internal/analyze"
	"github.com/Alias1177/CrossWatch/internal/calculate"
	"github.com/Alias1177/CrossWatch/internal/metrics"
	"github.com/Alias1177/CrossWatch/models"
)

// Options controls one monitor
type Options struct {
	Asset        string
	Interval     string
	Short        models.WindowSpec
	Long         models.WindowSpec
	CandleLimit  int
	PollInterval time.Duration
	RunDuration  time.Duration // zero runs exactly one cycle
	StatusEvery  int           // heartbeat every N checks, zero disables
	Location     *time.Location
}

// CycleResult describes what one cycle did
type CycleResult struct {
	Outcome  string
	Event    models.CrossoverEvent
	Strength models.Strength
	Score    int
	Alert    *models.Alert
	Source   string
}

// Monitor owns the last-signal state. Cycles are run by a single goroutine.
type Monitor struct {
	source   models.SeriesSource
	notifier models.Notifier
	composer *alert.Composer
	opts     Options
	log      zerolog.Logger

	state  analyze.MonitorState
	checks int
	outage bool
}

// New creates a monitor
func New(source models.SeriesSource, notifier models.Notifier, opts Options, log zerolog.Logger) (*Monitor, error) {
	if source == nil || notifier == nil {
		return nil, fmt.Errorf("monitor needs a source and a notifier")
	}
	if opts.Short.Length >= opts.Long.Length {
		return nil, fmt.Errorf("short window %s must be shorter than long window %s", opts.Short.Name, opts.Long.Name)
	}
	if need := calculate.RequiredSamples(opts.windows()); opts.CandleLimit < need {
		opts.CandleLimit = need
	}

	return &Monitor{
		source:   source,
		notifier: notifier,
		composer: alert.NewComposer(opts.Asset, opts.Interval, opts.Location),
		opts:     opts,
		log:      log.With().Str("component", "monitor").Str("asset", opts.Asset).Logger(),
	}, nil
}

func (o Options) windows() []models.WindowSpec {
	return []models.WindowSpec{o.Short, o.Long}
}

// State returns the last confirmed signal
func (m *Monitor) State() analyze.MonitorState { return m.state }

// Checks returns how many cycles have run
func (m *Monitor) Checks() int { return m.checks }

// Run executes cycles until RunDuration has elapsed or ctx is cancelled. A zero
// RunDuration runs a single cycle.
func (m *Monitor) Run(ctx context.Context) error {
	start := time.Now()
	m.log.Info().
		Str("short", m.opts.Short.Name).
		Str("long", m.opts.Long.Name).
		Str("interval", m.opts.Interval).
		Dur("poll_interval", m.opts.PollInterval).
		Dur("run_duration", m.opts.RunDuration).
		Msg("Starting MA crossover monitor")

	defer func() {
		m.log.Info().
			Int("checks", m.checks).
			Str("last_signal", m.state.LastConfirmed.String()).
			Dur("elapsed", time.Since(start).Round(time.Second)).
			Msg("Monitor finished")
	}()

	if m.opts.RunDuration <= 0 {
		_, _ = m.RunCycle(ctx)
		return nil
	}

	for time.Since(start) < m.opts.RunDuration {
		_, _ = m.RunCycle(ctx)

		select {
		case <-ctx.Done():
			m.log.Info().Msg("Shutdown signal received, stopping monitor")
			return nil
		case <-time.After(m.opts.PollInterval):
		}
	}
	return nil
}

// RunCycle performs one check. The returned error is informational: the monitor has
// already logged it and stays usable.
func (m *Monitor) RunCycle(ctx context.Context) (CycleResult, error) {
	m.checks++
	logger := m.log.With().Str("cycle", uuid.NewString()).Int("check", m.checks).Logger()

	series, err := m.source.FetchSeries(ctx, m.opts.CandleLimit)
	if err != nil {
		if ctx.Err() != nil {
			// shutting down is not an outage
			logger.Info().Err(err).Msg("Check interrupted")
			return CycleResult{Outcome: metrics.OutcomeCancelled}, ctx.Err()
		}
		metrics.ChecksTotal.WithLabelValues(metrics.OutcomeNoData).Inc()
		logger.Error().Err(err).Msg("Failed to fetch price data")
		m.reportOutage(ctx, logger, err)
		return CycleResult{Outcome: metrics.OutcomeNoData}, err
	}
	if m.outage {
		m.outage = false
		logger.Info().Str("source", series.Source).Msg("Price data available again")
	}

	result := CycleResult{Source: series.Source}

	snapshot, err := calculate.MovingAverages(series, m.opts.windows(), calculate.DefaultHistoryLen)
	if err != nil {
		result.Outcome = metrics.OutcomeInsufficient
		metrics.ChecksTotal.WithLabelValues(result.Outcome).Inc()
		if errors.Is(err, calculate.ErrInsufficientData) {
			logger.Debug().Err(err).Str("source", series.Source).Msg("Not enough closes yet, skipping cycle")
		} else {
			logger.Error().Err(err).Msg("Failed to compute moving averages")
		}
		return result, err
	}

	cross, _ := analyze.CrossoverFromSnapshot(snapshot, m.opts.Short, m.opts.Long)
	metrics.LastPrice.Set(snapshot.CurrentPrice)
	metrics.MovingAverage.WithLabelValues(m.opts.Short.Name).Set(cross.ShortCurr)
	metrics.MovingAverage.WithLabelValues(m.opts.Long.Name).Set(cross.LongCurr)

	logger.Info().
		Float64("price", snapshot.CurrentPrice).
		Float64(m.opts.Short.Name, cross.ShortCurr).
		Float64(m.opts.Long.Name, cross.LongCurr).
		Str("arrangement", alert.Arrangement(m.opts.Short, m.opts.Long, cross.ShortCurr, cross.LongCurr)).
		Str("source", series.Source).
		Msg("Check")

	event, next := analyze.DetectCrossover(m.state, cross)
	result.Event = event
	if event.Kind != models.CrossNone {
		metrics.CrossoversTotal.WithLabelValues(event.Kind.String(), strconv.FormatBool(event.Confirmed)).Inc()
	}

	if !event.Confirmed {
		result.Outcome = metrics.OutcomeNoSignal
		if event.Kind != models.CrossNone {
			result.Outcome = metrics.OutcomeSuppressed
			logger.Info().Str("kind", event.Kind.String()).Msg("Crossover already signalled, not repeating")
		}
		metrics.ChecksTotal.WithLabelValues(result.Outcome).Inc()
		m.heartbeat(ctx, logger, snapshot, series.Source)
		return result, nil
	}

	strength, score := analyze.ScoreStrength(event.Kind, analyze.StrengthFromSnapshot(snapshot, m.opts.Short, m.opts.Long))
	result.Strength, result.Score = strength, score

	a, err := m.composer.Compose(event, strength, score, snapshot, m.opts.Short, m.opts.Long, series.Source)
	if err != nil {
		return result, err
	}
	result.Alert = &a

	logger.Info().
		Str("kind", event.Kind.String()).
		Str("strength", strength.String()).
		Int("score", score).
		Str("alert_id", a.ID).
		Msg("Crossover confirmed")

	if err := m.notifier.Deliver(ctx, a.Title, a.Body, a.Strength); err != nil {
		result.Outcome = metrics.OutcomeDeliveryFail
		metrics.ChecksTotal.WithLabelValues(result.Outcome).Inc()
		metrics.AlertsTotal.WithLabelValues(m.notifier.Name(), "failed").Inc()
		logger.Error().Err(err).Str("notifier", m.notifier.Name()).Msg("Alert delivery failed, signal will be retried")
		return result, err
	}

	m.state = next
	result.Outcome = metrics.OutcomeAlerted
	metrics.ChecksTotal.WithLabelValues(result.Outcome).Inc()
	metrics.AlertsTotal.WithLabelValues(m.notifier.Name(), "ok").Inc()
	return result, nil
}

func (m *Monitor) heartbeat(ctx context.Context, logger zerolog.Logger, snapshot models.Snapshot, source string) {
	if m.opts.StatusEvery <= 0 || m.checks%m.opts.StatusEvery != 0 {
		return
	}

	status := m.composer.ComposeStatus(m.checks, snapshot, m.opts.Short, m.opts.Long, source, time.Now())
	if err := m.notifier.Deliver(ctx, status.Title, status.Body, status.Strength); err != nil {
		metrics.AlertsTotal.WithLabelValues(m.notifier.Name(), "failed").Inc()
		logger.Warn().Err(err).Msg("Status message not delivered")
		return
	}
	metrics.AlertsTotal.WithLabelValues(m.notifier.Name(), "ok").Inc()
	logger.Debug().Msg("Status message delivered")
}

// reportOutage tells the operator once per outage that no source answered
func (m *Monitor) reportOutage(ctx context.Context, logger zerolog.Logger, cause error) {
	if m.outage {
		return
	}
	m.outage = true

	title := fmt.Sprintf("%s MA monitor: no price data", m.opts.Asset)
	body := fmt.Sprintf("⚠️ Every price source failed\n%s", strings.TrimSpace(cause.Error()))
	if err := m.notifier.Deliver(ctx, title, body, models.StrengthMedium); err != nil {
		logger.Warn().Err(err).Msg("Outage notice not delivered")
	}
}
