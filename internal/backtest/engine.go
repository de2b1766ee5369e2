// Package backtest replays the crossover detector over a historical close series and
// checks each confirmed signal against the price a fixed number of bars later.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Alias1177/CrossWatch/internal/analyze"
	"github.com/Alias1177/CrossWatch/internal/calculate"
	"github.com/Alias1177/CrossWatch/models"
)

// DefaultHorizon is how many bars after a signal the outcome is read
const DefaultHorizon = 12

// Engine handles backtesting operations
type Engine struct {
	source  models.SeriesSource
	short   models.WindowSpec
	long    models.WindowSpec
	horizon int
}

// Signal is one confirmed crossover found during replay
type Signal struct {
	Timestamp   int64            `json:"timestamp"`
	Kind        models.CrossKind `json:"kind"`
	Strength    models.Strength  `json:"strength"`
	Score       int              `json:"score"`
	Price       float64          `json:"price"`
	FuturePrice float64          `json:"future_price"`
	MovePct     float64          `json:"move_pct"` // signed in the signal direction
	WasCorrect  bool             `json:"was_correct"`
}

// Results summarizes a replay
type Results struct {
	Bars           int     `json:"bars"`
	Horizon        int     `json:"horizon"`
	TotalSignals   int     `json:"total_signals"`
	Correct        int     `json:"correct"`
	Wrong          int     `json:"wrong"`
	WinPercentage  float64 `json:"win_percentage"`
	AverageMovePct float64 `json:"average_move_pct"`
	MaxConsecutive struct {
		Wins   int `json:"wins"`
		Losses int `json:"losses"`
	} `json:"max_consecutive"`
	StrengthPerformance map[models.Strength]float64 `json:"strength_performance"`
	Signals             []Signal                    `json:"signals"`
}

// NewEngine creates a new backtesting engine. A horizon below 1 uses DefaultHorizon.
func NewEngine(source models.SeriesSource, short, long models.WindowSpec, horizon int) *Engine {
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	return &Engine{source: source, short: short, long: long, horizon: horizon}
}

// Run fetches limit bars and replays them
func (e *Engine) Run(ctx context.Context, limit int) (*Results, error) {
	series, err := e.source.FetchSeries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	return e.Evaluate(series)
}

// Evaluate walks the series bar by bar. Every bar sees only the closes up to itself,
// and the suppression state carries over between bars the way it does live.
func (e *Engine) Evaluate(series models.PriceSeries) (*Results, error) {
	windows := []models.WindowSpec{e.short, e.long}
	need := calculate.RequiredSamples(windows)
	if series.Len() < need+e.horizon {
		return nil, fmt.Errorf("replay over %d bars with horizon %d: have %d samples, need %d: %w",
			series.Len(), e.horizon, series.Len(), need+e.horizon, calculate.ErrInsufficientData)
	}

	results := &Results{
		Bars:                series.Len(),
		Horizon:             e.horizon,
		StrengthPerformance: make(map[models.Strength]float64),
	}
	strengthStats := map[models.Strength]struct{ correct, total int }{}

	var (
		state             analyze.MonitorState
		moves             []float64
		consecutiveWins   int
		consecutiveLosses int
	)

	for end := need; end <= series.Len()-e.horizon; end++ {
		window := models.PriceSeries{Source: series.Source, Samples: series.Samples[:end]}
		snapshot, err := calculate.MovingAverages(window, windows, calculate.DefaultHistoryLen)
		if err != nil {
			return nil, err
		}
		cross, _ := analyze.CrossoverFromSnapshot(snapshot, e.short, e.long)

		var event models.CrossoverEvent
		event, state = analyze.DetectCrossover(state, cross)
		if !event.Confirmed {
			continue
		}

		strength, score := analyze.ScoreStrength(event.Kind, analyze.StrengthFromSnapshot(snapshot, e.short, e.long))
		futurePrice := series.Samples[end-1+e.horizon].Close

		move := 0.0
		if snapshot.CurrentPrice != 0 {
			move = (futurePrice - snapshot.CurrentPrice) / snapshot.CurrentPrice * 100
		}
		if event.Kind == models.CrossDeath {
			move = -move
		}

		signal := Signal{
			Timestamp:   snapshot.CurrentTimestamp,
			Kind:        event.Kind,
			Strength:    strength,
			Score:       score,
			Price:       snapshot.CurrentPrice,
			FuturePrice: futurePrice,
			MovePct:     move,
			WasCorrect:  move > 0,
		}
		results.Signals = append(results.Signals, signal)
		results.TotalSignals++
		moves = append(moves, move)

		if signal.WasCorrect {
			results.Correct++
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			results.Wrong++
			consecutiveLosses++
			consecutiveWins = 0
		}
		if consecutiveWins > results.MaxConsecutive.Wins {
			results.MaxConsecutive.Wins = consecutiveWins
		}
		if consecutiveLosses > results.MaxConsecutive.Losses {
			results.MaxConsecutive.Losses = consecutiveLosses
		}

		stats := strengthStats[strength]
		stats.total++
		if signal.WasCorrect {
			stats.correct++
		}
		strengthStats[strength] = stats
	}

	if results.TotalSignals > 0 {
		results.WinPercentage = float64(results.Correct) / float64(results.TotalSignals) * 100
	}
	results.AverageMovePct = calculate.Mean(moves)
	for strength, stats := range strengthStats {
		if stats.total > 0 {
			results.StrengthPerformance[strength] = float64(stats.correct) / float64(stats.total) * 100
		}
	}

	return results, nil
}

// FormatResults creates a human-readable summary of backtest results
func FormatResults(results *Results) string {
	if results == nil {
		return "No backtest results available"
	}

	var b strings.Builder
	b.WriteString("\n===== CROSSOVER BACKTEST =====\n")
	fmt.Fprintf(&b, "Bars replayed: %d (outcome read %d bars after each signal)\n", results.Bars, results.Horizon)
	fmt.Fprintf(&b, "Confirmed signals: %d\n", results.TotalSignals)
	fmt.Fprintf(&b, "Correct: %d (%.2f%%)\n", results.Correct, results.WinPercentage)
	fmt.Fprintf(&b, "Average move in signal direction: %+.2f%%\n", results.AverageMovePct)
	fmt.Fprintf(&b, "Max consecutive correct: %d\n", results.MaxConsecutive.Wins)
	fmt.Fprintf(&b, "Max consecutive wrong: %d\n", results.MaxConsecutive.Losses)

	if len(results.StrengthPerformance) > 0 {
		b.WriteString("\nPerformance by strength:\n")
		strengths := make([]models.Strength, 0, len(results.StrengthPerformance))
		for s := range results.StrengthPerformance {
			strengths = append(strengths, s)
		}
		sort.Slice(strengths, func(i, j int) bool { return strengths[i] > strengths[j] })
		for _, s := range strengths {
			fmt.Fprintf(&b, "- %s: %.2f%%\n", s, results.StrengthPerformance[s])
		}
	}

	if len(results.Signals) > 0 {
		b.WriteString("\nSignals:\n")
		for _, s := range results.Signals {
			mark := "✗"
			if s.WasCorrect {
				mark = "✓"
			}
			fmt.Fprintf(&b, "%s %s %s %-6s %.2f -> %.2f (%+.2f%%)\n",
				mark, models.PriceSample{Timestamp: s.Timestamp}.Time().UTC().Format("2006-01-02 15:04"),
				s.Kind, s.Strength, s.Price, s.FuturePrice, s.MovePct)
		}
	}

	return b.String()
}
