package analyze

import (
	"math"

	"github.com/Alias1177/CrossWatch/models"
)

const (
	// slopeLookback is how many history entries back the slope is measured from
	slopeLookback = 5
	// separationThreshold is the relative gap between averages worth a point (0.1%)
	separationThreshold = 0.001
)

// StrengthInputs is everything the scorer looks at
type StrengthInputs struct {
	Price        float64
	Short        float64
	Long         float64
	ShortHistory []float64
	LongHistory  []float64
}

// StrengthFromSnapshot collects scorer inputs for the given windows
func StrengthFromSnapshot(snapshot models.Snapshot, short, long models.WindowSpec) StrengthInputs {
	s, _ := snapshot.Window(short)
	l, _ := snapshot.Window(long)
	return StrengthInputs{
		Price:        snapshot.CurrentPrice,
		Short:        s.Current,
		Long:         l.Current,
		ShortHistory: s.History,
		LongHistory:  l.History,
	}
}

// ScoreStrength adds trend, price and separation points for a crossover and maps the
// total to a tier. NONE always scores zero.
func ScoreStrength(kind models.CrossKind, in StrengthInputs) (models.Strength, int) {
	if kind == models.CrossNone {
		return models.StrengthWeak, 0
	}

	score := trendPoints(kind, in) + pricePoints(kind, in) + separationPoints(in)
	return strengthTier(score), score
}

func strengthTier(score int) models.Strength {
	if score >= 4 {
		return models.StrengthStrong
	} else if score >= 2 {
		return models.StrengthMedium
	}
	return models.StrengthWeak
}

// trendPoints: both averages sloping with the cross is worth 2, only the short one 1
func trendPoints(kind models.CrossKind, in StrengthInputs) int {
	shortSlope, okShort := slope(in.ShortHistory)
	longSlope, okLong := slope(in.LongHistory)
	if !okShort || !okLong {
		return 0
	}

	if kind == models.CrossDeath {
		shortSlope, longSlope = -shortSlope, -longSlope
	}
	if shortSlope > 0 && longSlope > 0 {
		return 2
	} else if shortSlope > 0 {
		return 1
	}
	return 0
}

// pricePoints: price > short > long (golden) is worth 2, price > short alone 1
func pricePoints(kind models.CrossKind, in StrengthInputs) int {
	price, short, long := in.Price, in.Short, in.Long
	if kind == models.CrossDeath {
		price, short, long = -price, -short, -long
	}

	if price > short && short > long {
		return 2
	} else if price > short {
		return 1
	}
	return 0
}

func separationPoints(in StrengthInputs) int {
	if in.Long == 0 {
		return 0
	}
	if math.Abs(in.Short-in.Long)/in.Long > separationThreshold {
		return 1
	}
	return 0
}

// slope is the relative change from slopeLookback entries back to the latest value
func slope(history []float64) (float64, bool) {
	if len(history) < slopeLookback {
		return 0, false
	}
	base := history[len(history)-slopeLookback]
	if base == 0 {
		return 0, false
	}
	return (history[len(history)-1] - base) / base, true
}
