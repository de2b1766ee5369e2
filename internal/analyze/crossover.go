package analyze

import "github.com/Alias1177/CrossWatch/models"

// MonitorState is the only memory kept between check cycles. The zero value has no
// confirmed signal, which is how every fresh process starts.
type MonitorState struct {
	LastConfirmed models.CrossKind
}

// Crossover is the four average values the detector compares
type Crossover struct {
	ShortPrev float64
	LongPrev  float64
	ShortCurr float64
	LongCurr  float64
}

// Classify compares the previous and current bar. Equality on the previous bar counts
// for both directions, so leaving a tie either way is a cross.
func (c Crossover) Classify() models.CrossKind {
	switch {
	case c.ShortPrev <= c.LongPrev && c.ShortCurr > c.LongCurr:
		return models.CrossGolden
	case c.ShortPrev >= c.LongPrev && c.ShortCurr < c.LongCurr:
		return models.CrossDeath
	default:
		return models.CrossNone
	}
}

// DetectCrossover classifies the bar and applies repeat suppression against state.
// The returned state has the new kind recorded when the event is confirmed; callers
// commit it only once the alert is delivered.
func DetectCrossover(state MonitorState, c Crossover) (models.CrossoverEvent, MonitorState) {
	kind := c.Classify()
	if kind == models.CrossNone {
		return models.CrossoverEvent{Kind: kind}, state
	}
	if kind == state.LastConfirmed {
		return models.CrossoverEvent{Kind: kind, Confirmed: false}, state
	}
	return models.CrossoverEvent{Kind: kind, Confirmed: true}, MonitorState{LastConfirmed: kind}
}

// CrossoverFromSnapshot pulls the short and long values out of a snapshot
func CrossoverFromSnapshot(snapshot models.Snapshot, short, long models.WindowSpec) (Crossover, bool) {
	s, okShort := snapshot.Window(short)
	l, okLong := snapshot.Window(long)
	if !okShort || !okLong {
		return Crossover{}, false
	}
	return Crossover{
		ShortPrev: s.Previous,
		LongPrev:  l.Previous,
		ShortCurr: s.Current,
		LongCurr:  l.Current,
	}, true
}
