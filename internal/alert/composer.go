// Package alert turns a confirmed crossover into the record handed to notifiers.
package alert

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Alias1177/CrossWatch/models"
)

// ErrNotConfirmed is returned when asked to compose an alert for an unconfirmed event
var ErrNotConfirmed = errors.New("crossover not confirmed")

const titleTimeLayout = "01-02 15:04"

var strengthBadge = map[models.Strength]string{
	models.StrengthStrong: "🔥",
	models.StrengthMedium: "⚡",
	models.StrengthWeak:   "💫",
}

// Composer formats alerts for one asset and bar interval
type Composer struct {
	Asset    string
	Interval string
	Location *time.Location

	printer *message.Printer
	newID   func() string
}

// NewComposer creates a composer. A nil location means UTC.
func NewComposer(asset, interval string, loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{
		Asset:    asset,
		Interval: interval,
		Location: loc,
		printer:  message.NewPrinter(language.English),
		newID:    func() string { return uuid.New().String() },
	}
}

// Compose builds the alert for a confirmed crossover. It performs no I/O.
func (c *Composer) Compose(event models.CrossoverEvent, strength models.Strength, score int,
	snapshot models.Snapshot, short, long models.WindowSpec, source string) (models.Alert, error) {

	if !event.Confirmed || event.Kind == models.CrossNone {
		return models.Alert{}, ErrNotConfirmed
	}

	ts := time.UnixMilli(snapshot.CurrentTimestamp).In(c.Location)
	readings := c.readings(snapshot, short, long)
	position := Position(snapshot.CurrentPrice, readings[0].Value, readings[1].Value)

	arrow := "↗"
	icon := "📈"
	if event.Kind == models.CrossDeath {
		arrow = "↘"
		icon = "📉"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s %s (%s %s %s)\n", icon, event.Kind.Title(), short.Name, arrow, long.Name)
	fmt.Fprintf(&body, "%s Strength: %s (score %d)\n\n", strengthBadge[strength], strength, score)
	fmt.Fprintf(&body, "💰 Price: %s\n", c.money(snapshot.CurrentPrice))
	for _, r := range readings {
		fmt.Fprintf(&body, "📊 %s: %s (%+.2f%%)\n", r.Name, c.money(r.Value), r.DeviationPct)
	}
	fmt.Fprintf(&body, "\n📍 Price %s\n", position)
	fmt.Fprintf(&body, "⏰ %s crossover\n", models.IntervalLabel(c.Interval))
	fmt.Fprintf(&body, "📡 Source: %s", source)

	return models.Alert{
		ID:        c.newID(),
		Asset:     c.Asset,
		Kind:      event.Kind,
		Strength:  strength,
		Score:     score,
		Title:     fmt.Sprintf("%s %s %s", c.Asset, event.Kind.Title(), ts.Format(titleTimeLayout)),
		Body:      body.String(),
		Price:     snapshot.CurrentPrice,
		Windows:   readings,
		Position:  position,
		Source:    source,
		Timestamp: ts,
	}, nil
}

// ComposeStatus builds the periodic heartbeat sent while no cross is confirmed
func (c *Composer) ComposeStatus(check int, snapshot models.Snapshot, short, long models.WindowSpec, source string, now time.Time) models.Alert {
	readings := c.readings(snapshot, short, long)

	var body strings.Builder
	fmt.Fprintf(&body, "📊 %s/%s monitor running\n", short.Name, long.Name)
	fmt.Fprintf(&body, "💰 Price: %s\n", c.money(snapshot.CurrentPrice))
	for _, r := range readings {
		fmt.Fprintf(&body, "📈 %s: %s\n", r.Name, c.money(r.Value))
	}
	fmt.Fprintf(&body, "📍 %s\n", Arrangement(short, long, readings[0].Value, readings[1].Value))
	fmt.Fprintf(&body, "⏰ Check #%d\n", check)
	fmt.Fprintf(&body, "📡 Source: %s", source)

	return models.Alert{
		ID:        c.newID(),
		Asset:     c.Asset,
		Kind:      models.CrossNone,
		Strength:  models.StrengthWeak,
		Title:     fmt.Sprintf("%s MA monitor %s", c.Asset, now.In(c.Location).Format("15:04:05")),
		Body:      body.String(),
		Price:     snapshot.CurrentPrice,
		Windows:   readings,
		Position:  Position(snapshot.CurrentPrice, readings[0].Value, readings[1].Value),
		Source:    source,
		Timestamp: now,
	}
}

func (c *Composer) readings(snapshot models.Snapshot, short, long models.WindowSpec) []models.WindowReading {
	out := make([]models.WindowReading, 0, 2)
	for _, spec := range []models.WindowSpec{short, long} {
		v, _ := snapshot.Window(spec)
		out = append(out, models.WindowReading{
			Name:         spec.Name,
			Value:        v.Current,
			DeviationPct: Deviation(snapshot.CurrentPrice, v.Current),
		})
	}
	return out
}

func (c *Composer) money(v float64) string {
	return c.printer.Sprintf("$%.2f", v)
}

// Position compares price to the higher and lower of the two averages
func Position(price, a, b float64) models.PricePosition {
	switch {
	case price > math.Max(a, b):
		return models.PositionAboveBoth
	case price < math.Min(a, b):
		return models.PositionBelowBoth
	default:
		return models.PositionBetween
	}
}

// Deviation is how far price sits from an average, in percent of the average
func Deviation(price, average float64) float64 {
	if average == 0 {
		return 0
	}
	return (price - average) / average * 100
}

// Arrangement describes the ordering of the two averages
func Arrangement(short, long models.WindowSpec, shortValue, longValue float64) string {
	if shortValue > longValue {
		return fmt.Sprintf("%s > %s bullish", short.Name, long.Name)
	}
	return fmt.Sprintf("%s < %s bearish", short.Name, long.Name)
}
