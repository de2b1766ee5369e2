// Package notify holds the delivery error contract shared by notifiers and a log-only notifier.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Alias1177/CrossWatch/models"
)

// ErrDeliveryFailed is wrapped by every notifier when an alert was not accepted
var ErrDeliveryFailed = errors.New("alert delivery failed")

// LogNotifier writes alerts to the log instead of pushing them anywhere
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Name() string { return "log" }

// Deliver always succeeds
func (n *LogNotifier) Deliver(_ context.Context, title, body string, strength models.Strength) error {
	n.log.Info().Str("title", title).Str("strength", strength.String()).Msg(body)
	return nil
}
