package notify

import (
	"context"
	"errors"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// LogNotifier writes each notification as a structured log line
type LogNotifier struct {
	logger *common.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *common.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at info level
func (l *LogNotifier) Notify(_ context.Context, n models.AlertNotification) error {
	l.logger.Info().
		Str("event_id", n.EventID).
		Int64("alert_id", n.AlertID).
		Str("symbol", n.Symbol).
		Str("condition", string(n.Condition)).
		Float64("price", n.CurrentPrice).
		Float64("target", n.TargetPrice).
		Msg(n.Title())
	return nil
}

// Multi fans a notification out to every sink. A failing sink is logged
// and does not stop delivery to the others.
type Multi struct {
	sinks  []interfaces.Notifier
	logger *common.Logger
}

// NewMulti creates a fan-out notifier. Nil sinks are skipped.
func NewMulti(logger *common.Logger, sinks ...interfaces.Notifier) *Multi {
	m := &Multi{logger: logger}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Notify delivers n to every sink and joins their errors
func (m *Multi) Notify(ctx context.Context, n models.AlertNotification) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, n); err != nil {
			m.logger.Warn().Err(err).Str("symbol", n.Symbol).Msg("Notification sink failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ interfaces.Notifier = (*LogNotifier)(nil)
	_ interfaces.Notifier = (*Multi)(nil)
)
