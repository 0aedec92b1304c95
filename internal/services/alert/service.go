// Package alert manages price alerts and the evaluation tick that fires them
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
	"github.com/bobmcallan/tickerwatch/internal/services/quote"
)

var (
	errGone    = errors.New("alert deleted")
	errHandled = errors.New("alert no longer eligible")
)

// Service implements AlertService over the stockAlerts collection
type Service struct {
	alerts      interfaces.CollectionStore[models.Alert]
	gateway     interfaces.QuoteGateway
	notifier    interfaces.Notifier
	ids         *common.IDSource
	logger      *common.Logger
	concurrency int
	now         func() time.Time // injectable clock for testing
}

// NewService creates a new alert service.
// notifier may be nil, in which case triggers are only logged and persisted.
func NewService(alerts interfaces.CollectionStore[models.Alert], gateway interfaces.QuoteGateway, notifier interfaces.Notifier, ids *common.IDSource, logger *common.Logger) *Service {
	if ids == nil {
		ids = common.NewIDSource(nil)
	}
	return &Service{
		alerts:      alerts,
		gateway:     gateway,
		notifier:    notifier,
		ids:         ids,
		logger:      logger,
		concurrency: quote.DefaultConcurrency,
		now:         time.Now,
	}
}

// SetConcurrency bounds in-flight quote fetches per tick
func (s *Service) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Create validates and stores a new active alert. The symbol must be known
// to the gateway; a transient gateway failure does not block creation.
func (s *Service) Create(ctx context.Context, in models.AlertInput) (*models.Alert, error) {
	alert := models.Alert{
		Symbol:      strings.ToUpper(strings.TrimSpace(in.Symbol)),
		TargetPrice: in.TargetPrice,
		Condition:   models.Condition(strings.ToLower(strings.TrimSpace(string(in.Condition)))),
		Active:      true,
	}
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.gateway.GetQuote(ctx, alert.Symbol); err != nil {
		if common.IsUnknownSymbol(err) {
			return nil, err
		}
		s.logger.Warn().Err(err).Str("symbol", alert.Symbol).Msg("Could not verify alert symbol, creating anyway")
	}

	err := s.alerts.Update(ctx, func(current []models.Alert) ([]models.Alert, error) {
		for _, a := range current {
			s.ids.Observe(a.ID)
		}
		alert.ID = s.ids.Next()
		alert.CreatedAt = s.now().UTC()
		return append(current, alert), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info().
		Int64("id", alert.ID).
		Str("symbol", alert.Symbol).
		Str("condition", string(alert.Condition)).
		Float64("target", alert.TargetPrice).
		Msg("Alert created")
	return &alert, nil
}

// List returns every stored alert in insertion order
func (s *Service) List(ctx context.Context) ([]models.Alert, error) {
	return s.alerts.Load(ctx)
}

// Delete removes an alert by id
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.alerts.Update(ctx, func(current []models.Alert) ([]models.Alert, error) {
		kept := current[:0:0]
		for _, a := range current {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(current) {
			return nil, fmt.Errorf("alert %d: %w", id, common.ErrNotFound)
		}
		return kept, nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("id", id).Msg("Alert deleted")
	return nil
}

// Evaluate runs one tick: load fresh, quote every distinct eligible symbol,
// and fire each alert whose condition holds. Per-symbol fetch failures are
// logged and skipped so they never abort the tick.
func (s *Service) Evaluate(ctx context.Context) (models.Evaluation, error) {
	start := s.now()
	ev := models.Evaluation{StartedAt: start.UTC(), Triggered: []models.Alert{}}

	all, err := s.alerts.Load(ctx)
	if err != nil {
		return ev, fmt.Errorf("load alerts: %w", err)
	}

	var eligible []models.Alert
	var symbols []string
	for _, a := range all {
		if !a.Eligible() {
			continue
		}
		// A hand-edited or truncated record must never fire
		if err := a.Validate(); err != nil {
			s.logger.Warn().Err(err).Int64("id", a.ID).Msg("Stored alert is invalid, skipping")
			continue
		}
		eligible = append(eligible, a)
		symbols = append(symbols, a.Symbol)
	}
	ev.Checked = len(eligible)
	if len(eligible) == 0 {
		return ev, nil
	}

	res := quote.FetchQuotes(ctx, s.gateway, symbols, s.concurrency)
	ev.Symbols = len(res.Quotes) + len(res.Errors)
	ev.FetchFailures = len(res.Errors)
	for sym, ferr := range res.Errors {
		if common.IsUnknownSymbol(ferr) {
			s.logger.Debug().Str("symbol", sym).Msg("Alert symbol unknown to gateway, skipping")
			continue
		}
		s.logger.Warn().Err(ferr).Str("symbol", sym).Msg("Alert quote fetch failed, will retry next tick")
	}

	var sends sync.WaitGroup
	for _, a := range eligible {
		q, ok := res.Quotes[strings.ToUpper(strings.TrimSpace(a.Symbol))]
		if !ok || !a.ShouldTrigger(q.Price) {
			continue
		}

		fired, err := s.fire(ctx, a.ID, q.Price, &sends)
		switch {
		case errors.Is(err, errGone):
			ev.SkippedGone++
			s.logger.Debug().Int64("id", a.ID).Msg("Alert deleted during tick, skipping trigger")
		case errors.Is(err, errHandled):
		case err != nil:
			s.logger.Warn().Err(err).Int64("id", a.ID).Msg("Failed to persist alert trigger")
		default:
			ev.Triggered = append(ev.Triggered, *fired)
		}
	}
	sends.Wait()

	ev.Duration = float64(s.now().Sub(start).Microseconds()) / 1000
	if len(ev.Triggered) > 0 || ev.FetchFailures > 0 {
		s.logger.Info().
			Int("checked", ev.Checked).
			Int("triggered", len(ev.Triggered)).
			Int("fetch_failures", ev.FetchFailures).
			Msg("Alert evaluation complete")
	}
	return ev, nil
}

// fire re-reads the collection under its lock, confirms the alert still
// exists and is untriggered, and persists the trigger. The notification is
// started alongside the write and tracked by sends; no notifier I/O runs
// under the collection lock.
func (s *Service) fire(ctx context.Context, id int64, price float64, sends *sync.WaitGroup) (*models.Alert, error) {
	var fired models.Alert
	err := s.alerts.Update(ctx, func(current []models.Alert) ([]models.Alert, error) {
		idx := -1
		for i := range current {
			if current[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errGone
		}
		if !current[idx].Eligible() {
			return nil, errHandled
		}

		at := s.now()
		target := current[idx]
		sends.Add(1)
		go func() {
			defer sends.Done()
			s.notify(ctx, target, price, at)
		}()
		current[idx].MarkTriggered(at)
		fired = current[idx]
		return current, nil
	})
	if err != nil {
		return nil, err
	}
	return &fired, nil
}

func (s *Service) notify(ctx context.Context, a models.Alert, price float64, at time.Time) {
	n := models.AlertNotification{
		EventID:      uuid.New().String(),
		AlertID:      a.ID,
		Symbol:       a.Symbol,
		Condition:    a.Condition,
		CurrentPrice: price,
		TargetPrice:  a.TargetPrice,
		TriggeredAt:  at.UTC(),
	}
	if s.notifier == nil {
		s.logger.Info().Str("symbol", a.Symbol).Float64("price", price).Float64("target", a.TargetPrice).Msg("Alert triggered")
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn().Err(err).Int64("id", a.ID).Msg("Alert notification failed")
	}
}

// Ensure Service implements AlertService
var _ interfaces.AlertService = (*Service)(nil)
