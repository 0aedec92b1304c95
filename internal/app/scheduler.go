package app

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
)

// Scheduler runs named recurring jobs. Each job runs in its own goroutine,
// once immediately and then on every tick, so ticks of one job never overlap.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // orders wg.Add in Every against cancel in Stop
	wg     sync.WaitGroup
	logger *common.Logger
}

// NewScheduler creates a scheduler whose jobs stop when Stop is called
func NewScheduler(logger *common.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel, logger: logger}
}

// Every starts fn on a fixed interval. A panic inside fn is logged and the
// loop keeps running. A tick that outlasts the interval delays the next one.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.logger.Info().Str("job", name).Dur("interval", interval).Msg("Scheduler: started")
		s.run(name, fn)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				s.logger.Info().Str("job", name).Msg("Scheduler: stopped")
				return
			case <-ticker.C:
				s.run(name, fn)
			}
		}
	}()
}

func (s *Scheduler) run(name string, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error().Str("job", name).Interface("panic", rec).Msg("Scheduler: job panicked")
		}
	}()
	if s.ctx.Err() != nil {
		return
	}
	fn(s.ctx)
}

// Stop cancels every job and waits for their goroutines to exit. It is
// safe to call concurrently with Every.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
