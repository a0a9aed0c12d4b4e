package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sweeper periodically marks stale pending games abandoned so player refunds
// unblock without an arbiter call. Refund eligibility is checked against the
// record's age at request time as well, so the sweeper is a convenience, not
// a correctness dependency.
type Sweeper struct {
	service  *Service
	store    Store
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewSweeper creates a new stale-game sweeper.
func NewSweeper(service *Service, store Store, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		store:    store,
		interval: time.Minute,
		maxAge:   service.refundTimeout,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// WithInterval overrides the sweep interval. Returns the sweeper for chaining.
func (s *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		s.interval = d
	}
	return s
}

// Running reports whether the sweeper loop is actively running.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.safeSweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in game sweeper", "panic", fmt.Sprint(r))
		}
	}()
	s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.maxAge)

	stale, err := s.store.ListPendingBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("failed to list stale pending games", "error", err)
		return
	}

	for _, g := range stale {
		if err := s.service.markStaleAbandoned(ctx, g.ID, cutoff); err != nil {
			s.logger.Warn("failed to mark stale game abandoned",
				"gameId", g.ID,
				"error", err,
			)
			continue
		}
		s.logger.Info("marked stale game abandoned",
			"gameId", g.ID,
			"arbiter", g.ArbiterAddr,
			"pot", g.TotalPot,
			"players", g.CurrentPlayers,
		)
	}
}

// markStaleAbandoned flips a stale pending game to abandoned. Preconditions
// are re-checked under the game lock since the sweeper works from a snapshot.
func (s *Service) markStaleAbandoned(ctx context.Context, gameID string, cutoff time.Time) error {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != StatusPending || !g.CreatedAt.Before(cutoff) {
		return nil
	}

	g.Status = StatusAbandoned
	g.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, g); err != nil {
		return err
	}

	s.emit("game_abandoned", g)
	return nil
}
