package server

import (
	"context"
	"errors"

	"github.com/mbd888/chipvault/internal/game"
	"github.com/mbd888/chipvault/internal/ledger"
	"github.com/mbd888/chipvault/internal/metrics"
	"github.com/mbd888/chipvault/internal/realtime"
)

// gameLedgerAdapter adapts ledger.Ledger to game.LedgerService.
// The ledger's sentinel errors are translated into the game package's so
// handlers can match on a single error set.
type gameLedgerAdapter struct {
	l *ledger.Ledger
}

func (a *gameLedgerAdapter) TransferToPot(ctx context.Context, playerAddr string, amount int64, gameID string) error {
	err := a.l.TransferToPot(ctx, playerAddr, amount, gameID)
	return translateLedgerErr(err)
}

func (a *gameLedgerAdapter) PayoutFromPot(ctx context.Context, gameID, toAddr string, amount int64) error {
	err := a.l.PayoutFromPot(ctx, gameID, toAddr, amount)
	return translateLedgerErr(err)
}

func (a *gameLedgerAdapter) ClosePot(ctx context.Context, gameID, toAddr string) (int64, error) {
	residual, err := a.l.ClosePot(ctx, gameID, toAddr)
	return residual, translateLedgerErr(err)
}

func translateLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return game.ErrInsufficientBalance
	case errors.Is(err, ledger.ErrMathOverflow):
		return game.ErrMathOverflow
	default:
		return err
	}
}

// gameEventEmitter fans game lifecycle events out to WebSocket subscribers
// and records them in Prometheus counters.
type gameEventEmitter struct {
	hub *realtime.Hub
}

func (e *gameEventEmitter) EmitGameEvent(event string, g *game.Game) {
	switch event {
	case "game_created":
		metrics.GamesCreatedTotal.WithLabelValues(string(g.Mode)).Inc()
		metrics.ActiveGames.Inc()
	case "player_joined":
		metrics.JoinsTotal.Inc()
	case "pot_distributed":
		metrics.PayoutsTotal.Inc()
		metrics.ChipsEscrowed.Observe(float64(g.TotalPot))
		if g.Status == game.StatusCompleted {
			metrics.ActiveGames.Dec()
		}
	case "player_refunded":
		metrics.RefundsTotal.Inc()
	case "game_abandoned":
		metrics.AbandonedTotal.Inc()
		metrics.ActiveGames.Dec()
	}

	if e.hub == nil {
		return
	}

	e.hub.BroadcastGameEvent(event, map[string]interface{}{
		"gameId":     g.ID,
		"arbiter":    g.ArbiterAddr,
		"status":     string(g.Status),
		"mode":       string(g.Mode),
		"totalPot":   g.TotalPot,
		"players":    g.CurrentPlayers,
		"handNumber": g.HandNumber,
	})
}
