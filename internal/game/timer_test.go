package game

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSweeper_AbandonsStalePendingGames(t *testing.T) {
	ledger := newMockLedger()
	store := NewMemoryStore()
	svc := NewService(store, ledger).WithRefundTimeout(time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, arbiter, CreateRequest{
		BuyIn: 100, MinPlayers: 2, MaxPlayers: 6, Mode: ModeSingleHand, HandLabel: "x",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Backdate the record past the refund timeout
	stored, _ := store.Get(ctx, g.ID)
	stored.CreatedAt = time.Now().Add(-2 * time.Hour)
	if err := store.Update(ctx, stored); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	sweeper := NewSweeper(svc, store, testLogger())
	sweeper.sweep(ctx)

	got, _ := svc.Get(ctx, g.ID)
	if got.Status != StatusAbandoned {
		t.Errorf("expected stale game abandoned, got %s", got.Status)
	}

	// Refunds are now unblocked without waiting on the arbiter.
	// Join won't work on abandoned, so seed the participant via the store.
	ledger.fund(player(0), 100)
	if err := ledger.TransferToPot(ctx, player(0), 100, g.ID); err != nil {
		t.Fatalf("seed transfer failed: %v", err)
	}
	got.Participants = append(got.Participants, Participant{Addr: player(0), Amount: 100})
	got.CurrentPlayers = 1
	got.TotalPot = 100
	_ = store.Update(ctx, got)

	if _, err := svc.EmergencyRefund(ctx, g.ID, player(0)); err != nil {
		t.Errorf("expected refund after sweep: %v", err)
	}
}

func TestSweeper_LeavesFreshAndActiveGamesAlone(t *testing.T) {
	ledger := newMockLedger()
	store := NewMemoryStore()
	svc := NewService(store, ledger).WithRefundTimeout(time.Hour)
	ctx := context.Background()

	fresh, _ := svc.Create(ctx, arbiter, CreateRequest{
		BuyIn: 100, MinPlayers: 2, MaxPlayers: 6, Mode: ModeSingleHand, HandLabel: "fresh",
	})

	active, _ := svc.Create(ctx, arbiter, CreateRequest{
		BuyIn: 100, MinPlayers: 2, MaxPlayers: 6, Mode: ModeTournament, HandLabel: "active",
	})
	ledger.fund(player(0), 100)
	ledger.fund(player(1), 100)
	_, _ = svc.Join(ctx, active.ID, player(0))
	_, _ = svc.Join(ctx, active.ID, player(1))
	_, _ = svc.Start(ctx, active.ID, arbiter, "")

	// Backdate the active game; status should still protect it
	stored, _ := store.Get(ctx, active.ID)
	stored.CreatedAt = time.Now().Add(-2 * time.Hour)
	_ = store.Update(ctx, stored)

	sweeper := NewSweeper(svc, store, testLogger())
	sweeper.sweep(ctx)

	if got, _ := svc.Get(ctx, fresh.ID); got.Status != StatusPending {
		t.Errorf("fresh pending game swept: %s", got.Status)
	}
	if got, _ := svc.Get(ctx, active.ID); got.Status != StatusActive {
		t.Errorf("active game swept: %s", got.Status)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	ledger := newMockLedger()
	store := NewMemoryStore()
	svc := NewService(store, ledger)
	sweeper := NewSweeper(svc, store, testLogger()).WithInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweeper.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for !sweeper.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !sweeper.Running() {
		t.Fatal("sweeper did not start")
	}

	sweeper.Stop()
	deadline = time.Now().Add(time.Second)
	for sweeper.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sweeper.Running() {
		t.Fatal("sweeper did not stop")
	}
}
