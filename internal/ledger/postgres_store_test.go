package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/mbd888/chipvault/internal/testutil"
)

func TestPostgresStore_CreditAndBalance(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	// Unknown players read as zero, not an error
	bal, err := store.GetBalance(ctx, alice)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if bal.Available != 0 {
		t.Errorf("expected zero balance for new player, got %d", bal.Available)
	}

	if err := store.Credit(ctx, alice, 500, "dep-1", "deposit"); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if err := store.Credit(ctx, alice, 250, "dep-2", "deposit"); err != nil {
		t.Fatalf("second Credit failed: %v", err)
	}

	bal, _ = store.GetBalance(ctx, alice)
	if bal.Available != 750 || bal.TotalIn != 750 || bal.TotalOut != 0 {
		t.Errorf("balance mismatch: %+v", bal)
	}

	ok, err := store.HasDeposit(ctx, "dep-1")
	if err != nil {
		t.Fatalf("HasDeposit failed: %v", err)
	}
	if !ok {
		t.Error("expected dep-1 recorded")
	}
	if ok, _ := store.HasDeposit(ctx, "dep-unknown"); ok {
		t.Error("unexpected deposit match for unknown reference")
	}
}

func TestPostgresStore_Withdraw(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	if err := store.Withdraw(ctx, alice, 100, "wd-0"); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance for unfunded player, got %v", err)
	}

	_ = store.Credit(ctx, alice, 300, "dep-1", "deposit")

	if err := store.Withdraw(ctx, alice, 400, "wd-1"); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance on overdraw, got %v", err)
	}
	if err := store.Withdraw(ctx, alice, 200, "wd-2"); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}

	bal, _ := store.GetBalance(ctx, alice)
	if bal.Available != 100 || bal.TotalOut != 200 {
		t.Errorf("balance mismatch after withdrawal: %+v", bal)
	}
}

func TestPostgresStore_PotLifecycle(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	_ = store.Credit(ctx, alice, 500, "dep-1", "deposit")
	_ = store.Credit(ctx, bob, 500, "dep-2", "deposit")

	if err := store.TransferToPot(ctx, alice, 200, "game_pg"); err != nil {
		t.Fatalf("TransferToPot failed: %v", err)
	}
	if err := store.TransferToPot(ctx, bob, 200, "game_pg"); err != nil {
		t.Fatalf("second TransferToPot failed: %v", err)
	}

	pot, err := store.PotBalance(ctx, "game_pg")
	if err != nil {
		t.Fatalf("PotBalance failed: %v", err)
	}
	if pot != 400 {
		t.Errorf("expected pot 400, got %d", pot)
	}

	// Overdrawing the player rolls back both legs
	if err := store.TransferToPot(ctx, alice, 1000, "game_pg"); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if pot, _ = store.PotBalance(ctx, "game_pg"); pot != 400 {
		t.Errorf("failed transfer changed pot: %d", pot)
	}

	if err := store.PayoutFromPot(ctx, "game_pg", alice, 500); !errors.Is(err, ErrInsufficientPot) {
		t.Errorf("expected ErrInsufficientPot, got %v", err)
	}
	if err := store.PayoutFromPot(ctx, "nope", alice, 10); !errors.Is(err, ErrPotNotFound) {
		t.Errorf("expected ErrPotNotFound, got %v", err)
	}
	if err := store.PayoutFromPot(ctx, "game_pg", alice, 300); err != nil {
		t.Fatalf("PayoutFromPot failed: %v", err)
	}

	bal, _ := store.GetBalance(ctx, alice)
	if bal.Available != 600 {
		t.Errorf("expected winner balance 600, got %d", bal.Available)
	}

	residual, err := store.ClosePot(ctx, "game_pg", bob)
	if err != nil {
		t.Fatalf("ClosePot failed: %v", err)
	}
	if residual != 100 {
		t.Errorf("expected residual 100, got %d", residual)
	}
	bal, _ = store.GetBalance(ctx, bob)
	if bal.Available != 400 {
		t.Errorf("expected reclaim credited, got %d", bal.Available)
	}

	if _, err := store.PotBalance(ctx, "game_pg"); !errors.Is(err, ErrPotNotFound) {
		t.Errorf("expected ErrPotNotFound after close, got %v", err)
	}
	if _, err := store.ClosePot(ctx, "game_pg", bob); !errors.Is(err, ErrPotNotFound) {
		t.Errorf("expected ErrPotNotFound on double close, got %v", err)
	}
}

func TestPostgresStore_History(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()
	store := NewPostgresStore(db)
	ctx := context.Background()

	_ = store.Credit(ctx, alice, 500, "dep-1", "deposit")
	_ = store.TransferToPot(ctx, alice, 200, "game_h")
	_ = store.Withdraw(ctx, alice, 100, "wd-1")
	_ = store.Credit(ctx, bob, 50, "dep-2", "deposit")

	entries, err := store.GetHistory(ctx, alice, 50)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	types := map[string]bool{}
	for _, e := range entries {
		if e.PlayerAddr != alice {
			t.Errorf("foreign entry in history: %+v", e)
		}
		types[e.Type] = true
		if e.Type == TypeBuyIn && e.GameRef != "game_h" {
			t.Errorf("buy-in missing game ref: %q", e.GameRef)
		}
	}
	for _, want := range []string{TypeDeposit, TypeBuyIn, TypeWithdrawal} {
		if !types[want] {
			t.Errorf("missing %s entry in history", want)
		}
	}

	limited, _ := store.GetHistory(ctx, alice, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit respected, got %d entries", len(limited))
	}
}
