// Package ledger tracks player chip balances and per-game pot accounts.
//
// Flow:
//  1. Player deposits chips (admin on-ramp credits the balance)
//  2. Joining a game moves the buy-in: player balance → game pot
//  3. A payout or refund moves chips: game pot → player balance
//  4. Closing a game reclaims any residual pot and releases the account
package ledger

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
	ErrPotNotFound         = errors.New("pot account not found")
	ErrInsufficientPot     = errors.New("insufficient pot balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDuplicateDeposit    = errors.New("deposit already processed")
	ErrMathOverflow        = errors.New("chip arithmetic overflow")
)

// Entry types recorded in account history.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeBuyIn      = "buy_in"
	TypePayout     = "payout"
	TypePotReclaim = "pot_reclaim"
)

// Entry represents a ledger entry.
type Entry struct {
	ID          string    `json:"id"`
	PlayerAddr  string    `json:"playerAddr"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	GameRef     string    `json:"gameRef,omitempty"`   // Game ID for buy-ins/payouts
	Reference   string    `json:"reference,omitempty"` // Deposit idempotency key
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Balance represents a player's chip balance.
type Balance struct {
	PlayerAddr string    `json:"playerAddr"`
	Available  int64     `json:"available"` // Can be spent on buy-ins
	TotalIn    int64     `json:"totalIn"`   // Lifetime deposits + winnings
	TotalOut   int64     `json:"totalOut"`  // Lifetime withdrawals + buy-ins
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Pot is the custody account holding one game's escrowed chips.
type Pot struct {
	GameRef   string    `json:"gameRef"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists ledger data. Compound transfers are atomic within the store:
// either both legs apply or neither does.
type Store interface {
	GetBalance(ctx context.Context, playerAddr string) (*Balance, error)
	Credit(ctx context.Context, playerAddr string, amount int64, reference, description string) error
	Withdraw(ctx context.Context, playerAddr string, amount int64, reference string) error
	GetHistory(ctx context.Context, playerAddr string, limit int) ([]*Entry, error)
	HasDeposit(ctx context.Context, reference string) (bool, error)

	// TransferToPot moves amount from the player's available balance into the
	// pot for gameRef, creating the pot account on first use.
	TransferToPot(ctx context.Context, playerAddr string, amount int64, gameRef string) error
	// PayoutFromPot moves amount from the pot for gameRef to the player.
	PayoutFromPot(ctx context.Context, gameRef, toAddr string, amount int64) error
	// PotBalance returns the current pot balance for gameRef.
	PotBalance(ctx context.Context, gameRef string) (int64, error)
	// ClosePot reclaims the residual pot balance to toAddr and deletes the
	// pot account. Returns the amount reclaimed.
	ClosePot(ctx context.Context, gameRef, toAddr string) (int64, error)
}

// Ledger manages chip balances.
type Ledger struct {
	store Store
}

// New creates a new ledger.
func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// GetBalance returns a player's current balance.
func (l *Ledger) GetBalance(ctx context.Context, playerAddr string) (*Balance, error) {
	return l.store.GetBalance(ctx, strings.ToLower(playerAddr))
}

// Deposit credits a player's balance. Idempotent by reference: replaying the
// same reference returns ErrDuplicateDeposit without double-crediting.
func (l *Ledger) Deposit(ctx context.Context, playerAddr string, amount int64, reference string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	exists, err := l.store.HasDeposit(ctx, reference)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateDeposit
	}

	return l.store.Credit(ctx, strings.ToLower(playerAddr), amount, reference, "deposit")
}

// Withdraw debits a player's available balance for an off-platform cash-out.
func (l *Ledger) Withdraw(ctx context.Context, playerAddr string, amount int64, reference string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return l.store.Withdraw(ctx, strings.ToLower(playerAddr), amount, reference)
}

// TransferToPot escrows a buy-in from the player into a game's pot account.
func (l *Ledger) TransferToPot(ctx context.Context, playerAddr string, amount int64, gameRef string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return l.store.TransferToPot(ctx, strings.ToLower(playerAddr), amount, gameRef)
}

// PayoutFromPot moves chips from a game's pot account to a player.
func (l *Ledger) PayoutFromPot(ctx context.Context, gameRef, toAddr string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	return l.store.PayoutFromPot(ctx, gameRef, strings.ToLower(toAddr), amount)
}

// PotBalance returns the escrowed balance of a game's pot account.
func (l *Ledger) PotBalance(ctx context.Context, gameRef string) (int64, error) {
	return l.store.PotBalance(ctx, gameRef)
}

// ClosePot reclaims the residual pot balance to toAddr and releases the pot
// account. Returns the amount reclaimed (zero for a fully distributed pot).
func (l *Ledger) ClosePot(ctx context.Context, gameRef, toAddr string) (int64, error) {
	return l.store.ClosePot(ctx, gameRef, strings.ToLower(toAddr))
}

// GetHistory returns ledger entries for a player.
func (l *Ledger) GetHistory(ctx context.Context, playerAddr string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.store.GetHistory(ctx, strings.ToLower(playerAddr), limit)
}

// CanSpend checks if a player has sufficient balance for a buy-in.
func (l *Ledger) CanSpend(ctx context.Context, playerAddr string, amount int64) (bool, error) {
	if amount < 0 {
		return false, ErrInvalidAmount
	}
	bal, err := l.store.GetBalance(ctx, strings.ToLower(playerAddr))
	if err != nil {
		return false, err
	}
	return bal.Available >= amount, nil
}

// addChecked adds two chip amounts with overflow protection.
func addChecked(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}
