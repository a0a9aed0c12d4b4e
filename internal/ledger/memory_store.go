package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/mbd888/chipvault/internal/idgen"
)

// MemoryStore is an in-memory ledger store for demo/development mode.
type MemoryStore struct {
	mu       sync.RWMutex
	balances map[string]*Balance
	pots     map[string]*Pot
	entries  []*Entry
	deposits map[string]bool // deposit references already processed
}

// NewMemoryStore creates a new in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[string]*Balance),
		pots:     make(map[string]*Pot),
		deposits: make(map[string]bool),
	}
}

// balanceLocked returns the balance for addr, creating a zero balance if
// absent. Caller must hold mu.
func (m *MemoryStore) balanceLocked(addr string) *Balance {
	b, ok := m.balances[addr]
	if !ok {
		b = &Balance{PlayerAddr: addr, UpdatedAt: time.Now()}
		m.balances[addr] = b
	}
	return b
}

func (m *MemoryStore) appendEntryLocked(addr, entryType string, amount int64, gameRef, reference, description string) {
	m.entries = append(m.entries, &Entry{
		ID:          idgen.WithPrefix("txn_"),
		PlayerAddr:  addr,
		Type:        entryType,
		Amount:      amount,
		GameRef:     gameRef,
		Reference:   reference,
		Description: description,
		CreatedAt:   time.Now(),
	})
}

func (m *MemoryStore) GetBalance(ctx context.Context, playerAddr string) (*Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.balances[playerAddr]
	if !ok {
		// New players start at zero rather than erroring
		return &Balance{PlayerAddr: playerAddr, UpdatedAt: time.Now()}, nil
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) Credit(ctx context.Context, playerAddr string, amount int64, reference, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.balanceLocked(playerAddr)
	available, err := addChecked(b.Available, amount)
	if err != nil {
		return err
	}
	totalIn, err := addChecked(b.TotalIn, amount)
	if err != nil {
		return err
	}
	b.Available = available
	b.TotalIn = totalIn
	b.UpdatedAt = time.Now()

	if reference != "" {
		m.deposits[reference] = true
	}
	m.appendEntryLocked(playerAddr, TypeDeposit, amount, "", reference, description)
	return nil
}

func (m *MemoryStore) Withdraw(ctx context.Context, playerAddr string, amount int64, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[playerAddr]
	if !ok || b.Available < amount {
		return ErrInsufficientBalance
	}
	totalOut, err := addChecked(b.TotalOut, amount)
	if err != nil {
		return err
	}
	b.Available -= amount
	b.TotalOut = totalOut
	b.UpdatedAt = time.Now()

	m.appendEntryLocked(playerAddr, TypeWithdrawal, amount, "", reference, "withdrawal")
	return nil
}

func (m *MemoryStore) TransferToPot(ctx context.Context, playerAddr string, amount int64, gameRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.balances[playerAddr]
	if !ok || b.Available < amount {
		return ErrInsufficientBalance
	}

	pot, ok := m.pots[gameRef]
	if !ok {
		pot = &Pot{GameRef: gameRef}
		m.pots[gameRef] = pot
	}
	potBalance, err := addChecked(pot.Balance, amount)
	if err != nil {
		return err
	}
	totalOut, err := addChecked(b.TotalOut, amount)
	if err != nil {
		return err
	}

	b.Available -= amount
	b.TotalOut = totalOut
	b.UpdatedAt = time.Now()
	pot.Balance = potBalance
	pot.UpdatedAt = time.Now()

	m.appendEntryLocked(playerAddr, TypeBuyIn, amount, gameRef, "", "game buy-in")
	return nil
}

func (m *MemoryStore) PayoutFromPot(ctx context.Context, gameRef, toAddr string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pot, ok := m.pots[gameRef]
	if !ok {
		return ErrPotNotFound
	}
	if pot.Balance < amount {
		return ErrInsufficientPot
	}

	b := m.balanceLocked(toAddr)
	available, err := addChecked(b.Available, amount)
	if err != nil {
		return err
	}
	totalIn, err := addChecked(b.TotalIn, amount)
	if err != nil {
		return err
	}

	pot.Balance -= amount
	pot.UpdatedAt = time.Now()
	b.Available = available
	b.TotalIn = totalIn
	b.UpdatedAt = time.Now()

	m.appendEntryLocked(toAddr, TypePayout, amount, gameRef, "", "pot payout")
	return nil
}

func (m *MemoryStore) PotBalance(ctx context.Context, gameRef string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pot, ok := m.pots[gameRef]
	if !ok {
		return 0, ErrPotNotFound
	}
	return pot.Balance, nil
}

func (m *MemoryStore) ClosePot(ctx context.Context, gameRef, toAddr string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pot, ok := m.pots[gameRef]
	if !ok {
		return 0, ErrPotNotFound
	}
	residual := pot.Balance

	if residual > 0 {
		b := m.balanceLocked(toAddr)
		available, err := addChecked(b.Available, residual)
		if err != nil {
			return 0, err
		}
		totalIn, err := addChecked(b.TotalIn, residual)
		if err != nil {
			return 0, err
		}
		b.Available = available
		b.TotalIn = totalIn
		b.UpdatedAt = time.Now()
		m.appendEntryLocked(toAddr, TypePotReclaim, residual, gameRef, "", "residual pot reclaim")
	}

	delete(m.pots, gameRef)
	return residual, nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, playerAddr string, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest first
	var result []*Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].PlayerAddr == playerAddr {
			cp := *m.entries[i]
			result = append(result, &cp)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (m *MemoryStore) HasDeposit(ctx context.Context, reference string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.deposits[reference], nil
}

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
