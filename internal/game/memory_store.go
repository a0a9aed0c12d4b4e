package game

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mbd888/chipvault/internal/pagination"
)

// MemoryStore is an in-memory game store for demo/development mode.
type MemoryStore struct {
	games map[string]*Game
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory game store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games: make(map[string]*Game),
	}
}

func (m *MemoryStore) Create(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[g.ID]; ok {
		return ErrGameAlreadyExists
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	// Deep copy: a shallow copy would share the Participants and HandHistory
	// backing arrays, so an append on the copy could mutate the stored record.
	return g.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[g.ID]; !ok {
		return ErrGameNotFound
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return ErrGameNotFound
	}
	delete(m.games, id)
	return nil
}

func (m *MemoryStore) ListByArbiter(ctx context.Context, arbiterAddr string, before *pagination.Cursor, limit int) ([]*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addr := strings.ToLower(arbiterAddr)
	var matched []*Game
	for _, g := range m.games {
		if g.ArbiterAddr == addr {
			matched = append(matched, g.Clone())
		}
	}

	// Newest first, ID as tiebreaker to keep pages stable
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	var result []*Game
	for _, g := range matched {
		if before != nil && !olderThanCursor(g, before) {
			continue
		}
		result = append(result, g)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// olderThanCursor reports whether g sorts strictly after the cursor position
// in the newest-first ordering.
func olderThanCursor(g *Game, c *pagination.Cursor) bool {
	if !g.CreatedAt.Equal(c.CreatedAt) {
		return g.CreatedAt.Before(c.CreatedAt)
	}
	return g.ID < c.ID
}

func (m *MemoryStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Game
	for _, g := range m.games {
		if g.Status == StatusPending && g.CreatedAt.Before(cutoff) {
			result = append(result, g.Clone())
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
