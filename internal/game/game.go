// Package game implements the escrow state machine for poker games.
//
// Flow:
//  1. Arbiter creates a game → record allocated, status pending
//  2. Players join → buy-in moved: player available → game pot
//  3. Arbiter starts → status active, hands begin
//  4. Arbiter distributes pot → winnings moved: game pot → winner
//  5. Single-hand games self-close after the payout; multi-hand games
//     play on until the pot is empty, then the arbiter closes the record
//  6. Stale pending or abandoned games → per-player emergency refund
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/mbd888/chipvault/internal/idgen"
	"github.com/mbd888/chipvault/internal/pagination"
	"github.com/mbd888/chipvault/internal/syncutil"
)

var (
	ErrGameNotFound            = errors.New("game not found")
	ErrGameAlreadyExists       = errors.New("game already exists")
	ErrGameFull                = errors.New("game is full")
	ErrPlayerAlreadyJoined     = errors.New("player already joined this game")
	ErrGameNotPending          = errors.New("game not in pending status")
	ErrGameNotActive           = errors.New("game not active")
	ErrGameNotCompleted        = errors.New("game not completed")
	ErrNotEnoughPlayers        = errors.New("not enough players to start")
	ErrPlayerNotInGame         = errors.New("player not in game")
	ErrPayoutMismatch          = errors.New("payout amount exceeds pot")
	ErrInvalidHandResult       = errors.New("invalid hand result")
	ErrInvalidHandLabel        = errors.New("invalid hand label")
	ErrInvalidPlayerCount      = errors.New("invalid player count")
	ErrInvalidBuyIn            = errors.New("invalid buy-in amount")
	ErrInvalidGameMode         = errors.New("invalid game mode for this operation")
	ErrRefundTimeoutNotReached = errors.New("refund timeout not reached")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrUnauthorized            = errors.New("not authorized for this game operation")
	ErrMathOverflow            = errors.New("chip arithmetic overflow")
	ErrPotNotEmpty             = errors.New("pot not empty")
	ErrInvalidCursor           = errors.New("invalid pagination cursor")
)

// Status represents the lifecycle state of a game record.
type Status string

const (
	StatusPending   Status = "pending"   // Accepting joins
	StatusActive    Status = "active"    // Hands in progress, payouts permitted
	StatusCompleted Status = "completed" // Pot fully distributed
	StatusAbandoned Status = "abandoned" // Marked stale, refunds available
)

// Mode selects the terminal behavior after a payout.
type Mode string

const (
	ModeSingleHand Mode = "single_hand" // One hand, self-closes after the payout
	ModeTournament Mode = "tournament"  // Multiple hands until the pot empties
	ModeCashGame   Mode = "cash_game"   // Continuous play until the pot empties
)

// Valid reports whether m is a known game mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSingleHand, ModeTournament, ModeCashGame:
		return true
	}
	return false
}

// MultiHand reports whether the mode plays more than one hand per record.
func (m Mode) MultiHand() bool {
	return m == ModeTournament || m == ModeCashGame
}

// Record bounds. The backing storage reserves space for the maximum, so the
// collections never grow past these.
const (
	MinPlayersFloor = 2
	MaxPlayersCap   = 10
	MaxHandHistory  = 10
	MaxHandLabelLen = 64
	MaxHandDescLen  = 32
	MaxHandRank     = 9
)

// DefaultRefundTimeout is how long a game may sit pending before players can
// reclaim their buy-ins.
const DefaultRefundTimeout = 24 * time.Hour

// Participant records one player's deposit into the pot.
type Participant struct {
	Addr     string    `json:"addr"`
	Amount   int64     `json:"amount"`
	JoinedAt time.Time `json:"joinedAt"`
}

// HandResult is one entry in the rolling payout audit trail.
type HandResult struct {
	Winner    string `json:"winner"`
	HandRank  uint8  `json:"handRank"`  // 0-9 (high card to royal flush)
	HandLabel string `json:"handLabel"` // "Full House", "Flush", etc.
	Amount    int64  `json:"amount"`
}

// Game is the custodial escrow record for one game instance.
type Game struct {
	ID             string        `json:"id"`
	ArbiterAddr    string        `json:"arbiterAddr"`
	BuyIn          int64         `json:"buyIn"`
	TotalPot       int64         `json:"totalPot"`
	MinPlayers     int           `json:"minPlayers"`
	MaxPlayers     int           `json:"maxPlayers"`
	CurrentPlayers int           `json:"currentPlayers"`
	Status         Status        `json:"status"`
	Mode           Mode          `json:"mode"`
	HandLabel      string        `json:"handLabel"`
	Participants   []Participant `json:"participants"`
	HandHistory    []HandResult  `json:"handHistory"`
	CreatedAt      time.Time     `json:"createdAt"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
	DealerPosition int           `json:"dealerPosition"`
	HandNumber     int           `json:"handNumber"`
	HandsPlayed    int           `json:"handsPlayed"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// HasPlayer reports whether addr is a current participant.
func (g *Game) HasPlayer(addr string) bool {
	for i := range g.Participants {
		if g.Participants[i].Addr == addr {
			return true
		}
	}
	return false
}

// IsFull reports whether the game has reached max players.
func (g *Game) IsFull() bool {
	return g.CurrentPlayers >= g.MaxPlayers
}

// CanStart reports whether the initial start preconditions hold.
func (g *Game) CanStart() bool {
	return g.Status == StatusPending && g.CurrentPlayers >= g.MinPlayers
}

// Clone returns a deep copy. Stores hand out copies to prevent races on the
// shared slices backing Participants and HandHistory.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Participants = make([]Participant, len(g.Participants), MaxPlayersCap)
	copy(cp.Participants, g.Participants)
	cp.HandHistory = make([]HandResult, len(g.HandHistory), MaxHandHistory)
	copy(cp.HandHistory, g.HandHistory)
	if g.StartedAt != nil {
		t := *g.StartedAt
		cp.StartedAt = &t
	}
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

// appendHandResult records a payout in the rolling audit trail, evicting the
// oldest entry once the ring holds MaxHandHistory results.
func (g *Game) appendHandResult(r HandResult) {
	if len(g.HandHistory) >= MaxHandHistory {
		copy(g.HandHistory, g.HandHistory[1:])
		g.HandHistory = g.HandHistory[:MaxHandHistory-1]
	}
	g.HandHistory = append(g.HandHistory, r)
}

// rotateDealer advances the dealer button. No-op on an empty table.
func (g *Game) rotateDealer() {
	if g.CurrentPlayers > 0 {
		g.DealerPosition = (g.DealerPosition + 1) % g.CurrentPlayers
	}
}

// Info is the read-only snapshot projection of a game's public fields.
type Info struct {
	ID             string `json:"id"`
	Mode           Mode   `json:"mode"`
	Status         Status `json:"status"`
	CurrentPlayers int    `json:"currentPlayers"`
	MaxPlayers     int    `json:"maxPlayers"`
	TotalPot       int64  `json:"totalPot"`
	BuyIn          int64  `json:"buyIn"`
	HandLabel      string `json:"handLabel"`
	HandNumber     int    `json:"handNumber"`
	DealerPosition int    `json:"dealerPosition"`
	HandsPlayed    int    `json:"handsPlayed"`
}

// Snapshot returns the public projection of the record.
func (g *Game) Snapshot() *Info {
	return &Info{
		ID:             g.ID,
		Mode:           g.Mode,
		Status:         g.Status,
		CurrentPlayers: g.CurrentPlayers,
		MaxPlayers:     g.MaxPlayers,
		TotalPot:       g.TotalPot,
		BuyIn:          g.BuyIn,
		HandLabel:      g.HandLabel,
		HandNumber:     g.HandNumber,
		DealerPosition: g.DealerPosition,
		HandsPlayed:    g.HandsPlayed,
	}
}

// Store persists game records.
type Store interface {
	Create(ctx context.Context, g *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	Update(ctx context.Context, g *Game) error
	Delete(ctx context.Context, id string) error
	// ListByArbiter returns games newest first. A non-nil cursor restricts
	// the page to records strictly older than the cursor position.
	ListByArbiter(ctx context.Context, arbiterAddr string, before *pagination.Cursor, limit int) ([]*Game, error)
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Game, error)
}

// LedgerService abstracts chip custody so game doesn't import ledger.
// Implementations return ErrInsufficientBalance when the player cannot cover
// the transfer.
type LedgerService interface {
	// TransferToPot moves amount from the player's available balance into the
	// pot account for gameID.
	TransferToPot(ctx context.Context, playerAddr string, amount int64, gameID string) error
	// PayoutFromPot moves amount from the pot account for gameID to toAddr.
	PayoutFromPot(ctx context.Context, gameID, toAddr string, amount int64) error
	// ClosePot reclaims any residual pot balance to toAddr and releases the
	// pot account. Returns the residual amount reclaimed.
	ClosePot(ctx context.Context, gameID, toAddr string) (int64, error)
}

// EventEmitter broadcasts game lifecycle events to live watchers.
type EventEmitter interface {
	EmitGameEvent(event string, g *Game)
}

// Service implements the lifecycle controller.
type Service struct {
	store         Store
	ledger        LedgerService
	events        EventEmitter
	refundTimeout time.Duration
	locks         *syncutil.ContextShardedMutex // per-game ID locks; one record is one consistency domain
}

// NewService creates a new game escrow service.
func NewService(store Store, ledger LedgerService) *Service {
	return &Service{
		store:         store,
		ledger:        ledger,
		refundTimeout: DefaultRefundTimeout,
		locks:         syncutil.NewContextShardedMutex(),
	}
}

// WithEvents adds a lifecycle event emitter for realtime streaming.
func (s *Service) WithEvents(e EventEmitter) *Service {
	s.events = e
	return s
}

// WithRefundTimeout overrides the pending-refund eligibility window.
func (s *Service) WithRefundTimeout(d time.Duration) *Service {
	if d > 0 {
		s.refundTimeout = d
	}
	return s
}

func (s *Service) emit(event string, g *Game) {
	if s.events != nil {
		s.events.EmitGameEvent(event, g)
	}
}

// addChips adds two chip amounts with overflow protection.
func addChips(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

// CreateRequest contains the parameters for creating a game escrow.
type CreateRequest struct {
	GameID     string `json:"gameId"` // Optional; generated when empty
	BuyIn      int64  `json:"buyIn" binding:"required"`
	MinPlayers int    `json:"minPlayers" binding:"required"`
	MaxPlayers int    `json:"maxPlayers" binding:"required"`
	Mode       Mode   `json:"mode" binding:"required"`
	HandLabel  string `json:"handLabel" binding:"required"`
}

// DistributeRequest contains the parameters for a pot payout. Amount may be
// zero: a folded-out or split hand still gets recorded in the history.
type DistributeRequest struct {
	Winner    string `json:"winner" binding:"required"`
	Amount    int64  `json:"amount"`
	HandRank  uint8  `json:"handRank"`
	HandLabel string `json:"handLabel" binding:"required"`
}

// Refund describes a completed emergency refund.
type Refund struct {
	GameID     string `json:"gameId"`
	PlayerAddr string `json:"playerAddr"`
	Amount     int64  `json:"amount"`
}

// Create allocates a new game escrow record. The caller becomes the arbiter.
// No value moves; the record starts pending with an empty pot.
func (s *Service) Create(ctx context.Context, arbiterAddr string, req CreateRequest) (*Game, error) {
	if req.MinPlayers < MinPlayersFloor || req.MaxPlayers > MaxPlayersCap || req.MinPlayers > req.MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	if req.BuyIn <= 0 {
		return nil, ErrInvalidBuyIn
	}
	if len(req.HandLabel) == 0 || len(req.HandLabel) > MaxHandLabelLen {
		return nil, ErrInvalidHandLabel
	}
	if !req.Mode.Valid() {
		return nil, ErrInvalidGameMode
	}

	id := req.GameID
	if id == "" {
		id = idgen.WithPrefix("game_")
	}

	now := time.Now()
	g := &Game{
		ID:           id,
		ArbiterAddr:  strings.ToLower(arbiterAddr),
		BuyIn:        req.BuyIn,
		MinPlayers:   req.MinPlayers,
		MaxPlayers:   req.MaxPlayers,
		Status:       StatusPending,
		Mode:         req.Mode,
		HandLabel:    req.HandLabel,
		Participants: make([]Participant, 0, MaxPlayersCap),
		HandHistory:  make([]HandResult, 0, MaxHandHistory),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to create game record: %w", err)
	}

	s.emit("game_created", g)
	return g, nil
}

// Join escrows the buy-in from the player into the game pot and records the
// participant. The transfer and the bookkeeping update are one atomic unit: if
// either fails the other is not left applied.
func (s *Service) Join(ctx context.Context, gameID, playerAddr string) (*Game, error) {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	addr := strings.ToLower(playerAddr)
	if g.Status != StatusPending {
		return nil, ErrGameNotPending
	}
	if g.IsFull() {
		return nil, ErrGameFull
	}
	if g.HasPlayer(addr) {
		return nil, ErrPlayerAlreadyJoined
	}

	newPot, err := addChips(g.TotalPot, g.BuyIn)
	if err != nil {
		return nil, err
	}

	// Move buy-in into the pot before touching the record
	if err := s.ledger.TransferToPot(ctx, addr, g.BuyIn, g.ID); err != nil {
		return nil, fmt.Errorf("failed to escrow buy-in: %w", err)
	}

	now := time.Now()
	g.Participants = append(g.Participants, Participant{Addr: addr, Amount: g.BuyIn, JoinedAt: now})
	g.CurrentPlayers++
	g.TotalPot = newPot
	g.UpdatedAt = now

	if err := s.store.Update(ctx, g); err != nil {
		// Compensate: return the buy-in so the transfer is not orphaned
		_ = s.ledger.PayoutFromPot(ctx, g.ID, addr, g.BuyIn)
		return nil, fmt.Errorf("failed to record join: %w", err)
	}

	s.emit("player_joined", g)
	return g, nil
}

// Start begins the first hand of a pending game, or advances to the next hand
// of an active multi-hand game. handLabel is optional; when supplied it
// replaces the current label.
func (s *Service) Start(ctx context.Context, gameID, callerAddr, handLabel string) (*Game, error) {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if strings.ToLower(callerAddr) != g.ArbiterAddr {
		return nil, ErrUnauthorized
	}

	switch {
	case g.Status == StatusPending:
		if !g.CanStart() {
			return nil, ErrNotEnoughPlayers
		}
	case g.Status == StatusActive && g.Mode.MultiHand():
		// Hand-to-hand advance
	default:
		return nil, ErrGameNotPending
	}

	if handLabel != "" {
		if len(handLabel) > MaxHandLabelLen {
			return nil, ErrInvalidHandLabel
		}
		g.HandLabel = handLabel
	}

	now := time.Now()
	g.Status = StatusActive
	if g.StartedAt == nil {
		g.StartedAt = &now
	}
	g.HandNumber++
	g.UpdatedAt = now

	if err := s.store.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to start hand: %w", err)
	}

	s.emit("hand_started", g)
	return g, nil
}

// DistributePot pays out from the pot to the winner and records the hand
// result. Only the arbiter may call it. Terminal behavior depends on mode:
// single-hand games complete and self-close, multi-hand games rotate the
// dealer and complete once the pot is empty.
func (s *Service) DistributePot(ctx context.Context, gameID, callerAddr string, req DistributeRequest) (*Game, error) {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	winner := strings.ToLower(req.Winner)
	if strings.ToLower(callerAddr) != g.ArbiterAddr {
		return nil, ErrUnauthorized
	}
	if g.Status != StatusActive {
		return nil, ErrGameNotActive
	}
	if !g.HasPlayer(winner) {
		return nil, ErrPlayerNotInGame
	}
	if req.Amount < 0 || req.Amount > g.TotalPot {
		return nil, ErrPayoutMismatch
	}
	if req.HandRank > MaxHandRank {
		return nil, ErrInvalidHandResult
	}
	if len(req.HandLabel) == 0 || len(req.HandLabel) > MaxHandDescLen {
		return nil, ErrInvalidHandResult
	}

	// Move winnings out of the pot
	if err := s.ledger.PayoutFromPot(ctx, g.ID, winner, req.Amount); err != nil {
		return nil, fmt.Errorf("failed to pay out pot: %w", err)
	}

	now := time.Now()
	g.TotalPot -= req.Amount
	g.appendHandResult(HandResult{
		Winner:    winner,
		HandRank:  req.HandRank,
		HandLabel: req.HandLabel,
		Amount:    req.Amount,
	})
	g.HandsPlayed++
	// CompletedAt marks the most recently finished hand, not the terminal
	// state; multi-hand games carry it forward across payouts.
	g.CompletedAt = &now
	g.UpdatedAt = now

	switch g.Mode {
	case ModeSingleHand:
		// One payout per record: complete, reclaim residual custody, release
		// the storage slot. Further operations see ErrGameNotFound.
		g.Status = StatusCompleted
		if _, err := s.ledger.ClosePot(ctx, g.ID, g.ArbiterAddr); err != nil {
			log.Printf("CRITICAL: game %s paid out but pot reclaim failed: %v", g.ID, err)
		}
		if err := s.store.Delete(ctx, g.ID); err != nil {
			log.Printf("CRITICAL: game %s paid out but record release failed: %v", g.ID, err)
			return nil, fmt.Errorf("failed to close single-hand game after payout (requires manual resolution): %w", err)
		}
	default:
		g.rotateDealer()
		if g.TotalPot == 0 {
			g.Status = StatusCompleted
		}
		if err := s.store.Update(ctx, g); err != nil {
			// Retry once — funds already moved, the state change must persist
			if retryErr := s.store.Update(ctx, g); retryErr != nil {
				log.Printf("CRITICAL: game %s paid %d to %s but record update failed: %v",
					g.ID, req.Amount, winner, retryErr)
				return nil, fmt.Errorf("failed to update game after payout (requires manual resolution): %w", err)
			}
		}
	}

	s.emit("pot_distributed", g)
	return g, nil
}

// EmergencyRefund returns one participant's recorded deposit. Eligible when
// the game is abandoned, or still pending past the refund timeout. Each
// participant refunds independently.
func (s *Service) EmergencyRefund(ctx context.Context, gameID, playerAddr string) (*Refund, error) {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	addr := strings.ToLower(playerAddr)
	idx := -1
	for i := range g.Participants {
		if g.Participants[i].Addr == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrPlayerNotInGame
	}

	eligible := g.Status == StatusAbandoned ||
		(g.Status == StatusPending && time.Since(g.CreatedAt) > s.refundTimeout)
	if !eligible {
		return nil, ErrRefundTimeoutNotReached
	}

	amount := g.Participants[idx].Amount
	if err := s.ledger.PayoutFromPot(ctx, g.ID, addr, amount); err != nil {
		return nil, fmt.Errorf("failed to refund deposit: %w", err)
	}

	g.Participants = append(g.Participants[:idx], g.Participants[idx+1:]...)
	g.CurrentPlayers--
	g.TotalPot -= amount
	g.UpdatedAt = time.Now()

	if err := s.store.Update(ctx, g); err != nil {
		// Retry once — the deposit already left custody
		if retryErr := s.store.Update(ctx, g); retryErr != nil {
			log.Printf("CRITICAL: game %s refunded %d to %s but record update failed: %v",
				g.ID, amount, addr, retryErr)
			return nil, fmt.Errorf("failed to update game after refund (requires manual resolution): %w", err)
		}
	}

	s.emit("player_refunded", g)
	return &Refund{GameID: g.ID, PlayerAddr: addr, Amount: amount}, nil
}

// Abandon marks a pending game abandoned, unblocking emergency refunds.
// Only the arbiter may call it.
func (s *Service) Abandon(ctx context.Context, gameID, callerAddr string) (*Game, error) {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(callerAddr) != g.ArbiterAddr {
		return nil, ErrUnauthorized
	}
	if g.Status != StatusPending {
		return nil, ErrGameNotPending
	}

	g.Status = StatusAbandoned
	g.UpdatedAt = time.Now()
	if err := s.store.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("failed to abandon game: %w", err)
	}

	s.emit("game_abandoned", g)
	return g, nil
}

// Close releases a completed multi-hand record and reclaims residual pot
// custody to the arbiter. Single-hand games self-close during distribution
// and reject this operation.
func (s *Service) Close(ctx context.Context, gameID, callerAddr string) error {
	unlock, err := s.locks.LockContext(ctx, gameID)
	if err != nil {
		return err
	}
	defer unlock()

	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if strings.ToLower(callerAddr) != g.ArbiterAddr {
		return ErrUnauthorized
	}
	if g.Status != StatusCompleted {
		return ErrGameNotCompleted
	}
	if g.TotalPot != 0 {
		return ErrPotNotEmpty
	}
	if !g.Mode.MultiHand() {
		return ErrInvalidGameMode
	}

	if _, err := s.ledger.ClosePot(ctx, g.ID, g.ArbiterAddr); err != nil {
		return fmt.Errorf("failed to reclaim pot custody: %w", err)
	}
	if err := s.store.Delete(ctx, g.ID); err != nil {
		return fmt.Errorf("failed to release game record: %w", err)
	}

	s.emit("game_closed", g)
	return nil
}

// Get returns a game record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Game, error) {
	return s.store.Get(ctx, id)
}

// Info returns the read-only public snapshot of a game.
func (s *Service) Info(ctx context.Context, id string) (*Info, error) {
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Snapshot(), nil
}

// ListByArbiter returns one page of an arbiter's games, newest first.
// cursor is an opaque position token from a previous page; empty fetches the
// first page. The returned cursor is empty on the last page.
func (s *Service) ListByArbiter(ctx context.Context, arbiterAddr, cursor string, limit int) ([]*Game, string, error) {
	if limit <= 0 {
		limit = 50
	}
	before, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", ErrInvalidCursor
	}

	// Fetch one extra record to learn whether another page exists.
	games, err := s.store.ListByArbiter(ctx, strings.ToLower(arbiterAddr), before, limit+1)
	if err != nil {
		return nil, "", err
	}
	games, next, _ := pagination.ComputePage(games, limit, func(g *Game) (time.Time, string) {
		return g.CreatedAt, g.ID
	})
	return games, next, nil
}
