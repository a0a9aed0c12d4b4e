package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/mbd888/chipvault/internal/pagination"
)

// PostgresStore persists game records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed game store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const gameColumns = `id, arbiter_addr, buy_in, total_pot, min_players, max_players,
	       current_players, status, mode, hand_label, participants, hand_history,
	       created_at, started_at, completed_at, dealer_position, hand_number,
	       hands_played, updated_at`

func (p *PostgresStore) Create(ctx context.Context, g *Game) error {
	participantsJSON, _ := json.Marshal(g.Participants)
	historyJSON, _ := json.Marshal(g.HandHistory)

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO games (
			id, arbiter_addr, buy_in, total_pot, min_players, max_players,
			current_players, status, mode, hand_label, participants, hand_history,
			created_at, started_at, completed_at, dealer_position, hand_number,
			hands_played, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19
		)`,
		g.ID, g.ArbiterAddr, g.BuyIn, g.TotalPot, g.MinPlayers, g.MaxPlayers,
		g.CurrentPlayers, string(g.Status), string(g.Mode), g.HandLabel,
		participantsJSON, historyJSON,
		g.CreatedAt, nullTime(g.StartedAt), nullTime(g.CompletedAt),
		g.DealerPosition, g.HandNumber, g.HandsPlayed, g.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrGameAlreadyExists
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Game, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)

	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	return g, err
}

func (p *PostgresStore) Update(ctx context.Context, g *Game) error {
	participantsJSON, _ := json.Marshal(g.Participants)
	historyJSON, _ := json.Marshal(g.HandHistory)

	result, err := p.db.ExecContext(ctx, `
		UPDATE games SET
			total_pot = $1, current_players = $2, status = $3, hand_label = $4,
			participants = $5, hand_history = $6, started_at = $7, completed_at = $8,
			dealer_position = $9, hand_number = $10, hands_played = $11, updated_at = $12
		WHERE id = $13`,
		g.TotalPot, g.CurrentPlayers, string(g.Status), g.HandLabel,
		participantsJSON, historyJSON, nullTime(g.StartedAt), nullTime(g.CompletedAt),
		g.DealerPosition, g.HandNumber, g.HandsPlayed, g.UpdatedAt,
		g.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (p *PostgresStore) ListByArbiter(ctx context.Context, arbiterAddr string, before *pagination.Cursor, limit int) ([]*Game, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = p.db.QueryContext(ctx, `
			SELECT `+gameColumns+`
			FROM games
			WHERE arbiter_addr = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, arbiterAddr, limit)
	} else {
		// Keyset pagination on (created_at, id), matching the sort order
		rows, err = p.db.QueryContext(ctx, `
			SELECT `+gameColumns+`
			FROM games
			WHERE arbiter_addr = $1
			  AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4`, arbiterAddr, before.CreatedAt, before.ID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanGames(rows)
}

func (p *PostgresStore) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Game, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+gameColumns+`
		FROM games
		WHERE status = 'pending'
		  AND created_at < $1
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanGames(rows)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(s scanner) (*Game, error) {
	g := &Game{}
	var (
		status           string
		mode             string
		participantsJSON []byte
		historyJSON      []byte
		startedAt        sql.NullTime
		completedAt      sql.NullTime
	)

	err := s.Scan(
		&g.ID, &g.ArbiterAddr, &g.BuyIn, &g.TotalPot, &g.MinPlayers, &g.MaxPlayers,
		&g.CurrentPlayers, &status, &mode, &g.HandLabel, &participantsJSON, &historyJSON,
		&g.CreatedAt, &startedAt, &completedAt, &g.DealerPosition, &g.HandNumber,
		&g.HandsPlayed, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	g.Status = Status(status)
	g.Mode = Mode(mode)
	if startedAt.Valid {
		g.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	g.Participants = make([]Participant, 0, MaxPlayersCap)
	if len(participantsJSON) > 0 {
		_ = json.Unmarshal(participantsJSON, &g.Participants)
	}
	g.HandHistory = make([]HandResult, 0, MaxHandHistory)
	if len(historyJSON) > 0 {
		_ = json.Unmarshal(historyJSON, &g.HandHistory)
	}

	return g, nil
}

func scanGames(rows *sql.Rows) ([]*Game, error) {
	var result []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// nullTime converts a *time.Time to sql.NullTime.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
