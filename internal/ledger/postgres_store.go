package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mbd888/chipvault/internal/idgen"
)

// PostgresStore persists ledger data in PostgreSQL. Compound transfers run in
// a transaction so both legs commit or neither does.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) GetBalance(ctx context.Context, playerAddr string) (*Balance, error) {
	b := &Balance{PlayerAddr: playerAddr}
	err := p.db.QueryRowContext(ctx, `
		SELECT available, total_in, total_out, updated_at
		FROM balances WHERE player_addr = $1`, playerAddr).
		Scan(&b.Available, &b.TotalIn, &b.TotalOut, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		// New players start at zero rather than erroring
		return &Balance{PlayerAddr: playerAddr}, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// creditTx upserts a credit into a player's balance within tx.
func creditTx(ctx context.Context, tx *sql.Tx, playerAddr string, amount int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (player_addr, available, total_in, total_out, updated_at)
		VALUES ($1, $2, $2, 0, NOW())
		ON CONFLICT (player_addr) DO UPDATE SET
			available = balances.available + $2,
			total_in = balances.total_in + $2,
			updated_at = NOW()`, playerAddr, amount)
	return err
}

// debitTx debits a player's available balance within tx, failing with
// ErrInsufficientBalance when the balance cannot cover the amount.
func debitTx(ctx context.Context, tx *sql.Tx, playerAddr string, amount int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE balances SET
			available = available - $2,
			total_out = total_out + $2,
			updated_at = NOW()
		WHERE player_addr = $1 AND available >= $2`, playerAddr, amount)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func insertEntryTx(ctx context.Context, tx *sql.Tx, playerAddr, entryType string, amount int64, gameRef, reference, description string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, player_addr, type, amount, game_ref, reference, description, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NOW())`,
		idgen.WithPrefix("txn_"), playerAddr, entryType, amount, gameRef, reference, description)
	return err
}

func (p *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Credit(ctx context.Context, playerAddr string, amount int64, reference, description string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := creditTx(ctx, tx, playerAddr, amount); err != nil {
			return err
		}
		return insertEntryTx(ctx, tx, playerAddr, TypeDeposit, amount, "", reference, description)
	})
}

func (p *PostgresStore) Withdraw(ctx context.Context, playerAddr string, amount int64, reference string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := debitTx(ctx, tx, playerAddr, amount); err != nil {
			return err
		}
		return insertEntryTx(ctx, tx, playerAddr, TypeWithdrawal, amount, "", reference, "withdrawal")
	})
}

func (p *PostgresStore) TransferToPot(ctx context.Context, playerAddr string, amount int64, gameRef string) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if err := debitTx(ctx, tx, playerAddr, amount); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pots (game_ref, balance, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (game_ref) DO UPDATE SET
				balance = pots.balance + $2,
				updated_at = NOW()`, gameRef, amount); err != nil {
			return err
		}
		return insertEntryTx(ctx, tx, playerAddr, TypeBuyIn, amount, gameRef, "", "game buy-in")
	})
}

func (p *PostgresStore) PayoutFromPot(ctx context.Context, gameRef, toAddr string, amount int64) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE pots SET balance = balance - $2, updated_at = NOW()
			WHERE game_ref = $1 AND balance >= $2`, gameRef, amount)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Distinguish a missing pot from one that cannot cover the payout
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM pots WHERE game_ref = $1)`, gameRef).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrPotNotFound
			}
			return ErrInsufficientPot
		}
		if err := creditTx(ctx, tx, toAddr, amount); err != nil {
			return err
		}
		return insertEntryTx(ctx, tx, toAddr, TypePayout, amount, gameRef, "", "pot payout")
	})
}

func (p *PostgresStore) PotBalance(ctx context.Context, gameRef string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx,
		`SELECT balance FROM pots WHERE game_ref = $1`, gameRef).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrPotNotFound
	}
	return balance, err
}

func (p *PostgresStore) ClosePot(ctx context.Context, gameRef, toAddr string) (int64, error) {
	var residual int64
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`DELETE FROM pots WHERE game_ref = $1 RETURNING balance`, gameRef).Scan(&residual)
		if err == sql.ErrNoRows {
			return ErrPotNotFound
		}
		if err != nil {
			return err
		}
		if residual == 0 {
			return nil
		}
		if err := creditTx(ctx, tx, toAddr, residual); err != nil {
			return err
		}
		return insertEntryTx(ctx, tx, toAddr, TypePotReclaim, residual, gameRef, "", "residual pot reclaim")
	})
	if err != nil {
		return 0, fmt.Errorf("close pot %s: %w", gameRef, err)
	}
	return residual, nil
}

func (p *PostgresStore) GetHistory(ctx context.Context, playerAddr string, limit int) ([]*Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player_addr, type, amount, COALESCE(game_ref, ''), COALESCE(reference, ''),
		       COALESCE(description, ''), created_at
		FROM ledger_entries
		WHERE player_addr = $1
		ORDER BY created_at DESC
		LIMIT $2`, playerAddr, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.PlayerAddr, &e.Type, &e.Amount,
			&e.GameRef, &e.Reference, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (p *PostgresStore) HasDeposit(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE reference = $1 AND type = $2)`,
		reference, TypeDeposit).Scan(&exists)
	return exists, err
}

// Compile-time assertion that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
