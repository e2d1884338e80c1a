// Package billing keeps the prepaid credit balance and its append-only
// transaction log.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/whattobuild/internal/models"
	"github.com/ayush/whattobuild/internal/store"
)

// ResearchCost is the number of credits one completed research run costs.
const ResearchCost = 1

// ErrInsufficientCredits is returned when a charge would make the balance negative.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Ledger applies balance changes and their log entries in one transaction.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := l.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return credits, nil
}

// Charge debits ResearchCost for requestID. A request is only ever charged
// once: a repeated call reports charged=false and changes nothing.
func (l *Ledger) Charge(ctx context.Context, userID, requestID, description string) (charged bool, err error) {
	err = pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		balance, err := lockBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO transactions (user_id, credits, type, description, request_id)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (request_id) DO NOTHING`,
			userID, -ResearchCost, string(models.TransactionUsage), description, requestID,
		)
		if err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if balance < ResearchCost {
			return ErrInsufficientCredits
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET credits = credits - $2 WHERE id = $1`, userID, ResearchCost); err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		charged = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("charge request %s: %w", requestID, err)
	}
	return charged, nil
}

// TopUp credits a purchase. Replaying the same externalID is a no-op.
func (l *Ledger) TopUp(ctx context.Context, userID string, credits int, externalID, description string) (applied bool, err error) {
	if credits <= 0 {
		return false, fmt.Errorf("top up: credits must be positive, got %d", credits)
	}
	err = pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := lockBalance(ctx, tx, userID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO transactions (user_id, credits, type, description, external_id)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (external_id) DO NOTHING`,
			userID, credits, string(models.TransactionPurchase), description, externalID,
		)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET credits = credits + $2 WHERE id = $1`, userID, credits); err != nil {
			return fmt.Errorf("credit: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("top up %s: %w", externalID, err)
	}
	return applied, nil
}

// History returns the most recent ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, user_id, credits, type, description,
		        COALESCE(request_id, ''), COALESCE(external_id, ''), created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Credits, &t.Type, &t.Description, &t.RequestID, &t.ExternalID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func lockBalance(ctx context.Context, tx pgx.Tx, userID string) (int, error) {
	var credits int
	err := tx.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock balance: %w", err)
	}
	return credits, nil
}
