package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/whattobuild/internal/models"
)

// PostgresStore handles users and the credit ledger tables in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool exposes the connection pool to the billing ledger.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the users and transactions tables if they don't exist.
// Usage rows are unique per request and purchase rows per external payment,
// which makes both kinds of ledger write idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(50)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			credits    INTEGER      NOT NULL DEFAULT 0 CHECK (credits >= 0),
			created_at TIMESTAMPTZ  DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id     UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			credits     INTEGER      NOT NULL,
			type        VARCHAR(16)  NOT NULL,
			description TEXT         NOT NULL DEFAULT '',
			request_id  VARCHAR(64)  UNIQUE,
			external_id VARCHAR(255) UNIQUE,
			created_at  TIMESTAMPTZ  DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS transactions_user_created
			ON transactions (user_id, created_at DESC);
	`)
	return err
}

// CreateUser inserts a user with the starter credit grant.
func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password, credits)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, username, email, credits, created_at`,
		username, email, hashedPassword, models.StarterCredits,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Credits, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, credits, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Credits, &u.CreatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, credits, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Credits, &u.CreatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &u, nil
}

func noRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
