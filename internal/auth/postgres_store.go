package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore persists users and API keys in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed auth store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the users and api_keys tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			hash TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_used TIMESTAMPTZ,
			revoked BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate auth tables: %w", err)
	}
	return nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	var email any
	if user.Email != "" {
		email = user.Email
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Name, email, user.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	user := &User{}
	var email sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	return user, nil
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	var e sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM users WHERE email = $1
	`, strings.ToLower(email)).Scan(&user.ID, &user.Name, &e, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Email = e.String
	return user, nil
}

func (p *PostgresStore) CreateKey(ctx context.Context, key *APIKey) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, hash, user_id, name, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, key.ID, key.Hash, key.UserID, key.Name, key.CreatedAt, key.Revoked)
	return err
}

func (p *PostgresStore) GetKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	key := &APIKey{}
	var lastUsed sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, name, created_at, last_used, revoked
		FROM api_keys WHERE hash = $1 AND revoked = FALSE
	`, hash).Scan(&key.ID, &key.Hash, &key.UserID, &key.Name,
		&key.CreatedAt, &lastUsed, &key.Revoked)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		key.LastUsed = lastUsed.Time
	}
	return key, nil
}

func (p *PostgresStore) ListKeysByUser(ctx context.Context, userID string) ([]*APIKey, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, hash, user_id, name, created_at, last_used, revoked
		FROM api_keys WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key := &APIKey{}
		var lastUsed sql.NullTime
		if err := rows.Scan(&key.ID, &key.Hash, &key.UserID, &key.Name,
			&key.CreatedAt, &lastUsed, &key.Revoked); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			key.LastUsed = lastUsed.Time
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *PostgresStore) UpdateKey(ctx context.Context, key *APIKey) error {
	var lastUsed any
	if !key.LastUsed.IsZero() {
		lastUsed = key.LastUsed
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE api_keys SET name = $2, last_used = $3, revoked = $4 WHERE id = $1
	`, key.ID, key.Name, lastUsed, key.Revoked)
	return err
}
