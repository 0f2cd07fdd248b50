// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nutrition/internal/domain"
)

const userColumns = "id, email, password_hash, is_active, created_at"

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail retrieves a user by email.
func (d *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(d.q(ctx).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1",
		email,
	))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(d.q(ctx).QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1",
		id,
	))
}

// Create creates a new active user.
func (d *DB) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	now := time.Now().UTC()
	u, err := scanUser(d.q(ctx).QueryRowContext(ctx,
		"INSERT INTO users (email, password_hash, is_active, created_at, updated_at) VALUES ($1, $2, TRUE, $3, $3) RETURNING "+userColumns,
		email, passwordHash, now,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrEmailTaken
	}
	return u, err
}
