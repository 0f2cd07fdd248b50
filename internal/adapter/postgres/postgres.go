package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nutrition/internal/domain"

	"github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.ProfileRepository = (*DB)(nil)
var _ domain.TargetRepository = (*DB)(nil)
var _ domain.ProfileLocker = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(20)
	s.SetMaxIdleConns(10)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, email TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL DEFAULT '', is_active BOOLEAN NOT NULL DEFAULT TRUE, created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS profiles (id BIGSERIAL PRIMARY KEY, user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE, date_of_birth DATE NOT NULL, sex TEXT CHECK(sex IN ('male','female')), weight DOUBLE PRECISION NOT NULL CHECK(weight > 0), height DOUBLE PRECISION NOT NULL CHECK(height > 0), activity_level TEXT CHECK(activity_level IN ('sedentary','lightly_active','moderately_active','very_active','athlete')), goal TEXT CHECK(goal IN ('cut','maintain','bulk','recomp')), created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS target_snapshots (id BIGSERIAL PRIMARY KEY, profile_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE, calories DOUBLE PRECISION NOT NULL, protein_g DOUBLE PRECISION NOT NULL, fat_g DOUBLE PRECISION NOT NULL, carbs_g DOUBLE PRECISION NOT NULL, calculated_at DATE NOT NULL, based_on_weight DOUBLE PRECISION NOT NULL, based_on_goal TEXT NOT NULL, is_manual BOOLEAN NOT NULL DEFAULT FALSE);",
		"CREATE INDEX IF NOT EXISTS idx_target_snapshots_profile_id ON target_snapshots(profile_id, id DESC);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type txKey struct{}

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the transaction carried by ctx, or the pool.
func (d *DB) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.sql
}

// WithProfileLock runs fn inside a transaction holding a transaction-scoped
// advisory lock on userID. Repository calls made with the context passed to
// fn join that transaction.
func (d *DB) WithProfileLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return errors.New("postgres: nested profile lock")
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1);", userID); err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// nullString maps an optional enumeration onto a nullable column value.
func nullString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}
