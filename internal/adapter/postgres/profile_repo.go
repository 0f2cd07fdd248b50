package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nutrition/internal/domain"
)

const profileColumns = "id, user_id, date_of_birth, sex, weight, height, activity_level, goal, created_at, updated_at"

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var (
		p                    domain.Profile
		dob                  time.Time
		sex, activity, goal sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &dob, &sex, &p.Weight, &p.Height, &activity, &goal, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.DateOfBirth = domain.DateOf(dob.UTC())

	if sex.Valid {
		v, err := domain.ParseSex(sex.String)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", p.ID, err)
		}
		p.Sex = &v
	}
	if activity.Valid {
		v, err := domain.ParseActivityLevel(activity.String)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", p.ID, err)
		}
		p.ActivityLevel = &v
	}
	if goal.Valid {
		v, err := domain.ParseGoal(goal.String)
		if err != nil {
			return nil, fmt.Errorf("profile %d: %w", p.ID, err)
		}
		p.Goal = &v
	}
	return &p, nil
}

// GetProfile retrieves the profile owned by userID.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return scanProfile(d.q(ctx).QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = $1;",
		userID,
	))
}

// CreateProfile inserts a new profile.
func (d *DB) CreateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	now := time.Now().UTC()
	created, err := scanProfile(d.q(ctx).QueryRowContext(ctx,
		"INSERT INTO profiles (user_id, date_of_birth, sex, weight, height, activity_level, goal, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING "+profileColumns+";",
		p.UserID, p.DateOfBirth.String(), nullString(p.Sex), p.Weight, p.Height, nullString(p.ActivityLevel), nullString(p.Goal), now,
	))
	if isUniqueViolation(err) {
		return nil, domain.ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

// UpdateProfile overwrites the mutable fields of the profile owned by p.UserID.
func (d *DB) UpdateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	updated, err := scanProfile(d.q(ctx).QueryRowContext(ctx,
		"UPDATE profiles SET date_of_birth = $2, sex = $3, weight = $4, height = $5, activity_level = $6, goal = $7, updated_at = $8 WHERE user_id = $1 RETURNING "+profileColumns+";",
		p.UserID, p.DateOfBirth.String(), nullString(p.Sex), p.Weight, p.Height, nullString(p.ActivityLevel), nullString(p.Goal), time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// DeleteProfile removes the user's profile; target snapshots go with it via
// ON DELETE CASCADE.
func (d *DB) DeleteProfile(ctx context.Context, userID int64) (bool, error) {
	res, err := d.q(ctx).ExecContext(ctx, "DELETE FROM profiles WHERE user_id = $1;", userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
