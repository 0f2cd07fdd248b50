package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nutrition/internal/domain"
)

const snapshotColumns = "id, profile_id, calories, protein_g, fat_g, carbs_g, calculated_at, based_on_weight, based_on_goal, is_manual"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (domain.TargetSnapshot, error) {
	var (
		s  domain.TargetSnapshot
		at time.Time
	)
	err := row.Scan(&s.ID, &s.ProfileID, &s.Calories, &s.ProteinG, &s.FatG, &s.CarbsG, &at, &s.BasedOnWeight, &s.BasedOnGoal, &s.IsManual)
	s.CalculatedAt = domain.DateOf(at.UTC())
	return s, err
}

// AddTargetSnapshot appends a snapshot and returns its ID.
func (d *DB) AddTargetSnapshot(ctx context.Context, s domain.TargetSnapshot) (int64, error) {
	var id int64
	err := d.q(ctx).QueryRowContext(ctx,
		"INSERT INTO target_snapshots (profile_id, calories, protein_g, fat_g, carbs_g, calculated_at, based_on_weight, based_on_goal, is_manual) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;",
		s.ProfileID, s.Calories, s.ProteinG, s.FatG, s.CarbsG, s.CalculatedAt.String(), s.BasedOnWeight, s.BasedOnGoal, s.IsManual,
	).Scan(&id)
	return id, err
}

// LatestTargetSnapshot returns the snapshot with the highest ID for the profile.
func (d *DB) LatestTargetSnapshot(ctx context.Context, profileID int64) (*domain.TargetSnapshot, error) {
	row := d.q(ctx).QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM target_snapshots WHERE profile_id = $1 ORDER BY id DESC LIMIT 1;",
		profileID,
	)
	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListTargetSnapshots returns every snapshot of the profile, newest first.
func (d *DB) ListTargetSnapshots(ctx context.Context, profileID int64) ([]domain.TargetSnapshot, error) {
	rows, err := d.q(ctx).QueryContext(ctx,
		"SELECT "+snapshotColumns+" FROM target_snapshots WHERE profile_id = $1 ORDER BY id DESC;", profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.TargetSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
