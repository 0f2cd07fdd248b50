// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"nutrition/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	users     []*domain.User
	profiles  map[int64]domain.Profile // keyed by user ID
	snapshots []domain.TargetSnapshot

	locksMu sync.Mutex
	locks   map[int64]*userLock

	userIDCounter     int64
	profileIDCounter  int64
	snapshotIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		profiles: make(map[int64]domain.Profile),
		locks:    make(map[int64]*userLock),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.ProfileRepository = (*DB)(nil)
var _ domain.TargetRepository = (*DB)(nil)
var _ domain.ProfileLocker = (*DB)(nil)

// --- ProfileLocker ---

// userLock is a per-user mutex shared by every caller holding or waiting on
// it. The entry is dropped when refs reaches zero.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// WithProfileLock runs fn while holding the user's profile lock. There are no
// transactions here, so a failing fn leaves whatever it already wrote.
func (db *DB) WithProfileLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	db.locksMu.Lock()
	l, ok := db.locks[userID]
	if !ok {
		l = &userLock{}
		db.locks[userID] = l
	}
	l.refs++
	db.locksMu.Unlock()

	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		db.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(db.locks, userID)
		}
		db.locksMu.Unlock()
	}()
	return fn(ctx)
}

// --- ProfileRepository ---

// GetProfile returns the user's profile or nil.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// CreateProfile stores a new profile.
func (db *DB) CreateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.profiles[p.UserID]; ok {
		return nil, domain.ErrProfileExists
	}

	db.profileIDCounter++
	now := time.Now().UTC()
	p.ID = db.profileIDCounter
	p.CreatedAt = now
	p.UpdatedAt = now
	db.profiles[p.UserID] = p
	return &p, nil
}

// UpdateProfile overwrites the stored profile of p.UserID.
func (db *DB) UpdateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cur, ok := db.profiles[p.UserID]
	if !ok {
		return nil, nil
	}
	p.ID = cur.ID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	db.profiles[p.UserID] = p
	return &p, nil
}

// DeleteProfile removes the user's profile and every snapshot that belongs to it.
func (db *DB) DeleteProfile(ctx context.Context, userID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok {
		return false, nil
	}
	delete(db.profiles, userID)

	kept := db.snapshots[:0]
	for _, s := range db.snapshots {
		if s.ProfileID != p.ID {
			kept = append(kept, s)
		}
	}
	db.snapshots = kept
	return true, nil
}

// --- TargetRepository ---

// AddTargetSnapshot appends a snapshot and returns its ID.
func (db *DB) AddTargetSnapshot(ctx context.Context, s domain.TargetSnapshot) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.snapshotIDCounter++
	s.ID = db.snapshotIDCounter
	db.snapshots = append(db.snapshots, s)
	return s.ID, nil
}

// LatestTargetSnapshot returns the snapshot with the highest ID for the profile.
func (db *DB) LatestTargetSnapshot(ctx context.Context, profileID int64) (*domain.TargetSnapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var latest *domain.TargetSnapshot
	for i := range db.snapshots {
		s := &db.snapshots[i]
		if s.ProfileID == profileID && (latest == nil || s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	ret := *latest
	return &ret, nil
}

// ListTargetSnapshots returns all snapshots for the profile, newest first.
func (db *DB) ListTargetSnapshots(ctx context.Context, profileID int64) ([]domain.TargetSnapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.TargetSnapshot, 0)
	for _, s := range db.snapshots {
		if s.ProfileID == profileID {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// --- UserRepository ---

// GetByEmail retrieves a user by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			ret := *u
			return &ret, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			ret := *u
			return &ret, nil
		}
	}
	return nil, nil
}

// Create creates a new active user.
func (db *DB) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			return nil, domain.ErrEmailTaken
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	ret := *u
	return &ret, nil
}

// SetActive flips a user's active flag. It has no SQL counterpart and exists
// for tests and local tooling.
func (db *DB) SetActive(id int64, active bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			u.IsActive = active
		}
	}
}
