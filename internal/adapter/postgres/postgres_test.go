package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"nutrition/internal/domain"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"unique", &pq.Error{Code: "23505"}, true},
		{"wrapped unique", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key", &pq.Error{Code: "23503"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("isUniqueViolation(%v) = %t, want %t", tc.err, got, tc.want)
			}
		})
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString[domain.Goal](nil); ns.Valid {
		t.Errorf("nil should map to NULL, got %+v", ns)
	}
	g := domain.GoalBulk
	if ns := nullString(&g); !ns.Valid || ns.String != "bulk" {
		t.Errorf("unexpected %+v", ns)
	}
}

// openTestDB connects to TEST_DATABASE_URL and skips when it is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepositories_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	u, err := db.Create(ctx, email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := db.Create(ctx, email, "hash"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if got, err := db.GetByEmail(ctx, email); err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetByEmail = %v, %v", got, err)
	}

	sex := domain.SexFemale
	p, err := db.CreateProfile(ctx, domain.Profile{
		UserID:      u.ID,
		DateOfBirth: domain.NewDate(1990, time.March, 4),
		Sex:         &sex,
		Weight:      61.5,
		Height:      168,
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if p.DateOfBirth != domain.NewDate(1990, time.March, 4) || p.Goal != nil || *p.Sex != sex {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, err := db.CreateProfile(ctx, domain.Profile{UserID: u.ID, DateOfBirth: p.DateOfBirth, Weight: 1, Height: 1}); !errors.Is(err, domain.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}

	goal := domain.GoalCut
	p.Goal = &goal
	p.Weight = 60
	updated, err := db.UpdateProfile(ctx, *p)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if *updated.Goal != goal || updated.Weight != 60 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	for i := range 3 {
		_, err := db.AddTargetSnapshot(ctx, domain.TargetSnapshot{
			ProfileID:     p.ID,
			Targets:       domain.Targets{Calories: float64(2000 + i)},
			CalculatedAt:  domain.NewDate(2026, time.February, 26),
			BasedOnWeight: 60,
			BasedOnGoal:   domain.ManualGoal,
			IsManual:      true,
		})
		if err != nil {
			t.Fatalf("add snapshot: %v", err)
		}
	}
	latest, err := db.LatestTargetSnapshot(ctx, p.ID)
	if err != nil || latest == nil || latest.Calories != 2002 {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	if latest.CalculatedAt != domain.NewDate(2026, time.February, 26) {
		t.Errorf("calculated_at = %v", latest.CalculatedAt)
	}
	items, err := db.ListTargetSnapshots(ctx, p.ID)
	if err != nil || len(items) != 3 || items[0].ID != latest.ID {
		t.Fatalf("list = %+v, %v", items, err)
	}

	deleted, err := db.DeleteProfile(ctx, u.ID)
	if err != nil || !deleted {
		t.Fatalf("delete = %t, %v", deleted, err)
	}
	if items, _ := db.ListTargetSnapshots(ctx, p.ID); len(items) != 0 {
		t.Fatalf("snapshots survived profile deletion: %d", len(items))
	}
	if got, err := db.GetProfile(ctx, u.ID); err != nil || got != nil {
		t.Fatalf("GetProfile after delete = %v, %v", got, err)
	}
}

func TestWithProfileLock_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userID := time.Now().UnixNano()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.WithProfileLock(ctx, userID, func(ctx context.Context) error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("lock: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected serialized critical sections, saw %d concurrently", maxSeen)
	}

	err := db.WithProfileLock(ctx, userID, func(ctx context.Context) error {
		return db.WithProfileLock(ctx, userID, func(context.Context) error { return nil })
	})
	if err == nil {
		t.Fatal("expected nested lock to fail")
	}
}

func TestWithProfileLock_PanicRollsBack_Integration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	email := fmt.Sprintf("panic-%d@example.com", time.Now().UnixNano())

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = db.WithProfileLock(ctx, 1, func(ctx context.Context) error {
			if _, err := db.Create(ctx, email, "hash"); err != nil {
				t.Errorf("create: %v", err)
			}
			panic("calculation failed")
		})
	}()

	if u, err := db.GetByEmail(ctx, email); err != nil || u != nil {
		t.Fatalf("write inside panicking lock was committed: %v, %v", u, err)
	}
}
