package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nutrition/internal/domain"
)

var (
	// ErrInvalidInput wraps every validation failure raised before the core runs.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProfileNotFound indicates the user has no profile yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrTargetsNotFound indicates the profile has no target snapshot yet.
	ErrTargetsNotFound = errors.New("no targets calculated yet")
)

// Upper bounds on accepted input. Values outside them are rejected as
// ErrInvalidInput.
const (
	maxWeightKg = 1000
	maxHeightCm = 300
	maxCalories = 20000
	maxMacroG   = 5000
)

// inRange reports whether 0 < v <= hi. NaN and infinities are out of range.
func inRange(v, hi float64) bool {
	return v > 0 && v <= hi
}

// ManualTargets is a user-supplied target override. Calories is required;
// nil macros are derived from the profile weight.
type ManualTargets struct {
	Calories float64
	ProteinG *float64
	FatG     *float64
	CarbsG   *float64
}

// ProfileService owns a user's profile and decides when a profile change
// produces a new target snapshot.
type ProfileService struct {
	profiles domain.ProfileRepository
	targets  domain.TargetRepository
	locker   domain.ProfileLocker
	calc     domain.Calculator
	now      func() time.Time
}

// NewProfileService creates a ProfileService using the default multiplier
// tables and the wall clock.
func NewProfileService(profiles domain.ProfileRepository, targets domain.TargetRepository, locker domain.ProfileLocker) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		targets:  targets,
		locker:   locker,
		calc:     domain.DefaultCalculator(),
		now:      time.Now,
	}
}

// WithCalculator replaces the target calculator.
func (s *ProfileService) WithCalculator(c domain.Calculator) *ProfileService {
	s.calc = c
	return s
}

// WithClock replaces the time source used for ages and snapshot dates.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

// GetProfile returns the user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// CreateProfile stores the user's first profile and, when it is complete
// enough, its first computed targets.
func (s *ProfileService) CreateProfile(ctx context.Context, userID int64, p domain.Profile) (*domain.Profile, error) {
	if err := s.validate(p); err != nil {
		return nil, err
	}
	p.UserID = userID

	var created *domain.Profile
	err := s.locker.WithProfileLock(ctx, userID, func(ctx context.Context) error {
		existing, err := s.profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrProfileExists
		}
		created, err = s.profiles.CreateProfile(ctx, p)
		if err != nil {
			return err
		}
		_, err = s.recalculate(ctx, created, "created")
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateProfile applies a partial update. A new snapshot is computed only if
// the patch touches a field feeding the calculation and the updated profile
// is complete.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID int64, patch domain.ProfilePatch) (*domain.Profile, error) {
	var updated *domain.Profile
	err := s.locker.WithProfileLock(ctx, userID, func(ctx context.Context) error {
		p, err := s.profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProfileNotFound
		}

		p.Apply(patch)
		if err := s.validate(*p); err != nil {
			return err
		}
		updated, err = s.profiles.UpdateProfile(ctx, *p)
		if err != nil {
			return err
		}

		if !patch.TouchesTargets() {
			return nil
		}
		_, err = s.recalculate(ctx, updated, "updated")
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProfile removes the profile together with its whole target history.
func (s *ProfileService) DeleteProfile(ctx context.Context, userID int64) error {
	return s.locker.WithProfileLock(ctx, userID, func(ctx context.Context) error {
		deleted, err := s.profiles.DeleteProfile(ctx, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrProfileNotFound
		}
		return nil
	})
}

// OverrideTargets records a manual target snapshot regardless of whether the
// profile is complete.
func (s *ProfileService) OverrideTargets(ctx context.Context, userID int64, in ManualTargets) (*domain.TargetSnapshot, error) {
	if !inRange(in.Calories, maxCalories) {
		return nil, fmt.Errorf("%w: calories must be > 0 and <= %d", ErrInvalidInput, maxCalories)
	}
	for name, v := range map[string]*float64{"protein_g": in.ProteinG, "fat_g": in.FatG, "carbs_g": in.CarbsG} {
		if v != nil && !inRange(*v, maxMacroG) {
			return nil, fmt.Errorf("%w: %s must be > 0 and <= %d", ErrInvalidInput, name, maxMacroG)
		}
	}

	var snap *domain.TargetSnapshot
	err := s.locker.WithProfileLock(ctx, userID, func(ctx context.Context) error {
		p, err := s.profiles.GetProfile(ctx, userID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProfileNotFound
		}

		goal := domain.ManualGoal
		if p.Goal != nil {
			goal = string(*p.Goal)
		}
		snap, err = s.insert(ctx, domain.TargetSnapshot{
			ProfileID:     p.ID,
			Targets:       domain.CalculateManualTargets(in.Calories, p.Weight, in.ProteinG, in.FatG, in.CarbsG),
			CalculatedAt:  domain.DateOf(s.now().UTC()),
			BasedOnWeight: p.Weight,
			BasedOnGoal:   goal,
			IsManual:      true,
		}, "override")
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// CurrentTargets returns the most recent snapshot of the user's profile.
func (s *ProfileService) CurrentTargets(ctx context.Context, userID int64) (*domain.TargetSnapshot, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.targets.LatestTargetSnapshot(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrTargetsNotFound
	}
	return snap, nil
}

// TargetHistory returns every snapshot of the user's profile, newest first.
func (s *ProfileService) TargetHistory(ctx context.Context, userID int64) ([]domain.TargetSnapshot, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.targets.ListTargetSnapshots(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.TargetSnapshot{}
	}
	return items, nil
}

// recalculate appends a computed snapshot for p. Incomplete profiles are
// skipped and yield (nil, nil).
func (s *ProfileService) recalculate(ctx context.Context, p *domain.Profile, reason string) (*domain.TargetSnapshot, error) {
	if !p.TargetEligible() {
		return nil, nil
	}

	now := s.now().UTC()
	t, err := s.calc.Targets(domain.Biometrics{
		WeightKg:      p.Weight,
		HeightCm:      p.Height,
		AgeYears:      domain.CalculateAge(p.DateOfBirth, domain.DateOf(now)),
		Sex:           *p.Sex,
		ActivityLevel: *p.ActivityLevel,
		Goal:          *p.Goal,
	})
	if err != nil {
		return nil, fmt.Errorf("calculate targets: %w", err)
	}

	return s.insert(ctx, domain.TargetSnapshot{
		ProfileID:     p.ID,
		Targets:       t,
		CalculatedAt:  domain.DateOf(now),
		BasedOnWeight: p.Weight,
		BasedOnGoal:   string(*p.Goal),
	}, reason)
}

func (s *ProfileService) insert(ctx context.Context, snap domain.TargetSnapshot, reason string) (*domain.TargetSnapshot, error) {
	id, err := s.targets.AddTargetSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("add target snapshot: %w", err)
	}
	snap.ID = id
	log.Printf("targets: profile=%d snapshot=%d reason=%s manual=%t kcal=%.2f",
		snap.ProfileID, snap.ID, reason, snap.IsManual, snap.Calories)
	return &snap, nil
}

func (s *ProfileService) validate(p domain.Profile) error {
	if !inRange(p.Weight, maxWeightKg) {
		return fmt.Errorf("%w: weight must be > 0 and <= %d kg", ErrInvalidInput, maxWeightKg)
	}
	if !inRange(p.Height, maxHeightCm) {
		return fmt.Errorf("%w: height must be > 0 and <= %d cm", ErrInvalidInput, maxHeightCm)
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("%w: date_of_birth is required", ErrInvalidInput)
	}
	if domain.DateOf(s.now().UTC()).Before(p.DateOfBirth) {
		return fmt.Errorf("%w: date_of_birth is in the future", ErrInvalidInput)
	}
	return nil
}
