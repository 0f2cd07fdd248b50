package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrProfileExists is returned when a user already owns a profile.
var ErrProfileExists = errors.New("profile already exists")

// Sex is the biological sex category used by the BMR formula.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex validates s as a Sex.
func ParseSex(s string) (Sex, error) {
	switch v := Sex(s); v {
	case SexMale, SexFemale:
		return v, nil
	}
	return "", fmt.Errorf("invalid sex %q", s)
}

// UnmarshalText rejects unknown values during decoding.
func (s *Sex) UnmarshalText(b []byte) error {
	v, err := ParseSex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ActivityLevel describes how physically active a person is.
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
	ActivityAthlete          ActivityLevel = "athlete"
)

// ParseActivityLevel validates s as an ActivityLevel.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	switch v := ActivityLevel(s); v {
	case ActivitySedentary, ActivityLightlyActive, ActivityModeratelyActive, ActivityVeryActive, ActivityAthlete:
		return v, nil
	}
	return "", fmt.Errorf("invalid activity level %q", s)
}

// UnmarshalText rejects unknown values during decoding.
func (a *ActivityLevel) UnmarshalText(b []byte) error {
	v, err := ParseActivityLevel(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Goal is the body-composition goal that scales the calorie target.
type Goal string

const (
	GoalCut      Goal = "cut"
	GoalMaintain Goal = "maintain"
	GoalBulk     Goal = "bulk"
	GoalRecomp   Goal = "recomp"
)

// ParseGoal validates s as a Goal.
func ParseGoal(s string) (Goal, error) {
	switch v := Goal(s); v {
	case GoalCut, GoalMaintain, GoalBulk, GoalRecomp:
		return v, nil
	}
	return "", fmt.Errorf("invalid goal %q", s)
}

// UnmarshalText rejects unknown values during decoding.
func (g *Goal) UnmarshalText(b []byte) error {
	v, err := ParseGoal(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// Profile holds the biometrics of a single user. Sex, ActivityLevel and Goal
// are optional; targets can only be computed once all three are set.
type Profile struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	DateOfBirth   Date           `json:"date_of_birth"`
	Sex           *Sex           `json:"sex"`
	Weight        float64        `json:"weight"`
	Height        float64        `json:"height"`
	ActivityLevel *ActivityLevel `json:"activity_level"`
	Goal          *Goal          `json:"goal"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TargetEligible reports whether the profile carries enough information to
// compute targets.
func (p Profile) TargetEligible() bool {
	return p.Sex != nil && p.ActivityLevel != nil && p.Goal != nil
}

// ProfilePatch is a partial update. Nil fields are left untouched. The Clear
// flags reset an optional field to unset and win over a value for the same
// field.
type ProfilePatch struct {
	DateOfBirth   *Date
	Sex           *Sex
	Weight        *float64
	Height        *float64
	ActivityLevel *ActivityLevel
	Goal          *Goal

	ClearSex           bool
	ClearActivityLevel bool
	ClearGoal          bool
}

// TouchesTargets reports whether the patch sets any field that feeds the
// target calculation. Height is not one of them.
func (p ProfilePatch) TouchesTargets() bool {
	return p.Weight != nil || p.Goal != nil || p.Sex != nil ||
		p.ActivityLevel != nil || p.DateOfBirth != nil ||
		p.ClearSex || p.ClearActivityLevel || p.ClearGoal
}

// Apply writes the set fields of patch onto p.
func (p *Profile) Apply(patch ProfilePatch) {
	if patch.DateOfBirth != nil {
		p.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Sex != nil {
		v := *patch.Sex
		p.Sex = &v
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Height != nil {
		p.Height = *patch.Height
	}
	if patch.ActivityLevel != nil {
		v := *patch.ActivityLevel
		p.ActivityLevel = &v
	}
	if patch.Goal != nil {
		v := *patch.Goal
		p.Goal = &v
	}

	if patch.ClearSex {
		p.Sex = nil
	}
	if patch.ClearActivityLevel {
		p.ActivityLevel = nil
	}
	if patch.ClearGoal {
		p.Goal = nil
	}
}

// ProfileRepository is the port for profile persistence. Lookups return
// (nil, nil) when nothing matches.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) (*Profile, error)
	UpdateProfile(ctx context.Context, p Profile) (*Profile, error)
	DeleteProfile(ctx context.Context, userID int64) (bool, error)
}

// ProfileLocker serializes mutations of a single user's profile. fn runs with
// a context that repositories use to join the same unit of work.
type ProfileLocker interface {
	WithProfileLock(ctx context.Context, userID int64, fn func(ctx context.Context) error) error
}
