package domain

import "context"

// ManualGoal is recorded as the goal of an override made while the profile
// has no goal set.
const ManualGoal = "manual"

// Targets is a daily calorie and macronutrient budget.
type Targets struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	FatG     float64 `json:"fat_g"`
	CarbsG   float64 `json:"carbs_g"`
}

// TargetSnapshot is one immutable entry in a profile's target history. The
// entry with the highest ID is the current target.
type TargetSnapshot struct {
	ID        int64 `json:"id"`
	ProfileID int64 `json:"profile_id"`
	Targets
	CalculatedAt  Date    `json:"calculated_at"`
	BasedOnWeight float64 `json:"based_on_weight"`
	BasedOnGoal   string  `json:"based_on_goal"`
	IsManual      bool    `json:"is_manual"`
}

// TargetRepository is the port for the append-only snapshot log. There is no
// update or single-row delete; snapshots go away only with their profile.
type TargetRepository interface {
	AddTargetSnapshot(ctx context.Context, s TargetSnapshot) (int64, error)
	LatestTargetSnapshot(ctx context.Context, profileID int64) (*TargetSnapshot, error)
	ListTargetSnapshots(ctx context.Context, profileID int64) ([]TargetSnapshot, error)
}
