package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	proteinPerKg = 2.2
	fatPerKg     = 0.8

	kcalPerGramProtein = 4
	kcalPerGramFat     = 9
	kcalPerGramCarbs   = 4
)

// ActivityMultipliers scales BMR into TDEE, one field per ActivityLevel.
type ActivityMultipliers struct {
	Sedentary        float64
	LightlyActive    float64
	ModeratelyActive float64
	VeryActive       float64
	Athlete          float64
}

// For returns the multiplier for a.
func (m ActivityMultipliers) For(a ActivityLevel) (float64, error) {
	switch a {
	case ActivitySedentary:
		return m.Sedentary, nil
	case ActivityLightlyActive:
		return m.LightlyActive, nil
	case ActivityModeratelyActive:
		return m.ModeratelyActive, nil
	case ActivityVeryActive:
		return m.VeryActive, nil
	case ActivityAthlete:
		return m.Athlete, nil
	}
	return 0, fmt.Errorf("no activity multiplier for %q", a)
}

// GoalMultipliers scales TDEE into the calorie target, one field per Goal.
type GoalMultipliers struct {
	Cut      float64
	Maintain float64
	Bulk     float64
	Recomp   float64
}

// For returns the multiplier for g.
func (m GoalMultipliers) For(g Goal) (float64, error) {
	switch g {
	case GoalCut:
		return m.Cut, nil
	case GoalMaintain:
		return m.Maintain, nil
	case GoalBulk:
		return m.Bulk, nil
	case GoalRecomp:
		return m.Recomp, nil
	}
	return 0, fmt.Errorf("no goal multiplier for %q", g)
}

// DefaultActivityMultipliers returns the standard activity table. It is
// flatter than the Harris-Benedict factors.
func DefaultActivityMultipliers() ActivityMultipliers {
	return ActivityMultipliers{
		Sedentary:        1.0,
		LightlyActive:    1.2,
		ModeratelyActive: 1.35,
		VeryActive:       1.45,
		Athlete:          1.8,
	}
}

// DefaultGoalMultipliers returns the standard goal table.
func DefaultGoalMultipliers() GoalMultipliers {
	return GoalMultipliers{
		Cut:      0.825,
		Maintain: 1.0,
		Bulk:     1.15,
		Recomp:   1.0,
	}
}

// Biometrics is the complete input to a computed target.
type Biometrics struct {
	WeightKg      float64
	HeightCm      float64
	AgeYears      int
	Sex           Sex
	ActivityLevel ActivityLevel
	Goal          Goal
}

// Calculator derives TDEE and macro targets from biometrics. It holds only
// its multiplier tables and is safe for concurrent use.
type Calculator struct {
	activity ActivityMultipliers
	goal     GoalMultipliers
}

// NewCalculator returns a Calculator using the given tables.
func NewCalculator(activity ActivityMultipliers, goal GoalMultipliers) Calculator {
	return Calculator{activity: activity, goal: goal}
}

// DefaultCalculator returns a Calculator with the standard tables.
func DefaultCalculator() Calculator {
	return NewCalculator(DefaultActivityMultipliers(), DefaultGoalMultipliers())
}

// CalculateAge returns the age in whole years on today of someone born on dob.
func CalculateAge(dob, today Date) int {
	age := today.Year - dob.Year
	if today.Month < dob.Month || (today.Month == dob.Month && today.Day < dob.Day) {
		age--
	}
	return age
}

// CalculateBMR applies the Mifflin-St Jeor equation.
func CalculateBMR(weightKg, heightCm float64, ageYears int, sex Sex) (float64, error) {
	base := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)
	switch sex {
	case SexMale:
		return round2(base + 5), nil
	case SexFemale:
		return round2(base - 161), nil
	}
	return 0, fmt.Errorf("no BMR formula for sex %q", sex)
}

// TDEE scales bmr by the activity multiplier.
func (c Calculator) TDEE(bmr float64, a ActivityLevel) (float64, error) {
	m, err := c.activity.For(a)
	if err != nil {
		return 0, err
	}
	return round2(bmr * m), nil
}

// Calories scales tdee by the goal multiplier.
func (c Calculator) Calories(tdee float64, g Goal) (float64, error) {
	m, err := c.goal.For(g)
	if err != nil {
		return 0, err
	}
	return round2(tdee * m), nil
}

// Targets computes the full macro budget. Carbs take whatever calories remain
// after protein and fat and may come out negative; that is not clamped.
func (c Calculator) Targets(b Biometrics) (Targets, error) {
	bmr, err := CalculateBMR(b.WeightKg, b.HeightCm, b.AgeYears, b.Sex)
	if err != nil {
		return Targets{}, err
	}
	tdee, err := c.TDEE(bmr, b.ActivityLevel)
	if err != nil {
		return Targets{}, err
	}
	calories, err := c.Calories(tdee, b.Goal)
	if err != nil {
		return Targets{}, err
	}

	protein := defaultProtein(b.WeightKg)
	fat := defaultFat(b.WeightKg)
	remaining := calories - protein*kcalPerGramProtein - fat*kcalPerGramFat

	t := Targets{
		Calories: calories,
		ProteinG: protein,
		FatG:     fat,
		CarbsG:   round2(remaining / kcalPerGramCarbs),
	}
	if !finite(t.Calories, t.ProteinG, t.FatG, t.CarbsG) {
		return Targets{}, fmt.Errorf("targets out of range for weight %g kg, height %g cm", b.WeightKg, b.HeightCm)
	}
	return t, nil
}

// CalculateManualTargets builds targets around a user-chosen calorie figure.
// Supplied macros are used as given. Missing protein and fat fall back to the
// per-kg defaults; missing carbs fill the remainder, floored at zero.
func CalculateManualTargets(calories, weightKg float64, proteinG, fatG, carbsG *float64) Targets {
	protein := defaultProtein(weightKg)
	if proteinG != nil {
		protein = *proteinG
	}
	fat := defaultFat(weightKg)
	if fatG != nil {
		fat = *fatG
	}

	var carbs float64
	if carbsG != nil {
		carbs = *carbsG
	} else {
		remaining := calories - protein*kcalPerGramProtein - fat*kcalPerGramFat
		carbs = round2(math.Max(remaining, 0) / kcalPerGramCarbs)
	}

	return Targets{
		Calories: calories,
		ProteinG: protein,
		FatG:     fat,
		CarbsG:   carbs,
	}
}

func defaultProtein(weightKg float64) float64 {
	return round2(weightKg * proteinPerKg)
}

func defaultFat(weightKg float64) float64 {
	return round2(weightKg * fatPerKg)
}

// round2 rounds half away from zero on the shortest decimal form of v, so
// 1982.475 goes to 1982.48 even though its float64 sits just below the midpoint.
// Non-finite values are returned unchanged.
func round2(v float64) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
