package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"nutrition/internal/domain"
)

func TestProfile_TargetEligible(t *testing.T) {
	full := domain.Profile{
		Sex:           ptr(domain.SexFemale),
		ActivityLevel: ptr(domain.ActivityAthlete),
		Goal:          ptr(domain.GoalBulk),
	}
	if !full.TargetEligible() {
		t.Fatal("expected complete profile to be eligible")
	}

	for name, p := range map[string]domain.Profile{
		"no sex":      {ActivityLevel: full.ActivityLevel, Goal: full.Goal},
		"no activity": {Sex: full.Sex, Goal: full.Goal},
		"no goal":     {Sex: full.Sex, ActivityLevel: full.ActivityLevel},
	} {
		if p.TargetEligible() {
			t.Errorf("%s: expected ineligible", name)
		}
	}
}

func TestProfilePatch_TouchesTargets(t *testing.T) {
	dob := domain.NewDate(1990, time.May, 4)
	tests := []struct {
		name  string
		patch domain.ProfilePatch
		want  bool
	}{
		{"empty", domain.ProfilePatch{}, false},
		{"height only", domain.ProfilePatch{Height: ptr(181.0)}, false},
		{"weight", domain.ProfilePatch{Weight: ptr(79.0)}, true},
		{"goal", domain.ProfilePatch{Goal: ptr(domain.GoalCut)}, true},
		{"sex", domain.ProfilePatch{Sex: ptr(domain.SexMale)}, true},
		{"activity", domain.ProfilePatch{ActivityLevel: ptr(domain.ActivitySedentary)}, true},
		{"date of birth", domain.ProfilePatch{DateOfBirth: &dob}, true},
		{"height and weight", domain.ProfilePatch{Height: ptr(181.0), Weight: ptr(79.0)}, true},
		{"clear sex", domain.ProfilePatch{ClearSex: true}, true},
		{"clear activity", domain.ProfilePatch{ClearActivityLevel: true}, true},
		{"clear goal", domain.ProfilePatch{ClearGoal: true}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.patch.TouchesTargets(); got != tc.want {
				t.Errorf("TouchesTargets() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestProfile_Apply(t *testing.T) {
	p := domain.Profile{Weight: 80, Height: 180, Goal: ptr(domain.GoalMaintain)}
	p.Apply(domain.ProfilePatch{Weight: ptr(78.5), Sex: ptr(domain.SexMale)})

	if p.Weight != 78.5 {
		t.Errorf("Weight = %v; want 78.5", p.Weight)
	}
	if p.Height != 180 {
		t.Errorf("Height changed to %v", p.Height)
	}
	if p.Sex == nil || *p.Sex != domain.SexMale {
		t.Errorf("Sex = %v; want male", p.Sex)
	}
	if p.Goal == nil || *p.Goal != domain.GoalMaintain {
		t.Errorf("Goal = %v; want maintain", p.Goal)
	}
}

func TestProfile_ApplyClears(t *testing.T) {
	p := domain.Profile{
		Sex:           ptr(domain.SexFemale),
		ActivityLevel: ptr(domain.ActivityAthlete),
		Goal:          ptr(domain.GoalBulk),
	}
	p.Apply(domain.ProfilePatch{ClearGoal: true, Goal: ptr(domain.GoalCut), ClearActivityLevel: true})

	if p.Goal != nil {
		t.Errorf("Goal = %v; want cleared", *p.Goal)
	}
	if p.ActivityLevel != nil {
		t.Errorf("ActivityLevel = %v; want cleared", *p.ActivityLevel)
	}
	if p.Sex == nil || *p.Sex != domain.SexFemale {
		t.Errorf("Sex = %v; want female untouched", p.Sex)
	}
	if p.TargetEligible() {
		t.Error("profile with cleared fields must not be eligible")
	}
}

func TestEnumDecoding(t *testing.T) {
	var ok struct {
		Sex      domain.Sex           `json:"sex"`
		Activity domain.ActivityLevel `json:"activity"`
		Goal     *domain.Goal         `json:"goal"`
	}
	if err := json.Unmarshal([]byte(`{"sex":"female","activity":"very_active","goal":"recomp"}`), &ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Goal == nil || *ok.Goal != domain.GoalRecomp {
		t.Errorf("Goal = %v; want recomp", ok.Goal)
	}

	bad := []string{
		`{"sex":"other"}`,
		`{"activity":"couch_potato"}`,
		`{"goal":"shred"}`,
	}
	for _, in := range bad {
		if err := json.Unmarshal([]byte(in), &ok); err == nil {
			t.Errorf("expected error decoding %s", in)
		}
	}
}

func TestDate_JSON(t *testing.T) {
	d := domain.NewDate(1990, time.January, 2)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1990-01-02"` {
		t.Fatalf("Marshal = %s", b)
	}

	var got domain.Date
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got != d {
		t.Errorf("round trip = %v; want %v", got, d)
	}

	if err := json.Unmarshal([]byte(`"02/01/1990"`), &got); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestDate_Before(t *testing.T) {
	a := domain.NewDate(2020, time.March, 1)
	if !a.Before(domain.NewDate(2020, time.March, 2)) {
		t.Error("expected day ordering")
	}
	if !a.Before(domain.NewDate(2020, time.April, 1)) {
		t.Error("expected month ordering")
	}
	if a.Before(a) {
		t.Error("date must not be before itself")
	}
}
