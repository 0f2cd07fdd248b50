package adapthttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"nutrition/internal/domain"
)

// optional records whether a JSON field was present, so an explicit null can
// be told apart from an omitted field.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o optional[T]) null() bool {
	return o.Set && o.Value == nil
}

// profileRequest is the body of POST and PUT /api/profile. Weight is in
// WeightUnit, kilograms when omitted. A null sex, activity_level or goal
// clears the field.
type profileRequest struct {
	DateOfBirth   optional[domain.Date]          `json:"date_of_birth"`
	Sex           optional[domain.Sex]           `json:"sex"`
	Weight        optional[float64]              `json:"weight"`
	WeightUnit    string                         `json:"weight_unit"`
	Height        optional[float64]              `json:"height"`
	ActivityLevel optional[domain.ActivityLevel] `json:"activity_level"`
	Goal          optional[domain.Goal]          `json:"goal"`
}

func (req profileRequest) patch() (domain.ProfilePatch, error) {
	switch {
	case req.DateOfBirth.null():
		return domain.ProfilePatch{}, errors.New("date_of_birth cannot be null")
	case req.Weight.null():
		return domain.ProfilePatch{}, errors.New("weight cannot be null")
	case req.Height.null():
		return domain.ProfilePatch{}, errors.New("height cannot be null")
	}

	unit, err := domain.ParseWeightUnit(req.WeightUnit)
	if err != nil {
		return domain.ProfilePatch{}, err
	}
	p := domain.ProfilePatch{
		DateOfBirth:   req.DateOfBirth.Value,
		Sex:           req.Sex.Value,
		Height:        req.Height.Value,
		ActivityLevel: req.ActivityLevel.Value,
		Goal:          req.Goal.Value,

		ClearSex:           req.Sex.null(),
		ClearActivityLevel: req.ActivityLevel.null(),
		ClearGoal:          req.Goal.null(),
	}
	if req.Weight.Value != nil {
		kg := domain.ConvertWeight(*req.Weight.Value, unit, domain.Kilograms)
		p.Weight = &kg
	}
	return p, nil
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		p, err := s.profiles.GetProfile(ctx, user.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPost:
		var req profileRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.DateOfBirth.Value == nil || req.Weight.Value == nil || req.Height.Value == nil {
			writeError(w, http.StatusBadRequest, errors.New("date_of_birth, weight and height are required"))
			return
		}
		patch, err := req.patch()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var p domain.Profile
		p.Apply(patch)
		created, err := s.profiles.CreateProfile(ctx, user.ID, p)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodPut:
		var req profileRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		patch, err := req.patch()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := s.profiles.UpdateProfile(ctx, user.ID, patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.profiles.DeleteProfile(ctx, user.ID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
