package adapthttp

import (
	"errors"
	"fmt"
	"net/http"

	"nutrition/internal/app"
)

type overrideRequest struct {
	Calories *float64 `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	FatG     *float64 `json:"fat_g"`
	CarbsG   *float64 `json:"carbs_g"`
}

func (req overrideRequest) validate() error {
	if req.Calories == nil {
		return errors.New("calories is required")
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"calories", req.Calories},
		{"protein_g", req.ProteinG},
		{"fat_g", req.FatG},
		{"carbs_g", req.CarbsG},
	} {
		if err := requirePositive(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

func requirePositive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		snap, err := s.profiles.CurrentTargets(ctx, user.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)

	case http.MethodPut:
		var req overrideRequest
		if err := parseJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		snap, err := s.profiles.OverrideTargets(ctx, user.ID, app.ManualTargets{
			Calories: *req.Calories,
			ProteinG: req.ProteinG,
			FatG:     req.FatG,
			CarbsG:   req.CarbsG,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTargetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := s.profiles.TargetHistory(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit := intQuery(r, "limit", 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
