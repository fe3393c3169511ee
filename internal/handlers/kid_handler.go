package handlers

import (
	"net/http"

	"lunara/internal/service"
)

// KidHandler serves a kid's moons, progress and badges
type KidHandler struct {
	moonService     *service.MoonService
	progressService *service.ProgressService
}

// NewKidHandler creates a new kid handler
func NewKidHandler(moonService *service.MoonService, progressService *service.ProgressService) *KidHandler {
	return &KidHandler{
		moonService:     moonService,
		progressService: progressService,
	}
}

type moonsRequest struct {
	Moons *int `json:"moons"`
}

type moonsResponse struct {
	KidID    int64 `json:"kidId"`
	Moons    int   `json:"moons"`
	Previous *int  `json:"previousMoons,omitempty"`
}

type schoolDaysRequest struct {
	SchoolDays []int `json:"schoolDays"`
}

// GetMoons returns a kid's balance
func (h *KidHandler) GetMoons(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	balance, err := h.moonService.Balance(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moonsResponse{KidID: kidID, Moons: balance})
}

// SetMoons overwrites a kid's balance
func (h *KidHandler) SetMoons(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moonsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Moons == nil {
		respondWithError(w, http.StatusBadRequest, "moons is required", "", nil)
		return
	}

	previous, err := h.moonService.SetBalance(r.Context(), GetCallerFromContext(r.Context()), kidID, *req.Moons)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moonsResponse{KidID: kidID, Moons: *req.Moons, Previous: &previous})
}

// Progress returns a kid's progress summary
func (h *KidHandler) Progress(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.progressService.Summary(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Badges returns the badge report for a kid
func (h *KidHandler) Badges(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := h.progressService.Badges(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SetSchoolDays replaces the weekdays a kid is expected to work
func (h *KidHandler) SetSchoolDays(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req schoolDaysRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	days, err := h.progressService.SetSchoolDays(r.Context(), GetCallerFromContext(r.Context()), kidID, req.SchoolDays)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kidId": kidID, "schoolDays": days})
}

// GrantBonus gives a kid bonus moons
func (h *KidHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	var req service.BonusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.moonService.GrantBonus(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"moonsAwarded":   result.Moons,
		"newMoonBalance": result.NewBalance,
	})
}

// History lists a kid's recent awards
func (h *KidHandler) History(w http.ResponseWriter, r *http.Request) {
	kidID, err := queryKidID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := h.moonService.History(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
