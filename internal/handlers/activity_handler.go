package handlers

import (
	"net/http"

	"lunara/internal/service"
)

// ActivityHandler records completed lessons and journal entries
type ActivityHandler struct {
	activityService *service.ActivityService
	journalService  *service.JournalService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *service.ActivityService, journalService *service.JournalService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		journalService:  journalService,
	}
}

// Complete records a completed activity and awards its moons
func (h *ActivityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req service.CompletionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.activityService.Complete(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SaveJournal writes the kid's journal entry for a day
func (h *ActivityHandler) SaveJournal(w http.ResponseWriter, r *http.Request) {
	var req service.JournalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.journalService.Save(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// ListJournal returns a kid's recent journal entries
func (h *ActivityHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	kidID, err := queryKidID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.journalService.List(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
