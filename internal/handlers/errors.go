package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
	"lunara/internal/validation"
)

type errorResponse struct {
	Error        string `json:"error"`
	CurrentMoons *int   `json:"currentMoons,omitempty"`
	Cost         *int   `json:"cost,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// respondWithError writes {"error": userMsg}. The cause, when present, is
// logged and never sent to the client.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(context.Background(), level, logMsg, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// writeError maps a service error onto a status code and response body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve        validation.ValidationError
		notFound  *service.NotFoundError
		funds     *service.InsufficientFundsError
		persisted *service.PersistenceError
	)

	switch {
	case errors.As(err, &funds):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:        funds.Error(),
			CurrentMoons: &funds.CurrentMoons,
			Cost:         &funds.Cost,
		})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Message})
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidFamilyCode),
		errors.Is(err, service.ErrInvalidInvitation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidKidLogin):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, security.ErrInvalidKidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
	case errors.Is(err, service.ErrNotFamilyMember):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: ErrForbidden})
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &persisted):
		slog.Error("persistence failure", "op", persisted.Op, "request_id", middleware.GetReqID(r.Context()), "error", persisted.Err)
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "", nil)
	default:
		slog.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "", nil)
	}
}
