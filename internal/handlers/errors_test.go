package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunara/internal/models"
	"lunara/internal/service"
	"lunara/internal/validation"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })
	return &buf
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, http.StatusTeapot, "Teapot", "", nil)

	assert.Equal(t, http.StatusTeapot, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Teapot"}`, recorder.Body.String())
}

func TestRespondWithErrorLogsCause(t *testing.T) {
	logs := captureLogs(t)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, http.StatusInternalServerError, ErrInternalServerError, "", errors.New("boom"))

	assert.Contains(t, logs.String(), ErrInternalServerError)
	assert.Contains(t, logs.String(), "boom")
	assert.NotContains(t, recorder.Body.String(), "boom")
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", validation.New("name", "name is required"), http.StatusBadRequest, `{"error":"name is required"}`},
		{"wrapped validation", fmt.Errorf("create: %w", validation.New("moonCost", "Moon cost must be between 1 and 1000")), http.StatusBadRequest, `{"error":"Moon cost must be between 1 and 1000"}`},
		{"insufficient funds", fmt.Errorf("redeem: %w", &service.InsufficientFundsError{CurrentMoons: 2, Cost: 5}), http.StatusBadRequest,
			`{"error":"Not enough moons: have 2, need 5","currentMoons":2,"cost":5}`},
		{"not found", &service.NotFoundError{Resource: "Reward"}, http.StatusNotFound, `{"error":"Reward not found"}`},
		{"invalid transition", fmt.Errorf("%w: approved to denied", models.ErrInvalidTransition), http.StatusBadRequest, `{"error":"invalid claim status transition: approved to denied"}`},
		{"family code", service.ErrInvalidFamilyCode, http.StatusBadRequest, `{"error":"invalid family code"}`},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"invalid email or password"}`},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"expired session", service.ErrSessionExpired, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"not a member", service.ErrNotFamilyMember, http.StatusForbidden, `{"error":"Forbidden"}`},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, `{"error":"email already taken"}`},
		{"persistence", &service.PersistenceError{Op: "create redemption", Err: errors.New("disk full")}, http.StatusInternalServerError, `{"error":"Something went wrong"}`},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, `{"error":"Something went wrong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestWriteErrorLogsPersistenceCause(t *testing.T) {
	logs := captureLogs(t)
	rec := httptest.NewRecorder()

	writeError(rec, httptest.NewRequest(http.MethodPost, "/api/rewards/redeem", nil),
		&service.PersistenceError{Op: "create redemption", Err: errors.New("disk full")})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, logs.String(), "disk full")
	assert.Contains(t, logs.String(), "create redemption")
	assert.NotContains(t, rec.Body.String(), "disk full")
}
