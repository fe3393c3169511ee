package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lunara/internal/validation"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validation.New("body", ErrInvalidJSON)
	}
	return nil
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.New(name, ErrInvalidID)
	}
	return id, nil
}

// queryKidID reads the required kidId query parameter
func queryKidID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("kidId")
	if raw == "" {
		return 0, validation.New("kidId", ErrMissingKidID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.New("kidId", ErrInvalidID)
	}
	return id, nil
}
