package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
)

const testPassword = "moonlight-42"

type testServer struct {
	t        *testing.T
	db       *database.DB
	services *service.Services
	handlers Handlers
	router   http.Handler
}

// newTestServer wires the real services over an in-memory database. opts
// can swap pieces of the handler set before the router is built.
func newTestServer(t *testing.T, opts ...func(*Handlers)) *testServer {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	services, err := service.NewServices(db, service.Options{
		SessionDuration: time.Hour,
		Moons:           config.DefaultMoonRules(),
	})
	require.NoError(t, err)

	tokens := security.NewKidTokens("test-secret", time.Hour)
	startup := DefaultStartupStatus()
	startup.MarkReady()

	h := Handlers{
		Middleware: NewMiddleware(services.Auth, tokens, security.NewRateLimiter(100, time.Minute)),
		Startup:    startup,
		Auth: NewAuthHandler(services.Auth, services.Family, tokens,
			map[string]OAuthProvider{"google": GoogleProvider("client-id", "client-secret")},
			"http://lunara.test", "http://lunara.test"),
		Parent:         NewParentHandler(services.Family),
		Kid:            NewKidHandler(services.Moons, services.Progress),
		Reward:         NewRewardHandler(services.Rewards, services.Claims),
		Shop:           NewShopHandler(services.Shop),
		Activity:       NewActivityHandler(services.Activities, services.Journal),
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(&h)
	}

	return &testServer{t: t, db: db, services: services, handlers: h, router: NewRouter(h)}
}

func (s *testServer) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// httpRequestWithBody sends a raw, possibly malformed, body
func httpRequestWithBody(t *testing.T, s *testServer, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error
}

// family is a registered parent with one kid signed in
type family struct {
	parent   *http.Cookie
	kid      *http.Cookie
	familyID int64
	kidID    int64
	username string
	pin      string
}

func (s *testServer) registerFamily(email, name string) family {
	t := s.t
	t.Helper()

	rec := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": testPassword, "name": name,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	parent := cookieNamed(rec, security.SessionCookie)
	require.NotNil(t, parent)

	rec = s.do(http.MethodGet, "/api/families", nil, parent)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var families struct {
		Families []models.Family `json:"families"`
	}
	decodeBody(t, rec, &families)
	require.Len(t, families.Families, 1)
	familyID := families.Families[0].ID

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/families/%d/kids", familyID), map[string]string{"name": "Ada"}, parent)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var creds models.KidCredentials
	decodeBody(t, rec, &creds)
	require.NotNil(t, creds.Kid)

	rec = s.do(http.MethodPost, "/api/kid-auth/login", map[string]string{"username": creds.Username, "pin": creds.PIN})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	kid := cookieNamed(rec, security.KidSessionCookie)
	require.NotNil(t, kid)

	return family{
		parent:   parent,
		kid:      kid,
		familyID: familyID,
		kidID:    creds.Kid.ID,
		username: creds.Username,
		pin:      creds.PIN,
	}
}

func (s *testServer) fund(f family, moons int) {
	s.t.Helper()
	rec := s.do(http.MethodPut, fmt.Sprintf("/api/kids/%d/moons", f.kidID), map[string]int{"moons": moons}, f.parent)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
}

func (s *testServer) balance(f family) int {
	s.t.Helper()
	rec := s.do(http.MethodGet, fmt.Sprintf("/api/kids/%d/moons", f.kidID), nil, f.kid)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var body moonsResponse
	decodeBody(s.t, rec, &body)
	return body.Moons
}
