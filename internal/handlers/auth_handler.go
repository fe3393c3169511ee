package handlers

import (
	"log/slog"
	"net/http"

	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
)

// AuthHandler handles parent and kid sign-in
type AuthHandler struct {
	authService          *service.AuthService
	familyService        *service.FamilyService
	kidTokens            *security.KidTokens
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService *service.AuthService,
	familyService *service.FamilyService,
	kidTokens *security.KidTokens,
	oauthProviders map[string]OAuthProvider,
	oauthRedirectBaseURL, appBaseURL string,
) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		familyService:        familyService,
		kidTokens:            kidTokens,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	FamilyCode string `json:"familyCode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User     *models.User    `json:"user"`
	Families []models.Family `json:"families,omitempty"`
}

// Register creates a parent account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name, req.FamilyCode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	session, _, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookie, session.ID, session.ExpiresAt))

	slog.Info("parent registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

// Login handles parent email and password sign-in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookie, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Logout ends the parent session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookie); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookie))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the signed-in parent and their families
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	families, err := h.familyService.GetUserFamilies(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user, Families: families})
}

type kidLoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// KidLogin checks a kid's username and PIN and issues a kid session token
func (h *AuthHandler) KidLogin(w http.ResponseWriter, r *http.Request) {
	var req kidLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	kid, err := h.familyService.KidLogin(r.Context(), req.Username, req.PIN)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expires, err := h.kidTokens.Issue(kid.ID, kid.FamilyID, kid.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.KidSessionCookie, token, expires))
	writeJSON(w, http.StatusOK, map[string]any{"kid": kid, "expiresAt": expires})
}

// KidLogout clears the kid session cookie
func (h *AuthHandler) KidLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r, security.KidSessionCookie))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
