package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"lunara/internal/security"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// GoogleProvider builds the Google sign-in provider
func GoogleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name:  "google",
		Label: "Google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
		AuthParams:  map[string]string{"prompt": "select_account"},
	}
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

func (h *AuthHandler) provider(r *http.Request) (string, OAuthProvider, bool) {
	key := chi.URLParam(r, "provider")
	provider, ok := h.oauthProviders[key]
	if !ok || !provider.configured() {
		return key, OAuthProvider{}, false
	}
	return key, provider, true
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey, provider, ok := h.provider(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrOAuthNotConfigured, "", nil)
		return
	}

	state := security.GenerateSessionID()
	h.setTempCookie(w, r, oauthStateCookie, state)
	h.setTempCookie(w, r, oauthProviderCookie, providerKey)
	if familyCode := r.URL.Query().Get("familyCode"); familyCode != "" {
		h.setTempCookie(w, r, oauthFamilyCodeCookie, familyCode)
	}

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey, provider, ok := h.provider(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrOAuthNotConfigured, "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, ErrMissingOAuthCode, "", nil)
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		respondWithError(w, http.StatusBadRequest, ErrInvalidOAuthState, "", nil)
		return
	}
	if providerCookie, err := r.Cookie(oauthProviderCookie); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, http.StatusBadRequest, ErrInvalidOAuthState, "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrOAuthExchangeFailed, "oauth exchange failed", err)
		return
	}

	userInfo, err := fetchUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "oauth user info failed", err)
		return
	}

	familyCode := ""
	if cookie, err := r.Cookie(oauthFamilyCodeCookie); err == nil {
		familyCode = cookie.Value
	}

	h.clearTempCookie(w, r, oauthStateCookie)
	h.clearTempCookie(w, r, oauthProviderCookie)
	h.clearTempCookie(w, r, oauthFamilyCodeCookie)

	session, user, err := h.authService.OAuthLogin(r.Context(), providerKey, userInfo.Subject, userInfo.Email, userInfo.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if familyCode != "" {
		if _, err := h.familyService.JoinFamily(r.Context(), user.ID, familyCode); err != nil {
			slog.Warn("failed to join family after oauth sign-in", "user_id", user.ID, "error", err)
		}
	}

	http.SetCookie(w, security.CreateSessionCookie(r, security.SessionCookie, session.ID, session.ExpiresAt))
	http.Redirect(w, r, strings.TrimRight(h.appBaseURL, "/")+"/", http.StatusSeeOther)
}

func fetchUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Label)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New("email not available from provider")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/api/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(oauthCookieTTL),
		MaxAge:   int(oauthCookieTTL.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, security.CreateDeleteCookie(r, name))
}
