package handlers

import "time"

const (
	oauthStateCookie      = "oauth_state"
	oauthProviderCookie   = "oauth_provider"
	oauthFamilyCodeCookie = "oauth_family_code"
	oauthCookieTTL        = 10 * time.Minute

	maxBodyBytes = 1 << 20

	ErrInvalidJSON           = "Invalid request body"
	ErrInvalidID             = "Invalid id"
	ErrUnauthorized          = "Unauthorized"
	ErrForbidden             = "Forbidden"
	ErrRateLimited           = "Too many requests, please try again later"
	ErrInternalServerError   = "Something went wrong"
	ErrServiceStarting       = "Server is starting, please retry shortly"
	ErrOAuthNotConfigured    = "OAuth provider not configured"
	ErrInvalidOAuthState     = "Invalid OAuth state"
	ErrMissingOAuthCode      = "Missing authorization code"
	ErrOAuthExchangeFailed   = "Failed to exchange OAuth code"
	ErrMissingKidID          = "kidId is required"
	ErrRewardIDRequired      = "id is required"
	ErrFamilyCodeRequired    = "familyCode is required"
	ErrInvitationCodeMissing = "code is required"
)
