package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/security"
	"lunara/internal/validation"
)

// AuthService handles parent authentication business logic
type AuthService struct {
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	email           *EmailService
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository, email *EmailService, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		email:           email,
		sessionDuration: sessionDuration,
	}
}

// Register creates a new user account and either joins an existing family or creates a new one
func (s *AuthService) Register(ctx context.Context, email, password, name, familyCode string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	var family *models.Family
	if code := strings.ToUpper(strings.TrimSpace(familyCode)); code != "" {
		f, err := s.familyRepo.GetFamilyByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to check family code: %w", err)
		}
		if f == nil {
			return nil, ErrInvalidFamilyCode
		}
		family = f
	}

	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, passwordHash, name)
	if err != nil {
		return nil, persistence("create user", err)
	}

	if err := s.joinOrCreateFamily(ctx, user, family); err != nil {
		return nil, err
	}

	if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
		slog.Warn("failed to send welcome email", "user_id", user.ID, "error", err)
	}

	return user, nil
}

func (s *AuthService) joinOrCreateFamily(ctx context.Context, user *models.User, family *models.Family) error {
	if family != nil {
		if err := s.familyRepo.AddFamilyMember(ctx, family.ID, user.ID, repository.RoleParent); err != nil {
			return persistence("join family", err)
		}
		return nil
	}

	code, err := generateFamilyCode()
	if err != nil {
		return fmt.Errorf("failed to generate family code: %w", err)
	}
	if _, err := s.familyRepo.CreateFamily(ctx, user.Name+"'s Family", code, user.ID); err != nil {
		// Registration still succeeds; a family can be created later.
		slog.Warn("failed to create family for new user", "user_id", user.ID, "error", err)
	}
	return nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) createSession(ctx context.Context, userID int64) (*models.Session, error) {
	session, err := s.userRepo.CreateSession(ctx, security.GenerateSessionID(), userID, time.Now().Add(s.sessionDuration))
	if err != nil {
		return nil, persistence("create session", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, validation.New("oauth", "missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(ctx, existingUser.ID, provider, subject); err != nil {
				return nil, nil, persistence("link oauth provider", err)
			}
			user = existingUser
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			randomPasswordHash, err := security.HashPassword(security.GenerateSessionID())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
			}
			newUser, err := s.userRepo.CreateUser(ctx, email, randomPasswordHash, name)
			if err != nil {
				return nil, nil, persistence("create oauth user", err)
			}
			if err := s.userRepo.LinkOAuthProvider(ctx, newUser.ID, provider, subject); err != nil {
				return nil, nil, persistence("link oauth provider", err)
			}
			user = newUser
			if err := s.joinOrCreateFamily(ctx, user, nil); err != nil {
				return nil, nil, err
			}
		}
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}
