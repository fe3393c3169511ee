package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"lunara/internal/credentials"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/security"
	"lunara/internal/validation"
)

const (
	defaultAvatarColor = "#7C6FE0"
	invitationTTL      = 7 * 24 * time.Hour
	familyCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	familyCodeLength   = 8
)

var avatarColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

func generateFamilyCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(familyCodeAlphabet)))
	for i := 0; i < familyCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(familyCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// FamilyService handles family, invitation and kid business logic. It also
// owns the access gate every kid-scoped operation goes through.
type FamilyService struct {
	familyRepo     *repository.FamilyRepository
	kidRepo        *repository.KidRepository
	invitationRepo *repository.InvitationRepository
	userRepo       *repository.UserRepository
	email          *EmailService
}

// NewFamilyService creates a new family service
func NewFamilyService(
	familyRepo *repository.FamilyRepository,
	kidRepo *repository.KidRepository,
	invitationRepo *repository.InvitationRepository,
	userRepo *repository.UserRepository,
	email *EmailService,
) *FamilyService {
	return &FamilyService{
		familyRepo:     familyRepo,
		kidRepo:        kidRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		email:          email,
	}
}

// CreateFamily creates a new family with the user as admin
func (s *FamilyService) CreateFamily(ctx context.Context, userID int64, name string) (*models.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.New("name", "family name is required")
	}

	code, err := generateFamilyCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate family code: %w", err)
	}

	family, err := s.familyRepo.CreateFamily(ctx, name, code, userID)
	if err != nil {
		return nil, persistence("create family", err)
	}
	return family, nil
}

// GetUserFamilies retrieves all families a user belongs to
func (s *FamilyService) GetUserFamilies(ctx context.Context, userID int64) ([]models.Family, error) {
	families, err := s.familyRepo.GetUserFamilies(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	return families, nil
}

// VerifyFamilyAccess checks if a user has access to a family
func (s *FamilyService) VerifyFamilyAccess(ctx context.Context, userID, familyID int64) error {
	isMember, err := s.familyRepo.IsFamilyMember(ctx, userID, familyID)
	if err != nil {
		return fmt.Errorf("failed to verify family access: %w", err)
	}
	if !isMember {
		return ErrNotFamilyMember
	}
	return nil
}

// GetFamilyMembers lists the parents of a family
func (s *FamilyService) GetFamilyMembers(ctx context.Context, userID, familyID int64) ([]models.FamilyMember, error) {
	if err := s.VerifyFamilyAccess(ctx, userID, familyID); err != nil {
		return nil, err
	}
	members, err := s.familyRepo.GetFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	return members, nil
}

// JoinFamily adds the user to the family with the given join code
func (s *FamilyService) JoinFamily(ctx context.Context, userID int64, code string) (*models.Family, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, validation.New("familyCode", "family code is required")
	}

	family, err := s.familyRepo.GetFamilyByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check family code: %w", err)
	}
	if family == nil {
		return nil, ErrInvalidFamilyCode
	}

	if err := s.familyRepo.AddFamilyMember(ctx, family.ID, userID, repository.RoleParent); err != nil {
		return nil, persistence("join family", err)
	}
	return family, nil
}

// LeaveFamily removes the user from a family. The last parent cannot leave,
// since nobody could then manage the family's kids.
func (s *FamilyService) LeaveFamily(ctx context.Context, userID, familyID int64) error {
	if err := s.VerifyFamilyAccess(ctx, userID, familyID); err != nil {
		return err
	}

	count, err := s.familyRepo.CountFamilyMembers(ctx, familyID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return validation.New("family", "the last parent cannot leave a family")
	}

	if err := s.familyRepo.RemoveFamilyMember(ctx, familyID, userID); err != nil {
		return persistence("leave family", err)
	}
	return nil
}

// InviteParent creates a 7-day invitation and emails it
func (s *FamilyService) InviteParent(ctx context.Context, userID, familyID int64, email string) (*models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.VerifyFamilyAccess(ctx, userID, familyID); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, notFound("Family")
	}
	inviter, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inviter: %w", err)
	}

	inv, err := s.invitationRepo.CreateInvitation(ctx, familyID, email, userID, time.Now().Add(invitationTTL))
	if err != nil {
		return nil, persistence("create invitation", err)
	}

	inviterName := "A parent"
	if inviter != nil {
		inviterName = inviter.Name
		inv.InviterName = inviter.Name
	}
	if err := s.email.SendInvitationEmail(ctx, email, inviterName, family.Name, inv.Code); err != nil {
		slog.Warn("failed to send invitation email", "invitation_id", inv.ID, "error", err)
	}
	return inv, nil
}

// AcceptInvitation joins the user to the invitation's family
func (s *FamilyService) AcceptInvitation(ctx context.Context, userID int64, code string) (*models.Family, error) {
	inv, err := s.invitationRepo.GetInvitationByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv == nil || !inv.IsValid() {
		return nil, ErrInvalidInvitation
	}

	marked, err := s.invitationRepo.MarkInvitationUsed(ctx, inv.ID, userID)
	if err != nil {
		return nil, persistence("accept invitation", err)
	}
	if !marked {
		return nil, ErrInvalidInvitation
	}

	if err := s.familyRepo.AddFamilyMember(ctx, inv.FamilyID, userID, repository.RoleParent); err != nil {
		return nil, persistence("join family", err)
	}

	family, err := s.familyRepo.GetFamilyByID(ctx, inv.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// CleanupExpiredInvitations removes unused invitations past their expiry
func (s *FamilyService) CleanupExpiredInvitations(ctx context.Context) (int64, error) {
	return s.invitationRepo.DeleteExpiredInvitations(ctx)
}

// GetKid retrieves a kid by ID
func (s *FamilyService) GetKid(ctx context.Context, kidID int64) (*models.Kid, error) {
	kid, err := s.kidRepo.GetKidByID(ctx, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil {
		return nil, notFound("Kid")
	}
	return kid, nil
}

// AuthorizeKid resolves the caller's access to kidID. A kid session for
// that kid is elevated; otherwise a parent session in the kid's family is
// required.
func (s *FamilyService) AuthorizeKid(ctx context.Context, caller Caller, kidID int64) (*models.Kid, Access, error) {
	if caller.IsKid(kidID) {
		kid, err := s.GetKid(ctx, kidID)
		if err != nil {
			return nil, AccessRestricted, err
		}
		return kid, AccessElevated, nil
	}

	kid, err := s.AuthorizeParent(ctx, caller, kidID)
	if err != nil {
		return nil, AccessRestricted, err
	}
	return kid, AccessRestricted, nil
}

// AuthorizeParent requires a parent session in the kid's family
func (s *FamilyService) AuthorizeParent(ctx context.Context, caller Caller, kidID int64) (*models.Kid, error) {
	if !caller.IsParent() {
		return nil, ErrUnauthorized
	}
	kid, err := s.GetKid(ctx, kidID)
	if err != nil {
		return nil, err
	}
	if err := s.VerifyFamilyAccess(ctx, caller.UserID, kid.FamilyID); err != nil {
		return nil, err
	}
	return kid, nil
}

func normalizeAvatarColor(color string) (string, error) {
	if color == "" {
		return defaultAvatarColor, nil
	}
	if !avatarColorRegex.MatchString(color) {
		return "", validation.New("avatarColor", "avatar color must look like #7C6FE0")
	}
	return color, nil
}

// CreateKid creates a kid profile with a generated username and PIN. The
// plain PIN is only ever returned here and by ResetKidPIN.
func (s *FamilyService) CreateKid(ctx context.Context, userID, familyID int64, name, avatarColor string) (*models.KidCredentials, error) {
	if err := s.VerifyFamilyAccess(ctx, userID, familyID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.New("name", "kid name is required")
	}
	color, err := normalizeAvatarColor(avatarColor)
	if err != nil {
		return nil, err
	}

	username, err := s.uniqueUsername(ctx)
	if err != nil {
		return nil, err
	}
	pin, err := credentials.GenerateKidPIN()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pin: %w", err)
	}
	pinHash, err := security.HashPassword(pin)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	kid, err := s.kidRepo.CreateKid(ctx, familyID, name, username, pinHash, color)
	if err != nil {
		return nil, persistence("create kid", err)
	}
	return &models.KidCredentials{Kid: kid, Username: username, PIN: pin}, nil
}

func (s *FamilyService) uniqueUsername(ctx context.Context) (string, error) {
	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		username, err := credentials.GenerateKidUsername()
		if err != nil {
			return "", fmt.Errorf("failed to generate username: %w", err)
		}
		taken, err := s.kidRepo.UsernameExists(ctx, username)
		if err != nil {
			return "", err
		}
		if !taken {
			return username, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique username after %d attempts", maxRetries)
}

// GetFamilyKids retrieves all kids in a family
func (s *FamilyService) GetFamilyKids(ctx context.Context, userID, familyID int64) ([]models.Kid, error) {
	if err := s.VerifyFamilyAccess(ctx, userID, familyID); err != nil {
		return nil, err
	}
	kids, err := s.kidRepo.GetFamilyKids(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family kids: %w", err)
	}
	return kids, nil
}

// UpdateKid updates a kid's name and avatar color
func (s *FamilyService) UpdateKid(ctx context.Context, caller Caller, kidID int64, name, avatarColor string) (*models.Kid, error) {
	kid, err := s.AuthorizeParent(ctx, caller, kidID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.New("name", "kid name is required")
	}
	color, err := normalizeAvatarColor(avatarColor)
	if err != nil {
		return nil, err
	}

	if err := s.kidRepo.UpdateKid(ctx, kidID, name, color); err != nil {
		return nil, persistence("update kid", err)
	}
	kid.Name = name
	kid.AvatarColor = color
	return kid, nil
}

// ResetKidPIN generates and stores a new PIN for a kid
func (s *FamilyService) ResetKidPIN(ctx context.Context, caller Caller, kidID int64) (*models.KidCredentials, error) {
	kid, err := s.AuthorizeParent(ctx, caller, kidID)
	if err != nil {
		return nil, err
	}

	pin, err := credentials.GenerateKidPIN()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pin: %w", err)
	}
	pinHash, err := security.HashPassword(pin)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}
	if err := s.kidRepo.UpdateKidPIN(ctx, kidID, pinHash); err != nil {
		return nil, persistence("update kid pin", err)
	}
	return &models.KidCredentials{Kid: kid, Username: kid.Username, PIN: pin}, nil
}

// KidLogin checks a kid's username and PIN
func (s *FamilyService) KidLogin(ctx context.Context, username, pin string) (*models.Kid, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, validation.New("username", "username is required")
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return nil, err
	}

	kid, err := s.kidRepo.GetKidByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	if kid == nil || !security.CheckPassword(pin, kid.PinHash) {
		return nil, ErrInvalidKidLogin
	}
	return kid, nil
}

// NotifyRedemption emails every parent in the kid's family about a new
// redemption request. Failures are logged and never reach the kid.
func (s *FamilyService) NotifyRedemption(ctx context.Context, kid *models.Kid, reward *models.Reward) {
	if !s.email.IsEnabled() {
		return
	}
	members, err := s.familyRepo.GetFamilyMembers(ctx, kid.FamilyID)
	if err != nil {
		slog.Warn("failed to load parents for redemption email", "kid_id", kid.ID, "error", err)
		return
	}
	for _, m := range members {
		if err := s.email.SendRedemptionRequestEmail(ctx, m.Email, m.Name, kid.Name, reward.Name, reward.MoonCost); err != nil {
			slog.Warn("failed to send redemption email", "kid_id", kid.ID, "user_id", m.UserID, "error", err)
		}
	}
}
