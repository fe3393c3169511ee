package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"lunara/internal/database"
	"lunara/internal/models"
)

type InvitationRepository struct {
	db *database.DB
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInvitationCode generates a random invitation code
func GenerateInvitationCode() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateInvitation creates a new invitation into a family
func (r *InvitationRepository) CreateInvitation(ctx context.Context, familyID int64, email string, invitedBy int64, expiresAt time.Time) (*models.Invitation, error) {
	code, err := GenerateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	ts := now()
	query := `INSERT INTO invitations (code, family_id, email, invited_by, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, code, familyID, email, invitedBy, ts, expiresAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		Code:      code,
		FamilyID:  familyID,
		Email:     email,
		InvitedBy: invitedBy,
		CreatedAt: ts,
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByCode retrieves an invitation by code
func (r *InvitationRepository) GetInvitationByCode(ctx context.Context, code string) (*models.Invitation, error) {
	query := `
		SELECT i.id, i.code, i.family_id, i.email, i.invited_by, i.created_at, i.used_at, i.used_by, i.expires_at, COALESCE(u.name, '')
		FROM invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.code = ?
	`

	var (
		inv    models.Invitation
		usedAt sql.NullTime
		usedBy sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&inv.ID, &inv.Code, &inv.FamilyID, &inv.Email, &inv.InvitedBy,
		&inv.CreatedAt, &usedAt, &usedBy, &inv.ExpiresAt, &inv.InviterName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	inv.UsedAt = timePtr(usedAt)
	if usedBy.Valid {
		id := usedBy.Int64
		inv.UsedBy = &id
	}
	return &inv, nil
}

// MarkInvitationUsed marks an invitation as used. It reports false when the
// invitation was already used by someone else in the meantime.
func (r *InvitationRepository) MarkInvitationUsed(ctx context.Context, invitationID, userID int64) (bool, error) {
	query := `UPDATE invitations SET used_at = ?, used_by = ? WHERE id = ? AND used_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, now(), userID, invitationID)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	return n == 1, nil
}

// DeleteExpiredInvitations removes unused invitations past their expiry
func (r *InvitationRepository) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE expires_at < ? AND used_at IS NULL`, now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
