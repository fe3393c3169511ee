package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// Family member roles
const (
	RoleAdmin  = "admin"
	RoleParent = "parent"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a new family and adds the creator as its admin
func (r *FamilyRepository) CreateFamily(ctx context.Context, name, code string, creatorUserID int64) (*models.Family, error) {
	ts := now()
	var familyID int64

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		id, err := tx.ExecReturningID(ctx,
			"INSERT INTO families (name, family_code, created_at, updated_at) VALUES (?, ?, ?, ?)",
			name, code, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to create family: %w", err)
		}
		familyID = id

		_, err = tx.ExecContext(ctx,
			"INSERT INTO family_members (family_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
			familyID, creatorUserID, RoleAdmin, ts)
		if err != nil {
			return fmt.Errorf("failed to add family member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Family{
		ID:         familyID,
		Name:       name,
		FamilyCode: code,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}, nil
}

func (r *FamilyRepository) getFamily(ctx context.Context, where string, arg any) (*models.Family, error) {
	query := "SELECT id, name, family_code, created_at, updated_at FROM families WHERE " + where + " = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&family.ID,
		&family.Name,
		&family.FamilyCode,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	return r.getFamily(ctx, "id", familyID)
}

// GetFamilyByCode retrieves a family by its join code
func (r *FamilyRepository) GetFamilyByCode(ctx context.Context, code string) (*models.Family, error) {
	return r.getFamily(ctx, "family_code", code)
}

// GetUserFamilies retrieves all families a user belongs to
func (r *FamilyRepository) GetUserFamilies(ctx context.Context, userID int64) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.family_code, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY f.created_at DESC, f.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		var family models.Family
		if err := rows.Scan(&family.ID, &family.Name, &family.FamilyCode, &family.CreatedAt, &family.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

// AddFamilyMember adds a user to a family. Adding an existing member is a no-op.
func (r *FamilyRepository) AddFamilyMember(ctx context.Context, familyID, userID int64, role string) error {
	query := r.db.Dialect.InsertIgnore("family_members", []string{"family_id", "user_id", "role", "joined_at"})
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, role, now()); err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// RemoveFamilyMember removes a user from a family
func (r *FamilyRepository) RemoveFamilyMember(ctx context.Context, familyID, userID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM family_members WHERE family_id = ? AND user_id = ?", familyID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// CountFamilyMembers returns the number of parents in a family
func (r *FamilyRepository) CountFamilyMembers(ctx context.Context, familyID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM family_members WHERE family_id = ?", familyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return count, nil
}

// IsFamilyMember checks if a user is a member of a family
func (r *FamilyRepository) IsFamilyMember(ctx context.Context, userID, familyID int64) (bool, error) {
	query := "SELECT COUNT(*) FROM family_members WHERE user_id = ? AND family_id = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, familyID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check family membership: %w", err)
	}
	return count > 0, nil
}

// GetFamilyMembers retrieves all members of a family with their names and emails
func (r *FamilyRepository) GetFamilyMembers(ctx context.Context, familyID int64) ([]models.FamilyMember, error) {
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.joined_at, u.name, u.email
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC, fm.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var member models.FamilyMember
		if err := rows.Scan(
			&member.ID, &member.FamilyID, &member.UserID, &member.Role, &member.JoinedAt,
			&member.Name, &member.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
