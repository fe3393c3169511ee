package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// KidRepository handles database operations for kids
type KidRepository struct {
	db *database.DB
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db *database.DB) *KidRepository {
	return &KidRepository{db: db}
}

const kidColumns = `id, family_id, name, username, pin_hash, avatar_color, created_at, updated_at`

func scanKid(row interface{ Scan(...any) error }) (*models.Kid, error) {
	kid := &models.Kid{}
	err := row.Scan(
		&kid.ID,
		&kid.FamilyID,
		&kid.Name,
		&kid.Username,
		&kid.PinHash,
		&kid.AvatarColor,
		&kid.CreatedAt,
		&kid.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return kid, nil
}

// CreateKid creates a new kid profile along with an empty progress record
func (r *KidRepository) CreateKid(ctx context.Context, familyID int64, name, username, pinHash, avatarColor string) (*models.Kid, error) {
	ts := now()
	var kidID int64

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `INSERT INTO kids (family_id, name, username, pin_hash, avatar_color, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
		id, err := tx.ExecReturningID(ctx, query, familyID, name, username, pinHash, avatarColor, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to create kid: %w", err)
		}
		kidID = id
		return ensureProgress(ctx, tx, kidID)
	})
	if err != nil {
		return nil, err
	}

	return &models.Kid{
		ID:          kidID,
		FamilyID:    familyID,
		Name:        name,
		Username:    username,
		PinHash:     pinHash,
		AvatarColor: avatarColor,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// GetKidByID retrieves a kid by ID
func (r *KidRepository) GetKidByID(ctx context.Context, kidID int64) (*models.Kid, error) {
	kid, err := scanKid(r.db.QueryRowContext(ctx, `SELECT `+kidColumns+` FROM kids WHERE id = ?`, kidID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// GetKidByUsername retrieves a kid by login username
func (r *KidRepository) GetKidByUsername(ctx context.Context, username string) (*models.Kid, error) {
	kid, err := scanKid(r.db.QueryRowContext(ctx, `SELECT `+kidColumns+` FROM kids WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// UsernameExists reports whether a kid username is taken
func (r *KidRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kids WHERE username = ?`, username).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// GetFamilyKids retrieves all kids in a family
func (r *KidRepository) GetFamilyKids(ctx context.Context, familyID int64) ([]models.Kid, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+kidColumns+` FROM kids WHERE family_id = ? ORDER BY name ASC, id ASC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	defer rows.Close()

	kids := []models.Kid{}
	for rows.Next() {
		kid, err := scanKid(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kid: %w", err)
		}
		kids = append(kids, *kid)
	}
	return kids, rows.Err()
}

// UpdateKid updates a kid's display details
func (r *KidRepository) UpdateKid(ctx context.Context, kidID int64, name, avatarColor string) error {
	query := `UPDATE kids SET name = ?, avatar_color = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, name, avatarColor, now(), kidID); err != nil {
		return fmt.Errorf("failed to update kid: %w", err)
	}
	return nil
}

// UpdateKidPIN replaces a kid's login PIN hash
func (r *KidRepository) UpdateKidPIN(ctx context.Context, kidID int64, pinHash string) error {
	query := `UPDATE kids SET pin_hash = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, pinHash, now(), kidID); err != nil {
		return fmt.Errorf("failed to update kid pin: %w", err)
	}
	return nil
}
