package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// RewardRepository handles database operations for parent-defined rewards
type RewardRepository struct {
	db *database.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

const rewardColumns = `id, kid_id, name, description, emoji, category, moon_cost, is_active, created_at, updated_at`

func scanReward(row interface{ Scan(...any) error }) (*models.Reward, error) {
	rw := &models.Reward{}
	err := row.Scan(
		&rw.ID, &rw.KidID, &rw.Name, &rw.Description, &rw.Emoji, &rw.Category,
		&rw.MoonCost, &rw.IsActive, &rw.CreatedAt, &rw.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rw, nil
}

// CreateReward inserts a new active reward
func (r *RewardRepository) CreateReward(ctx context.Context, rw models.Reward) (*models.Reward, error) {
	ts := now()
	query := `INSERT INTO kid_rewards (kid_id, name, description, emoji, category, moon_cost, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, rw.KidID, rw.Name, rw.Description, rw.Emoji, rw.Category, rw.MoonCost, true, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	rw.ID = id
	rw.IsActive = true
	rw.CreatedAt = ts
	rw.UpdatedAt = ts
	return &rw, nil
}

// GetReward retrieves a reward by ID, active or not
func (r *RewardRepository) GetReward(ctx context.Context, id int64) (*models.Reward, error) {
	rw, err := scanReward(r.db.QueryRowContext(ctx, `SELECT `+rewardColumns+` FROM kid_rewards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return rw, nil
}

// GetActiveReward retrieves a reward only if it is active and belongs to the kid
func (r *RewardRepository) GetActiveReward(ctx context.Context, id, kidID int64) (*models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM kid_rewards WHERE id = ? AND kid_id = ? AND is_active = ?`
	rw, err := scanReward(r.db.QueryRowContext(ctx, query, id, kidID, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return rw, nil
}

// ListActiveRewards lists the kid's active rewards, cheapest first
func (r *RewardRepository) ListActiveRewards(ctx context.Context, kidID int64) ([]models.Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM kid_rewards WHERE kid_id = ? AND is_active = ? ORDER BY moon_cost ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, kidID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, *rw)
	}
	return rewards, rows.Err()
}

// UpdateReward updates a reward's editable fields
func (r *RewardRepository) UpdateReward(ctx context.Context, rw models.Reward) error {
	query := `UPDATE kid_rewards SET name = ?, description = ?, emoji = ?, category = ?, moon_cost = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, rw.Name, rw.Description, rw.Emoji, rw.Category, rw.MoonCost, now(), rw.ID); err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return nil
}

// DeactivateReward soft-deletes a reward so existing redemptions keep their reference
func (r *RewardRepository) DeactivateReward(ctx context.Context, id int64) error {
	query := `UPDATE kid_rewards SET is_active = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, false, now(), id); err != nil {
		return fmt.Errorf("failed to deactivate reward: %w", err)
	}
	return nil
}
