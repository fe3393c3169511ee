package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lunara/internal/database"
	"lunara/internal/models"
)

// RedemptionRepository handles database operations for reward redemptions
type RedemptionRepository struct {
	db *database.DB
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db *database.DB) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

const redemptionSelect = `
	SELECT rr.id, rr.kid_id, rr.reward_id, rr.cost, rr.status, COALESCE(rr.idempotency_key, ''),
	       rr.redeemed_at, rr.resolved_at, COALESCE(kr.name, ''), COALESCE(kr.emoji, '')
	FROM reward_redemptions rr
	LEFT JOIN kid_rewards kr ON rr.reward_id = kr.id
`

func scanRedemption(row interface{ Scan(...any) error }) (*models.Redemption, error) {
	var (
		rd         models.Redemption
		status     string
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&rd.ID, &rd.KidID, &rd.RewardID, &rd.Cost, &status, &rd.IdempotencyKey,
		&rd.RedeemedAt, &resolvedAt, &rd.RewardName, &rd.RewardEmoji,
	)
	if err != nil {
		return nil, err
	}
	rd.Status = models.ClaimStatus(status)
	rd.ResolvedAt = timePtr(resolvedAt)
	return &rd, nil
}

// CreateRedemption inserts a pending redemption
func (r *RedemptionRepository) CreateRedemption(ctx context.Context, rd models.Redemption) (*models.Redemption, error) {
	ts := now()
	query := `INSERT INTO reward_redemptions (kid_id, reward_id, cost, status, idempotency_key, redeemed_at) VALUES (?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, rd.KidID, rd.RewardID, rd.Cost, string(models.StatusPending), nullString(rd.IdempotencyKey), ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	rd.ID = id
	rd.Status = models.StatusPending
	rd.RedeemedAt = ts
	return &rd, nil
}

// GetRedemption retrieves a redemption with its reward name and emoji
func (r *RedemptionRepository) GetRedemption(ctx context.Context, id int64) (*models.Redemption, error) {
	rd, err := scanRedemption(r.db.QueryRowContext(ctx, redemptionSelect+` WHERE rr.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	return rd, nil
}

// ListRedemptions lists a kid's redemptions newest first. An empty status lists all.
func (r *RedemptionRepository) ListRedemptions(ctx context.Context, kidID int64, status models.ClaimStatus) ([]models.Redemption, error) {
	query := redemptionSelect + ` WHERE rr.kid_id = ?`
	args := []any{kidID}
	if status != "" {
		query += ` AND rr.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY rr.redeemed_at DESC, rr.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []models.Redemption{}
	for rows.Next() {
		rd, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, *rd)
	}
	return redemptions, rows.Err()
}

// UpdateRedemptionStatus moves a redemption from one status to another. It
// returns false when the redemption was no longer in the from status.
func (r *RedemptionRepository) UpdateRedemptionStatus(ctx context.Context, id int64, from, to models.ClaimStatus, at time.Time) (bool, error) {
	query := `UPDATE reward_redemptions SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update redemption: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update redemption: %w", err)
	}
	return n == 1, nil
}
