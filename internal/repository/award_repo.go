package repository

import (
	"context"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// AwardRepository records which items have already earned moons on a given day
type AwardRepository struct {
	db *database.DB
}

// NewAwardRepository creates a new award repository
func NewAwardRepository(db *database.DB) *AwardRepository {
	return &AwardRepository{db: db}
}

func markAwarded(ctx context.Context, q database.DBTX, a models.Award) (bool, error) {
	query := q.GetDialect().InsertIgnore("progress_awards",
		[]string{"kid_id", "award_date", "item_id", "moons", "source", "note", "awarded_at"})
	result, err := q.ExecContext(ctx, query, a.KidID, a.Date, a.ItemID, a.Moons, a.Source, a.Note, now())
	if err != nil {
		return false, fmt.Errorf("failed to mark awarded: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark awarded: %w", err)
	}
	return n == 1, nil
}

// AwardKey is the ledger idempotency key for an award
func AwardKey(a models.Award) string {
	return fmt.Sprintf("award:%d:%s:%s", a.KidID, a.Date, a.ItemID)
}

// IsAwarded reports whether the item already earned moons on date
func (r *AwardRepository) IsAwarded(ctx context.Context, kidID int64, date, itemID string) (bool, error) {
	query := "SELECT COUNT(*) FROM progress_awards WHERE kid_id = ? AND award_date = ? AND item_id = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, kidID, date, itemID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check award: %w", err)
	}
	return count > 0, nil
}

// MarkAwarded records the award without touching the balance. It returns
// false when the (kid, date, item) key already exists.
func (r *AwardRepository) MarkAwarded(ctx context.Context, a models.Award) (bool, error) {
	return markAwarded(ctx, r.db, a)
}

// Award marks the item and credits its moons in one transaction. When the
// item was already awarded nothing changes and applied is false.
func (r *AwardRepository) Award(ctx context.Context, a models.Award, kind models.TransactionKind) (applied bool, total int, err error) {
	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		if applied, err = markAwarded(ctx, tx, a); err != nil {
			return err
		}
		if applied && a.Moons > 0 {
			_, err = credit(ctx, tx, Entry{
				KidID:     a.KidID,
				Amount:    a.Moons,
				Kind:      kind,
				Reference: a.ItemID,
				Key:       AwardKey(a),
				Note:      a.Note,
			})
			if err != nil {
				return err
			}
		}
		total, err = balance(ctx, tx, a.KidID)
		return err
	})
	if err != nil {
		return false, 0, err
	}
	return applied, total, nil
}

// AwardsSince lists awards dated on or after since, newest first
func (r *AwardRepository) AwardsSince(ctx context.Context, kidID int64, since string, limit int) ([]models.Award, error) {
	query := `
		SELECT id, kid_id, award_date, item_id, moons, source, note, awarded_at
		FROM progress_awards
		WHERE kid_id = ? AND award_date >= ?
		ORDER BY award_date DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, kidID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query awards: %w", err)
	}
	defer rows.Close()

	awards := []models.Award{}
	for rows.Next() {
		var a models.Award
		if err := rows.Scan(&a.ID, &a.KidID, &a.Date, &a.ItemID, &a.Moons, &a.Source, &a.Note, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, a)
	}
	return awards, rows.Err()
}
