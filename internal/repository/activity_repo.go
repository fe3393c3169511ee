package repository

import (
	"context"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// SubjectTotal aggregates a kid's completions for one subject
type SubjectTotal struct {
	Subject string
	Count   int
	Minutes int
}

// ActivityRepository handles database operations for completed activities
type ActivityRepository struct {
	db *database.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// RecordCompletion stores a completion. It returns false when the item was
// already completed by the kid on that day.
func (r *ActivityRepository) RecordCompletion(ctx context.Context, c models.Completion) (bool, error) {
	query := r.db.Dialect.InsertIgnore("activity_completions",
		[]string{"kid_id", "completed_on", "item_id", "subject", "minutes", "created_at"})
	result, err := r.db.ExecContext(ctx, query, c.KidID, c.CompletedOn, c.ItemID, c.Subject, c.Minutes, now())
	if err != nil {
		return false, fmt.Errorf("failed to record completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record completion: %w", err)
	}
	return n == 1, nil
}

// CountOn counts the kid's completions on one day
func (r *ActivityRepository) CountOn(ctx context.Context, kidID int64, date string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM activity_completions WHERE kid_id = ? AND completed_on = ?`
	if err := r.db.QueryRowContext(ctx, query, kidID, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// SubjectTotals groups the kid's completions by subject
func (r *ActivityRepository) SubjectTotals(ctx context.Context, kidID int64) ([]SubjectTotal, error) {
	query := `
		SELECT subject, COUNT(*), COALESCE(SUM(minutes), 0)
		FROM activity_completions
		WHERE kid_id = ?
		GROUP BY subject
		ORDER BY subject ASC
	`
	rows, err := r.db.QueryContext(ctx, query, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject totals: %w", err)
	}
	defer rows.Close()

	totals := []SubjectTotal{}
	for rows.Next() {
		var t SubjectTotal
		if err := rows.Scan(&t.Subject, &t.Count, &t.Minutes); err != nil {
			return nil, fmt.Errorf("failed to scan subject total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
