package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
)

// JournalRepository handles database operations for journal entries
type JournalRepository struct {
	db *database.DB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *database.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// SaveEntry creates or replaces the kid's entry for e.Date. The returned bool
// is true when a new entry was created.
func (r *JournalRepository) SaveEntry(ctx context.Context, e models.JournalEntry) (*models.JournalEntry, bool, error) {
	ts := now()
	created := false

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var existingID int64
		var createdAt = ts
		err := tx.QueryRowContext(ctx,
			"SELECT id, created_at FROM journal_entries WHERE kid_id = ? AND entry_date = ?",
			e.KidID, e.Date).Scan(&existingID, &createdAt)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			query := `INSERT INTO journal_entries (kid_id, entry_date, prompt, response, skipped, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
			id, err := tx.ExecReturningID(ctx, query, e.KidID, e.Date, e.Prompt, e.Response, e.Skipped, ts, ts)
			if err != nil {
				return fmt.Errorf("failed to create journal entry: %w", err)
			}
			e.ID = id
			created = true
		case err != nil:
			return fmt.Errorf("failed to look up journal entry: %w", err)
		default:
			query := `UPDATE journal_entries SET prompt = ?, response = ?, skipped = ?, updated_at = ? WHERE id = ?`
			if _, err := tx.ExecContext(ctx, query, e.Prompt, e.Response, e.Skipped, ts, existingID); err != nil {
				return fmt.Errorf("failed to update journal entry: %w", err)
			}
			e.ID = existingID
		}
		e.CreatedAt = createdAt
		e.UpdatedAt = ts
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &e, created, nil
}

// ListEntries lists the kid's entries newest first
func (r *JournalRepository) ListEntries(ctx context.Context, kidID int64, limit int) ([]models.JournalEntry, error) {
	query := `
		SELECT id, kid_id, entry_date, prompt, response, skipped, created_at, updated_at
		FROM journal_entries
		WHERE kid_id = ?
		ORDER BY entry_date DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, kidID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.KidID, &e.Date, &e.Prompt, &e.Response, &e.Skipped, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountWritten counts entries that were written rather than skipped
func (r *JournalRepository) CountWritten(ctx context.Context, kidID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM journal_entries WHERE kid_id = ? AND skipped = ? AND response <> ''`
	if err := r.db.QueryRowContext(ctx, query, kidID, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}
