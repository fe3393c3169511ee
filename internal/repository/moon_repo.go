package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/progress"
)

// ErrInsufficientBalance is returned by Debit when the kid's balance is
// below the requested amount. No row is changed in that case.
var ErrInsufficientBalance = errors.New("insufficient moon balance")

// Entry describes one balance change and the ledger row recording it.
// A non-empty Key makes the change idempotent.
type Entry struct {
	KidID     int64
	Amount    int
	Kind      models.TransactionKind
	Reference string
	Key       string
	Note      string
}

// MoonRepository owns the per-kid balance in student_progress and the
// append-only moon_transactions ledger. Every balance change writes its
// ledger row in the same transaction.
type MoonRepository struct {
	db *database.DB
}

// NewMoonRepository creates a new moon repository
func NewMoonRepository(db *database.DB) *MoonRepository {
	return &MoonRepository{db: db}
}

func ensureProgress(ctx context.Context, q database.DBTX, kidID int64) error {
	query := q.GetDialect().InsertIgnore("student_progress", []string{"kid_id", "updated_at"})
	if _, err := q.ExecContext(ctx, query, kidID, now()); err != nil {
		return fmt.Errorf("failed to create progress record: %w", err)
	}
	return nil
}

func balance(ctx context.Context, q database.DBTX, kidID int64) (int, error) {
	var total int
	err := q.QueryRowContext(ctx, "SELECT total_moons FROM student_progress WHERE kid_id = ?", kidID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return total, nil
}

func keyUsed(ctx context.Context, q database.DBTX, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM moon_transactions WHERE idempotency_key = ?", key).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return count > 0, nil
}

func appendLedger(ctx context.Context, q database.DBTX, kidID int64, delta int, e Entry) error {
	query := `INSERT INTO moon_transactions (kid_id, delta, kind, reference, idempotency_key, note, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, kidID, delta, string(e.Kind), e.Reference, nullString(e.Key), e.Note, now()); err != nil {
		return fmt.Errorf("failed to append moon transaction: %w", err)
	}
	return nil
}

// credit adds e.Amount to the balance inside q. It reports false without
// changing anything when e.Key has already been applied.
func credit(ctx context.Context, q database.DBTX, e Entry) (bool, error) {
	used, err := keyUsed(ctx, q, e.Key)
	if err != nil || used {
		return false, err
	}
	if err := ensureProgress(ctx, q, e.KidID); err != nil {
		return false, err
	}
	query := "UPDATE student_progress SET total_moons = total_moons + ?, updated_at = ? WHERE kid_id = ?"
	if _, err := q.ExecContext(ctx, query, e.Amount, now(), e.KidID); err != nil {
		return false, fmt.Errorf("failed to credit moons: %w", err)
	}
	return true, appendLedger(ctx, q, e.KidID, e.Amount, e)
}

// GetBalance returns the kid's current balance, zero when no record exists
func (r *MoonRepository) GetBalance(ctx context.Context, kidID int64) (int, error) {
	return balance(ctx, r.db, kidID)
}

// Credit adds moons and returns the resulting balance. The second return
// value is false when the entry's key was already applied.
func (r *MoonRepository) Credit(ctx context.Context, e Entry) (int, bool, error) {
	var (
		total   int
		applied bool
	)
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		if applied, err = credit(ctx, tx, e); err != nil {
			return err
		}
		total, err = balance(ctx, tx, e.KidID)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return total, applied, nil
}

// Debit subtracts moons only if the balance covers the amount. The check and
// the decrement are one conditional UPDATE, so concurrent debits can never
// overdraw. On ErrInsufficientBalance the returned int is the current balance.
func (r *MoonRepository) Debit(ctx context.Context, e Entry) (int, error) {
	var total int
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := "UPDATE student_progress SET total_moons = total_moons - ?, updated_at = ? WHERE kid_id = ? AND total_moons >= ?"
		result, err := tx.ExecContext(ctx, query, e.Amount, now(), e.KidID, e.Amount)
		if err != nil {
			return fmt.Errorf("failed to debit moons: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to debit moons: %w", err)
		}
		if n == 0 {
			current, err := balance(ctx, tx, e.KidID)
			if err != nil {
				return err
			}
			total = current
			return ErrInsufficientBalance
		}
		if err := appendLedger(ctx, tx, e.KidID, -e.Amount, e); err != nil {
			return err
		}
		total, err = balance(ctx, tx, e.KidID)
		return err
	})
	return total, err
}

// SetBalance overwrites the balance and records the difference as an
// adjustment. It returns the previous balance.
func (r *MoonRepository) SetBalance(ctx context.Context, kidID int64, value int, note string) (int, error) {
	var previous int
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := ensureProgress(ctx, tx, kidID); err != nil {
			return err
		}
		var err error
		if previous, err = balance(ctx, tx, kidID); err != nil {
			return err
		}
		query := "UPDATE student_progress SET total_moons = ?, updated_at = ? WHERE kid_id = ?"
		if _, err := tx.ExecContext(ctx, query, value, now(), kidID); err != nil {
			return fmt.Errorf("failed to set balance: %w", err)
		}
		if delta := value - previous; delta != 0 {
			return appendLedger(ctx, tx, kidID, delta, Entry{Kind: models.TransactionAdjust, Note: note})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return previous, nil
}

// Transactions returns the kid's most recent ledger rows, newest first
func (r *MoonRepository) Transactions(ctx context.Context, kidID int64, limit int) ([]models.MoonTransaction, error) {
	query := `
		SELECT id, kid_id, delta, kind, reference, COALESCE(idempotency_key, ''), note, created_at
		FROM moon_transactions
		WHERE kid_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, kidID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query moon transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.MoonTransaction{}
	for rows.Next() {
		var t models.MoonTransaction
		var kind string
		if err := rows.Scan(&t.ID, &t.KidID, &t.Delta, &kind, &t.Reference, &t.IdempotencyKey, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan moon transaction: %w", err)
		}
		t.Kind = models.TransactionKind(kind)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// LedgerSum totals every ledger row for the kid. It equals the balance as
// long as every change went through this repository.
func (r *MoonRepository) LedgerSum(ctx context.Context, kidID int64) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(delta), 0) FROM moon_transactions WHERE kid_id = ?", kidID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum moon transactions: %w", err)
	}
	return sum, nil
}

// GetProgress returns the kid's balance, streak and school days. A kid
// without a record gets zero values and the default school days.
func (r *MoonRepository) GetProgress(ctx context.Context, kidID int64) (*models.Progress, error) {
	query := `
		SELECT kid_id, total_moons, current_streak, best_streak, last_completed_date, school_days, updated_at
		FROM student_progress WHERE kid_id = ?
	`
	p := &models.Progress{}
	var days string
	err := r.db.QueryRowContext(ctx, query, kidID).Scan(
		&p.KidID, &p.TotalMoons, &p.CurrentStreak, &p.BestStreak, &p.LastCompletedDate, &days, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Progress{KidID: kidID, SchoolDays: progress.DefaultSchoolDays().Ints()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	parsed, err := progress.ParseSchoolDays(days)
	if err != nil {
		parsed = progress.DefaultSchoolDays()
	}
	p.SchoolDays = parsed.Ints()
	return p, nil
}

// UpdateStreak stores the kid's streak counters
func (r *MoonRepository) UpdateStreak(ctx context.Context, kidID int64, s progress.Streak) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := ensureProgress(ctx, tx, kidID); err != nil {
			return err
		}
		query := `UPDATE student_progress SET current_streak = ?, best_streak = ?, last_completed_date = ?, updated_at = ? WHERE kid_id = ?`
		if _, err := tx.ExecContext(ctx, query, s.Current, s.Best, s.LastCompleted, now(), kidID); err != nil {
			return fmt.Errorf("failed to update streak: %w", err)
		}
		return nil
	})
}

// SetSchoolDays stores which weekdays count toward the kid's streak
func (r *MoonRepository) SetSchoolDays(ctx context.Context, kidID int64, days progress.SchoolDays) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := ensureProgress(ctx, tx, kidID); err != nil {
			return err
		}
		query := `UPDATE student_progress SET school_days = ?, updated_at = ? WHERE kid_id = ?`
		if _, err := tx.ExecContext(ctx, query, days.String(), now(), kidID); err != nil {
			return fmt.Errorf("failed to update school days: %w", err)
		}
		return nil
	})
}
