package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"lunara/internal/database"
	"lunara/internal/models"
)

// PurchaseRepository handles database operations for shop purchases
type PurchaseRepository struct {
	db *database.DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, kid_id, item_id, item_name, cost, status, COALESCE(idempotency_key, ''), purchased_at, fulfilled_at`

func scanPurchase(row interface{ Scan(...any) error }) (*models.Purchase, error) {
	var (
		p           models.Purchase
		status      string
		fulfilledAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.KidID, &p.ItemID, &p.ItemName, &p.Cost, &status, &p.IdempotencyKey, &p.PurchasedAt, &fulfilledAt)
	if err != nil {
		return nil, err
	}
	p.Status = models.ClaimStatus(status)
	p.FulfilledAt = timePtr(fulfilledAt)
	return &p, nil
}

// ErrAlreadyOwned is returned when a one-off item has already been bought
var ErrAlreadyOwned = errors.New("item already owned")

// OwnershipKey identifies a kid's single copy of a one-off item
func OwnershipKey(kidID int64, itemID string) string {
	return fmt.Sprintf("%d:%s", kidID, itemID)
}

var purchaseInsertColumns = []string{"kid_id", "item_id", "item_name", "cost", "status", "idempotency_key", "ownership_key", "purchased_at"}

// CreatePurchase records an unfulfilled purchase. A purchase with an
// ownership key that is already taken is not inserted and ErrAlreadyOwned
// is returned.
func (r *PurchaseRepository) CreatePurchase(ctx context.Context, p models.Purchase) (*models.Purchase, error) {
	ts := now()
	args := []any{p.KidID, p.ItemID, p.ItemName, p.Cost, string(models.StatusUnfulfilled), nullString(p.IdempotencyKey), nullString(p.OwnershipKey), ts}

	if p.OwnershipKey == "" {
		query := `INSERT INTO shop_purchases (` + strings.Join(purchaseInsertColumns, ", ") + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		id, err := r.db.ExecReturningID(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create purchase: %w", err)
		}
		p.ID = id
	} else {
		result, err := r.db.ExecContext(ctx, r.db.Dialect.InsertIgnore("shop_purchases", purchaseInsertColumns), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to create purchase: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to create purchase: %w", err)
		}
		if n == 0 {
			return nil, ErrAlreadyOwned
		}
		err = r.db.QueryRowContext(ctx, `SELECT id FROM shop_purchases WHERE ownership_key = ?`, p.OwnershipKey).Scan(&p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read purchase id: %w", err)
		}
	}

	p.Status = models.StatusUnfulfilled
	p.PurchasedAt = ts
	return &p, nil
}

// GetPurchase retrieves a purchase by ID
func (r *PurchaseRepository) GetPurchase(ctx context.Context, id int64) (*models.Purchase, error) {
	p, err := scanPurchase(r.db.QueryRowContext(ctx, `SELECT `+purchaseColumns+` FROM shop_purchases WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return p, nil
}

// ListPurchases lists a kid's purchases newest first. An empty status lists all.
func (r *PurchaseRepository) ListPurchases(ctx context.Context, kidID int64, status models.ClaimStatus) ([]models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM shop_purchases WHERE kid_id = ?`
	args := []any{kidID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY purchased_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	purchases := []models.Purchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

// HasPurchased reports whether the kid already bought the item
func (r *PurchaseRepository) HasPurchased(ctx context.Context, kidID int64, itemID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shop_purchases WHERE kid_id = ? AND item_id = ?`, kidID, itemID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return count > 0, nil
}

// UpdatePurchaseStatus moves a purchase from one status to another. It
// returns false when the purchase was no longer in the from status.
func (r *PurchaseRepository) UpdatePurchaseStatus(ctx context.Context, id int64, from, to models.ClaimStatus, at time.Time) (bool, error) {
	query := `UPDATE shop_purchases SET status = ?, fulfilled_at = ? WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, string(to), at.UTC(), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update purchase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update purchase: %w", err)
	}
	return n == 1, nil
}
