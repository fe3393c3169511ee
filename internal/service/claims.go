package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lunara/internal/metrics"
	"lunara/internal/models"
	"lunara/internal/repository"
)

// BalanceLedger is the moon balance store as seen by the claim flows
type BalanceLedger interface {
	GetBalance(ctx context.Context, kidID int64) (int, error)
	Credit(ctx context.Context, e repository.Entry) (int, bool, error)
	Debit(ctx context.Context, e repository.Entry) (int, error)
}

// RewardStore looks up parent-defined rewards
type RewardStore interface {
	GetActiveReward(ctx context.Context, id, kidID int64) (*models.Reward, error)
}

// RedemptionStore persists reward redemptions
type RedemptionStore interface {
	CreateRedemption(ctx context.Context, rd models.Redemption) (*models.Redemption, error)
	GetRedemption(ctx context.Context, id int64) (*models.Redemption, error)
	ListRedemptions(ctx context.Context, kidID int64, status models.ClaimStatus) ([]models.Redemption, error)
	UpdateRedemptionStatus(ctx context.Context, id int64, from, to models.ClaimStatus, at time.Time) (bool, error)
}

// PurchaseStore persists shop purchases
type PurchaseStore interface {
	CreatePurchase(ctx context.Context, p models.Purchase) (*models.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*models.Purchase, error)
	ListPurchases(ctx context.Context, kidID int64, status models.ClaimStatus) ([]models.Purchase, error)
	HasPurchased(ctx context.Context, kidID int64, itemID string) (bool, error)
	UpdatePurchaseStatus(ctx context.Context, id int64, from, to models.ClaimStatus, at time.Time) (bool, error)
}

func spendKey(key string) string  { return "spend:" + key }
func refundKey(key string) string { return "refund:" + key }

// spend debits cost for a claim and translates the ledger's refusal into
// an InsufficientFundsError.
func spend(ctx context.Context, moons BalanceLedger, source models.ClaimSource, kidID int64, cost int, key, reference, note string) (int, error) {
	balance, err := moons.Debit(ctx, repository.Entry{
		KidID:     kidID,
		Amount:    cost,
		Kind:      models.TransactionSpend,
		Reference: reference,
		Key:       spendKey(key),
		Note:      note,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return balance, &InsufficientFundsError{CurrentMoons: balance, Cost: cost}
		}
		return 0, persistence("deduct moons", err)
	}
	metrics.MoonsSpent.WithLabelValues(string(source)).Add(float64(cost))
	return balance, nil
}

// refund credits back a spend whose claim record could not be written. It
// is keyed by the claim's idempotency key, so repeated calls credit once.
// The refund runs even if the request context was cancelled.
func refund(ctx context.Context, moons BalanceLedger, source models.ClaimSource, kidID int64, amount int, key string) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	_, applied, err := moons.Credit(ctx, repository.Entry{
		KidID:     kidID,
		Amount:    amount,
		Kind:      models.TransactionRefund,
		Reference: string(source),
		Key:       refundKey(key),
		Note:      "claim record failed",
	})
	switch {
	case err != nil:
		metrics.Refunds.WithLabelValues(string(source), "error").Inc()
		slog.Error("compensating refund failed",
			"source", source, "kid_id", kidID, "amount", amount, "key", key, "error", err)
		return false, fmt.Errorf("failed to refund moons: %w", err)
	case applied:
		metrics.Refunds.WithLabelValues(string(source), "applied").Inc()
	default:
		metrics.Refunds.WithLabelValues(string(source), "duplicate").Inc()
	}
	return applied, nil
}
