package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"lunara/internal/catalog"
	"lunara/internal/metrics"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// PurchaseRequest is the body of a shop purchase
type PurchaseRequest struct {
	KidID  int64  `json:"kidId" validate:"required" msg:"kidId and itemId are required"`
	ItemID string `json:"itemId" validate:"required" msg:"kidId and itemId are required"`
}

// PurchaseResult is a successful shop purchase
type PurchaseResult struct {
	Purchase   *models.Purchase
	NewBalance int
	Message    string
}

// ShopService sells catalog items for moons
type ShopService struct {
	family          *FamilyService
	moons           BalanceLedger
	purchases       PurchaseStore
	shop            *catalog.Shop
	refundOnFailure bool
}

// NewShopService creates a new shop service. When refundOnFailure is false a
// spend whose purchase record fails is left in place and only reported.
func NewShopService(family *FamilyService, moons BalanceLedger, purchases PurchaseStore, shop *catalog.Shop, refundOnFailure bool) *ShopService {
	return &ShopService{
		family:          family,
		moons:           moons,
		purchases:       purchases,
		shop:            shop,
		refundOnFailure: refundOnFailure,
	}
}

// Catalog lists every item for sale
func (s *ShopService) Catalog() []catalog.Item {
	return s.shop.Items()
}

// Purchases lists everything the kid has bought
func (s *ShopService) Purchases(ctx context.Context, caller Caller, kidID int64) ([]models.Purchase, error) {
	if kidID == 0 {
		return nil, validation.New("kidId", "kidId is required")
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}
	purchases, err := s.purchases.ListPurchases(ctx, kidID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

// OwnedItems returns the ids of catalog items of the given kind the kid has bought
func (s *ShopService) OwnedItems(ctx context.Context, kidID int64, kind string) ([]string, error) {
	purchases, err := s.purchases.ListPurchases(ctx, kidID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	owned := []string{}
	seen := map[string]bool{}
	for _, p := range purchases {
		item, ok := s.shop.Item(p.ItemID)
		if !ok || item.Kind != kind || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		owned = append(owned, item.ID)
	}
	return owned, nil
}

// Purchase buys a catalog item
func (s *ShopService) Purchase(ctx context.Context, caller Caller, req PurchaseRequest) (*PurchaseResult, error) {
	if err := validation.Struct(req); err != nil {
		metrics.ShopPurchases.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	kid, _, err := s.family.AuthorizeKid(ctx, caller, req.KidID)
	if err != nil {
		return nil, err
	}

	item, ok := s.shop.Item(req.ItemID)
	if !ok {
		metrics.ShopPurchases.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, notFound("Item")
	}

	var ownershipKey string
	if !item.Repeatable {
		ownershipKey = repository.OwnershipKey(kid.ID, item.ID)
		owned, err := s.purchases.HasPurchased(ctx, kid.ID, item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check ownership: %w", err)
		}
		if owned {
			metrics.ShopPurchases.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, validation.New("itemId", "You already own this item")
		}
	}

	key := uuid.NewString()
	balance, err := spend(ctx, s.moons, models.SourceShop, kid.ID, item.Cost, key, "shop:"+item.ID, item.Name)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.ShopPurchases.WithLabelValues(metrics.OutcomeInsufficientFunds).Inc()
		} else {
			metrics.ShopPurchases.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		}
		return nil, err
	}

	p, err := s.purchases.CreatePurchase(ctx, models.Purchase{
		KidID:          kid.ID,
		ItemID:         item.ID,
		ItemName:       item.Name,
		Cost:           item.Cost,
		IdempotencyKey: key,
		OwnershipKey:   ownershipKey,
	})
	if errors.Is(err, repository.ErrAlreadyOwned) {
		// A concurrent purchase of the same item won the ownership row.
		_, _ = refund(ctx, s.moons, models.SourceShop, kid.ID, item.Cost, key)
		metrics.ShopPurchases.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, validation.New("itemId", "You already own this item")
	}
	if err != nil {
		metrics.ShopPurchases.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		if s.refundOnFailure {
			slog.Error("purchase insert failed after spend, refunding",
				"kid_id", kid.ID, "item_id", item.ID, "cost", item.Cost, "error", err)
			_, _ = refund(ctx, s.moons, models.SourceShop, kid.ID, item.Cost, key)
		} else {
			metrics.Unrefunded.WithLabelValues(string(models.SourceShop)).Inc()
			slog.Error("purchase insert failed after spend, moons not refunded",
				"kid_id", kid.ID, "item_id", item.ID, "cost", item.Cost, "key", key, "error", err)
		}
		return nil, persistence("record purchase", err)
	}

	metrics.ShopPurchases.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return &PurchaseResult{
		Purchase:   p,
		NewBalance: balance,
		Message:    fmt.Sprintf("You got %s! %s", item.Name, item.Emoji),
	}, nil
}
