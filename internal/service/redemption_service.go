package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lunara/internal/catalog"
	"lunara/internal/metrics"
	"lunara/internal/models"
	"lunara/internal/validation"
)

// Messages shown to the kid or parent after a claim operation
const (
	MsgRedemptionRequested = "Redemption request sent! Ask your parent to approve it."
	MsgFulfilled           = "Marked as fulfilled! 🎉"
	MsgApproved            = "Reward approved! 🎉"
	MsgDenied              = "Reward denied."
)

// RedeemRequest is the body of a redemption
type RedeemRequest struct {
	KidID    int64 `json:"kidId" validate:"required" msg:"kidId and rewardId are required"`
	RewardID int64 `json:"rewardId" validate:"required" msg:"kidId and rewardId are required"`
}

// RedeemResult is a successful redemption
type RedeemResult struct {
	Redemption *models.Redemption
	NewBalance int
	Message    string
	Access     Access
}

// ResolveRequest approves, denies or fulfills a claim
type ResolveRequest struct {
	RedemptionID int64              `json:"redemptionId" validate:"required" msg:"redemptionId and status are required"`
	Status       models.ClaimStatus `json:"status" validate:"required,oneof=approved denied fulfilled"`
	Source       models.ClaimSource `json:"source,omitempty" validate:"omitempty,oneof=reward shop" msg:"source must be reward or shop"`
}

// ResolveResult is a resolved claim
type ResolveResult struct {
	Claim   models.Claim
	Message string
}

// RedemptionNotifier is told about new redemption requests
type RedemptionNotifier interface {
	NotifyRedemption(ctx context.Context, kid *models.Kid, reward *models.Reward)
}

// RedemptionService runs the redeem, list and resolve operations over
// reward redemptions and shop purchases.
type RedemptionService struct {
	family      *FamilyService
	moons       BalanceLedger
	rewards     RewardStore
	redemptions RedemptionStore
	purchases   PurchaseStore
	shop        *catalog.Shop
	notifier    RedemptionNotifier
	now         func() time.Time
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(
	family *FamilyService,
	moons BalanceLedger,
	rewards RewardStore,
	redemptions RedemptionStore,
	purchases PurchaseStore,
	shop *catalog.Shop,
	notifier RedemptionNotifier,
) *RedemptionService {
	return &RedemptionService{
		family:      family,
		moons:       moons,
		rewards:     rewards,
		redemptions: redemptions,
		purchases:   purchases,
		shop:        shop,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Redeem spends the reward's cost and records a pending redemption. If the
// record cannot be written the spend is refunded before failing.
func (s *RedemptionService) Redeem(ctx context.Context, caller Caller, req RedeemRequest) (*RedeemResult, error) {
	if err := validation.Struct(req); err != nil {
		metrics.Redemptions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	kid, access, err := s.family.AuthorizeKid(ctx, caller, req.KidID)
	if err != nil {
		return nil, err
	}

	reward, err := s.rewards.GetActiveReward(ctx, req.RewardID, req.KidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil {
		metrics.Redemptions.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, notFound("Reward")
	}

	key := uuid.NewString()
	balance, err := spend(ctx, s.moons, models.SourceReward, kid.ID, reward.MoonCost, key,
		"reward:"+strconv.FormatInt(reward.ID, 10), reward.Name)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.Redemptions.WithLabelValues(metrics.OutcomeInsufficientFunds).Inc()
		} else {
			metrics.Redemptions.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		}
		return nil, err
	}

	rd, err := s.redemptions.CreateRedemption(ctx, models.Redemption{
		KidID:          kid.ID,
		RewardID:       reward.ID,
		Cost:           reward.MoonCost,
		IdempotencyKey: key,
	})
	if err != nil {
		metrics.Redemptions.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		slog.Error("redemption insert failed after spend, refunding",
			"kid_id", kid.ID, "reward_id", reward.ID, "cost", reward.MoonCost, "error", err)
		_, _ = refund(ctx, s.moons, models.SourceReward, kid.ID, reward.MoonCost, key)
		return nil, persistence("create redemption", err)
	}
	rd.RewardName = reward.Name
	rd.RewardEmoji = reward.Emoji

	metrics.Redemptions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	slog.Info("reward redeemed",
		"kid_id", kid.ID, "reward_id", reward.ID, "cost", reward.MoonCost, "balance", balance, "access", access.String())

	if s.notifier != nil {
		s.notifier.NotifyRedemption(ctx, kid, reward)
	}

	return &RedeemResult{
		Redemption: rd,
		NewBalance: balance,
		Message:    MsgRedemptionRequested,
		Access:     access,
	}, nil
}

// Refund re-credits a claim's spend by its idempotency key. Calling it more
// than once for the same key credits only once.
func (s *RedemptionService) Refund(ctx context.Context, source models.ClaimSource, kidID int64, amount int, key string) (bool, error) {
	return refund(ctx, s.moons, source, kidID, amount, key)
}

// List returns the kid's open claims: pending redemptions and unfulfilled
// shop purchases, newest first.
func (s *RedemptionService) List(ctx context.Context, caller Caller, kidID int64) ([]models.Claim, error) {
	if kidID == 0 {
		return nil, validation.New("kidId", "kidId is required")
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}

	var (
		redemptions []models.Redemption
		purchases   []models.Purchase
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		redemptions, err = s.redemptions.ListRedemptions(gctx, kidID, models.StatusPending)
		return err
	})
	g.Go(func() error {
		var err error
		purchases, err = s.purchases.ListPurchases(gctx, kidID, models.StatusUnfulfilled)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	claims := make([]models.Claim, 0, len(redemptions)+len(purchases))
	seen := make(map[string]bool, cap(claims))
	add := func(c models.Claim) {
		if seen[c.Key()] {
			return
		}
		seen[c.Key()] = true
		claims = append(claims, c)
	}
	for _, rd := range redemptions {
		add(rd.Claim())
	}
	for _, p := range purchases {
		add(s.shopClaim(p))
	}

	slices.SortStableFunc(claims, func(a, b models.Claim) int {
		if c := b.ClaimedAt.Compare(a.ClaimedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return claims, nil
}

func (s *RedemptionService) shopClaim(p models.Purchase) models.Claim {
	c := p.Claim()
	if s.shop != nil {
		if item, ok := s.shop.Item(p.ItemID); ok && item.Emoji != "" {
			c.Reward.Emoji = item.Emoji
		}
	}
	return c
}

// Resolve moves a claim through its state machine. A shop source or a
// fulfilled status marks the purchase fulfilled; otherwise the redemption is
// approved or denied. The balance is never touched: the moons were spent
// when the claim was made.
func (s *RedemptionService) Resolve(ctx context.Context, caller Caller, req ResolveRequest) (*ResolveResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if req.Source == models.SourceShop || req.Status == models.StatusFulfilled {
		return s.resolvePurchase(ctx, caller, req)
	}
	return s.resolveRedemption(ctx, caller, req)
}

func (s *RedemptionService) resolvePurchase(ctx context.Context, caller Caller, req ResolveRequest) (*ResolveResult, error) {
	p, err := s.purchases.GetPurchase(ctx, req.RedemptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if p == nil {
		return nil, notFound("Purchase")
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, p.KidID); err != nil {
		return nil, err
	}

	// Shop claims only ever move to fulfilled, whatever status was requested.
	claim := s.shopClaim(*p)
	next, err := claim.Transition(models.StatusFulfilled)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	ok, err := s.purchases.UpdatePurchaseStatus(ctx, p.ID, claim.Status, next.Status, at)
	if err != nil {
		return nil, persistence("update purchase", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: purchase %d was resolved concurrently", models.ErrInvalidTransition, p.ID)
	}
	next.ResolvedAt = &at

	metrics.ClaimResolutions.WithLabelValues(string(models.SourceShop), string(next.Status)).Inc()
	return &ResolveResult{Claim: next, Message: MsgFulfilled}, nil
}

func (s *RedemptionService) resolveRedemption(ctx context.Context, caller Caller, req ResolveRequest) (*ResolveResult, error) {
	rd, err := s.redemptions.GetRedemption(ctx, req.RedemptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	if rd == nil {
		return nil, notFound("Redemption")
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, rd.KidID); err != nil {
		return nil, err
	}

	claim := rd.Claim()
	next, err := claim.Transition(req.Status)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	ok, err := s.redemptions.UpdateRedemptionStatus(ctx, rd.ID, claim.Status, next.Status, at)
	if err != nil {
		return nil, persistence("update redemption", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: redemption %d was resolved concurrently", models.ErrInvalidTransition, rd.ID)
	}
	next.ResolvedAt = &at

	metrics.ClaimResolutions.WithLabelValues(string(models.SourceReward), string(next.Status)).Inc()
	msg := MsgApproved
	if next.Status == models.StatusDenied {
		msg = MsgDenied
	}
	return &ResolveResult{Claim: next, Message: msg}, nil
}
