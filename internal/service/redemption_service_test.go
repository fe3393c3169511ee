package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunara/internal/models"
	"lunara/internal/validation"
)

var errBoom = errors.New("disk on fire")

type failingRedemptions struct {
	RedemptionStore
}

func (failingRedemptions) CreateRedemption(context.Context, models.Redemption) (*models.Redemption, error) {
	return nil, errBoom
}

func TestRedeemSpendsExactBalance(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 10)
	rw := e.reward(t, "Game time", 10)

	res, err := e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewBalance)
	assert.Equal(t, AccessElevated, res.Access)
	assert.Equal(t, MsgRedemptionRequested, res.Message)
	assert.Equal(t, models.StatusPending, res.Redemption.Status)
	assert.Equal(t, "Game time", res.Redemption.RewardName)
	assert.Equal(t, 0, e.balance(t))

	_, err = e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	var funds *InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, 0, funds.CurrentMoons)
	assert.Equal(t, 10, funds.Cost)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	e.requireLedgerMatches(t)
}

func TestRedeemByParentIsRestricted(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 15)
	rw := e.reward(t, "Park trip", 5)

	res, err := e.claims.Redeem(e.ctx, e.parent, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)
	assert.Equal(t, AccessRestricted, res.Access)
	assert.Equal(t, 10, res.NewBalance)
}

func TestRedeemAccessAndLookups(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 50)
	rw := e.reward(t, "Game time", 10)

	_, err := e.claims.Redeem(e.ctx, e.stranger, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	_, err = e.claims.Redeem(e.ctx, Caller{}, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.claims.Redeem(e.ctx, e.parent, RedeemRequest{KidID: e.kid.ID})
	var ve validation.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "kidId and rewardId are required", ve.Message)

	_, err = e.claims.Redeem(e.ctx, e.parent, RedeemRequest{KidID: e.kid.ID, RewardID: 9999})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Reward", nf.Resource)

	_, err = e.claims.Redeem(e.ctx, e.parent, RedeemRequest{KidID: 9999, RewardID: rw.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.rewardRepo.DeactivateReward(e.ctx, rw.ID))
	_, err = e.claims.Redeem(e.ctx, e.parent, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing was spent by any failed attempt.
	assert.Equal(t, 50, e.balance(t))
}

func TestRedeemRefundsWhenRecordFails(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 20)
	rw := e.reward(t, "Movie night", 15)

	svc := NewRedemptionService(e.family, e.moonRepo, e.rewardRepo, failingRedemptions{e.redemptions}, e.purchases, e.shopCatalog, nil)
	_, err := svc.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errBoom)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create redemption", pe.Op)

	assert.Equal(t, 20, e.balance(t))
	e.requireLedgerMatches(t)

	txs, err := e.moonRepo.Transactions(e.ctx, e.kid.ID, 10)
	require.NoError(t, err)
	kinds := make([]models.TransactionKind, 0, len(txs))
	for _, tx := range txs {
		kinds = append(kinds, tx.Kind)
	}
	assert.Contains(t, kinds, models.TransactionSpend)
	assert.Contains(t, kinds, models.TransactionRefund)
}

func TestRefundIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 5)

	applied, err := e.claims.Refund(e.ctx, models.SourceReward, e.kid.ID, 3, "claim-key")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = e.claims.Refund(e.ctx, models.SourceReward, e.kid.ID, 3, "claim-key")
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, 8, e.balance(t))
	e.requireLedgerMatches(t)
}

func TestRefundSurvivesCancelledContext(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(e.ctx)
	cancel()

	applied, err := e.claims.Refund(ctx, models.SourceShop, e.kid.ID, 4, "late")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 4, e.balance(t))
}

func TestResolveRedemption(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 30)
	rw := e.reward(t, "Ice cream", 10)

	res, err := e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)
	id := res.Redemption.ID

	_, err = e.claims.Resolve(e.ctx, e.kidCaller, ResolveRequest{RedemptionID: id, Status: models.StatusApproved})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.claims.Resolve(e.ctx, e.stranger, ResolveRequest{RedemptionID: id, Status: models.StatusApproved})
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	out, err := e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: id, Status: models.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, out.Claim.Status)
	assert.Equal(t, models.SourceReward, out.Claim.Source)
	assert.NotNil(t, out.Claim.ResolvedAt)
	assert.Equal(t, MsgApproved, out.Message)

	// Resolving never touches the balance.
	assert.Equal(t, 20, e.balance(t))

	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: id, Status: models.StatusDenied})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: 9999, Status: models.StatusDenied})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: id, Status: "lost"})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestResolveDenied(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 10)
	rw := e.reward(t, "Ice cream", 10)

	res, err := e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)

	out, err := e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: res.Redemption.ID, Status: models.StatusDenied})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, out.Claim.Status)
	assert.Equal(t, MsgDenied, out.Message)
	assert.Equal(t, 0, e.balance(t))
}

func TestListMergesBothSources(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 100)
	rw := e.reward(t, "Game time", 10)

	redeemed, err := e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)
	bought, err := e.shop.Purchase(e.ctx, e.kidCaller, PurchaseRequest{KidID: e.kid.ID, ItemID: "night-owl"})
	require.NoError(t, err)

	claims, err := e.claims.List(e.ctx, e.parent, e.kid.ID)
	require.NoError(t, err)
	require.Len(t, claims, 2)

	bySource := map[models.ClaimSource]models.Claim{}
	for _, c := range claims {
		bySource[c.Source] = c
	}
	assert.Equal(t, redeemed.Redemption.ID, bySource[models.SourceReward].ID)
	assert.Equal(t, "Game time", bySource[models.SourceReward].Reward.Name)
	assert.Equal(t, bought.Purchase.ID, bySource[models.SourceShop].ID)
	assert.Equal(t, "Night Owl", bySource[models.SourceShop].Reward.Name)
	assert.Equal(t, "🦉", bySource[models.SourceShop].Reward.Emoji)
	assert.Equal(t, models.StatusUnfulfilled, bySource[models.SourceShop].Status)

	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: redeemed.Redemption.ID, Status: models.StatusApproved})
	require.NoError(t, err)
	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: bought.Purchase.ID, Status: models.StatusFulfilled})
	require.NoError(t, err)

	claims, err = e.claims.List(e.ctx, e.kidCaller, e.kid.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, err = e.claims.List(e.ctx, e.parent, 0)
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestResolveShopPurchase(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 20)
	bought, err := e.shop.Purchase(e.ctx, e.kidCaller, PurchaseRequest{KidID: e.kid.ID, ItemID: "moon-hat"})
	require.NoError(t, err)
	id := bought.Purchase.ID

	out, err := e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: id, Status: models.StatusFulfilled})
	require.NoError(t, err)
	assert.Equal(t, models.SourceShop, out.Claim.Source)
	assert.Equal(t, models.StatusFulfilled, out.Claim.Status)
	assert.Equal(t, MsgFulfilled, out.Message)

	_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: id, Status: models.StatusFulfilled})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, 8, e.balance(t))
}

func TestResolveShopIgnoresRequestedStatus(t *testing.T) {
	for _, status := range []models.ClaimStatus{models.StatusApproved, models.StatusDenied} {
		t.Run(string(status), func(t *testing.T) {
			e := newTestEnv(t)
			e.fund(t, 20)
			bought, err := e.shop.Purchase(e.ctx, e.kidCaller, PurchaseRequest{KidID: e.kid.ID, ItemID: "moon-hat"})
			require.NoError(t, err)

			out, err := e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: bought.Purchase.ID, Status: status, Source: models.SourceShop})
			require.NoError(t, err)
			assert.Equal(t, models.StatusFulfilled, out.Claim.Status)
			assert.Equal(t, MsgFulfilled, out.Message)
			assert.NotNil(t, out.Claim.ResolvedAt)

			stored, err := e.purchases.GetPurchase(e.ctx, bought.Purchase.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusFulfilled, stored.Status)

			_, err = e.claims.Resolve(e.ctx, e.parent, ResolveRequest{RedemptionID: bought.Purchase.ID, Status: status, Source: models.SourceShop})
			assert.ErrorIs(t, err, models.ErrInvalidTransition)
			assert.Equal(t, 8, e.balance(t))
		})
	}
}

func TestConcurrentRedemptionsSpendOnce(t *testing.T) {
	e := newTestEnv(t)
	e.fund(t, 10)
	rw := e.reward(t, "Game time", 10)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		refused   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.claims.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInsufficientFunds):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, refused)
	assert.Equal(t, 0, e.balance(t))
	e.requireLedgerMatches(t)

	pending, err := e.redemptions.ListRedemptions(e.ctx, e.kid.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
