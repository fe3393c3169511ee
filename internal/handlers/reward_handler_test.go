package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunara/internal/models"
	"lunara/internal/service"
)

type rewardBody struct {
	Success bool          `json:"success"`
	Reward  models.Reward `json:"reward"`
}

func (s *testServer) createReward(f family, name string, cost int) models.Reward {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/rewards", map[string]any{"kidId": f.kidID, "name": name, "moonCost": cost}, f.parent)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var body rewardBody
	decodeBody(s.t, rec, &body)
	return body.Reward
}

func TestRedeemFlow(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")
	reward := s.createReward(f, "Movie night", 5)
	s.fund(f, 7)

	rec := s.do(http.MethodPost, "/api/rewards/redeem", map[string]int64{"kidId": f.kidID, "rewardId": reward.ID}, f.kid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var redeemed struct {
		Success        bool              `json:"success"`
		Redemption     models.Redemption `json:"redemption"`
		NewMoonBalance int               `json:"newMoonBalance"`
		Message        string            `json:"message"`
	}
	decodeBody(t, rec, &redeemed)
	assert.True(t, redeemed.Success)
	assert.Equal(t, 2, redeemed.NewMoonBalance)
	assert.Equal(t, service.MsgRedemptionRequested, redeemed.Message)
	assert.Equal(t, models.StatusPending, redeemed.Redemption.Status)
	assert.Equal(t, "Movie night", redeemed.Redemption.RewardName)

	rec = s.do(http.MethodPost, "/api/rewards/redeem", map[string]int64{"kidId": f.kidID, "rewardId": reward.ID}, f.kid)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var funds errorResponse
	decodeBody(t, rec, &funds)
	require.NotNil(t, funds.CurrentMoons)
	require.NotNil(t, funds.Cost)
	assert.Equal(t, 2, *funds.CurrentMoons)
	assert.Equal(t, 5, *funds.Cost)
	assert.Equal(t, 2, s.balance(f))

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/rewards/redeem?kidId=%d", f.kidID), nil, f.parent)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Redemptions []models.Claim `json:"redemptions"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Redemptions, 1)
	claim := listed.Redemptions[0]
	assert.Equal(t, models.SourceReward, claim.Source)
	assert.Equal(t, "Movie night", claim.Reward.Name)
	assert.Equal(t, 5, claim.Reward.Cost)

	resolve := map[string]any{"redemptionId": claim.ID, "status": "approved"}
	rec = s.do(http.MethodPut, "/api/rewards/redeem", resolve, f.kid)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/api/rewards/redeem", resolve, f.parent)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resolved struct {
		Success    bool         `json:"success"`
		Redemption models.Claim `json:"redemption"`
		Message    string       `json:"message"`
	}
	decodeBody(t, rec, &resolved)
	assert.Equal(t, models.StatusApproved, resolved.Redemption.Status)
	assert.Equal(t, service.MsgApproved, resolved.Message)

	rec = s.do(http.MethodPut, "/api/rewards/redeem", map[string]any{"redemptionId": claim.ID, "status": "denied"}, f.parent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/rewards/redeem?kidId=%d", f.kidID), nil, f.kid)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &listed)
	assert.Empty(t, listed.Redemptions)
	assert.Equal(t, 2, s.balance(f))
}

func TestRedeemErrors(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")

	rec := s.do(http.MethodPost, "/api/rewards/redeem", map[string]int64{"kidId": f.kidID}, f.kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "kidId and rewardId are required", errorMessage(t, rec))

	rec = s.do(http.MethodPost, "/api/rewards/redeem", map[string]int64{"kidId": f.kidID, "rewardId": 999}, f.kid)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Reward not found", errorMessage(t, rec))

	rec = s.do(http.MethodGet, "/api/rewards/redeem", nil, f.kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrMissingKidID, errorMessage(t, rec))

	rec = s.do(http.MethodPut, "/api/rewards/redeem", map[string]any{"redemptionId": 999, "status": "approved"}, f.parent)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httpRequestWithBody(t, s, http.MethodPost, "/api/rewards/redeem", "{not json", f.kid)
	assert.Equal(t, http.StatusBadRequest, req.Code)
	assert.Equal(t, ErrInvalidJSON, errorMessage(t, req))
}

func TestRewardCRUD(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")
	reward := s.createReward(f, "Movie night", 5)
	assert.Equal(t, "🎁", reward.Emoji)
	assert.Equal(t, "custom", reward.Category)

	rec := s.do(http.MethodPost, "/api/rewards", map[string]any{"kidId": f.kidID, "name": "Too much", "moonCost": 5000}, f.parent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Moon cost must be between 1 and 1000", errorMessage(t, rec))

	rec = s.do(http.MethodPost, "/api/rewards", map[string]any{"kidId": f.kidID, "name": "Sneaky", "moonCost": 1}, f.kid)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPut, "/api/rewards", map[string]any{"id": reward.ID, "name": "Pizza night", "moonCost": 8, "category": "treats"}, f.parent)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated rewardBody
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Pizza night", updated.Reward.Name)
	assert.Equal(t, 8, updated.Reward.MoonCost)
	assert.Equal(t, f.kidID, updated.Reward.KidID)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/rewards?kidId=%d", f.kidID), nil, f.kid)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Rewards []models.Reward `json:"rewards"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Rewards, 1)

	rec = s.do(http.MethodDelete, "/api/rewards", nil, f.parent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrRewardIDRequired, errorMessage(t, rec))

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/rewards?id=%d", reward.ID), nil, f.parent)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/rewards?kidId=%d", f.kidID), nil, f.parent)
	decodeBody(t, rec, &listed)
	assert.Empty(t, listed.Rewards)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/rewards?id=%d", reward.ID), nil, f.parent)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRewardTemplates(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")

	rec := s.do(http.MethodGet, "/api/rewards/templates", nil, f.kid)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []struct {
			ID      string `json:"id"`
			Rewards []any  `json:"rewards"`
		} `json:"categories"`
	}
	decodeBody(t, rec, &body)
	require.NotEmpty(t, body.Categories)
	assert.NotEmpty(t, body.Categories[0].Rewards)
}
