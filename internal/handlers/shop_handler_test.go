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

func TestShopCatalog(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")

	rec := s.do(http.MethodGet, "/api/shop/catalog", nil, f.kid)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []struct {
			ID   string `json:"id"`
			Cost int    `json:"cost"`
		} `json:"items"`
	}
	decodeBody(t, rec, &body)
	require.NotEmpty(t, body.Items)

	found := false
	for _, item := range body.Items {
		if item.ID == "moon-hat" {
			found = true
			assert.Equal(t, 12, item.Cost)
		}
	}
	assert.True(t, found)

	rec = s.do(http.MethodGet, "/api/shop/catalog", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShopPurchaseFlow(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")
	s.fund(f, 30)

	buy := map[string]any{"kidId": f.kidID, "itemId": "moon-hat"}
	rec := s.do(http.MethodPost, "/api/shop/purchase", buy, f.kid)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var bought struct {
		Success        bool            `json:"success"`
		Purchase       models.Purchase `json:"purchase"`
		NewMoonBalance int             `json:"newMoonBalance"`
		Message        string          `json:"message"`
	}
	decodeBody(t, rec, &bought)
	assert.True(t, bought.Success)
	assert.Equal(t, 18, bought.NewMoonBalance)
	assert.Equal(t, models.StatusUnfulfilled, bought.Purchase.Status)
	assert.Contains(t, bought.Message, "Moon Hat")

	rec = s.do(http.MethodPost, "/api/shop/purchase", buy, f.kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You already own this item", errorMessage(t, rec))
	assert.Equal(t, 18, s.balance(f))

	rec = s.do(http.MethodPost, "/api/shop/purchase", map[string]any{"kidId": f.kidID, "itemId": "flying-carpet"}, f.kid)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found", errorMessage(t, rec))

	rec = s.do(http.MethodPost, "/api/shop/purchase", map[string]any{"kidId": f.kidID}, f.kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "kidId and itemId are required", errorMessage(t, rec))

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/shop/purchases?kidId=%d", f.kidID), nil, f.parent)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Purchases []models.Purchase `json:"purchases"`
	}
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Purchases, 1)
	assert.Equal(t, "moon-hat", listed.Purchases[0].ItemID)

	// Shop purchases show up in the parent's claim list and resolving one fulfils it.
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/rewards/redeem?kidId=%d", f.kidID), nil, f.parent)
	var claims struct {
		Redemptions []models.Claim `json:"redemptions"`
	}
	decodeBody(t, rec, &claims)
	require.Len(t, claims.Redemptions, 1)
	claim := claims.Redemptions[0]
	assert.Equal(t, models.SourceShop, claim.Source)
	assert.Equal(t, "Moon Hat", claim.Reward.Name)

	rec = s.do(http.MethodPut, "/api/rewards/redeem",
		map[string]any{"redemptionId": claim.ID, "status": "approved", "source": "shop"}, f.parent)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resolved struct {
		Redemption models.Claim `json:"redemption"`
		Message    string       `json:"message"`
	}
	decodeBody(t, rec, &resolved)
	assert.Equal(t, models.StatusFulfilled, resolved.Redemption.Status)
	assert.Equal(t, service.MsgFulfilled, resolved.Message)
	assert.Equal(t, 18, s.balance(f))

	rec = s.do(http.MethodPut, "/api/rewards/redeem",
		map[string]any{"redemptionId": claim.ID, "status": "fulfilled"}, f.parent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShopPurchaseInsufficientFunds(t *testing.T) {
	s := newTestServer(t)
	f := s.registerFamily("pat@example.com", "Pat")
	s.fund(f, 3)

	rec := s.do(http.MethodPost, "/api/shop/purchase", map[string]any{"kidId": f.kidID, "itemId": "moon-hat"}, f.kid)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	decodeBody(t, rec, &body)
	require.NotNil(t, body.CurrentMoons)
	assert.Equal(t, 3, *body.CurrentMoons)
	assert.Equal(t, 12, *body.Cost)
	assert.Equal(t, 3, s.balance(f))
}
