package handlers

import (
	"net/http"

	"lunara/internal/service"
)

// ShopHandler serves the moon shop
type ShopHandler struct {
	shopService *service.ShopService
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *service.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

// Catalog lists every item for sale
func (h *ShopHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.shopService.Catalog()})
}

// Purchases lists a kid's purchases
func (h *ShopHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	kidID, err := queryKidID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	purchases, err := h.shopService.Purchases(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

// Purchase buys a catalog item
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req service.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.shopService.Purchase(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"purchase":       result.Purchase,
		"newMoonBalance": result.NewBalance,
		"message":        result.Message,
	})
}
