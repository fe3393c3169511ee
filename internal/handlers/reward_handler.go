package handlers

import (
	"net/http"
	"strconv"

	"lunara/internal/service"
)

// RewardHandler serves the rewards catalog and the redemption workflow
type RewardHandler struct {
	rewardService     *service.RewardService
	redemptionService *service.RedemptionService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *service.RewardService, redemptionService *service.RedemptionService) *RewardHandler {
	return &RewardHandler{
		rewardService:     rewardService,
		redemptionService: redemptionService,
	}
}

// ListRewards returns a kid's active rewards
func (h *RewardHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	kidID, err := queryKidID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rewards, err := h.rewardService.List(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

// Templates returns the suggested rewards
func (h *RewardHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": h.rewardService.Templates()})
}

// CreateReward adds a reward for a kid
func (h *RewardHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var in service.RewardInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	reward, err := h.rewardService.Create(r.Context(), GetCallerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "reward": reward})
}

// UpdateReward edits a reward
func (h *RewardHandler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	var in service.RewardInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	reward, err := h.rewardService.Update(r.Context(), GetCallerFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reward": reward})
}

// DeleteReward deactivates the reward named by the id query parameter
func (h *RewardHandler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, ErrRewardIDRequired, "", nil)
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.rewardService.Delete(r.Context(), GetCallerFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Redeem spends moons on a reward
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req service.RedeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.redemptionService.Redeem(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"redemption":     result.Redemption,
		"newMoonBalance": result.NewBalance,
		"message":        result.Message,
	})
}

// ListRedemptions returns a kid's open claims from both sources
func (h *RewardHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	kidID, err := queryKidID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims, err := h.redemptionService.List(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"redemptions": claims})
}

// ResolveRedemption approves, denies or fulfills a claim
func (h *RewardHandler) ResolveRedemption(w http.ResponseWriter, r *http.Request) {
	var req service.ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.redemptionService.Resolve(r.Context(), GetCallerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"redemption": result.Claim,
		"message":    result.Message,
	})
}
