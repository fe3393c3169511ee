package handlers

import (
	"net/http"

	"lunara/internal/service"
)

// ParentHandler handles family and kid-profile management for parents
type ParentHandler struct {
	familyService *service.FamilyService
}

// NewParentHandler creates a new parent handler
func NewParentHandler(familyService *service.FamilyService) *ParentHandler {
	return &ParentHandler{familyService: familyService}
}

type familyRequest struct {
	Name       string `json:"name"`
	FamilyCode string `json:"familyCode"`
}

type inviteRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type kidRequest struct {
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
}

// ListFamilies returns the caller's families
func (h *ParentHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	caller := GetCallerFromContext(r.Context())
	families, err := h.familyService.GetUserFamilies(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": families})
}

// CreateFamily creates a family with the caller as admin
func (h *ParentHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	family, err := h.familyService.CreateFamily(r.Context(), caller.UserID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"family": family})
}

// JoinFamily joins a family by its code
func (h *ParentHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	family, err := h.familyService.JoinFamily(r.Context(), caller.UserID, req.FamilyCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"family": family})
}

// LeaveFamily removes the caller from a family
func (h *ParentHandler) LeaveFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	if err := h.familyService.LeaveFamily(r.Context(), caller.UserID, familyID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListMembers returns the parents of a family
func (h *ParentHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	members, err := h.familyService.GetFamilyMembers(r.Context(), caller.UserID, familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// InviteParent emails a family invitation
func (h *ParentHandler) InviteParent(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	inv, err := h.familyService.InviteParent(r.Context(), caller.UserID, familyID, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"invitation": inv})
}

// AcceptInvitation joins the family named by an invitation code
func (h *ParentHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Code == "" {
		respondWithError(w, http.StatusBadRequest, ErrInvitationCodeMissing, "", nil)
		return
	}

	caller := GetCallerFromContext(r.Context())
	family, err := h.familyService.AcceptInvitation(r.Context(), caller.UserID, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"family": family})
}

// ListKids returns the kids of a family
func (h *ParentHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	kids, err := h.familyService.GetFamilyKids(r.Context(), caller.UserID, familyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kids": kids})
}

// CreateKid adds a kid and returns their one-time login credentials
func (h *ParentHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req kidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	caller := GetCallerFromContext(r.Context())
	creds, err := h.familyService.CreateKid(r.Context(), caller.UserID, familyID, req.Name, req.AvatarColor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, creds)
}

// UpdateKid changes a kid's name and avatar color
func (h *ParentHandler) UpdateKid(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req kidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	kid, err := h.familyService.UpdateKid(r.Context(), GetCallerFromContext(r.Context()), kidID, req.Name, req.AvatarColor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kid": kid})
}

// ResetKidPIN issues a new PIN for a kid
func (h *ParentHandler) ResetKidPIN(w http.ResponseWriter, r *http.Request) {
	kidID, err := pathID(r, "kidID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	creds, err := h.familyService.ResetKidPIN(r.Context(), GetCallerFromContext(r.Context()), kidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}
