package handler

import (
	"net/http"

	"tpf-ecosystem/internal/service"
)

type AirdropHandler struct {
	airdropSvc *service.AirdropService
}

func NewAirdropHandler(airdropSvc *service.AirdropService) *AirdropHandler {
	return &AirdropHandler{airdropSvc: airdropSvc}
}

func (h *AirdropHandler) Status(w http.ResponseWriter, r *http.Request) {
	elig, err := h.airdropSvc.Status(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		service.Eligibility
	}{true, elig})
}

func (h *AirdropHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req service.ClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.airdropSvc.Claim(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.ClaimResult
	}{true, result})
}

func (h *AirdropHandler) ClaimReal(w http.ResponseWriter, r *http.Request) {
	var req service.RealClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.airdropSvc.ClaimReal(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.RealClaimResult
	}{true, result})
}
