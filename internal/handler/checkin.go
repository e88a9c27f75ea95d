package handler

import (
	"net/http"

	"tpf-ecosystem/internal/service"
)

type CheckInHandler struct {
	checkInSvc *service.CheckInService
}

func NewCheckInHandler(checkInSvc *service.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkInSvc: checkInSvc}
}

func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	status, created, err := h.checkInSvc.CheckIn(r.Context(), req.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"alreadyCheckedIn": !created,
		"status":           status,
	})
}

func (h *CheckInHandler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := h.checkInSvc.Status(r.Context(), q.Get("address"), q.Get("tpfBalance"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  status,
	})
}

func (h *CheckInHandler) Clear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.checkInSvc.Clear(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}
