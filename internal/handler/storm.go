package handler

import (
	"net/http"

	"tpf-ecosystem/internal/service"
)

type StormHandler struct {
	stormSvc *service.StormService
}

func NewStormHandler(stormSvc *service.StormService) *StormHandler {
	return &StormHandler{stormSvc: stormSvc}
}

func (h *StormHandler) List(w http.ResponseWriter, r *http.Request) {
	words, err := h.stormSvc.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"words":   words,
	})
}

func (h *StormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Color string `json:"color"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	word, err := h.stormSvc.Submit(r.Context(), req.Text, req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"word":    word,
	})
}
