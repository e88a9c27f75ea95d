package handler

import (
	"net/http"

	"tpf-ecosystem/internal/swap"
)

type SwapHandler struct {
	rates swap.RateTable
}

func NewSwapHandler(rates swap.RateTable) *SwapHandler {
	return &SwapHandler{rates: rates}
}

func (h *SwapHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := h.rates.Quote(q.Get("tokenIn"), q.Get("tokenOut"), q.Get("amountIn"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"quote":   quote,
	})
}

func (h *SwapHandler) Tokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tokens":  h.rates.Tokens(),
	})
}
