package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"tpf-ecosystem/internal/service"
)

type PromotionHandler struct {
	promotionSvc *service.PromotionService
	paymentSvc   *service.PaymentService
}

func NewPromotionHandler(promotionSvc *service.PromotionService, paymentSvc *service.PaymentService) *PromotionHandler {
	return &PromotionHandler{promotionSvc: promotionSvc, paymentSvc: paymentSvc}
}

func (h *PromotionHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.promotionSvc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"links":   links,
		"total":   len(links),
	})
}

func (h *PromotionHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePromotionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	link, err := h.promotionSvc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"link":    link,
	})
}

func (h *PromotionHandler) Click(w http.ResponseWriter, r *http.Request) {
	link, err := h.promotionSvc.Click(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"link":    link,
	})
}

func (h *PromotionHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.paymentSvc.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"payments": payments,
	})
}

func (h *PromotionHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req service.RecordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	payment, err := h.paymentSvc.Record(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"payment": payment,
	})
}
