package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"tpf-ecosystem/internal/service"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// WorldIDHandler Developer Portal 代理与会话读取
type WorldIDHandler struct {
	portal     *service.DevPortalClient
	sessions   *service.SessionService
	cookieName string
}

func NewWorldIDHandler(portal *service.DevPortalClient, sessions *service.SessionService, cookieName string) *WorldIDHandler {
	return &WorldIDHandler{portal: portal, sessions: sessions, cookieName: cookieName}
}

func (h *WorldIDHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := h.portal.TransactionStatus(r.Context(), req.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.TransactionStatus
	}{true, tx})
}

// VerifyProof 上游响应原样放在 verifyRes 中；校验失败返回 400
func (h *WorldIDHandler) VerifyProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload service.VerifyProofRequest `json:"payload"`
		Action  string                     `json:"action"`
		Signal  string                     `json:"signal"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	proof := req.Payload
	if req.Action != "" {
		proof.Action = req.Action
	}
	if req.Signal != "" {
		proof.Signal = req.Signal
	}

	res, err := h.portal.VerifyProof(r.Context(), proof)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	resp := map[string]interface{}{
		"success":   res.Success,
		"verifyRes": json.RawMessage(res.Body),
		"status":    status,
	}
	// signal 为钱包地址时证明与该钱包绑定，签发会话
	if res.Success && common.IsHexAddress(strings.TrimSpace(proof.Signal)) {
		resp["authenticated"] = h.startSession(w, strings.TrimSpace(proof.Signal))
	}
	writeJSON(w, status, resp)
}

func (h *WorldIDHandler) startSession(w http.ResponseWriter, wallet string) bool {
	token, expires, err := h.sessions.Issue(service.SessionUser{WalletAddress: strings.ToLower(wallet)})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"wallet_address": wallet,
		}).WithError(err).Warn("Proof verified but session not issued")
		return false
	}
	h.setCookie(w, token, expires)
	return true
}

func (h *WorldIDHandler) setCookie(w http.ResponseWriter, value string, expires time.Time) {
	c := &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if expires.IsZero() {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

func (h *WorldIDHandler) Session(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(h.cookieName); err == nil {
		token = c.Value
	}

	user, err := h.sessions.Parse(token)
	if err != nil {
		if errors.HasCode(err, errors.ErrUnauthenticated) {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success":       false,
				"authenticated": false,
				"error":         errors.Message(err),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"authenticated": true,
		"user":          user,
	})
}

func (h *WorldIDHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, "", time.Time{})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"authenticated": false,
	})
}
