package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"tpf-ecosystem/internal/service"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError 按错误码输出 {success:false, error, details}
// 冷却期错误额外带上 timeRemaining
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	body := map[string]interface{}{
		"success": false,
		"error":   errors.Message(err),
	}
	if details := errors.Details(err); details != "" {
		body["details"] = details
	}
	var cooldown *service.CooldownError
	if stderrors.As(err, &cooldown) {
		body["timeRemaining"] = cooldown.Remaining
	}

	if status >= http.StatusInternalServerError {
		logger.WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": status,
		}).WithError(err).Error("Request failed")
	}
	writeJSON(w, status, body)
}

// decodeJSON 解析请求体，格式错误按参数错误处理
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return errors.New(errors.ErrValidation, "invalid JSON body", err)
	}
	return nil
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, errors.NotFound("route not found"))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "method not allowed",
	})
}
