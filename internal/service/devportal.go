package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// maxUpstreamBody 上游响应体读取上限
const maxUpstreamBody = 1 << 20

// DevPortalClient Worldcoin Developer Portal 接口代理
type DevPortalClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	apiKey     string
	action     string
	limiter    *rate.Limiter
}

func NewDevPortalClient(cfg config.WorldIDConfig, httpClient *http.Client) *DevPortalClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	return &DevPortalClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appID:      cfg.AppID,
		apiKey:     cfg.APIKey,
		action:     cfg.Action,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

type VerifyProofRequest struct {
	Proof             string `json:"proof"`
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	VerificationLevel string `json:"verification_level"`
	Action            string `json:"action,omitempty"`
	Signal            string `json:"signal,omitempty"`
}

// VerifyResult Body 为上游原始响应
type VerifyResult struct {
	Success    bool
	StatusCode int
	Body       json.RawMessage
}

type TransactionStatus struct {
	ID        string `json:"id"`
	Hash      string `json:"hash"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
	Network   string `json:"network"`
	UpdatedAt string `json:"updatedAt"`
}

type portalTransaction struct {
	TransactionID     string `json:"transactionId"`
	TransactionHash   string `json:"transactionHash"`
	TransactionStatus string `json:"transactionStatus"`
	FromWalletAddress string `json:"fromWalletAddress"`
	RecipientAddress  string `json:"recipientAddress"`
	Network           string `json:"network"`
	UpdatedAt         string `json:"updatedAt"`
}

func (c *DevPortalClient) requireConfig(key, value string) error {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	logger.WithFields(map[string]interface{}{
		"config_key": key,
	}).Error("Developer Portal is not configured")
	return errors.Configuration(key + " is not configured")
}

// VerifyProof 校验 World ID 证明；上游拒绝时 Success=false，不视为错误
func (c *DevPortalClient) VerifyProof(ctx context.Context, req VerifyProofRequest) (*VerifyResult, error) {
	if err := c.requireConfig("APP_ID", c.appID); err != nil {
		return nil, err
	}
	if req.Proof == "" || req.MerkleRoot == "" || req.NullifierHash == "" {
		return nil, errors.Validation("proof, merkle_root and nullifier_hash are required")
	}
	if req.Action == "" {
		req.Action = c.action
	}
	if req.VerificationLevel == "" {
		req.VerificationLevel = "orb"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Upstream("failed to encode verify request", err)
	}

	endpoint := fmt.Sprintf("%s/api/v2/verify/%s", c.baseURL, url.PathEscape(c.appID))
	status, body, err := c.do(ctx, "verify", http.MethodPost, endpoint, bytes.NewReader(payload), false)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Success:    status >= 200 && status < 300,
		StatusCode: status,
		Body:       body,
	}
	var envelope struct {
		Success *bool `json:"success"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Success != nil {
		result.Success = result.Success && *envelope.Success
	}
	if !json.Valid(body) {
		result.Body, _ = json.Marshal(string(body))
	}

	logger.WithFields(map[string]interface{}{
		"nullifier_hash": req.NullifierHash,
		"action":         req.Action,
		"success":        result.Success,
		"status":         status,
	}).Info("World ID proof verified")
	return result, nil
}

// TransactionStatus 查询 MiniKit 交易状态
func (c *DevPortalClient) TransactionStatus(ctx context.Context, transactionID string) (*TransactionStatus, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, errors.Validation("transaction_id is required")
	}
	if err := c.requireConfig("APP_ID", c.appID); err != nil {
		return nil, err
	}
	if err := c.requireConfig("DEV_PORTAL_API_KEY", c.apiKey); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("type", "transaction")
	endpoint := fmt.Sprintf("%s/api/v2/minikit/transaction/%s?%s", c.baseURL, url.PathEscape(transactionID), q.Encode())

	status, body, err := c.do(ctx, "transaction", http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errors.Upstream("failed to fetch transaction status",
			fmt.Errorf("developer portal returned %d: %s", status, strings.TrimSpace(string(body))))
	}

	var tx portalTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, errors.Upstream("invalid transaction status response", err)
	}
	return &TransactionStatus{
		ID:        tx.TransactionID,
		Hash:      tx.TransactionHash,
		Status:    tx.TransactionStatus,
		From:      tx.FromWalletAddress,
		To:        tx.RecipientAddress,
		Network:   tx.Network,
		UpdatedAt: tx.UpdatedAt,
	}, nil
}

func (c *DevPortalClient) do(ctx context.Context, operation, method, endpoint string, body io.Reader, auth bool) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "throttled").Inc()
		return 0, nil, errors.Upstream("developer portal request throttled", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, errors.Upstream("failed to build developer portal request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "error").Inc()
		logger.WithFields(map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		}).Warn("Developer Portal request failed")
		return 0, nil, errors.Upstream("developer portal request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(operation, "error").Inc()
		return 0, nil, errors.Upstream("failed to read developer portal response", err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(operation, fmt.Sprintf("%dxx", resp.StatusCode/100)).Inc()
	return resp.StatusCode, data, nil
}
