package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"tpf-ecosystem/internal/blockchain"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

type AirdropService struct {
	resolver  *blockchain.Resolver
	claims    ClaimRepository
	cfg       config.AirdropConfig
	hasSigner bool
	now       Clock
}

func NewAirdropService(resolver *blockchain.Resolver, claims ClaimRepository, cfg config.AirdropConfig, hasSigner bool) *AirdropService {
	return &AirdropService{
		resolver:  resolver,
		claims:    claims,
		cfg:       cfg,
		hasSigner: hasSigner,
		now:       time.Now,
	}
}

func (s *AirdropService) SetClock(now Clock) {
	s.now = now
}

// ClaimRequest /airdrop/process 与 /claim 的请求体
type ClaimRequest struct {
	UserAddress     string `json:"userAddress"`
	Signature       string `json:"signature,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	WorldIDVerified bool   `json:"worldIdVerified,omitempty"`
}

// RealClaimRequest /claim-real 额外要求 World ID 证明字段
type RealClaimRequest struct {
	ClaimRequest
	Proof             string `json:"proof"`
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	VerificationLevel string `json:"verification_level,omitempty"`
}

type ClaimResult struct {
	TxID               string `json:"txId"`
	Message            string `json:"message"`
	Amount             string `json:"amount"`
	VerificationMethod string `json:"verificationMethod"`
	Simulated          bool   `json:"simulated"`
	RPCUsed            string `json:"rpcUsed"`
	NextClaimAt        int64  `json:"nextClaimAt"`
}

type RealClaimResult struct {
	Ready           bool     `json:"ready"`
	Simulated       bool     `json:"simulated"`
	TxID            string   `json:"txId,omitempty"`
	Message         string   `json:"message"`
	Amount          string   `json:"amount"`
	ContractBalance string   `json:"contractBalance,omitempty"`
	RPCUsed         string   `json:"rpcUsed"`
	Instructions    []string `json:"instructions,omitempty"`
}

// readiness 链上一次查询得到的领取条件
type readiness struct {
	eligibility Eligibility
	balance     *big.Int
	daily       *big.Int
}

func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", errors.Validation("userAddress is required")
	}
	if !common.IsHexAddress(address) {
		return "", errors.Validation("userAddress is not a valid address")
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// Status 查询领取资格；所有RPC节点失败时退化为本地推算
func (s *AirdropService) Status(ctx context.Context, address string) (Eligibility, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return Eligibility{}, err
	}

	r, endpoint, err := blockchain.Resolve(ctx, s.resolver, func(ctx context.Context, c blockchain.AirdropContract) (readiness, error) {
		return s.readOnChain(ctx, c, common.HexToAddress(user), false)
	})
	if err == nil {
		r.eligibility.SourceEndpoint = endpoint
		return r.eligibility, nil
	}

	return s.simulate(ctx, user, "status", err)
}

// readOnChain 依次检查封禁、紧急暂停、冷却期；封禁优先于暂停
func (s *AirdropService) readOnChain(ctx context.Context, c blockchain.AirdropContract, user common.Address, withBalance bool) (readiness, error) {
	var r readiness

	daily, err := c.DailyAirdropAmount(ctx)
	if err != nil {
		return r, err
	}
	r.daily = daily
	r.eligibility.DailyAmount = blockchain.FormatUnits(daily, blockchain.TokenDecimals)

	blocked, err := c.IsBlocked(ctx, user)
	if err != nil {
		return r, err
	}
	if blocked {
		r.eligibility.Blocked = true
		r.eligibility.Reason = ReasonBlocked
		return r, nil
	}

	paused, err := c.EmergencyPaused(ctx)
	if err != nil {
		return r, err
	}
	if paused {
		r.eligibility.Paused = true
		r.eligibility.Reason = ReasonPaused
		return r, nil
	}

	canClaim, remaining, err := c.CanUserClaim(ctx, user)
	if err != nil {
		return r, err
	}
	r.eligibility.CanClaim = canClaim
	if !canClaim {
		// 合约可能返回不可领取但剩余时间为0，至少报告1秒
		r.eligibility.TimeRemaining = max(secondsOf(remaining), 1)
		r.eligibility.Reason = ReasonCooldown
	}

	if withBalance {
		balance, err := c.ContractBalance(ctx)
		if err != nil {
			return r, err
		}
		r.balance = balance
	}
	return r, nil
}

func secondsOf(v *big.Int) int64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if !v.IsInt64() {
		return int64(^uint64(0) >> 1)
	}
	return v.Int64()
}

func (s *AirdropService) simulate(ctx context.Context, user, operation string, cause error) (Eligibility, error) {
	record, err := s.claims.GetByUser(ctx, user)
	if err != nil {
		return Eligibility{}, errors.New(errors.ErrStorage, "failed to read claim ledger", err)
	}

	var last *time.Time
	if record != nil {
		t := record.LastClaimTime()
		last = &t
	}

	e := SimulateEligibility(last, s.now(), s.cfg.ClaimInterval)
	e.DailyAmount = s.cfg.DailyAmount

	metrics.SimulationFallbacksTotal.WithLabelValues(operation).Inc()
	logger.WithFields(map[string]interface{}{
		"user_address":   user,
		"operation":      operation,
		"can_claim":      e.CanClaim,
		"time_remaining": e.TimeRemaining,
		"cause":          cause.Error(),
	}).Warn("All RPC endpoints failed, using simulated eligibility")

	return e, nil
}

// refuse 将不可领取的资格转换为错误
func refuse(e Eligibility) error {
	switch {
	case e.Blocked:
		return errors.Validation(ReasonBlocked)
	case e.Paused:
		return errors.Validation(ReasonPaused)
	case !e.CanClaim:
		return errors.New(errors.ErrValidation, ReasonCooldown, &CooldownError{Remaining: e.TimeRemaining})
	}
	return nil
}

func verificationMethod(req ClaimRequest) (string, error) {
	switch {
	case req.WorldIDVerified:
		return "worldid", nil
	case strings.TrimSpace(req.Signature) != "":
		return "signature", nil
	default:
		return "", errors.Validation("worldIdVerified or signature is required")
	}
}

// Claim 领取每日空投
// 配置了私钥且资格来自链上时提交交易，否则返回模拟交易号；成功后记录领取时间
func (s *AirdropService) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	user, err := normalizeAddress(req.UserAddress)
	if err != nil {
		return nil, err
	}
	method, err := verificationMethod(req)
	if err != nil {
		return nil, err
	}

	elig, err := s.Status(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := refuse(elig); err != nil {
		return nil, err
	}

	now := s.now()
	result := &ClaimResult{
		Amount:             s.cfg.AmountLabel,
		VerificationMethod: method,
		RPCUsed:            elig.SourceEndpoint,
	}

	txID, endpoint, err := s.submit(ctx, user, elig)
	if err != nil {
		return nil, err
	}
	if txID != "" {
		result.TxID = txID
		result.RPCUsed = endpoint
		result.Message = "Airdrop claimed successfully"
	} else {
		result.TxID = simulatedTxID(user, now)
		result.Simulated = true
		result.Message = "Airdrop claim processed in simulation mode"
	}

	if err := s.RecordClaim(ctx, user, now, result.TxID); err != nil {
		return nil, err
	}
	result.NextClaimAt = now.Add(s.cfg.ClaimInterval).Unix()

	mode := "onchain"
	if result.Simulated {
		mode = "simulated"
	}
	metrics.ClaimsTotal.WithLabelValues(mode).Inc()
	logger.WithFields(map[string]interface{}{
		"user_address": user,
		"tx_id":        result.TxID,
		"method":       method,
		"simulated":    result.Simulated,
	}).Info("Airdrop claimed")

	return result, nil
}

// submit 没有私钥或资格来自本地推算时不提交交易，返回空交易号
// 资格来自链上时提交失败（回滚、nonce 冲突或节点中途不可用）一律按上游错误返回，不降级为模拟
func (s *AirdropService) submit(ctx context.Context, user string, elig Eligibility) (string, string, error) {
	if !s.hasSigner || elig.Degraded {
		return "", "", nil
	}
	hash, endpoint, err := blockchain.Resolve(ctx, s.resolver, func(ctx context.Context, c blockchain.AirdropContract) (common.Hash, error) {
		return c.SubmitClaim(ctx, common.HexToAddress(user))
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"user_address": user,
		}).WithError(err).Error("Claim transaction failed")
		return "", "", errors.Upstream("failed to submit claim transaction", err)
	}
	return hash.Hex(), endpoint, nil
}

// ClaimReal 校验 World ID 证明字段、链上冷却期与合约余额
// 没有私钥时只返回可领取的说明，不记录领取
func (s *AirdropService) ClaimReal(ctx context.Context, req RealClaimRequest) (*RealClaimResult, error) {
	user, err := normalizeAddress(req.UserAddress)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, f := range [][2]string{{"proof", req.Proof}, {"merkle_root", req.MerkleRoot}, {"nullifier_hash", req.NullifierHash}} {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return nil, errors.Validation("missing World ID proof fields: " + strings.Join(missing, ", "))
	}

	r, endpoint, err := blockchain.Resolve(ctx, s.resolver, func(ctx context.Context, c blockchain.AirdropContract) (readiness, error) {
		return s.readOnChain(ctx, c, common.HexToAddress(user), true)
	})

	result := &RealClaimResult{Amount: s.cfg.AmountLabel}
	if err != nil {
		elig, err := s.simulate(ctx, user, "claim_real", err)
		if err != nil {
			return nil, err
		}
		if err := refuse(elig); err != nil {
			return nil, err
		}
		result.Ready = true
		result.Simulated = true
		result.RPCUsed = SimulationSource
		result.Message = "Contract unreachable; eligibility estimated from local claim history"
		result.Instructions = claimInstructions()
		return result, nil
	}

	r.eligibility.SourceEndpoint = endpoint
	if err := refuse(r.eligibility); err != nil {
		return nil, err
	}
	if r.balance != nil && r.daily != nil && r.balance.Cmp(r.daily) < 0 {
		return nil, errors.Upstream("insufficient contract balance",
			fmt.Errorf("balance %s < daily amount %s",
				blockchain.FormatUnits(r.balance, blockchain.TokenDecimals),
				blockchain.FormatUnits(r.daily, blockchain.TokenDecimals)))
	}

	result.Ready = true
	result.RPCUsed = endpoint
	result.ContractBalance = blockchain.FormatUnits(r.balance, blockchain.TokenDecimals)

	if !s.hasSigner {
		result.Simulated = true
		result.Message = "Ready to claim; no signer configured, submit the claim from the wallet"
		result.Instructions = claimInstructions()
		return result, nil
	}

	txID, used, err := s.submit(ctx, user, r.eligibility)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.RecordClaim(ctx, user, now, txID); err != nil {
		return nil, err
	}
	metrics.ClaimsTotal.WithLabelValues("onchain").Inc()

	result.TxID = txID
	result.RPCUsed = used
	result.Message = "Airdrop claimed successfully"
	return result, nil
}

// RecordClaim 记录最近一次成功领取时间，本地推算依赖这条记录
func (s *AirdropService) RecordClaim(ctx context.Context, user string, at time.Time, txID string) error {
	record := &models.ClaimRecord{
		UserAddress:        strings.ToLower(user),
		LastClaimTimestamp: at.Unix(),
		LastTxID:           txID,
	}
	if err := s.claims.Upsert(ctx, record); err != nil {
		return errors.New(errors.ErrStorage, "failed to record claim", err)
	}
	return nil
}

func simulatedTxID(user string, at time.Time) string {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%d", user, at.UnixNano()))).Hex()
}

func claimInstructions() []string {
	return []string{
		"Open the TPF mini-app wallet",
		"Call claimAirdrop() on the airdrop contract",
		"Confirm the transaction in World App",
	}
}

// ObserveClaim 同步链上观察到的领取；不会用更早的时间覆盖已有记录
func (s *AirdropService) ObserveClaim(ctx context.Context, event blockchain.ClaimEvent) error {
	existing, err := s.claims.GetByUser(ctx, event.User)
	if err != nil {
		return errors.New(errors.ErrStorage, "failed to read claim ledger", err)
	}
	if existing != nil && existing.LastClaimTimestamp >= event.Time.Unix() {
		return nil
	}
	if err := s.RecordClaim(ctx, event.User, event.Time, event.TxHash); err != nil {
		return err
	}
	metrics.ClaimsTotal.WithLabelValues("observed").Inc()
	logger.WithFields(map[string]interface{}{
		"user_address": event.User,
		"tx_hash":      event.TxHash,
		"block":        event.BlockNumber,
		"amount":       blockchain.FormatUnits(event.Amount, blockchain.TokenDecimals),
	}).Info("On-chain airdrop claim observed")
	return nil
}
