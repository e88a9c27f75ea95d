package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// defaultPaymentListLimit GET /promove/payment 单次最多返回的记录数
const defaultPaymentListLimit = 100

type RecordPaymentRequest struct {
	UserID          string `json:"userId"`
	TransactionHash string `json:"transactionHash"`
	Amount          string `json:"amount"`
	Token           string `json:"token"`
}

type PaymentService struct {
	repo PaymentRepository
	now  Clock
}

func NewPaymentService(repo PaymentRepository) *PaymentService {
	return &PaymentService{repo: repo, now: time.Now}
}

func (s *PaymentService) SetClock(now Clock) {
	s.now = now
}

// Record 记录推广付费，只校验字段存在，不做去重；字段按原样保存
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (models.PaymentRecord, error) {
	for _, v := range []string{req.UserID, req.TransactionHash, req.Amount, req.Token} {
		if strings.TrimSpace(v) == "" {
			return models.PaymentRecord{}, errors.Validation("userId, transactionHash, amount and token are required")
		}
	}
	p := models.PaymentRecord{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		TransactionHash: req.TransactionHash,
		Amount:          req.Amount,
		Token:           req.Token,
		CreatedAt:       s.now(),
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return models.PaymentRecord{}, errors.New(errors.ErrStorage, "failed to record payment", err)
	}

	logger.WithFields(map[string]interface{}{
		"payment_id": p.ID,
		"user_id":    p.UserID,
		"tx_hash":    p.TransactionHash,
		"amount":     p.Amount,
		"token":      p.Token,
	}).Info("Promotion payment recorded")
	return p, nil
}

// List userID 为空时返回全部付费记录
func (s *PaymentService) List(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	payments, err := s.repo.List(ctx, strings.TrimSpace(userID), defaultPaymentListLimit)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "failed to list payments", err)
	}
	if payments == nil {
		payments = []models.PaymentRecord{}
	}
	return payments, nil
}
