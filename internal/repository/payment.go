package repository

import (
	"context"

	"tpf-ecosystem/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// List 按创建时间倒序返回付费记录，userID 为空时返回全部
func (r *PaymentRepository) List(ctx context.Context, userID string, limit int) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&payments).Error
	return payments, err
}
