package repository

import (
	"context"
	"errors"
	"strings"

	"tpf-ecosystem/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClaimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// GetByUser 获取地址最近一次领取记录，不存在时返回 nil
func (r *ClaimRepository) GetByUser(ctx context.Context, userAddress string) (*models.ClaimRecord, error) {
	var record models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("user_address = ?", strings.ToLower(userAddress)).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert 覆盖写入最近一次领取时间
// 使用 ON CONFLICT / ON DUPLICATE KEY 保证并发下每个地址只有一条记录
func (r *ClaimRepository) Upsert(ctx context.Context, record *models.ClaimRecord) error {
	record.UserAddress = strings.ToLower(record.UserAddress)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_claim_timestamp", "last_tx_id", "updated_at"}),
		}).
		Create(record).Error
}
