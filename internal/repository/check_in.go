package repository

import (
	"context"
	"errors"
	"strings"

	"tpf-ecosystem/internal/models"

	"gorm.io/gorm"
)

type CheckInRepository struct {
	db *gorm.DB
}

func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// Create 写入签到；同一天重复写入返回 models.ErrCheckInExists
// 依赖 gorm.Config.TranslateError 把唯一索引冲突转换为 gorm.ErrDuplicatedKey
func (r *CheckInRepository) Create(ctx context.Context, record *models.CheckInRecord) error {
	record.UserAddress = strings.ToLower(record.UserAddress)
	if record.Day == "" {
		record.Day = models.CheckInDay(record.Date)
	}
	err := r.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrCheckInExists
	}
	return err
}

// ListByUser 按日期倒序返回用户全部签到记录
func (r *CheckInRepository) ListByUser(ctx context.Context, userAddress string) ([]models.CheckInRecord, error) {
	var records []models.CheckInRecord
	err := r.db.WithContext(ctx).
		Where("user_address = ?", strings.ToLower(userAddress)).
		Order("date DESC").
		Find(&records).Error
	return records, err
}

// DeleteByUser 清空用户签到历史
func (r *CheckInRepository) DeleteByUser(ctx context.Context, userAddress string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_address = ?", strings.ToLower(userAddress)).
		Delete(&models.CheckInRecord{})
	return result.RowsAffected, result.Error
}
