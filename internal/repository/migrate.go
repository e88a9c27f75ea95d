package repository

import (
	"tpf-ecosystem/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate 创建或更新账本表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ClaimRecord{},
		&models.CheckInRecord{},
		&models.PaymentRecord{},
	)
}
