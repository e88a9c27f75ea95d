package service

import (
	"context"
	"time"

	"tpf-ecosystem/internal/models"
)

// ClaimRepository 领取记录存储，gorm 与内存实现见 repository 包
type ClaimRepository interface {
	GetByUser(ctx context.Context, userAddress string) (*models.ClaimRecord, error)
	Upsert(ctx context.Context, record *models.ClaimRecord) error
}

type CheckInRepository interface {
	Create(ctx context.Context, record *models.CheckInRecord) error
	ListByUser(ctx context.Context, userAddress string) ([]models.CheckInRecord, error)
	DeleteByUser(ctx context.Context, userAddress string) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.PaymentRecord) error
	List(ctx context.Context, userID string, limit int) ([]models.PaymentRecord, error)
}

// Clock 测试中替换为固定时间
type Clock func() time.Time
