package models

import (
	"time"
)

// PaymentRecord 推广付费记录，同一交易哈希允许出现多次
type PaymentRecord struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"size:64;not null;index" json:"userId"`
	TransactionHash string    `gorm:"size:66;not null;index" json:"transactionHash"`
	Amount          string    `gorm:"size:78;not null" json:"amount"`
	Token           string    `gorm:"size:16;not null" json:"token"`
	CreatedAt       time.Time `gorm:"not null;index" json:"createdAt"`
}

func (PaymentRecord) TableName() string {
	return "promotion_payments"
}
