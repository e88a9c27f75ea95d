package models

import (
	"time"
)

// ClaimRecord 每个地址一条，记录最近一次成功领取空投的时间
type ClaimRecord struct {
	UserAddress        string    `gorm:"primaryKey;size:42" json:"userAddress"`
	LastClaimTimestamp int64     `gorm:"not null" json:"lastClaimTimestamp"`
	LastTxID           string    `gorm:"size:66" json:"lastTxId"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ClaimRecord) TableName() string {
	return "airdrop_claims"
}

func (c ClaimRecord) LastClaimTime() time.Time {
	return time.Unix(c.LastClaimTimestamp, 0)
}
