package models

import (
	"errors"
	"time"
)

// ErrCheckInExists 同一用户同一天已有签到记录
var ErrCheckInExists = errors.New("check-in already recorded for this day")

// CheckInRecord 每日签到记录，只追加不修改
// 每个用户每个日历日最多一条，由 idx_user_day 唯一索引保证
type CheckInRecord struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserAddress   string    `gorm:"size:42;not null;uniqueIndex:idx_user_day" json:"userAddress"`
	Day           string    `gorm:"size:10;not null;uniqueIndex:idx_user_day" json:"-"`
	Date          time.Time `gorm:"not null;index" json:"date"`
	PointsAwarded int       `gorm:"not null;default:1" json:"pointsAwarded"`
	StreakAtTime  int       `gorm:"not null" json:"streakAtTime"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-"`
}

func (CheckInRecord) TableName() string {
	return "check_ins"
}

// CheckInDay t 所在时区的日历日，格式 2006-01-02
func CheckInDay(t time.Time) string {
	return t.Format(time.DateOnly)
}
