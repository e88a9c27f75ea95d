package models

import (
	"time"
)

// Promotion 推广链接，仅保存在内存中，创建一小时后过期
type Promotion struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      string    `json:"userId"`
}

// StormWord 广播词，60秒后过期
type StormWord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Color     string    `json:"color"`
}
