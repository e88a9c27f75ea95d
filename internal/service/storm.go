package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/internal/store"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// StormPalette 未指定颜色时随机选取
var StormPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
}

// StormStoreOptions 按时间戳过期（满 TTL 即过期），只保留最新的 Capacity 条
func StormStoreOptions(cfg config.StormConfig) store.Options[models.StormWord] {
	return store.Options[models.StormWord]{
		ID:       func(w models.StormWord) string { return w.ID },
		Expired:  store.OlderThan(func(w models.StormWord) time.Time { return w.Timestamp }, cfg.TTL, true),
		Capacity: cfg.Capacity,
	}
}

type StormService struct {
	words   store.Store[models.StormWord]
	maxText int
	now     Clock
}

func NewStormService(words store.Store[models.StormWord], cfg config.StormConfig) *StormService {
	return &StormService{words: words, maxText: cfg.MaxText, now: time.Now}
}

func (s *StormService) SetClock(now Clock) {
	s.now = now
}

// Submit 广播一个词
func (s *StormService) Submit(ctx context.Context, text, color string) (models.StormWord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.StormWord{}, errors.Validation("text is required")
	}
	if s.maxText > 0 && utf8.RuneCountInString(text) > s.maxText {
		return models.StormWord{}, errors.Validation(fmt.Sprintf("text must be at most %d characters", s.maxText))
	}

	color = strings.TrimSpace(color)
	if color == "" {
		color = StormPalette[rand.Intn(len(StormPalette))]
	}

	word := models.StormWord{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: s.now(),
		Color:     color,
	}
	if err := s.words.Insert(ctx, word); err != nil {
		return models.StormWord{}, errors.New(errors.ErrStorage, "failed to store word", err)
	}
	return word, nil
}

// ListActive 读取前先清理过期词，按提交顺序返回
func (s *StormService) ListActive(ctx context.Context) ([]models.StormWord, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	words, err := s.words.List(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "failed to list words", err)
	}
	return words, nil
}

// Sweep 清理过期词，返回清理数量
func (s *StormService) Sweep(ctx context.Context) (int, error) {
	evicted, err := s.words.EvictExpired(ctx, s.now())
	if err != nil {
		return 0, errors.New(errors.ErrStorage, "failed to evict expired words", err)
	}
	if n := len(evicted); n > 0 {
		metrics.StoreEvictionsTotal.WithLabelValues("storm_words").Add(float64(n))
		logger.WithFields(map[string]interface{}{
			"evicted": n,
		}).Debug("Expired storm words evicted")
	}
	return len(evicted), nil
}
