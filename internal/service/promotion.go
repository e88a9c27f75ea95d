package service

import (
	"context"
	stderrors "errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"tpf-ecosystem/internal/config"
	"tpf-ecosystem/internal/metrics"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/internal/store"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// tombstoneRetention 过期链接在这段时间内点击返回 410，之后返回 404
const tombstoneRetention = 24 * time.Hour

// PromotionStoreOptions 创建超过 TTL 后过期（恰好 TTL 时仍有效）
func PromotionStoreOptions(cfg config.PromotionConfig) store.Options[models.Promotion] {
	return store.Options[models.Promotion]{
		ID:      func(p models.Promotion) string { return p.ID },
		Expired: store.OlderThan(func(p models.Promotion) time.Time { return p.CreatedAt }, cfg.TTL, false),
	}
}

type CreatePromotionRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      string `json:"userId"`
}

type PromotionService struct {
	links          store.Mutable[models.Promotion]
	titleMax       int
	descriptionMax int
	now            Clock

	mu      sync.Mutex
	expired map[string]time.Time
}

func NewPromotionService(links store.Mutable[models.Promotion], cfg config.PromotionConfig) *PromotionService {
	return &PromotionService{
		links:          links,
		titleMax:       cfg.TitleMax,
		descriptionMax: cfg.DescriptionMax,
		now:            time.Now,
		expired:        make(map[string]time.Time),
	}
}

func (s *PromotionService) SetClock(now Clock) {
	s.now = now
}

func validPromotionURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Create 新增推广链接，标题和描述超长时截断
func (s *PromotionService) Create(ctx context.Context, req CreatePromotionRequest) (models.Promotion, error) {
	link := strings.TrimSpace(req.URL)
	title := strings.TrimSpace(req.Title)
	if link == "" || title == "" {
		return models.Promotion{}, errors.Validation("url and title are required")
	}
	if !validPromotionURL(link) {
		return models.Promotion{}, errors.Validation("url must be an absolute http(s) URL")
	}

	if _, err := s.Sweep(ctx); err != nil {
		return models.Promotion{}, err
	}

	p := models.Promotion{
		ID:          uuid.NewString(),
		URL:         link,
		Title:       truncateRunes(title, s.titleMax),
		Description: truncateRunes(strings.TrimSpace(req.Description), s.descriptionMax),
		CreatedAt:   s.now(),
		UserID:      strings.TrimSpace(req.UserID),
	}
	if err := s.links.Insert(ctx, p); err != nil {
		return models.Promotion{}, errors.New(errors.ErrStorage, "failed to store promotion", err)
	}

	logger.WithFields(map[string]interface{}{
		"promotion_id": p.ID,
		"user_id":      p.UserID,
	}).Info("Promotion created")
	return p, nil
}

// List 有效链接，最新创建的在前
func (s *PromotionService) List(ctx context.Context) ([]models.Promotion, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	links, err := s.links.List(ctx)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "failed to list promotions", err)
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

// Click 点击数加一；已过期返回 Gone，不存在返回 NotFound
func (s *PromotionService) Click(ctx context.Context, id string) (models.Promotion, error) {
	if _, err := s.Sweep(ctx); err != nil {
		return models.Promotion{}, err
	}

	p, err := s.links.Update(ctx, id, func(p *models.Promotion) { p.Clicks++ })
	if stderrors.Is(err, store.ErrNotFound) {
		s.mu.Lock()
		_, gone := s.expired[id]
		s.mu.Unlock()
		if gone {
			return models.Promotion{}, errors.Gone("promotion has expired")
		}
		return models.Promotion{}, errors.NotFound("promotion not found")
	}
	if err != nil {
		return models.Promotion{}, errors.New(errors.ErrStorage, "failed to update promotion", err)
	}
	return p, nil
}

// Sweep 清理过期链接并登记墓碑，返回本次清理数量
func (s *PromotionService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	evicted, err := s.links.EvictExpired(ctx, now)
	if err != nil {
		return 0, errors.New(errors.ErrStorage, "failed to evict expired promotions", err)
	}

	s.mu.Lock()
	for _, p := range evicted {
		s.expired[p.ID] = now
	}
	for id, at := range s.expired {
		if now.Sub(at) > tombstoneRetention {
			delete(s.expired, id)
		}
	}
	s.mu.Unlock()

	if n := len(evicted); n > 0 {
		metrics.StoreEvictionsTotal.WithLabelValues("promotions").Add(float64(n))
		logger.WithFields(map[string]interface{}{
			"evicted": n,
		}).Debug("Expired promotions evicted")
	}
	return len(evicted), nil
}
