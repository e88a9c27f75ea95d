package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tpf-ecosystem/internal/models"
)

// 以下为 database.driver=memory 时使用的进程内实现，语义与 gorm 实现一致

type MemoryClaimRepository struct {
	mu      sync.RWMutex
	records map[string]models.ClaimRecord
}

func NewMemoryClaimRepository() *MemoryClaimRepository {
	return &MemoryClaimRepository{records: make(map[string]models.ClaimRecord)}
}

func (r *MemoryClaimRepository) GetByUser(ctx context.Context, userAddress string) (*models.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[strings.ToLower(userAddress)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *MemoryClaimRepository) Upsert(ctx context.Context, record *models.ClaimRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.UserAddress = strings.ToLower(record.UserAddress)
	r.records[record.UserAddress] = *record
	return nil
}

type MemoryCheckInRepository struct {
	mu      sync.RWMutex
	nextID  uint64
	records map[string][]models.CheckInRecord
}

func NewMemoryCheckInRepository() *MemoryCheckInRepository {
	return &MemoryCheckInRepository{records: make(map[string][]models.CheckInRecord)}
}

func (r *MemoryCheckInRepository) Create(ctx context.Context, record *models.CheckInRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record.UserAddress = strings.ToLower(record.UserAddress)
	if record.Day == "" {
		record.Day = models.CheckInDay(record.Date)
	}
	for _, existing := range r.records[record.UserAddress] {
		if existing.Day == record.Day {
			return models.ErrCheckInExists
		}
	}
	r.nextID++
	record.ID = r.nextID
	r.records[record.UserAddress] = append(r.records[record.UserAddress], *record)
	return nil
}

func (r *MemoryCheckInRepository) ListByUser(ctx context.Context, userAddress string) ([]models.CheckInRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.records[strings.ToLower(userAddress)]
	out := make([]models.CheckInRecord, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *MemoryCheckInRepository) DeleteByUser(ctx context.Context, userAddress string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(userAddress)
	n := int64(len(r.records[key]))
	delete(r.records, key)
	return n, nil
}

type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments []models.PaymentRecord
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *models.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *MemoryPaymentRepository) List(ctx context.Context, userID string, limit int) ([]models.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PaymentRecord, 0, len(r.payments))
	for i := len(r.payments) - 1; i >= 0; i-- {
		p := r.payments[i]
		if userID != "" && p.UserID != userID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
