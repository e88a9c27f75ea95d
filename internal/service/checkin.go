package service

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"tpf-ecosystem/internal/level"
	"tpf-ecosystem/internal/models"
	"tpf-ecosystem/pkg/errors"
	"tpf-ecosystem/pkg/logger"
)

// PointsPerCheckIn 每次签到获得的经验
const PointsPerCheckIn = 1

type CheckInService struct {
	repo   CheckInRepository
	levels level.Table
	now    Clock
	locks  userLocks
}

func NewCheckInService(repo CheckInRepository, levels level.Table) *CheckInService {
	return &CheckInService{
		repo:   repo,
		levels: levels,
		now:    time.Now,
		locks:  userLocks{held: make(map[string]*userLock)},
	}
}

// userLocks 按用户串行化签到；多实例部署时由唯一索引兜底
type userLocks struct {
	mu   sync.Mutex
	held map[string]*userLock
}

type userLock struct {
	mu      sync.Mutex
	waiters int
}

func (l *userLocks) lock(user string) func() {
	l.mu.Lock()
	ul, ok := l.held[user]
	if !ok {
		ul = &userLock{}
		l.held[user] = ul
	}
	ul.waiters++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.waiters--
		if ul.waiters == 0 {
			delete(l.held, user)
		}
		l.mu.Unlock()
	}
}

func (s *CheckInService) SetClock(now Clock) {
	s.now = now
}

type CheckInStatus struct {
	UserAddress    string                 `json:"userAddress"`
	Streak         int                    `json:"streak"`
	TotalCheckIns  int                    `json:"totalCheckIns"`
	CheckedInToday bool                   `json:"checkedInToday"`
	LastCheckIn    *time.Time             `json:"lastCheckIn,omitempty"`
	Level          level.Info             `json:"level"`
	History        []models.CheckInRecord `json:"history"`
}

// CheckIn 记录今日签到；今天已签到时不重复记录，返回 false
func (s *CheckInService) CheckIn(ctx context.Context, address string) (*CheckInStatus, bool, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return nil, false, err
	}

	unlock := s.locks.lock(user)
	defer unlock()

	history, err := s.repo.ListByUser(ctx, user)
	if err != nil {
		return nil, false, errors.New(errors.ErrStorage, "failed to load check-in history", err)
	}

	now := s.now()
	if level.CheckedInOn(history, now) {
		return s.status(user, history, decimal.Zero, now), false, nil
	}

	record := &models.CheckInRecord{
		UserAddress:   user,
		Day:           models.CheckInDay(now),
		Date:          now,
		PointsAwarded: PointsPerCheckIn,
	}
	record.StreakAtTime = level.Streak(append(history, *record), now)

	if err := s.repo.Create(ctx, record); err != nil {
		if stderrors.Is(err, models.ErrCheckInExists) {
			// 其他实例抢先写入了今天的记录
			history, err = s.repo.ListByUser(ctx, user)
			if err != nil {
				return nil, false, errors.New(errors.ErrStorage, "failed to load check-in history", err)
			}
			return s.status(user, history, decimal.Zero, now), false, nil
		}
		return nil, false, errors.New(errors.ErrStorage, "failed to save check-in", err)
	}

	logger.WithFields(map[string]interface{}{
		"user_address": user,
		"streak":       record.StreakAtTime,
	}).Info("Daily check-in recorded")

	history = append([]models.CheckInRecord{*record}, history...)
	return s.status(user, history, decimal.Zero, now), true, nil
}

// Status 签到状态与等级；tpfBalance 为空按0计
func (s *CheckInService) Status(ctx context.Context, address, tpfBalance string) (*CheckInStatus, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if b := strings.TrimSpace(tpfBalance); b != "" {
		balance, err = decimal.NewFromString(b)
		if err != nil {
			return nil, errors.Validation("tpfBalance must be a decimal number")
		}
	}

	history, err := s.repo.ListByUser(ctx, user)
	if err != nil {
		return nil, errors.New(errors.ErrStorage, "failed to load check-in history", err)
	}
	return s.status(user, history, balance, s.now()), nil
}

// Clear 删除全部签到记录，返回删除条数
func (s *CheckInService) Clear(ctx context.Context, address string) (int64, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteByUser(ctx, user)
	if err != nil {
		return 0, errors.New(errors.ErrStorage, "failed to clear check-in history", err)
	}
	logger.WithFields(map[string]interface{}{
		"user_address": user,
		"deleted":      n,
	}).Info("Check-in history cleared")
	return n, nil
}

func (s *CheckInService) status(user string, history []models.CheckInRecord, balance decimal.Decimal, now time.Time) *CheckInStatus {
	st := &CheckInStatus{
		UserAddress:    user,
		Streak:         level.Streak(history, now),
		TotalCheckIns:  len(history),
		CheckedInToday: level.CheckedInOn(history, now),
		Level:          s.levels.Info(level.CheckInXP(history), balance),
		History:        history,
	}
	for i := range history {
		if st.LastCheckIn == nil || history[i].Date.After(*st.LastCheckIn) {
			d := history[i].Date
			st.LastCheckIn = &d
		}
	}
	if st.History == nil {
		st.History = []models.CheckInRecord{}
	}
	return st
}
