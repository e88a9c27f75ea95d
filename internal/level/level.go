package level

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"tpf-ecosystem/internal/config"
)

// BalanceXPRate 每持有1000枚TPF折算1点经验
var BalanceXPRate = decimal.RequireFromString("0.001")

// Tier 等级阈值：经验达到 MinXP 即升到 Level
type Tier struct {
	Level      int             `json:"level"`
	MinXP      int64           `json:"minXP"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Table 按 MinXP 升序排列的等级表
type Table []Tier

type Info struct {
	Level              int     `json:"level"`
	TotalXP            int64   `json:"totalXP"`
	CheckInXP          int64   `json:"checkInXP"`
	BalanceXP          int64   `json:"balanceXP"`
	CurrentLevelXP     int64   `json:"currentLevelXP"`
	XPForNextLevel     int64   `json:"xpForNextLevel"`
	XPToNextLevel      int64   `json:"xpToNextLevel"`
	RewardMultiplier   string  `json:"rewardMultiplier"`
	ProgressPercentage float64 `json:"progressPercentage"`
	MaxLevel           bool    `json:"maxLevel"`
}

func DefaultTable() Table {
	thresholds := []int64{0, 10, 30, 60, 100, 150, 250, 400, 600, 1000}
	table := make(Table, len(thresholds))
	for i, xp := range thresholds {
		table[i] = Tier{
			Level:      i + 1,
			MinXP:      xp,
			Multiplier: decimal.RequireFromString("1.01").Add(decimal.New(int64(i), -2)),
		}
	}
	return table
}

// NewTable 校验并按阈值排序
func NewTable(tiers []Tier) (Table, error) {
	table := make(Table, len(tiers))
	copy(table, tiers)
	sort.SliceStable(table, func(i, j int) bool { return table[i].MinXP < table[j].MinXP })
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate 等级表必须非空、阈值严格递增、等级严格递增且倍率不递减
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("level table is empty")
	}
	if t[0].MinXP < 0 {
		return fmt.Errorf("first level threshold must not be negative")
	}
	for i := 1; i < len(t); i++ {
		prev, cur := t[i-1], t[i]
		if cur.MinXP <= prev.MinXP {
			return fmt.Errorf("level %d threshold %d is not above %d", cur.Level, cur.MinXP, prev.MinXP)
		}
		if cur.Level <= prev.Level {
			return fmt.Errorf("level numbers must increase: %d after %d", cur.Level, prev.Level)
		}
		if cur.Multiplier.LessThan(prev.Multiplier) {
			return fmt.Errorf("level %d multiplier %s is below level %d", cur.Level, cur.Multiplier, prev.Level)
		}
	}
	return nil
}

// BalanceXP floor(tpfBalance × 0.001)，负余额按0计
func BalanceXP(tpfBalance decimal.Decimal) int64 {
	if !tpfBalance.IsPositive() {
		return 0
	}
	return tpfBalance.Mul(BalanceXPRate).Floor().IntPart()
}

// tierIndex 返回经验值所处的等级下标；低于首个阈值时视为第一级
func (t Table) tierIndex(xp int64) int {
	idx := sort.Search(len(t), func(i int) bool { return t[i].MinXP > xp }) - 1
	if idx < 0 {
		return 0
	}
	return idx
}

// LevelFor 经验值对应的等级
func (t Table) LevelFor(xp int64) int {
	return t[t.tierIndex(xp)].Level
}

// Info 计算签到经验与持币经验合计后的等级进度
func (t Table) Info(checkInXP int64, tpfBalance decimal.Decimal) Info {
	if checkInXP < 0 {
		checkInXP = 0
	}
	balanceXP := BalanceXP(tpfBalance)
	total := checkInXP + balanceXP

	idx := t.tierIndex(total)
	tier := t[idx]

	info := Info{
		Level:            tier.Level,
		TotalXP:          total,
		CheckInXP:        checkInXP,
		BalanceXP:        balanceXP,
		CurrentLevelXP:   total - tier.MinXP,
		RewardMultiplier: tier.Multiplier.String(),
	}
	if info.CurrentLevelXP < 0 {
		info.CurrentLevelXP = 0
	}

	if idx == len(t)-1 {
		info.MaxLevel = true
		info.ProgressPercentage = 100
		return info
	}

	next := t[idx+1]
	info.XPForNextLevel = next.MinXP - tier.MinXP
	info.XPToNextLevel = next.MinXP - total
	info.ProgressPercentage = clampPercent(float64(info.CurrentLevelXP) / float64(info.XPForNextLevel) * 100)
	return info
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// FromConfig 由配置构建等级表，未配置时使用默认表
func FromConfig(cfg config.LevelConfig) (Table, error) {
	if len(cfg.Tiers) == 0 {
		return DefaultTable(), nil
	}
	tiers := make([]Tier, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		tiers[i] = Tier{
			Level:      t.Level,
			MinXP:      t.MinXP,
			Multiplier: decimal.NewFromFloat(t.Multiplier),
		}
	}
	return NewTable(tiers)
}
