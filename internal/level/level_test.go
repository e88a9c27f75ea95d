package level

import (
	"testing"

	"github.com/shopspring/decimal"
	"tpf-ecosystem/internal/config"
)

func TestInfoLevelsAndProgress(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		name       string
		checkInXP  int64
		balance    string
		level      int
		current    int64
		toNext     int64
		progress   float64
		multiplier string
	}{
		{"new user", 0, "0", 1, 0, 10, 0, "1.01"},
		{"half way to level 2", 5, "0", 1, 5, 5, 50, "1.01"},
		{"balance xp counts", 3, "7999", 2, 0, 20, 0, "1.02"},
		{"exact threshold", 30, "0", 3, 0, 30, 0, "1.03"},
		{"mid level 5", 100, "25000", 5, 25, 25, 50, "1.05"},
		{"max level", 900, "500000", 10, 400, 0, 100, "1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := table.Info(tt.checkInXP, decimal.RequireFromString(tt.balance))
			if info.Level != tt.level {
				t.Errorf("Level = %d, want %d", info.Level, tt.level)
			}
			if info.CurrentLevelXP != tt.current {
				t.Errorf("CurrentLevelXP = %d, want %d", info.CurrentLevelXP, tt.current)
			}
			if info.XPToNextLevel != tt.toNext {
				t.Errorf("XPToNextLevel = %d, want %d", info.XPToNextLevel, tt.toNext)
			}
			if info.ProgressPercentage != tt.progress {
				t.Errorf("ProgressPercentage = %v, want %v", info.ProgressPercentage, tt.progress)
			}
			if info.RewardMultiplier != tt.multiplier {
				t.Errorf("RewardMultiplier = %s, want %s", info.RewardMultiplier, tt.multiplier)
			}
		})
	}
}

func TestBalanceXPFloors(t *testing.T) {
	tests := map[string]int64{
		"0":        0,
		"999.999":  0,
		"1000":     1,
		"1999.5":   1,
		"123456.7": 123,
		"-5000":    0,
	}
	for balance, want := range tests {
		if got := BalanceXP(decimal.RequireFromString(balance)); got != want {
			t.Errorf("BalanceXP(%s) = %d, want %d", balance, got, want)
		}
	}
}

func TestProgressAlwaysWithinBounds(t *testing.T) {
	table := DefaultTable()
	for xp := int64(-5); xp <= 1500; xp++ {
		info := table.Info(xp, decimal.Zero)
		if info.ProgressPercentage < 0 || info.ProgressPercentage > 100 {
			t.Fatalf("xp=%d progress=%v out of [0,100]", xp, info.ProgressPercentage)
		}
	}
}

func TestLevelIsMonotonic(t *testing.T) {
	table := DefaultTable()
	prev := table.LevelFor(0)
	for xp := int64(1); xp <= 2000; xp++ {
		cur := table.LevelFor(xp)
		if cur < prev {
			t.Fatalf("level(%d)=%d < level(%d)=%d", xp, cur, xp-1, prev)
		}
		prev = cur
	}
}

func TestNewTableValidation(t *testing.T) {
	one := decimal.RequireFromString("1.01")
	two := decimal.RequireFromString("1.05")

	if _, err := NewTable(nil); err == nil {
		t.Error("empty table should be rejected")
	}

	// out of order input is sorted by threshold
	table, err := NewTable([]Tier{{Level: 2, MinXP: 50, Multiplier: two}, {Level: 1, MinXP: 0, Multiplier: one}})
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if table[0].Level != 1 {
		t.Errorf("table not sorted: %+v", table)
	}

	if _, err := NewTable([]Tier{{Level: 1, MinXP: 0, Multiplier: two}, {Level: 2, MinXP: 50, Multiplier: one}}); err == nil {
		t.Error("decreasing multiplier should be rejected")
	}
	if _, err := NewTable([]Tier{{Level: 1, MinXP: 0, Multiplier: one}, {Level: 2, MinXP: 0, Multiplier: two}}); err == nil {
		t.Error("duplicate threshold should be rejected")
	}
}

func TestInfoBelowFirstThreshold(t *testing.T) {
	table, err := NewTable([]Tier{
		{Level: 1, MinXP: 10, Multiplier: decimal.RequireFromString("1.01")},
		{Level: 2, MinXP: 20, Multiplier: decimal.RequireFromString("1.02")},
	})
	if err != nil {
		t.Fatal(err)
	}
	info := table.Info(3, decimal.Zero)
	if info.Level != 1 || info.CurrentLevelXP != 0 || info.ProgressPercentage != 0 {
		t.Errorf("info = %+v", info)
	}
}

func TestFromConfig(t *testing.T) {
	table, err := FromConfig(config.LevelConfig{})
	if err != nil || len(table) != len(DefaultTable()) {
		t.Fatalf("empty config: len=%d err=%v", len(table), err)
	}

	table, err = FromConfig(config.LevelConfig{Tiers: []config.LevelTierConfig{
		{Level: 1, MinXP: 0, Multiplier: 1.0},
		{Level: 2, MinXP: 5, Multiplier: 1.5},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if info := table.Info(7, decimal.Zero); info.Level != 2 || info.RewardMultiplier != "1.5" || !info.MaxLevel {
		t.Errorf("info = %+v", info)
	}

	if _, err := FromConfig(config.LevelConfig{Tiers: []config.LevelTierConfig{
		{Level: 1, MinXP: 0, Multiplier: 1.2},
		{Level: 2, MinXP: 5, Multiplier: 1.1},
	}}); err == nil {
		t.Error("decreasing multiplier accepted")
	}
}
