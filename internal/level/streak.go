package level

import (
	"sort"
	"time"

	"tpf-ecosystem/internal/models"
)

// Day 按日历日期比较，忽略时分秒
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf 在 loc 时区下取日期
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// Prev 前一天，由 time.Date 处理跨月跨年
func (d Day) Prev() Day {
	y, m, dd := time.Date(d.Year, d.Month, d.Day-1, 12, 0, 0, 0, time.UTC).Date()
	return Day{Year: y, Month: m, Day: dd}
}

// Streak 从 today 开始往前数连续签到的天数
// 今天没有签到时返回0
func Streak(history []models.CheckInRecord, today time.Time) int {
	loc := today.Location()

	dates := make([]time.Time, len(history))
	for i, h := range history {
		dates[i] = h.Date
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	expected := DayOf(today, loc)
	streak := 0
	for _, d := range dates {
		if DayOf(d, loc) != expected {
			break
		}
		streak++
		expected = expected.Prev()
	}
	return streak
}

// CheckedInOn 是否已有 day 当天的签到
func CheckedInOn(history []models.CheckInRecord, day time.Time) bool {
	loc := day.Location()
	target := DayOf(day, loc)
	for _, h := range history {
		if DayOf(h.Date, loc) == target {
			return true
		}
	}
	return false
}

// CheckInXP 签到经验，每条记录计其 PointsAwarded
func CheckInXP(history []models.CheckInRecord) int64 {
	var xp int64
	for _, h := range history {
		xp += int64(h.PointsAwarded)
	}
	return xp
}
