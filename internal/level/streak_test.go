package level

import (
	"testing"
	"time"

	"tpf-ecosystem/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func records(dates ...string) []models.CheckInRecord {
	out := make([]models.CheckInRecord, len(dates))
	for i, d := range dates {
		out[i] = models.CheckInRecord{Date: day(d), PointsAwarded: 1}
	}
	return out
}

func TestStreak(t *testing.T) {
	history := records("2024-01-01T08:00:00Z", "2024-01-02T21:30:00Z", "2024-01-03T00:05:00Z")

	tests := []struct {
		name  string
		today string
		want  int
	}{
		{"ending today", "2024-01-03T23:59:00Z", 3},
		{"gap before today", "2024-01-05T10:00:00Z", 0},
		{"today missing", "2024-01-04T10:00:00Z", 0},
		{"mid history", "2024-01-02T10:00:00Z", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Streak(history, day(tt.today)); got != tt.want {
				t.Errorf("Streak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreakUnsortedHistoryAndGap(t *testing.T) {
	history := records("2024-03-10T09:00:00Z", "2024-03-07T09:00:00Z", "2024-03-09T09:00:00Z")
	if got := Streak(history, day("2024-03-10T12:00:00Z")); got != 2 {
		t.Errorf("Streak() = %d, want 2", got)
	}
}

func TestStreakAcrossMonthAndYear(t *testing.T) {
	history := records("2023-12-30T10:00:00Z", "2023-12-31T10:00:00Z", "2024-01-01T10:00:00Z")
	if got := Streak(history, day("2024-01-01T11:00:00Z")); got != 3 {
		t.Errorf("Streak() = %d, want 3", got)
	}

	leap := records("2024-02-28T10:00:00Z", "2024-02-29T10:00:00Z", "2024-03-01T10:00:00Z")
	if got := Streak(leap, day("2024-03-01T11:00:00Z")); got != 3 {
		t.Errorf("leap Streak() = %d, want 3", got)
	}
}

func TestStreakUsesTodaysLocation(t *testing.T) {
	// 2024-01-02T02:00 in UTC+8 is still 2024-01-01 in UTC
	loc := time.FixedZone("UTC+8", 8*3600)
	history := records("2024-01-01T18:00:00Z")

	if got := Streak(history, time.Date(2024, 1, 2, 9, 0, 0, 0, loc)); got != 1 {
		t.Errorf("Streak() in UTC+8 = %d, want 1", got)
	}
	if got := Streak(history, day("2024-01-02T09:00:00Z")); got != 0 {
		t.Errorf("Streak() in UTC = %d, want 0", got)
	}
}

func TestStreakEmpty(t *testing.T) {
	if got := Streak(nil, time.Now()); got != 0 {
		t.Errorf("Streak(nil) = %d", got)
	}
}

func TestCheckedInOnAndXP(t *testing.T) {
	history := records("2024-01-01T08:00:00Z", "2024-01-02T08:00:00Z")
	if !CheckedInOn(history, day("2024-01-02T23:00:00Z")) {
		t.Error("expected check-in on 2024-01-02")
	}
	if CheckedInOn(history, day("2024-01-03T00:00:00Z")) {
		t.Error("no check-in expected on 2024-01-03")
	}
	if got := CheckInXP(history); got != 2 {
		t.Errorf("CheckInXP() = %d", got)
	}
}
