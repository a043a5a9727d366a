package model

import (
	"testing"
	"time"
)

func TestDateOf(t *testing.T) {
	ts := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := DateOf(ts, nil); got != "2026-03-10" {
		t.Errorf("UTC date = %s", got)
	}
	shanghai := time.FixedZone("UTC+8", 8*3600)
	if got := DateOf(ts, shanghai); got != "2026-03-11" {
		t.Errorf("UTC+8 date = %s", got)
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		from, to string
		want     int
	}{
		{"2026-03-10", "2026-03-10", 0},
		{"2026-03-10", "2026-03-11", 1},
		{"2026-02-28", "2026-03-01", 1},
		{"2026-12-31", "2027-01-01", 1},
		{"2026-03-10", "2026-03-15", 5},
		{"2026-03-10", "2026-03-08", -2},
	}
	for _, tt := range tests {
		got, err := DaysBetween(tt.from, tt.to)
		if err != nil {
			t.Fatalf("DaysBetween(%s, %s): %v", tt.from, tt.to, err)
		}
		if got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
	if _, err := DaysBetween("bad", "2026-03-10"); err == nil {
		t.Error("expected parse error")
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2026-03-01", -1)
	if err != nil || got != "2026-02-28" {
		t.Errorf("AddDays = %s, %v", got, err)
	}
}

func TestStreakMilestones(t *testing.T) {
	for _, d := range []int{3, 7, 14, 30, 60, 100} {
		if !IsStreakMilestone(d) {
			t.Errorf("%d should be a milestone", d)
		}
	}
	for _, d := range []int{0, 1, 2, 8, 99} {
		if IsStreakMilestone(d) {
			t.Errorf("%d should not be a milestone", d)
		}
	}

	a := NewStreakAchievement("u1", 7, "2026-03-10")
	if a.AchievementType != "streak_7" || a.AchievementName != "7 Day Streak" || a.StreakMilestone != 7 {
		t.Errorf("achievement = %+v", a)
	}
	if string(a.Metadata) != `{"reached_on":"2026-03-10"}` {
		t.Errorf("metadata = %s", a.Metadata)
	}
}
