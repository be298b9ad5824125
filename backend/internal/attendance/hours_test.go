package attendance

import (
	"testing"
	"time"
)

func TestHours(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{90, "1.5"},
		{20, "0.33"},
		{0, "0"},
		{480, "8"},
	}
	for _, tt := range tests {
		if got := Hours(tt.minutes).String(); got != tt.want {
			t.Errorf("Hours(%d) = %s，期望 %s", tt.minutes, got, tt.want)
		}
	}
}

func TestHoursBetween(t *testing.T) {
	from := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	if got := HoursBetween(from, from.Add(150*time.Minute)).String(); got != "2.5" {
		t.Errorf("期望 2.5，实际 %s", got)
	}
	if !HoursBetween(from, from.Add(-time.Hour)).IsZero() {
		t.Error("倒序区间应为 0")
	}
}

func TestWorkedMinutes(t *testing.T) {
	a := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	d := a.Add(4 * time.Hour)
	a2 := a.Add(5 * time.Hour)
	sessions := []Session{
		{Arrival: &a, Departure: &d},
		{Arrival: &a2},
		{Departure: &d},
	}
	if got := WorkedMinutes(sessions); got != 240 {
		t.Errorf("只统计完整会话，期望 240，实际 %d", got)
	}
}
