package service

import (
	"testing"
	"time"
)

func TestDayLabel(t *testing.T) {
	now := time.Date(2026, time.August, 25, 15, 30, 0, 0, time.Local) // a Tuesday

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"same day", now.Add(-2 * time.Hour), "Today"},
		{"midnight today", time.Date(2026, time.August, 25, 0, 0, 1, 0, time.Local), "Today"},
		{"yesterday", now.AddDate(0, 0, -1), "Yesterday"},
		{"two days ago", now.AddDate(0, 0, -2), "Sunday"},
		{"six days ago", now.AddDate(0, 0, -6), "Wednesday"},
		{"seven days ago", now.AddDate(0, 0, -7), "18/08/2026"},
		{"ten days ago", now.AddDate(0, 0, -10), "15/08/2026"},
		{"last year", now.AddDate(-1, 0, 0), "25/08/2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dayLabel(tt.at, now); got != tt.want {
				t.Fatalf("dayLabel = %q, want %q", got, tt.want)
			}
		})
	}
}
