package domain

import (
	"testing"
	"time"
)

// ─── Trigger Condition Tests ────────────────────────────────────────────────

func TestParseTriggerCondition(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantMinutes int
		wantDays    int
	}{
		{
			name:        "empty falls back to defaults",
			raw:         "",
			wantMinutes: DefaultThresholdMinutes,
			wantDays:    DefaultStreakDays,
		},
		{
			name:        "explicit minutes",
			raw:         `{"minutes": 90}`,
			wantMinutes: 90,
			wantDays:    DefaultStreakDays,
		},
		{
			name:        "explicit days",
			raw:         `{"days": 3}`,
			wantMinutes: DefaultThresholdMinutes,
			wantDays:    3,
		},
		{
			name:        "malformed JSON degrades to defaults",
			raw:         `{"minutes": `,
			wantMinutes: DefaultThresholdMinutes,
			wantDays:    DefaultStreakDays,
		},
		{
			name:        "zero values fall back to defaults",
			raw:         `{"minutes": 0, "days": 0}`,
			wantMinutes: DefaultThresholdMinutes,
			wantDays:    DefaultStreakDays,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ParseTriggerCondition(tt.raw)
			if got := c.ThresholdMinutes(); got != tt.wantMinutes {
				t.Errorf("ThresholdMinutes() = %d, want %d", got, tt.wantMinutes)
			}
			if got := c.StreakDays(); got != tt.wantDays {
				t.Errorf("StreakDays() = %d, want %d", got, tt.wantDays)
			}
		})
	}
}

func TestTriggerKind_IsValid(t *testing.T) {
	for _, k := range []TriggerKind{TriggerHomeworkComplete, TriggerTimeThreshold, TriggerTaskComplete, TriggerStreak} {
		if !k.IsValid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if TriggerKind("bedtime_bonus").IsValid() {
		t.Error("unknown kind should not be valid")
	}
}

// ─── Task Tests ─────────────────────────────────────────────────────────────

func TestStudyTask_StudyMinutes(t *testing.T) {
	task := StudyTask{EstimatedMinutes: 30}
	if got := task.StudyMinutes(); got != 30 {
		t.Errorf("StudyMinutes() = %d, want estimate 30", got)
	}

	task.ActualMinutes = 45
	if got := task.StudyMinutes(); got != 45 {
		t.Errorf("StudyMinutes() = %d, want actual 45", got)
	}
}

// ─── Calendar Day Tests ─────────────────────────────────────────────────────

func TestDayOf(t *testing.T) {
	at := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	if got := DayOf(at); got != "2025-06-15" {
		t.Errorf("DayOf() = %q, want 2025-06-15", got)
	}
}

func TestPrevDay(t *testing.T) {
	tests := []struct {
		day  string
		n    int
		want string
	}{
		{"2025-06-15", 0, "2025-06-15"},
		{"2025-06-15", 1, "2025-06-14"},
		{"2025-03-01", 1, "2025-02-28"},
		{"2025-01-01", 1, "2024-12-31"},
		{"2025-06-15", 7, "2025-06-08"},
	}
	for _, tt := range tests {
		if got := PrevDay(tt.day, tt.n); got != tt.want {
			t.Errorf("PrevDay(%q, %d) = %q, want %q", tt.day, tt.n, got, tt.want)
		}
	}
}
