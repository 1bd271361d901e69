package domain

import (
	"testing"
	"time"
)

func TestActivityScore(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	author := NewUserID()

	recent := func(n int) []ActivityRecord {
		records := make([]ActivityRecord, n)
		for i := range records {
			records[i] = ActivityRecord{AuthorID: author, CreatedAt: now.Add(-time.Duration(i+1) * time.Hour)}
		}
		return records
	}

	tests := []struct {
		name           string
		input          ActivityInput
		expectedScore  float64
		expectedRecent int
	}{
		{
			name:  "nothing_scores_zero",
			input: ActivityInput{Now: now},
		},
		{
			name:           "mixed",
			input:          ActivityInput{Streak: 2, LifetimeCount: 3, Records: recent(1), Now: now},
			expectedScore:  (6.0 + 8.0 + 6.0) / 100,
			expectedRecent: 1,
		},
		{
			name:           "all_caps_reached",
			input:          ActivityInput{Streak: 20, LifetimeCount: 100, Records: recent(10), Now: now},
			expectedScore:  1.0,
			expectedRecent: 10,
		},
		{
			name:          "streak_only",
			input:         ActivityInput{Streak: 5, Now: now},
			expectedScore: 0.15,
		},
		{
			name:          "negative_counts_are_zero",
			input:         ActivityInput{Streak: -4, LifetimeCount: -10, Now: now},
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActivityScore(tt.input)
			if !approxEqual(got.Score, tt.expectedScore) {
				t.Errorf("expected score %f, got %f", tt.expectedScore, got.Score)
			}
			if got.RecentCount != tt.expectedRecent {
				t.Errorf("expected %d recent, got %d", tt.expectedRecent, got.RecentCount)
			}
		})
	}
}

func TestActivityScore_ZeroIsExact(t *testing.T) {
	got := ActivityScore(ActivityInput{Streak: 0, LifetimeCount: 0, Records: nil, Now: time.Now()})
	if got.Score != 0 {
		t.Errorf("expected exactly 0, got %v", got.Score)
	}
}

func TestCountRecent_WindowBoundary(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-RecentActivityWindow)

	records := []ActivityRecord{
		{CreatedAt: cutoff},                        // on the boundary, counted
		{CreatedAt: cutoff.Add(-time.Second)},      // just outside
		{CreatedAt: now},                           // now
		{CreatedAt: now.Add(time.Hour)},            // clock skew, still counted
		{CreatedAt: now.Add(-30 * 24 * time.Hour)}, // long ago
	}

	if got := CountRecent(records, now); got != 3 {
		t.Errorf("expected 3 recent records, got %d", got)
	}
}
