package domain

import (
	"reflect"
	"testing"
	"time"
)

func newTestUser(t *testing.T) *User {
	t.Helper()
	user, err := NewUser("ext-123", UsernameFromTrusted("learner"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return user
}

func TestNewUser_RequiresExternalID(t *testing.T) {
	if _, err := NewUser("", UsernameFromTrusted("learner")); err != ErrUserExternalIDEmpty {
		t.Errorf("expected ErrUserExternalIDEmpty, got %v", err)
	}
}

func TestUser_RecordActivity_Streak(t *testing.T) {
	day := func(d, hour int) time.Time {
		return time.Date(2024, 6, d, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name           string
		activity       []time.Time
		expectedStreak int
		expectedPosts  int
	}{
		{"first_activity", []time.Time{day(1, 9)}, 1, 1},
		{"same_day_twice", []time.Time{day(1, 9), day(1, 22)}, 1, 2},
		{"consecutive_days", []time.Time{day(1, 9), day(2, 9), day(3, 23)}, 3, 3},
		{"gap_resets", []time.Time{day(1, 9), day(2, 9), day(4, 9)}, 1, 3},
		{"late_event_does_not_rewind", []time.Time{day(1, 9), day(2, 9), day(1, 20)}, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := newTestUser(t)
			for _, at := range tt.activity {
				user.RecordActivity(at)
			}

			if user.Streak() != tt.expectedStreak {
				t.Errorf("expected streak %d, got %d", tt.expectedStreak, user.Streak())
			}
			if user.PostCount() != tt.expectedPosts {
				t.Errorf("expected %d posts, got %d", tt.expectedPosts, user.PostCount())
			}
		})
	}
}

func TestUser_CurrentStreak(t *testing.T) {
	user := newTestUser(t)
	user.RecordActivity(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	user.RecordActivity(time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"same_day", time.Date(2024, 6, 2, 18, 0, 0, 0, time.UTC), 2},
		{"next_day_still_alive", time.Date(2024, 6, 3, 23, 0, 0, 0, time.UTC), 2},
		{"lapsed", time.Date(2024, 6, 4, 0, 0, 1, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := user.CurrentStreak(tt.now); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}

	if got := newTestUser(t).CurrentStreak(time.Now()); got != 0 {
		t.Errorf("expected a new user to have no streak, got %d", got)
	}
}

func TestUser_SetGoals(t *testing.T) {
	user := newTestUser(t)

	if err := user.SetGoals([]string{" Go ", "", "go", "Machine Learning"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"Go", "Machine Learning"}
	if !reflect.DeepEqual(user.Goals(), expected) {
		t.Errorf("expected %v, got %v", expected, user.Goals())
	}

	// returned slice is a copy
	user.Goals()[0] = "mutated"
	if user.Goals()[0] != "Go" {
		t.Error("expected goals to be immutable from outside")
	}
}

func TestUser_MatchProfile(t *testing.T) {
	user := newTestUser(t)
	_ = user.SetGoals([]string{"go"})
	user.SetHiddenFromMatching(true)
	user.RecordActivity(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))

	p := user.MatchProfile([]string{"pod"}, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	if p.ID != user.ID() || p.Streak != 1 || p.LifetimeActivity != 1 || !p.HiddenFromMatching {
		t.Errorf("unexpected profile: %+v", p)
	}
	if !reflect.DeepEqual(p.Communities, []string{"pod"}) || !reflect.DeepEqual(p.Goals, []string{"go"}) {
		t.Errorf("unexpected tags or goals: %+v", p)
	}
}
