package domain

import (
	"strings"
	"testing"
)

func TestNewSlug_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", "ai-builders", nil},
		{"digits", "go-2024", nil},
		{"empty", "", ErrSlugEmpty},
		{"too_short", "ab", ErrSlugTooShort},
		{"too_long", strings.Repeat("a", 101), ErrSlugTooLong},
		{"uppercase", "AI-Builders", ErrSlugInvalid},
		{"spaces", "ai builders", ErrSlugInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, err := NewSlug(tt.input)
			if err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && slug.String() != tt.input {
				t.Errorf("expected %q, got %q", tt.input, slug.String())
			}
		})
	}
}

func TestNewUsername_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid", "ada_lovelace", nil},
		{"empty", "", ErrUsernameEmpty},
		{"too_short", "ab", ErrUsernameTooShort},
		{"too_long", strings.Repeat("a", 51), ErrUsernameTooLong},
		{"hyphen", "ada-lovelace", ErrUsernameInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewUsername(tt.input); err != tt.wantErr {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEventType_Validation(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		valid        bool
		contribution bool
	}{
		{"post", "post", true, true},
		{"comment", "comment", true, true},
		{"check_in", "check_in", true, true},
		{"reaction", "reaction", true, false},
		{"invalid", "invalid_type", false, false},
		{"empty", "", false, false},
		{"uppercase", "POST", false, false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eventType, err := ParseEventType(tt.input)

			if !tt.valid {
				if err == nil {
					t.Error("expected error for invalid event type")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eventType.IsContribution() != tt.contribution {
				t.Errorf("expected contribution=%v", tt.contribution)
			}
		})
	}
}

func TestNormalizeGoals(t *testing.T) {
	tooMany := make([]string, MaxGoals+1)
	for i := range tooMany {
		tooMany[i] = strings.Repeat("x", i+1)
	}

	tests := []struct {
		name     string
		input    []string
		expected int
		wantErr  error
	}{
		{"nil", nil, 0, nil},
		{"blanks_dropped", []string{"", "  ", "go"}, 1, nil},
		{"case_insensitive_dupes", []string{"Go", "go", " GO "}, 1, nil},
		{"max_goals", tooMany[:MaxGoals], MaxGoals, nil},
		{"too_many", tooMany, 0, ErrTooManyGoals},
		{"too_long", []string{strings.Repeat("a", MaxGoalLength+1)}, 0, ErrGoalTooLong},
		{"duplicates_do_not_count_toward_limit", append(tooMany[:MaxGoals:MaxGoals], "X"), MaxGoals, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeGoals(tt.input)
			if err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(got) != tt.expected {
				t.Errorf("expected %d goals, got %d (%v)", tt.expected, len(got), got)
			}
		})
	}
}

func TestUserID_TextRoundTrip(t *testing.T) {
	id := NewUserID()

	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed UserID
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("expected %s, got %s", id, parsed)
	}

	if err := parsed.UnmarshalText([]byte("not-a-uuid")); err == nil {
		t.Error("expected error for malformed id")
	}
}
