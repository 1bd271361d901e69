package domain

import "testing"

func TestComplementaryFromOverlap_SweetSpot(t *testing.T) {
	tests := []struct {
		overlap  float64
		expected float64
	}{
		{0.0, 0.5},
		{0.2, 0.7},
		{0.3, 1.0},
		{0.5, 1.0},
		{0.7, 1.0},
		{0.8, 0.84},
		{1.0, 0.8},
	}

	for _, tt := range tests {
		got := complementaryFromOverlap(tt.overlap)
		if !approxEqual(got, tt.expected) {
			t.Errorf("complementaryFromOverlap(%f) = %f, expected %f", tt.overlap, got, tt.expected)
		}
	}
}

func TestComplementaryScore(t *testing.T) {
	tests := []struct {
		name      string
		user      []string
		candidate []string
		expected  float64
	}{
		{"user_empty", nil, []string{"go"}, 0.5},
		{"candidate_empty", []string{"go"}, nil, 0.5},
		{"both_empty", nil, nil, 0.5},
		{"identical_goals_penalized", []string{"go", "rust"}, []string{"Rust", "go"}, 0.8},
		{"disjoint", []string{"go"}, []string{"design"}, 0.5},
		{"partial_overlap", []string{"a", "b"}, []string{"b", "c"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComplementaryScore(tt.user, tt.candidate)
			if !approxEqual(got, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}
