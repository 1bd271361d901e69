package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UserID identifies a learner profile.
// wrapping uuid keeps user ids from being mixed up with community or partnership ids.
type UserID struct {
	value uuid.UUID
}

// NewUserID creates a new random UserID.
func NewUserID() UserID {
	return UserID{value: uuid.New()}
}

// ParseUserID parses a string into a UserID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user id: %w", err)
	}
	return UserID{value: id}, nil
}

// UserIDFromUUID creates a UserID from an existing uuid.
func UserIDFromUUID(id uuid.UUID) UserID {
	return UserID{value: id}
}

// String returns the string representation of the UserID.
func (id UserID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id UserID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the UserID is not set.
func (id UserID) IsZero() bool {
	return id.value == uuid.Nil
}

// MarshalText lets user ids serialize as plain strings in json payloads and map keys.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

// UnmarshalText parses a user id from its string form.
func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CommunityID identifies a pod (community).
type CommunityID struct {
	value uuid.UUID
}

// NewCommunityID creates a new random CommunityID.
func NewCommunityID() CommunityID {
	return CommunityID{value: uuid.New()}
}

// ParseCommunityID parses a string into a CommunityID.
func ParseCommunityID(s string) (CommunityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CommunityID{}, fmt.Errorf("invalid community id: %w", err)
	}
	return CommunityID{value: id}, nil
}

// String returns the string representation of the CommunityID.
func (id CommunityID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id CommunityID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the CommunityID is not set.
func (id CommunityID) IsZero() bool {
	return id.value == uuid.Nil
}

// ActivityID identifies a single recorded activity (post, check-in, ...).
type ActivityID struct {
	value uuid.UUID
}

// NewActivityID creates a new random ActivityID.
func NewActivityID() ActivityID {
	return ActivityID{value: uuid.New()}
}

// ParseActivityID parses a string into an ActivityID.
func ParseActivityID(s string) (ActivityID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActivityID{}, fmt.Errorf("invalid activity id: %w", err)
	}
	return ActivityID{value: id}, nil
}

// String returns the string representation of the ActivityID.
func (id ActivityID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id ActivityID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the ActivityID is not set.
func (id ActivityID) IsZero() bool {
	return id.value == uuid.Nil
}

// PartnershipID identifies an accountability partnership.
type PartnershipID struct {
	value uuid.UUID
}

// NewPartnershipID creates a new random PartnershipID.
func NewPartnershipID() PartnershipID {
	return PartnershipID{value: uuid.New()}
}

// ParsePartnershipID parses a string into a PartnershipID.
func ParsePartnershipID(s string) (PartnershipID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PartnershipID{}, fmt.Errorf("invalid partnership id: %w", err)
	}
	return PartnershipID{value: id}, nil
}

// String returns the string representation of the PartnershipID.
func (id PartnershipID) String() string {
	return id.value.String()
}

// UUID returns the underlying uuid value.
func (id PartnershipID) UUID() uuid.UUID {
	return id.value
}

// IsZero returns true if the PartnershipID is not set.
func (id PartnershipID) IsZero() bool {
	return id.value == uuid.Nil
}

// Slug represents a url-friendly pod identifier, also used as the pod's matching tag.
// must be lowercase, alphanumeric with hyphens, 3-100 chars.
type Slug struct {
	value string
}

var (
	ErrSlugEmpty    = errors.New("slug cannot be empty")
	ErrSlugTooShort = errors.New("slug must be at least 3 characters")
	ErrSlugTooLong  = errors.New("slug must be at most 100 characters")
	ErrSlugInvalid  = errors.New("slug must contain only lowercase letters, numbers, and hyphens")
)

// NewSlug creates a new Slug from a string, validating the format.
func NewSlug(s string) (Slug, error) {
	switch {
	case s == "":
		return Slug{}, ErrSlugEmpty
	case len(s) < 3:
		return Slug{}, ErrSlugTooShort
	case len(s) > 100:
		return Slug{}, ErrSlugTooLong
	}

	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return Slug{}, ErrSlugInvalid
		}
	}

	return Slug{value: s}, nil
}

// SlugFromTrusted creates a Slug without validation.
// only use this when loading from database where data is already validated.
func SlugFromTrusted(s string) Slug {
	return Slug{value: s}
}

// String returns the string representation of the Slug.
func (s Slug) String() string {
	return s.value
}

// Username represents a validated username.
// must be 3-50 chars, alphanumeric with underscores.
type Username struct {
	value string
}

var (
	ErrUsernameEmpty    = errors.New("username cannot be empty")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrUsernameTooLong  = errors.New("username must be at most 50 characters")
	ErrUsernameInvalid  = errors.New("username must contain only letters, numbers, and underscores")
)

// NewUsername creates a new Username from a string, validating the format.
func NewUsername(s string) (Username, error) {
	switch {
	case s == "":
		return Username{}, ErrUsernameEmpty
	case len(s) < 3:
		return Username{}, ErrUsernameTooShort
	case len(s) > 50:
		return Username{}, ErrUsernameTooLong
	}

	for _, c := range s {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return Username{}, ErrUsernameInvalid
		}
	}

	return Username{value: s}, nil
}

// UsernameFromTrusted creates a Username without validation.
// only use this when loading from database where data is already validated.
func UsernameFromTrusted(s string) Username {
	return Username{value: s}
}

// String returns the string representation of the Username.
func (u Username) String() string {
	return u.value
}

// Goal limits.
const (
	MaxGoals      = 10
	MaxGoalLength = 100
)

var (
	ErrTooManyGoals = errors.New("at most 10 goals are allowed")
	ErrGoalTooLong  = errors.New("goals must be at most 100 characters")
)

// NormalizeGoals trims goals, drops blanks and removes case-insensitive duplicates.
// the first spelling of a goal wins so the user's casing is preserved.
func NormalizeGoals(goals []string) ([]string, error) {
	seen := make(map[string]bool, len(goals))
	out := make([]string, 0, len(goals))

	for _, g := range goals {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if len([]rune(g)) > MaxGoalLength {
			return nil, ErrGoalTooLong
		}
		key := normalizeTerm(g)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}

	if len(out) > MaxGoals {
		return nil, ErrTooManyGoals
	}
	return out, nil
}
