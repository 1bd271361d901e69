package domain

import (
	"errors"
	"time"
)

// User represents a learner profile.
// goals, streak and post count are what the matching engine reads.
type User struct {
	id                 UserID
	externalID         string // identifier from external auth provider
	username           Username
	displayName        string
	avatarURL          string
	bio                string
	goals              []string
	streak             int
	postCount          int
	lastActiveOn       *time.Time // utc day of the last recorded activity
	hiddenFromMatching bool
	createdAt          time.Time
	updatedAt          time.Time
}

var (
	ErrUserExternalIDEmpty = errors.New("external id cannot be empty")
)

// NewUser creates a new User with the required fields.
func NewUser(externalID string, username Username) (*User, error) {
	if externalID == "" {
		return nil, ErrUserExternalIDEmpty
	}

	now := time.Now().UTC()
	return &User{
		id:         NewUserID(),
		externalID: externalID,
		username:   username,
		goals:      []string{},
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// UserSnapshot carries stored user fields for ReconstructUser.
type UserSnapshot struct {
	ID                 UserID
	ExternalID         string
	Username           Username
	DisplayName        string
	AvatarURL          string
	Bio                string
	Goals              []string
	Streak             int
	PostCount          int
	LastActiveOn       *time.Time
	HiddenFromMatching bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructUser recreates a User from stored data.
// use this when loading from database, not for creating new users.
func ReconstructUser(s UserSnapshot) *User {
	goals := s.Goals
	if goals == nil {
		goals = []string{}
	}
	return &User{
		id:                 s.ID,
		externalID:         s.ExternalID,
		username:           s.Username,
		displayName:        s.DisplayName,
		avatarURL:          s.AvatarURL,
		bio:                s.Bio,
		goals:              goals,
		streak:             max(s.Streak, 0),
		postCount:          max(s.PostCount, 0),
		lastActiveOn:       s.LastActiveOn,
		hiddenFromMatching: s.HiddenFromMatching,
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
	}
}

// ID returns the user's unique identifier.
func (u *User) ID() UserID {
	return u.id
}

// ExternalID returns the external auth provider identifier.
func (u *User) ExternalID() string {
	return u.externalID
}

// Username returns the user's username.
func (u *User) Username() Username {
	return u.username
}

// DisplayName returns the user's display name.
func (u *User) DisplayName() string {
	return u.displayName
}

// AvatarURL returns the user's avatar URL.
func (u *User) AvatarURL() string {
	return u.avatarURL
}

// Bio returns the user's bio.
func (u *User) Bio() string {
	return u.bio
}

// Goals returns a copy of the user's learning goals.
func (u *User) Goals() []string {
	out := make([]string, len(u.goals))
	copy(out, u.goals)
	return out
}

// Streak returns the number of consecutive active days.
func (u *User) Streak() int {
	return u.streak
}

// PostCount returns the lifetime activity count.
func (u *User) PostCount() int {
	return u.postCount
}

// LastActiveOn returns the utc day of the last recorded activity, if any.
func (u *User) LastActiveOn() *time.Time {
	return u.lastActiveOn
}

// HiddenFromMatching returns whether the user opted out of matching.
func (u *User) HiddenFromMatching() bool {
	return u.hiddenFromMatching
}

// CreatedAt returns when the user was created.
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// UpdatedAt returns when the user was last updated.
func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

// UpdateProfile updates the user's descriptive fields.
func (u *User) UpdateProfile(displayName, avatarURL, bio string) {
	u.displayName = displayName
	u.avatarURL = avatarURL
	u.bio = bio
	u.updatedAt = time.Now().UTC()
}

// SetGoals replaces the user's goals after normalizing them.
func (u *User) SetGoals(goals []string) error {
	normalized, err := NormalizeGoals(goals)
	if err != nil {
		return err
	}
	u.goals = normalized
	u.updatedAt = time.Now().UTC()
	return nil
}

// SetHiddenFromMatching toggles the matching opt-out.
func (u *User) SetHiddenFromMatching(hidden bool) {
	u.hiddenFromMatching = hidden
	u.updatedAt = time.Now().UTC()
}

// RecordActivity counts one activity at the given time and advances the streak.
// a second activity on the same utc day keeps the streak, the next day extends it,
// and any gap restarts it at 1.
func (u *User) RecordActivity(at time.Time) {
	day := truncateToDay(at)

	switch {
	case u.lastActiveOn == nil:
		u.streak = 1
	case day.Equal(*u.lastActiveOn):
		// same day, streak unchanged
	case day.Equal(u.lastActiveOn.AddDate(0, 0, 1)):
		u.streak++
	case day.Before(*u.lastActiveOn):
		// late arrival for an earlier day, don't rewind the streak
	default:
		u.streak = 1
	}

	if u.lastActiveOn == nil || day.After(*u.lastActiveOn) {
		u.lastActiveOn = &day
	}
	u.postCount++
	u.updatedAt = time.Now().UTC()
}

// CurrentStreak returns the streak as of now: a streak whose last active day is
// older than yesterday has lapsed and counts as zero.
func (u *User) CurrentStreak(now time.Time) int {
	if u.lastActiveOn == nil {
		return 0
	}
	yesterday := truncateToDay(now).AddDate(0, 0, -1)
	if u.lastActiveOn.Before(yesterday) {
		return 0
	}
	return u.streak
}

// MatchProfile snapshots the user for the matching engine.
func (u *User) MatchProfile(communityTags []string, now time.Time) MatchProfile {
	return MatchProfile{
		ID:                 u.id,
		Communities:        communityTags,
		Goals:              u.Goals(),
		Streak:             u.CurrentStreak(now),
		LifetimeActivity:   u.postCount,
		HiddenFromMatching: u.hiddenFromMatching,
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
