package application

import (
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
)

// ProfileView is the caller-facing shape of a user profile.
type ProfileView struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"display_name"`
	AvatarURL          string     `json:"avatar_url,omitempty"`
	Bio                string     `json:"bio"`
	Goals              []string   `json:"goals"`
	Streak             int        `json:"streak"`
	PostCount          int        `json:"post_count"`
	LastActiveOn       *time.Time `json:"last_active_on,omitempty"`
	HiddenFromMatching bool       `json:"hidden_from_matching"`
}

func profileView(u *domain.User, now time.Time) ProfileView {
	return ProfileView{
		ID:                 u.ID().String(),
		Username:           u.Username().String(),
		DisplayName:        u.DisplayName(),
		AvatarURL:          u.AvatarURL(),
		Bio:                u.Bio(),
		Goals:              u.Goals(),
		Streak:             u.CurrentStreak(now),
		PostCount:          u.PostCount(),
		LastActiveOn:       u.LastActiveOn(),
		HiddenFromMatching: u.HiddenFromMatching(),
	}
}

// CommunityView is the public shape of a pod.
type CommunityView struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	MemberCount int       `json:"member_count"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func communityView(c *domain.Community) CommunityView {
	return CommunityView{
		ID:          c.ID().String(),
		Slug:        c.Slug().String(),
		Name:        c.Name(),
		Description: c.Description(),
		CreatorID:   c.CreatorID().String(),
		MemberCount: c.MemberCount(),
		IsActive:    c.IsActive(),
		CreatedAt:   c.CreatedAt(),
	}
}

// PeerView identifies a matched user.
type PeerView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func peerView(u *domain.User) PeerView {
	return PeerView{
		ID:          u.ID().String(),
		Username:    u.Username().String(),
		DisplayName: u.DisplayName(),
	}
}
