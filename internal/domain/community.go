package domain

import (
	"errors"
	"time"
)

// Community represents a pod: a small learning group that scopes matching.
// the slug doubles as the pod's membership tag for similarity scoring.
type Community struct {
	id          CommunityID
	slug        Slug
	name        string
	description string
	creatorID   UserID
	isActive    bool
	memberCount int
	createdAt   time.Time
	updatedAt   time.Time
}

var (
	ErrCommunityNameEmpty    = errors.New("community name cannot be empty")
	ErrCommunityNameTooLong  = errors.New("community name must be at most 255 characters")
	ErrCommunityCreatorEmpty = errors.New("community must have a creator")
	ErrCommunityInactive     = errors.New("community is not active")
	ErrNotMember             = errors.New("user is not a member of this community")
)

func validateCommunityName(name string) error {
	if name == "" {
		return ErrCommunityNameEmpty
	}
	if len(name) > 255 {
		return ErrCommunityNameTooLong
	}
	return nil
}

// NewCommunity creates a new Community with the required fields.
func NewCommunity(slug Slug, name, description string, creatorID UserID) (*Community, error) {
	if err := validateCommunityName(name); err != nil {
		return nil, err
	}
	if creatorID.IsZero() {
		return nil, ErrCommunityCreatorEmpty
	}

	now := time.Now().UTC()
	return &Community{
		id:          NewCommunityID(),
		slug:        slug,
		name:        name,
		description: description,
		creatorID:   creatorID,
		isActive:    true,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructCommunity recreates a Community from stored data.
// use this when loading from database, not for creating new communities.
func ReconstructCommunity(
	id CommunityID,
	slug Slug,
	name string,
	description string,
	creatorID UserID,
	isActive bool,
	memberCount int,
	createdAt time.Time,
	updatedAt time.Time,
) *Community {
	return &Community{
		id:          id,
		slug:        slug,
		name:        name,
		description: description,
		creatorID:   creatorID,
		isActive:    isActive,
		memberCount: memberCount,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (c *Community) ID() CommunityID      { return c.id }
func (c *Community) Slug() Slug           { return c.slug }
func (c *Community) Name() string         { return c.name }
func (c *Community) Description() string  { return c.description }
func (c *Community) CreatorID() UserID    { return c.creatorID }
func (c *Community) IsActive() bool       { return c.isActive }
func (c *Community) MemberCount() int     { return c.memberCount }
func (c *Community) CreatedAt() time.Time { return c.createdAt }
func (c *Community) UpdatedAt() time.Time { return c.updatedAt }

// Deactivate marks the community as inactive.
func (c *Community) Deactivate() {
	c.isActive = false
	c.updatedAt = time.Now().UTC()
}

// UpdateDetails updates the community's descriptive fields.
func (c *Community) UpdateDetails(name, description string) error {
	if err := validateCommunityName(name); err != nil {
		return err
	}
	c.name = name
	c.description = description
	c.updatedAt = time.Now().UTC()
	return nil
}

// Membership links a user to a community.
type Membership struct {
	CommunityID CommunityID
	UserID      UserID
	JoinedAt    time.Time
}
