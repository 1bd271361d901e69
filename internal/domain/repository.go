package domain

import (
	"context"
	"time"
)

// UserRepository persists learner profiles.
type UserRepository interface {
	FindByID(ctx context.Context, id UserID) (*User, error)
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByUsername(ctx context.Context, username Username) (*User, error)
	// FindByIDs returns users in input order, silently skipping missing ids.
	FindByIDs(ctx context.Context, ids []UserID) ([]*User, error)
	Save(ctx context.Context, user *User) error
	Exists(ctx context.Context, id UserID) (bool, error)
}

// CommunityRepository persists pods.
type CommunityRepository interface {
	FindByID(ctx context.Context, id CommunityID) (*Community, error)
	FindBySlug(ctx context.Context, slug Slug) (*Community, error)
	// FindByIDs returns communities in input order, silently skipping missing ids.
	FindByIDs(ctx context.Context, ids []CommunityID) ([]*Community, error)
	Save(ctx context.Context, community *Community) error
	Exists(ctx context.Context, id CommunityID) (bool, error)
	// ListActive returns active pods, largest first.
	ListActive(ctx context.Context, limit, offset int) ([]*Community, error)
}

// MembershipRepository links users to pods.
type MembershipRepository interface {
	// Add creates the membership. returns false when it already existed.
	Add(ctx context.Context, m Membership) (bool, error)
	IsMember(ctx context.Context, communityID CommunityID, userID UserID) (bool, error)
	// ListMemberIDs returns members of a pod in join order.
	ListMemberIDs(ctx context.Context, communityID CommunityID, limit int) ([]UserID, error)
	// ListPeerIDs returns users sharing at least one active pod with the user, excluding the user.
	ListPeerIDs(ctx context.Context, userID UserID, limit int) ([]UserID, error)
	// CommunityTags returns the slugs of the active pods each user belongs to.
	CommunityTags(ctx context.Context, userIDs []UserID) (map[UserID][]string, error)
}

// ActivityEventRepository persists activity events.
type ActivityEventRepository interface {
	Save(ctx context.Context, event *ActivityEvent) error
	SaveBatch(ctx context.Context, events []*ActivityEvent) error
	// FindRecordsSince returns contribution records authored by the users at or after since.
	FindRecordsSince(ctx context.Context, userIDs []UserID, since time.Time) ([]ActivityRecord, error)
}

// PartnershipRepository persists accountability partnerships.
type PartnershipRepository interface {
	// Create inserts a new partnership, failing with ErrAlreadyPartnered when
	// either user already holds an active partnership in the same pod.
	Create(ctx context.Context, p *Partnership) error
	// Save persists status changes of an existing partnership.
	Save(ctx context.Context, p *Partnership) error
	FindByID(ctx context.Context, id PartnershipID) (*Partnership, error)
	// FindActiveByUser returns the user's active partnership in the pod, or ErrNotFound.
	FindActiveByUser(ctx context.Context, communityID CommunityID, userID UserID) (*Partnership, error)
	// ActivePartnerIDs returns every user holding an active partnership in the pod.
	ActivePartnerIDs(ctx context.Context, communityID CommunityID) (map[UserID]bool, error)
}
