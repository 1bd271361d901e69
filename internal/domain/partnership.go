package domain

import (
	"errors"
	"time"
)

// PartnershipStatus tracks whether a partnership is still running.
type PartnershipStatus string

const (
	PartnershipActive PartnershipStatus = "active"
	PartnershipEnded  PartnershipStatus = "ended"
)

var (
	ErrSelfPartnership       = errors.New("a user cannot partner with themselves")
	ErrPartnershipScopeEmpty = errors.New("partnership must belong to a community")
	ErrPartnershipEnded      = errors.New("partnership already ended")
	ErrAlreadyPartnered      = errors.New("user already has an active partner in this community")
)

// Partnership is an exclusive accountability pairing of two users within one pod.
type Partnership struct {
	id          PartnershipID
	communityID CommunityID
	userA       UserID
	userB       UserID
	score       int
	status      PartnershipStatus
	createdAt   time.Time
	endedAt     *time.Time
}

// NewPartnership pairs two users inside a community.
func NewPartnership(communityID CommunityID, userA, userB UserID, score int) (*Partnership, error) {
	if communityID.IsZero() {
		return nil, ErrPartnershipScopeEmpty
	}
	if userA.IsZero() || userB.IsZero() {
		return nil, ErrInvalidInput
	}
	if userA == userB {
		return nil, ErrSelfPartnership
	}

	return &Partnership{
		id:          NewPartnershipID(),
		communityID: communityID,
		userA:       userA,
		userB:       userB,
		score:       max(0, min(score, 100)),
		status:      PartnershipActive,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructPartnership recreates a Partnership from stored data.
func ReconstructPartnership(
	id PartnershipID,
	communityID CommunityID,
	userA UserID,
	userB UserID,
	score int,
	status PartnershipStatus,
	createdAt time.Time,
	endedAt *time.Time,
) *Partnership {
	return &Partnership{
		id:          id,
		communityID: communityID,
		userA:       userA,
		userB:       userB,
		score:       score,
		status:      status,
		createdAt:   createdAt,
		endedAt:     endedAt,
	}
}

func (p *Partnership) ID() PartnershipID         { return p.id }
func (p *Partnership) CommunityID() CommunityID  { return p.communityID }
func (p *Partnership) UserA() UserID             { return p.userA }
func (p *Partnership) UserB() UserID             { return p.userB }
func (p *Partnership) Score() int                { return p.score }
func (p *Partnership) Status() PartnershipStatus { return p.status }
func (p *Partnership) CreatedAt() time.Time      { return p.createdAt }
func (p *Partnership) EndedAt() *time.Time       { return p.endedAt }

// IsActive returns true while the partnership has not been ended.
func (p *Partnership) IsActive() bool {
	return p.status == PartnershipActive
}

// Involves reports whether the user is one of the two partners.
func (p *Partnership) Involves(id UserID) bool {
	return p.userA == id || p.userB == id
}

// PartnerOf returns the other participant. the second value is false if id is not a participant.
func (p *Partnership) PartnerOf(id UserID) (UserID, bool) {
	switch id {
	case p.userA:
		return p.userB, true
	case p.userB:
		return p.userA, true
	}
	return UserID{}, false
}

// End closes the partnership. only participants may end it.
func (p *Partnership) End(by UserID) error {
	if !p.Involves(by) {
		return ErrForbidden
	}
	if !p.IsActive() {
		return ErrPartnershipEnded
	}

	now := time.Now().UTC()
	p.status = PartnershipEnded
	p.endedAt = &now
	return nil
}
