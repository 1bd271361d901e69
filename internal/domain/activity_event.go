package domain

import (
	"encoding/json"
	"errors"
	"maps"
	"time"
)

var (
	ErrEventCommunityEmpty = errors.New("event must have a community id")
	ErrEventUserEmpty      = errors.New("event must have an author")
)

// ActivityEvent is one thing a learner did inside a pod. it never changes after
// creation; the matching engine only reads its author and timestamp.
type ActivityEvent struct {
	id          ActivityID
	communityID CommunityID
	userID      UserID
	eventType   EventType
	metadata    map[string]any
	createdAt   time.Time
}

// NewActivityEvent validates the event and stamps it at createdAt in utc.
// metadata is copied.
func NewActivityEvent(
	communityID CommunityID,
	userID UserID,
	eventType EventType,
	metadata map[string]any,
	createdAt time.Time,
) (*ActivityEvent, error) {
	switch {
	case communityID.IsZero():
		return nil, ErrEventCommunityEmpty
	case userID.IsZero():
		return nil, ErrEventUserEmpty
	case !eventType.IsValid():
		return nil, ErrInvalidEventType
	}

	return &ActivityEvent{
		id:          NewActivityID(),
		communityID: communityID,
		userID:      userID,
		eventType:   eventType,
		metadata:    maps.Clone(metadata),
		createdAt:   createdAt.UTC(),
	}, nil
}

// ReconstructActivityEvent rebuilds a stored event without validation.
func ReconstructActivityEvent(
	id ActivityID,
	communityID CommunityID,
	userID UserID,
	eventType EventType,
	metadata map[string]any,
	createdAt time.Time,
) *ActivityEvent {
	return &ActivityEvent{
		id:          id,
		communityID: communityID,
		userID:      userID,
		eventType:   eventType,
		metadata:    metadata,
		createdAt:   createdAt,
	}
}

func (e *ActivityEvent) ID() ActivityID           { return e.id }
func (e *ActivityEvent) CommunityID() CommunityID { return e.communityID }
func (e *ActivityEvent) UserID() UserID           { return e.userID }
func (e *ActivityEvent) EventType() EventType     { return e.eventType }
func (e *ActivityEvent) Metadata() map[string]any { return maps.Clone(e.metadata) }
func (e *ActivityEvent) CreatedAt() time.Time     { return e.createdAt }

// MetadataJSON encodes the metadata for the jsonb column. nil encodes as null.
func (e *ActivityEvent) MetadataJSON() ([]byte, error) {
	return json.Marshal(e.metadata)
}

// Record is the view the matching engine scores.
func (e *ActivityEvent) Record() ActivityRecord {
	return ActivityRecord{AuthorID: e.userID, CreatedAt: e.createdAt}
}
