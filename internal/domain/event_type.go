package domain

import "errors"

// EventType is the kind of activity a learner records inside a pod.
type EventType string

const (
	EventTypePost     EventType = "post"
	EventTypeComment  EventType = "comment"
	EventTypeCheckIn  EventType = "check_in"
	EventTypeReaction EventType = "reaction"
)

var ErrInvalidEventType = errors.New("invalid event type")

// contributes marks which kinds keep a streak alive and count as recent activity.
// a kind missing from the map is not an event type at all.
var contributes = map[EventType]bool{
	EventTypePost:     true,
	EventTypeComment:  true,
	EventTypeCheckIn:  true,
	EventTypeReaction: false,
}

// ParseEventType is case sensitive.
func ParseEventType(s string) (EventType, error) {
	if _, ok := contributes[EventType(s)]; !ok {
		return "", ErrInvalidEventType
	}
	return EventType(s), nil
}

func (e EventType) String() string { return string(e) }

func (e EventType) IsValid() bool {
	_, ok := contributes[e]
	return ok
}

// IsContribution is false for reactions.
func (e EventType) IsContribution() bool { return contributes[e] }

// ContributionEventTypes is used to filter contribution records in queries.
func ContributionEventTypes() []EventType {
	return []EventType{EventTypePost, EventTypeComment, EventTypeCheckIn}
}
