package domain

import (
	"testing"
	"time"
)

func TestNewActivityEvent_Validation(t *testing.T) {
	community := NewCommunityID()
	user := NewUserID()
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	tests := []struct {
		name        string
		communityID CommunityID
		userID      UserID
		eventType   EventType
		wantErr     error
	}{
		{"valid", community, user, EventTypePost, nil},
		{"missing_community", CommunityID{}, user, EventTypePost, ErrEventCommunityEmpty},
		{"missing_author", community, UserID{}, EventTypeCheckIn, ErrEventUserEmpty},
		{"invalid_type", community, user, EventType("view"), ErrInvalidEventType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := NewActivityEvent(tt.communityID, tt.userID, tt.eventType, nil, at)
			if err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if event.CreatedAt().Location() != time.UTC {
				t.Error("expected created at to be stored in utc")
			}

			record := event.Record()
			if record.AuthorID != user || !record.CreatedAt.Equal(at) {
				t.Errorf("unexpected record: %+v", record)
			}
		})
	}
}

func TestActivityEvent_MetadataJSON(t *testing.T) {
	event, _ := NewActivityEvent(NewCommunityID(), NewUserID(), EventTypePost, nil, time.Now())

	data, err := event.MetadataJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "null" {
		t.Errorf("expected null, got %s", data)
	}

	event, _ = NewActivityEvent(NewCommunityID(), NewUserID(), EventTypePost, map[string]any{"topic": "go"}, time.Now())
	data, _ = event.MetadataJSON()
	if string(data) != `{"topic":"go"}` {
		t.Errorf("unexpected metadata: %s", data)
	}
}

func TestActivityEvent_MetadataIsCopied(t *testing.T) {
	meta := map[string]any{"topic": "go"}
	event, _ := NewActivityEvent(NewCommunityID(), NewUserID(), EventTypeComment, meta, time.Now())

	meta["topic"] = "rust"
	if event.Metadata()["topic"] != "go" {
		t.Error("event metadata changed with the caller's map")
	}

	event.Metadata()["topic"] = "zig"
	if event.Metadata()["topic"] != "go" {
		t.Error("event metadata changed through the accessor")
	}
}
