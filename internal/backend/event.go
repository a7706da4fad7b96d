package backend

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
)

// Action is a document mutation kind carried by realtime events.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is one realtime notification.
type Event struct {
	Events    []string        `json:"events"`
	Channels  []string        `json:"channels"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Is reports whether the event carries the wildcard name for action.
func (e Event) Is(action Action) bool {
	return slices.Contains(e.Events, wildcard(action))
}

// IsDocumentChange reports whether the event is a create, update or delete.
func (e Event) IsDocumentChange() bool {
	return e.Is(ActionCreate) || e.Is(ActionUpdate) || e.Is(ActionDelete)
}

// IsResync reports whether the event asks subscribers to refetch because the
// feed may have missed changes.
func (e Event) IsResync() bool {
	return slices.Contains(e.Events, constants.EventResync)
}

// NewResyncEvent builds the event delivered on channels after a reconnect.
func NewResyncEvent(channels []string) Event {
	return Event{
		Events:   []string{constants.EventResync},
		Channels: slices.Clone(channels),
	}
}

// Matches reports whether the event was published on channel.
func (e Event) Matches(channel string) bool {
	return slices.Contains(e.Channels, channel)
}

func wildcard(action Action) string {
	switch action {
	case ActionCreate:
		return constants.EventDocumentCreate
	case ActionUpdate:
		return constants.EventDocumentUpdate
	case ActionDelete:
		return constants.EventDocumentDelete
	default:
		return ""
	}
}

// DocumentsChannel returns the channel carrying changes to a collection.
func DocumentsChannel(databaseID, collectionID string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents", databaseID, collectionID)
}

// DocumentChannel returns the channel carrying changes to one document.
func DocumentChannel(databaseID, collectionID, documentID string) string {
	return DocumentsChannel(databaseID, collectionID) + "." + documentID
}

// NewDocumentEvent builds the event a backend publishes for a document
// mutation, with the same name set the hosted backend emits.
func NewDocumentEvent(databaseID, collectionID, documentID string, action Action, payload json.RawMessage, at time.Time) Event {
	prefixes := []string{
		fmt.Sprintf("databases.%s.collections.%s.documents.%s", databaseID, collectionID, documentID),
		fmt.Sprintf("databases.%s.collections.%s.documents.*", databaseID, collectionID),
		fmt.Sprintf("databases.%s.collections.*.documents.*", databaseID),
		"databases.*.collections.*.documents.*",
	}
	events := make([]string, 0, len(prefixes)*2)
	for _, p := range prefixes {
		events = append(events, p+"."+string(action), p)
	}
	return Event{
		Events: events,
		Channels: []string{
			"documents",
			DocumentsChannel(databaseID, collectionID),
			DocumentChannel(databaseID, collectionID, documentID),
		},
		Timestamp: strings.Replace(at.UTC().Format(constants.DatetimeFormat), "Z", "+00:00", 1),
		Payload:   payload,
	}
}
