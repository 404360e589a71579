package session

import "time"

// EventType names a session state change.
type EventType string

// Event types published to listeners.
const (
	EventScreenChanged     EventType = "screen_changed"
	EventProfileCreated    EventType = "profile_created"
	EventSessionReset      EventType = "session_reset"
	EventMatchesLoading    EventType = "matches_loading"
	EventMatchesUpdated    EventType = "matches_updated"
	EventMatchesFailed     EventType = "matches_failed"
	EventMatchDecided      EventType = "match_decided"
	EventActivitiesChanged EventType = "activities_changed"
	EventChatOpened        EventType = "chat_opened"
	EventChatMessage       EventType = "chat_message"
)

// Event describes one state change of a session.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
	Data      any       `json:"data,omitempty"`
}

// Listener receives events after the session lock is released. Listeners
// must not block for long.
type Listener func(Event)
