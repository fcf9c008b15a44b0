package services

import "time"

// Event type constants, client-facing names
const (
	EventUserStatusChanged      = "user_status_changed"
	EventNoteInvitationReceived = "note_invitation_received"
	EventUserJoinedNote         = "user_joined_note"
	EventUserLeftNote           = "user_left_note"
	EventNoteUpdated            = "note_updated"
	EventVoiceStatusChanged     = "voice_status_changed"
	EventInvitationSent         = "invitation_sent"
	EventError                  = "error"
)

// Event is a single server-to-client realtime message. Payloads are the
// typed structs from the ws package or plain maps; the relay never inspects
// them.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Conn is the live connection handle a Session binds to. Send must not
// block: implementations queue the event and report whether it was accepted
// (false means the client's buffer was full and the event was dropped,
// which is fine under at-most-once delivery).
type Conn interface {
	Send(event Event) bool
}
