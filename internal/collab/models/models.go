package models

import "time"

// User is the identity record resolved from the raw-email bearer token.
// Identity management itself lives outside this service; we only read it.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name      string    `json:"name" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomKind distinguishes study-group rooms from note-sharing rooms
type RoomKind string

const (
	RoomStudyGroup RoomKind = "study_group"
	RoomNoteShare  RoomKind = "note_share"
)

// Room is an ephemeral named group of connected users. It exists only in
// memory: created on first join, destroyed when the last member leaves.
type Room struct {
	ID           string
	Kind         RoomKind
	Members      map[string]bool // userID set
	CreatedAt    time.Time
	LastActivity time.Time
	Metadata     map[string]string
}

// PresenceStatus represents the status of user presence
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceEvent is the transient payload broadcast when a user's presence
// changes. It is never stored.
type PresenceEvent struct {
	UserID    string         `json:"user_id"`
	Status    PresenceStatus `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// InvitationStatus is the tri-state lifecycle of an invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// Invitation is a durable record asking a user to join a note-sharing room.
// It outlives both the Room and either user's Session; the live websocket
// nudge is only an optimization on top of it.
type Invitation struct {
	ID         string           `json:"id" gorm:"primaryKey;size:36"`
	FromUserID string           `json:"from_user_id" gorm:"size:36;not null;index"`
	ToUserID   string           `json:"to_user_id" gorm:"size:36;not null;index"`
	RoomID     string           `json:"room_id" gorm:"size:100;not null"`
	NoteTitle  string           `json:"note_title" gorm:"size:255"`
	Status     InvitationStatus `json:"status" gorm:"size:20;default:'pending'"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (Invitation) TableName() string {
	return "invitations"
}
