package ws

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MsgTypeUserOnline         MessageType = "user_online"
	MsgTypeJoinStudyGroup     MessageType = "join_study_group"
	MsgTypeJoinNoteRoom       MessageType = "join_note_room"
	MsgTypeSendNoteInvitation MessageType = "send_note_invitation"
	MsgTypeNoteUpdate         MessageType = "note_update"
	MsgTypeVoiceStatusUpdate  MessageType = "voice_status_update"
)

// WSMessage is the client-to-server envelope. Everything the server writes
// back, including invitation_sent acks and errors, uses the services.Event
// envelope instead.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Payload field names are camelCase because the mobile clients speak the
// legacy wire format; do not rename them to snake_case.

// UserOnlinePayload announces the connecting user
type UserOnlinePayload struct {
	UserID string `json:"userId"`
}

// JoinStudyGroupPayload asks to join a study-group room
type JoinStudyGroupPayload struct {
	GroupID string `json:"groupId"`
}

// JoinNoteRoomPayload asks to join a shared-note room. NoteTitle is only
// honored when the join creates the room.
type JoinNoteRoomPayload struct {
	RoomID    string `json:"roomId"`
	NoteTitle string `json:"noteTitle,omitempty"`
}

// SendNoteInvitationPayload carries an invitation request
type SendNoteInvitationPayload struct {
	ToUserID     string `json:"toUserId"`
	FromUserID   string `json:"fromUserId"`
	FromUserName string `json:"fromUserName"`
	NoteTitle    string `json:"noteTitle"`
	RoomID       string `json:"roomId"`
}

// InvitationSentPayload is the application-level ack for send_note_invitation
type InvitationSentPayload struct {
	Success  bool   `json:"success"`
	ToUserID string `json:"toUserId"`
	Error    string `json:"error,omitempty"`
}

// VoiceStatusPayload carries a voice activity change
type VoiceStatusPayload struct {
	IsActive bool `json:"isActive"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
