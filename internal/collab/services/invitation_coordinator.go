package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/collab-server/internal/collab/metrics"
	"github.com/studyhub/collab-server/internal/collab/models"
)

// InvitationStore is the durable persistence collaborator for invitations
type InvitationStore interface {
	Create(inv *models.Invitation) error
	GetByID(id string) (*models.Invitation, error)
	// Transition moves a pending invitation to a terminal status. It
	// reports false when the invitation was not pending anymore.
	Transition(id string, status models.InvitationStatus) (bool, error)
	ListPendingForUser(userID string) ([]*models.Invitation, error)
}

// UserStore resolves invitation participants
type UserStore interface {
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// SendOutcome is the result of SendInvitation. Delivered reflects only the
// live nudge; the durable record is the source of truth either way.
type SendOutcome struct {
	InvitationID string `json:"invitation_id"`
	Delivered    bool   `json:"delivered"`
}

// InvitationCoordinator runs the invite handshake: write the durable record
// first, then try a low-latency nudge over the relay. A recipient being
// offline never fails the caller; only an unknown recipient or a store
// failure does.
type InvitationCoordinator struct {
	invitations InvitationStore
	users       UserStore
	relay       *SignalRelay
}

// NewInvitationCoordinator creates a coordinator
func NewInvitationCoordinator(invitations InvitationStore, users UserStore, relay *SignalRelay) *InvitationCoordinator {
	return &InvitationCoordinator{
		invitations: invitations,
		users:       users,
		relay:       relay,
	}
}

// SendInvitation invites toUserID into roomID. The recipient must resolve
// to a known user before anything is written (ErrRecipientUnknown). The
// durable write is awaited; the nudge is not.
func (c *InvitationCoordinator) SendInvitation(fromUserID, toUserID, roomID, noteTitle string) (*SendOutcome, error) {
	sender, err := c.users.GetByID(fromUserID)
	if err != nil {
		return nil, err
	}
	if _, err := c.users.GetByID(toUserID); err != nil {
		return nil, ErrRecipientUnknown
	}

	inv := &models.Invitation{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		RoomID:     roomID,
		NoteTitle:  noteTitle,
		Status:     models.InvitationPending,
		CreatedAt:  time.Now(),
	}

	if err := c.invitations.Create(inv); err != nil {
		return nil, err
	}
	metrics.InvitationsSent.Inc()

	result := c.relay.Unicast(toUserID, NewEvent(EventNoteInvitationReceived, map[string]interface{}{
		"fromUserId":   fromUserID,
		"fromUserName": sender.Name,
		"noteTitle":    noteTitle,
		"roomId":       roomID,
		"timestamp":    inv.CreatedAt.UnixMilli(),
	}))

	if result.Delivered {
		metrics.InvitationsDelivered.Inc()
	} else {
		// Not an error: the recipient will see the pending record on
		// their next invitations query.
		log.Printf("[InvitationCoordinator] recipient %s offline, invitation %s recorded only", toUserID, inv.ID)
	}

	return &SendOutcome{InvitationID: inv.ID, Delivered: result.Delivered}, nil
}

// AcceptInvitation transitions a pending invitation to accepted. Accepting
// twice fails with ErrInvalidInvitationState; the status stays accepted.
func (c *InvitationCoordinator) AcceptInvitation(invitationID string) error {
	return c.transition(invitationID, models.InvitationAccepted)
}

// RejectInvitation transitions a pending invitation to rejected
func (c *InvitationCoordinator) RejectInvitation(invitationID string) error {
	return c.transition(invitationID, models.InvitationRejected)
}

func (c *InvitationCoordinator) transition(invitationID string, status models.InvitationStatus) error {
	if _, err := c.invitations.GetByID(invitationID); err != nil {
		return err
	}

	ok, err := c.invitations.Transition(invitationID, status)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidInvitationState
	}

	log.Printf("[InvitationCoordinator] invitation %s -> %s", invitationID, status)
	return nil
}

// PendingInvitations lists the durable pending invitations for a recipient
func (c *InvitationCoordinator) PendingInvitations(userID string) ([]*models.Invitation, error) {
	return c.invitations.ListPendingForUser(userID)
}
