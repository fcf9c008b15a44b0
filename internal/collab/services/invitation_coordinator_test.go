package services

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/collab-server/internal/collab/models"
)

// memInvitationStore is an in-memory InvitationStore for coordinator tests
type memInvitationStore struct {
	invitations map[string]*models.Invitation
	order       []string
}

func newMemInvitationStore() *memInvitationStore {
	return &memInvitationStore{invitations: make(map[string]*models.Invitation)}
}

func (s *memInvitationStore) Create(inv *models.Invitation) error {
	cp := *inv
	s.invitations[inv.ID] = &cp
	s.order = append(s.order, inv.ID)
	return nil
}

func (s *memInvitationStore) GetByID(id string) (*models.Invitation, error) {
	inv, ok := s.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memInvitationStore) Transition(id string, status models.InvitationStatus) (bool, error) {
	inv, ok := s.invitations[id]
	if !ok || inv.Status != models.InvitationPending {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

func (s *memInvitationStore) ListPendingForUser(userID string) ([]*models.Invitation, error) {
	var out []*models.Invitation
	for _, id := range s.order {
		inv := s.invitations[id]
		if inv.ToUserID == userID && inv.Status == models.InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memUserStore resolves a fixed user set
type memUserStore struct {
	users map[string]*models.User
}

func newMemUserStore(userIDs ...string) *memUserStore {
	s := &memUserStore{users: make(map[string]*models.User)}
	for _, id := range userIDs {
		s.users[id] = &models.User{ID: id, Email: id + "@studyhub.test", Name: id}
	}
	return s
}

func (s *memUserStore) GetByID(id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, ErrRecipientUnknown
}

func (s *memUserStore) GetByEmail(email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, ErrRecipientUnknown
}

func newCoordinatorStack(userIDs ...string) (*InvitationCoordinator, *memInvitationStore, *PresenceRegistry, *RoomManager) {
	registry, rooms, relay := newTestStack()
	store := newMemInvitationStore()
	coordinator := NewInvitationCoordinator(store, newMemUserStore(userIDs...), relay)
	return coordinator, store, registry, rooms
}

func TestSendInvitationToOnlineRecipient(t *testing.T) {
	coordinator, store, registry, _ := newCoordinatorStack("alice", "bob")

	bob := newFakeConn()
	registry.Register("bob", bob)

	outcome, err := coordinator.SendInvitation("alice", "bob", "note_123", "Biology notes")
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)
	require.NotEmpty(t, outcome.InvitationID)

	// Exactly one nudge, roomId preserved verbatim
	evt, ok := bob.next(t)
	require.True(t, ok, "recipient never received note_invitation_received")
	assert.Equal(t, EventNoteInvitationReceived, evt.Type)

	data := evt.Data.(map[string]interface{})
	assert.Equal(t, "note_123", data["roomId"])
	assert.Equal(t, "alice", data["fromUserId"])
	assert.Equal(t, "Biology notes", data["noteTitle"])
	bob.expectNone(t)

	// Durable record is pending regardless of delivery
	inv, err := store.GetByID(outcome.InvitationID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, inv.Status)
}

func TestSendInvitationToOfflineRecipient(t *testing.T) {
	coordinator, _, _, _ := newCoordinatorStack("carol", "dave")

	outcome, err := coordinator.SendInvitation("carol", "dave", "note_456", "History")
	require.NoError(t, err, "an offline recipient must not fail the caller")
	assert.False(t, outcome.Delivered)

	// The recipient still finds the pending record on a pull query
	pending, err := coordinator.PendingInvitations("dave")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].FromUserID)
	assert.Equal(t, "note_456", pending[0].RoomID)
	assert.Equal(t, models.InvitationPending, pending[0].Status)
}

func TestSendInvitationToUnknownRecipient(t *testing.T) {
	coordinator, store, _, _ := newCoordinatorStack("alice")

	outcome, err := coordinator.SendInvitation("alice", "nobody", "note_1", "x")
	require.ErrorIs(t, err, ErrRecipientUnknown)
	assert.Nil(t, outcome)

	// Fatal before any write
	assert.Empty(t, store.order)
}

func TestAcceptInvitationIsTerminal(t *testing.T) {
	coordinator, store, _, _ := newCoordinatorStack("alice", "bob")

	outcome, err := coordinator.SendInvitation("alice", "bob", "note_1", "x")
	require.NoError(t, err)

	require.NoError(t, coordinator.AcceptInvitation(outcome.InvitationID))

	inv, _ := store.GetByID(outcome.InvitationID)
	assert.Equal(t, models.InvitationAccepted, inv.Status)

	// Re-applying must fail, not silently succeed, and the status holds
	err = coordinator.AcceptInvitation(outcome.InvitationID)
	assert.ErrorIs(t, err, ErrInvalidInvitationState)

	inv, _ = store.GetByID(outcome.InvitationID)
	assert.Equal(t, models.InvitationAccepted, inv.Status)
}

func TestRejectAfterAcceptFails(t *testing.T) {
	coordinator, store, _, _ := newCoordinatorStack("alice", "bob")

	outcome, err := coordinator.SendInvitation("alice", "bob", "note_1", "x")
	require.NoError(t, err)

	require.NoError(t, coordinator.RejectInvitation(outcome.InvitationID))
	assert.ErrorIs(t, coordinator.AcceptInvitation(outcome.InvitationID), ErrInvalidInvitationState)

	inv, _ := store.GetByID(outcome.InvitationID)
	assert.Equal(t, models.InvitationRejected, inv.Status)
}

func TestTransitionUnknownInvitation(t *testing.T) {
	coordinator, _, _, _ := newCoordinatorStack("alice")

	assert.ErrorIs(t, coordinator.AcceptInvitation("missing"), ErrInvitationNotFound)
}

// End-to-end handshake: invite, join, disconnect, empty-room teardown
func TestInvitationHandshakeScenario(t *testing.T) {
	coordinator, _, registry, rooms := newCoordinatorStack("userA", "userB")

	connA := newFakeConn()
	connB := newFakeConn()
	registry.Register("userA", connA)
	registry.Register("userB", connB)
	connA.next(t) // userB came online

	// A creates the note room, then invites B
	rooms.CreateOrJoin("note_123", "userA", models.RoomNoteShare, map[string]string{"noteTitle": "Shared"})

	outcome, err := coordinator.SendInvitation("userA", "userB", "note_123", "Shared")
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)

	evt, ok := connB.next(t)
	require.True(t, ok)
	require.Equal(t, EventNoteInvitationReceived, evt.Type)
	require.Equal(t, "note_123", evt.Data.(map[string]interface{})["roomId"])

	// B accepts and joins the advertised room
	require.NoError(t, coordinator.AcceptInvitation(outcome.InvitationID))
	rooms.CreateOrJoin("note_123", "userB", models.RoomNoteShare, nil)

	members, err := rooms.MembersOf("note_123")
	require.NoError(t, err)
	sort.Strings(members)
	assert.Equal(t, []string{"userA", "userB"}, members)

	// A disconnects; the cascade shrinks membership to B
	registry.Unregister("userA")
	members, err = rooms.MembersOf("note_123")
	require.NoError(t, err)
	assert.Equal(t, []string{"userB"}, members)

	// B leaves; the room ceases to exist
	rooms.Leave("note_123", "userB")
	_, err = rooms.MembersOf("note_123")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
