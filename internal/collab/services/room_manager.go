package services

import (
	"log"
	"sync"
	"time"

	"github.com/studyhub/collab-server/internal/collab/metrics"
	"github.com/studyhub/collab-server/internal/collab/models"
)

// RoomManager owns the ephemeral room table. Rooms are created on first
// join and destroyed when the last member leaves; nothing about them is
// persisted.
//
// A user who leaves an emptied room and later joins the same room ID gets a
// brand-new Room with metadata reset. The mobile clients depend on that
// reset, so it stays even though it loses the creator's noteTitle.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	relay *SignalRelay
}

// NewRoomManager creates an empty room table
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*models.Room),
	}
}

// AttachRelay wires the relay used for member notifications
func (m *RoomManager) AttachRelay(relay *SignalRelay) {
	m.relay = relay
}

// CreateOrJoin adds userID to the room, creating it first if needed.
// Joining a room you are already in is a no-op. Always succeeds. Existing
// members (not the joiner) are notified with a user_joined_note event.
func (m *RoomManager) CreateOrJoin(roomID, userID string, kind models.RoomKind, metadata map[string]string) {
	now := time.Now()

	m.mu.Lock()
	room, exists := m.rooms[roomID]
	if !exists {
		room = &models.Room{
			ID:        roomID,
			Kind:      kind,
			Members:   map[string]bool{userID: true},
			CreatedAt: now,
			Metadata:  metadata,
		}
		m.rooms[roomID] = room
		room.LastActivity = now
		total := len(m.rooms)
		m.mu.Unlock()

		metrics.ActiveRooms.Set(float64(total))
		log.Printf("[RoomManager] room %s created by %s (rooms: %d)", roomID, userID, total)
		return
	}

	if room.Members[userID] {
		m.mu.Unlock()
		return
	}

	room.Members[userID] = true
	room.LastActivity = now
	m.mu.Unlock()

	log.Printf("[RoomManager] user %s joined room %s", userID, roomID)

	if m.relay != nil {
		m.relay.BroadcastToRoom(roomID, NewEvent(EventUserJoinedNote, map[string]interface{}{
			"userId":    userID,
			"timestamp": now.UnixMilli(),
		}), userID)
	}
}

// Leave removes userID from the room and notifies remaining members with a
// user_left_note event. An emptied room is deleted. Returns silently if the
// room or the membership does not exist.
func (m *RoomManager) Leave(roomID, userID string) {
	m.mu.Lock()
	room, exists := m.rooms[roomID]
	if !exists || !room.Members[userID] {
		m.mu.Unlock()
		return
	}

	delete(room.Members, userID)
	room.LastActivity = time.Now()

	deleted := false
	if len(room.Members) == 0 {
		delete(m.rooms, roomID)
		deleted = true
	}
	total := len(m.rooms)
	m.mu.Unlock()

	if deleted {
		metrics.ActiveRooms.Set(float64(total))
		log.Printf("[RoomManager] room %s emptied and deleted (rooms: %d)", roomID, total)
		return
	}

	log.Printf("[RoomManager] user %s left room %s", userID, roomID)

	if m.relay != nil {
		m.relay.BroadcastToRoom(roomID, NewEvent(EventUserLeftNote, map[string]interface{}{
			"userId":    userID,
			"timestamp": time.Now().UnixMilli(),
		}), userID)
	}
}

// LeaveAll removes userID from every room it belongs to. Called by the
// presence registry when a session goes away.
func (m *RoomManager) LeaveAll(userID string) {
	for _, roomID := range m.RoomsOf(userID) {
		m.Leave(roomID, userID)
	}
}

// MembersOf returns a snapshot of the room's member set.
// Returns ErrRoomNotFound for rooms that do not exist.
func (m *RoomManager) MembersOf(roomID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	members := make([]string, 0, len(room.Members))
	for userID := range room.Members {
		members = append(members, userID)
	}
	return members, nil
}

// RoomsOf returns the IDs of every room userID belongs to
func (m *RoomManager) RoomsOf(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roomIDs []string
	for roomID, room := range m.rooms {
		if room.Members[userID] {
			roomIDs = append(roomIDs, roomID)
		}
	}
	return roomIDs
}

// RoomsOfKind returns the IDs of every room of the given kind userID
// belongs to
func (m *RoomManager) RoomsOfKind(userID string, kind models.RoomKind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roomIDs []string
	for roomID, room := range m.rooms {
		if room.Kind == kind && room.Members[userID] {
			roomIDs = append(roomIDs, roomID)
		}
	}
	return roomIDs
}

// MetadataOf returns a copy of the room's metadata
func (m *RoomManager) MetadataOf(roomID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	meta := make(map[string]string, len(room.Metadata))
	for k, v := range room.Metadata {
		meta[k] = v
	}
	return meta, nil
}

// Touch updates the room's last-activity timestamp
func (m *RoomManager) Touch(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		room.LastActivity = time.Now()
	}
}

// RoomCount returns the number of live rooms
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
