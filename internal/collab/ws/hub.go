package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/studyhub/collab-server/internal/collab/models"
	"github.com/studyhub/collab-server/internal/collab/services"
)

// Hub owns the websocket side of the collaboration subsystem: it upgrades
// connections, feeds inbound events to the services, and cleans up when a
// connection dies.
type Hub struct {
	registry    *services.PresenceRegistry
	rooms       *services.RoomManager
	relay       *services.SignalRelay
	coordinator *services.InvitationCoordinator

	upgrader   websocket.Upgrader
	conns      map[*websocket.Conn]*Client
	connsMutex sync.RWMutex
	sendBuffer int
}

// NewHub creates a websocket hub wired to the collaboration services
func NewHub(registry *services.PresenceRegistry, rooms *services.RoomManager, relay *services.SignalRelay, coordinator *services.InvitationCoordinator, sendBuffer int) *Hub {
	return &Hub{
		registry:    registry,
		rooms:       rooms,
		relay:       relay,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // mobile webviews send no origin
			},
		},
		conns:      make(map[*websocket.Conn]*Client),
		sendBuffer: sendBuffer,
	}
}

// HandleRequest upgrades an HTTP request and runs the connection until it closes
func (h *Hub) HandleRequest(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h.sendBuffer)

	h.connsMutex.Lock()
	h.conns[conn] = client
	h.connsMutex.Unlock()

	h.handleConnection(conn, client)
}

// ConnCount returns the number of open websocket connections
func (h *Hub) ConnCount() int {
	h.connsMutex.RLock()
	defer h.connsMutex.RUnlock()
	return len(h.conns)
}

func (h *Hub) removeConnection(conn *websocket.Conn) {
	h.connsMutex.Lock()
	delete(h.conns, conn)
	h.connsMutex.Unlock()
}

// handleConnection runs the read loop and tears the session down when it
// ends. The unregister cascade (session removal, room cleanup, offline
// broadcast) runs synchronously in the defer so a disconnect mid-join
// leaves no dangling state.
func (h *Hub) handleConnection(conn *websocket.Conn, client *Client) {
	defer func() {
		h.removeConnection(conn)
		conn.Close()

		// Conn-guarded: an evicted connection closing late must not tear
		// down the session its replacement now owns.
		if userID := client.UserID(); userID != "" {
			h.registry.UnregisterConn(userID, client)
		}
	}()

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump reads messages from the WebSocket connection
func (h *Hub) readPump(conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket] unexpected close: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue // Skip invalid messages
		}

		h.routeMessage(client, msg)
	}
}

// writePump sends messages to the WebSocket connection
func (h *Hub) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// routeMessage routes messages to appropriate handlers
func (h *Hub) routeMessage(client *Client, msg WSMessage) {
	if msg.Type == MsgTypeUserOnline {
		h.handleUserOnline(client, msg)
		return
	}

	// Everything else requires an announced user
	if client.UserID() == "" {
		h.sendError(client, "NOT_ONLINE", "send user_online first")
		return
	}

	switch msg.Type {
	case MsgTypeJoinStudyGroup:
		h.handleJoinStudyGroup(client, msg)
	case MsgTypeJoinNoteRoom:
		h.handleJoinNoteRoom(client, msg)
	case MsgTypeSendNoteInvitation:
		h.handleSendNoteInvitation(client, msg)
	case MsgTypeNoteUpdate:
		h.handleNoteUpdate(client, msg)
	case MsgTypeVoiceStatusUpdate:
		h.handleVoiceStatusUpdate(client, msg)
	}
}

// handleUserOnline registers the connection under the announced user
func (h *Hub) handleUserOnline(client *Client, msg WSMessage) {
	var payload UserOnlinePayload
	if !decodePayload(msg.Payload, &payload) || payload.UserID == "" {
		h.sendError(client, "INVALID_USER_ONLINE", "userId is required")
		return
	}

	// A connection re-announcing as someone else gives up its previous
	// identity; leaving the old session registered would strand a ghost
	// bound to this connection.
	if prev := client.UserID(); prev != "" && prev != payload.UserID {
		h.registry.UnregisterConn(prev, client)
	}

	client.SetUserID(payload.UserID)
	h.registry.Register(payload.UserID, client)
}

// handleJoinStudyGroup joins (or creates) a study-group room
func (h *Hub) handleJoinStudyGroup(client *Client, msg WSMessage) {
	var payload JoinStudyGroupPayload
	if !decodePayload(msg.Payload, &payload) || payload.GroupID == "" {
		h.sendError(client, "INVALID_JOIN", "groupId is required")
		return
	}

	h.rooms.CreateOrJoin(payload.GroupID, client.UserID(), models.RoomStudyGroup, nil)
}

// handleJoinNoteRoom joins (or creates) a shared-note room
func (h *Hub) handleJoinNoteRoom(client *Client, msg WSMessage) {
	var payload JoinNoteRoomPayload
	if !decodePayload(msg.Payload, &payload) || payload.RoomID == "" {
		h.sendError(client, "INVALID_JOIN", "roomId is required")
		return
	}

	var metadata map[string]string
	if payload.NoteTitle != "" {
		metadata = map[string]string{"noteTitle": payload.NoteTitle}
	}

	h.rooms.CreateOrJoin(payload.RoomID, client.UserID(), models.RoomNoteShare, metadata)
}

// handleSendNoteInvitation runs the invite handshake and always acks the
// sender with invitation_sent. An offline recipient is still a success:
// the durable record is what counts.
func (h *Hub) handleSendNoteInvitation(client *Client, msg WSMessage) {
	var payload SendNoteInvitationPayload
	if !decodePayload(msg.Payload, &payload) || payload.ToUserID == "" || payload.RoomID == "" {
		h.sendError(client, "INVALID_INVITATION", "toUserId and roomId are required")
		return
	}

	outcome, err := h.coordinator.SendInvitation(client.UserID(), payload.ToUserID, payload.RoomID, payload.NoteTitle)
	if err != nil {
		ack := InvitationSentPayload{Success: false, ToUserID: payload.ToUserID}
		if errors.Is(err, services.ErrRecipientUnknown) {
			ack.Error = "recipient unknown"
		} else {
			ack.Error = "failed to record invitation"
		}
		h.sendEvent(client, services.EventInvitationSent, ack)
		return
	}

	h.sendEvent(client, services.EventInvitationSent, InvitationSentPayload{
		Success:  true,
		ToUserID: payload.ToUserID,
	})

	if !outcome.Delivered {
		log.Printf("[WebSocket] invitation %s recorded, recipient offline", outcome.InvitationID)
	}
}

// handleNoteUpdate fans a note edit out to the rest of the room
func (h *Hub) handleNoteUpdate(client *Client, msg WSMessage) {
	var data map[string]interface{}
	if !decodePayload(msg.Payload, &data) {
		return
	}

	roomID, _ := data["roomId"].(string)
	if roomID == "" {
		return
	}

	h.rooms.Touch(roomID)
	h.registry.Touch(client.UserID())

	data["userId"] = client.UserID()
	data["timestamp"] = time.Now().UnixMilli()

	h.relay.BroadcastToRoom(roomID, services.NewEvent(services.EventNoteUpdated, data), client.UserID())
}

// handleVoiceStatusUpdate tells every room the speaker is in about the change
func (h *Hub) handleVoiceStatusUpdate(client *Client, msg WSMessage) {
	var payload VoiceStatusPayload
	if !decodePayload(msg.Payload, &payload) {
		return
	}

	userID := client.UserID()
	for _, roomID := range h.rooms.RoomsOf(userID) {
		h.relay.BroadcastToRoom(roomID, services.NewEvent(services.EventVoiceStatusChanged, map[string]interface{}{
			"userId":    userID,
			"isActive":  payload.IsActive,
			"timestamp": time.Now().UnixMilli(),
		}), userID)
	}
}

// ==================== Helper Functions ====================

// decodePayload re-marshals the loosely typed payload into its struct
func decodePayload(payload interface{}, out interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// sendEvent writes a server event straight to this client, same envelope as
// relayed events
func (h *Hub) sendEvent(client *Client, eventType string, data interface{}) {
	client.Send(services.NewEvent(eventType, data))
}

// sendError sends an error event to a client
func (h *Hub) sendError(client *Client, code, message string) {
	h.sendEvent(client, services.EventError, ErrorPayload{Code: code, Message: message})
}
