package services

import (
	"log"
	"time"

	"github.com/studyhub/collab-server/internal/collab/metrics"
	"github.com/studyhub/collab-server/internal/collab/models"
)

// SignalRelay delivers realtime events to users and rooms. Delivery is
// at-most-once and fire-and-forget: each recipient gets its own goroutine,
// no ordering holds across recipients, and a full client buffer simply
// drops the event.
type SignalRelay struct {
	registry *PresenceRegistry
	rooms    *RoomManager

	// delay simulates per-recipient network latency, uncorrelated across
	// recipients. Zero in tests.
	delay time.Duration
}

// DeliveryResult reports the outcome of a unicast. Non-delivery is data,
// not an error; callers that need a guarantee fall back to durable state.
type DeliveryResult struct {
	Delivered bool `json:"delivered"`
}

// NewSignalRelay creates a relay resolving recipients through the given
// registry and room membership through the given manager.
func NewSignalRelay(registry *PresenceRegistry, rooms *RoomManager, delay time.Duration) *SignalRelay {
	return &SignalRelay{
		registry: registry,
		rooms:    rooms,
		delay:    delay,
	}
}

// Unicast delivers an event to a single user if the registry reports a live
// session. The call returns before the event is processed; Delivered only
// means a session existed at send time.
func (r *SignalRelay) Unicast(targetUserID string, event Event) DeliveryResult {
	conn, ok := r.registry.ConnOf(targetUserID)
	if !ok {
		return DeliveryResult{Delivered: false}
	}

	r.deliver(conn, event)
	return DeliveryResult{Delivered: true}
}

// BroadcastToRoom delivers an event to every current member of the room
// except excludeUserID. Membership is snapshotted at call time; a member
// leaving between snapshot and delivery may still receive a stale event
// (bounded staleness, accepted behavior).
func (r *SignalRelay) BroadcastToRoom(roomID string, event Event, excludeUserID string) {
	members, err := r.rooms.MembersOf(roomID)
	if err != nil {
		log.Printf("[SignalRelay] broadcast to unknown room %s dropped", roomID)
		return
	}

	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		conn, ok := r.registry.ConnOf(userID)
		if !ok {
			continue
		}
		r.deliver(conn, event)
	}
}

// BroadcastPresence notifies every session except the subject of a
// presence change
func (r *SignalRelay) BroadcastPresence(event models.PresenceEvent, excludeUserID string) {
	wire := NewEvent(EventUserStatusChanged, map[string]interface{}{
		"userId": event.UserID,
		"status": string(event.Status),
	})
	wire.Timestamp = event.Timestamp

	for _, conn := range r.registry.snapshotConns(excludeUserID) {
		r.deliver(conn, wire)
	}
}

// deliver hands the event to the recipient in its own goroutine so
// recipients never block each other or the caller
func (r *SignalRelay) deliver(conn Conn, event Event) {
	delay := r.delay
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		if conn.Send(event) {
			metrics.EventsRelayed.Inc()
		} else {
			metrics.EventsDropped.Inc()
		}
	}()
}
