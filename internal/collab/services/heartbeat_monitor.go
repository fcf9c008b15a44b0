package services

import (
	"log"
	"sync"
	"time"
)

// restPresence is one user's entry in the REST-side presence view
type restPresence struct {
	Online       bool
	FirstSeen    time.Time
	LastActivity time.Time
}

// HeartbeatMonitor maintains the REST-driven presence view, fed by
// heartbeat and explicit online/offline calls rather than socket events.
// It is intentionally independent of the PresenceRegistry and the two can
// disagree.
//
// There is no timeout or eviction: a user who never calls MarkOffline stays
// online in this view forever regardless of heartbeat staleness. Clients
// rely on the explicit transition, so no TTL is added here.
type HeartbeatMonitor struct {
	mu      sync.RWMutex
	entries map[string]*restPresence
}

// NewHeartbeatMonitor creates an empty REST-side presence view
func NewHeartbeatMonitor() *HeartbeatMonitor {
	return &HeartbeatMonitor{
		entries: make(map[string]*restPresence),
	}
}

// RecordHeartbeat updates the user's last-activity timestamp, creating the
// entry (implicitly online) on the first beat.
func (h *HeartbeatMonitor) RecordHeartbeat(userID string) {
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[userID]
	if !ok {
		h.entries[userID] = &restPresence{
			Online:       true,
			FirstSeen:    now,
			LastActivity: now,
		}
		log.Printf("[HeartbeatMonitor] first heartbeat from %s, marked online", userID)
		return
	}

	entry.LastActivity = now
}

// MarkOnline records an explicit online transition
func (h *HeartbeatMonitor) MarkOnline(userID string) {
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[userID]
	if !ok {
		h.entries[userID] = &restPresence{
			Online:       true,
			FirstSeen:    now,
			LastActivity: now,
		}
		return
	}

	entry.Online = true
	entry.LastActivity = now
}

// MarkOffline records an explicit offline transition. The entry is kept so
// LastActivity survives; only the flag flips.
func (h *HeartbeatMonitor) MarkOffline(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, ok := h.entries[userID]; ok {
		entry.Online = false
		entry.LastActivity = time.Now()
	}
}

// IsOnline reports the REST-side view of the user
func (h *HeartbeatMonitor) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.entries[userID]
	return ok && entry.Online
}

// OnlineUsers returns a snapshot of users the REST view considers online
func (h *HeartbeatMonitor) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var users []string
	for userID, entry := range h.entries {
		if entry.Online {
			users = append(users, userID)
		}
	}
	return users
}

// LastActivity returns the user's last recorded activity in this view
func (h *HeartbeatMonitor) LastActivity(userID string) (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.entries[userID]
	if !ok {
		return time.Time{}, false
	}
	return entry.LastActivity, true
}
