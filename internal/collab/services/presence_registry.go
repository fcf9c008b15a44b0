package services

import (
	"log"
	"sync"
	"time"

	"github.com/studyhub/collab-server/internal/collab/metrics"
	"github.com/studyhub/collab-server/internal/collab/models"
)

// Session binds a user to one live connection. Owned exclusively by the
// PresenceRegistry and exists only while the connection is up.
type Session struct {
	UserID       string
	Conn         Conn
	ConnectedAt  time.Time
	LastActivity time.Time
}

// PresenceRegistry is the authoritative socket-side view of who is online.
// A second, independent REST-side view lives in HeartbeatMonitor; the two
// are deliberately never merged (see ReportInconsistencies).
type PresenceRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    *RoomManager
	relay    *SignalRelay
}

// NewPresenceRegistry creates a registry. The room manager is used only to
// cascade membership cleanup when a session goes away.
func NewPresenceRegistry(rooms *RoomManager) *PresenceRegistry {
	return &PresenceRegistry{
		sessions: make(map[string]*Session),
		rooms:    rooms,
	}
}

// AttachRelay wires the relay used for presence broadcasts. Wired after
// construction because the relay itself resolves recipients through this
// registry.
func (p *PresenceRegistry) AttachRelay(relay *SignalRelay) {
	p.relay = relay
}

// Register inserts or replaces the session for userID and broadcasts an
// online presence event to every other session. A user connecting twice
// silently evicts the first connection from the registry with no notice to
// the evicted side (last-connect-wins). Register never fails.
func (p *PresenceRegistry) Register(userID string, conn Conn) {
	now := time.Now()

	p.mu.Lock()
	if _, exists := p.sessions[userID]; exists {
		log.Printf("[PresenceRegistry] replacing session for user %s (last-connect-wins)", userID)
	}
	p.sessions[userID] = &Session{
		UserID:       userID,
		Conn:         conn,
		ConnectedAt:  now,
		LastActivity: now,
	}
	total := len(p.sessions)
	p.mu.Unlock()

	metrics.ActiveSessions.Set(float64(total))
	log.Printf("[PresenceRegistry] user %s online (sessions: %d)", userID, total)

	if p.relay != nil {
		p.relay.BroadcastPresence(models.PresenceEvent{
			UserID:    userID,
			Status:    models.StatusOnline,
			Timestamp: now,
		}, userID)
	}
}

// Unregister removes the session if present, cascades room membership
// cleanup, and broadcasts an offline presence event. No-op for users with
// no session. Map mutations happen synchronously here so a disconnect
// mid-join leaves nothing dangling; only the outbound deliveries are async.
func (p *PresenceRegistry) Unregister(userID string) {
	p.unregister(userID, nil)
}

// UnregisterConn is Unregister guarded by connection ownership: it no-ops
// when conn is not the session's current connection. A connection evicted by
// last-connect-wins closes eventually, and that late close must not tear
// down the replacement session.
func (p *PresenceRegistry) UnregisterConn(userID string, conn Conn) {
	p.unregister(userID, conn)
}

func (p *PresenceRegistry) unregister(userID string, owner Conn) {
	p.mu.Lock()
	sess, exists := p.sessions[userID]
	if exists && owner != nil && sess.Conn != owner {
		p.mu.Unlock()
		log.Printf("[PresenceRegistry] stale close for user %s ignored", userID)
		return
	}
	if exists {
		delete(p.sessions, userID)
	}
	total := len(p.sessions)
	p.mu.Unlock()

	if !exists {
		return
	}

	metrics.ActiveSessions.Set(float64(total))
	log.Printf("[PresenceRegistry] user %s offline (sessions: %d)", userID, total)

	if p.rooms != nil {
		p.rooms.LeaveAll(userID)
	}

	if p.relay != nil {
		p.relay.BroadcastPresence(models.PresenceEvent{
			UserID:    userID,
			Status:    models.StatusOffline,
			Timestamp: time.Now(),
		}, userID)
	}
}

// Touch updates the session's last-activity timestamp, if one exists
func (p *PresenceRegistry) Touch(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sess, ok := p.sessions[userID]; ok {
		sess.LastActivity = time.Now()
	}
}

// IsOnline reports whether userID has a live session
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sessions[userID]
	return ok
}

// ConnOf resolves a user to its live connection handle
func (p *PresenceRegistry) ConnOf(userID string) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sess, ok := p.sessions[userID]
	if !ok {
		return nil, false
	}
	return sess.Conn, true
}

// ListOnline returns a point-in-time snapshot of online user IDs
func (p *PresenceRegistry) ListOnline() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.sessions))
	for userID := range p.sessions {
		users = append(users, userID)
	}
	return users
}

// snapshotConns returns connection handles for every session except exclude
func (p *PresenceRegistry) snapshotConns(exclude string) []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := make([]Conn, 0, len(p.sessions))
	for userID, sess := range p.sessions {
		if userID == exclude {
			continue
		}
		conns = append(conns, sess.Conn)
	}
	return conns
}

// ReportInconsistencies compares the socket-side registry against the
// REST-side heartbeat view and logs every user the two disagree on. Both
// views are valid per their own contract, so a mismatch is never an error;
// callers get the disagreeing user IDs back for visibility only.
func ReportInconsistencies(registry *PresenceRegistry, monitor *HeartbeatMonitor) []string {
	var mismatched []string

	seen := make(map[string]bool)
	for _, userID := range registry.ListOnline() {
		seen[userID] = true
		if !monitor.IsOnline(userID) {
			mismatched = append(mismatched, userID)
			log.Printf("[Presence] registry inconsistency for user %s: socket=online rest=offline", userID)
		}
	}
	for _, userID := range monitor.OnlineUsers() {
		if seen[userID] {
			continue
		}
		if !registry.IsOnline(userID) {
			mismatched = append(mismatched, userID)
			log.Printf("[Presence] registry inconsistency for user %s: socket=offline rest=online", userID)
		}
	}

	return mismatched
}
