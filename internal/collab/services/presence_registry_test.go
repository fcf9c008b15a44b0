package services

import (
	"testing"
	"time"

	"github.com/studyhub/collab-server/internal/collab/models"
)

// fakeConn is a channel-backed connection handle for tests
type fakeConn struct {
	events chan Event
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 16)}
}

func (f *fakeConn) Send(event Event) bool {
	select {
	case f.events <- event:
		return true
	default:
		return false
	}
}

// next waits briefly for a delivered event
func (f *fakeConn) next(t *testing.T) (Event, bool) {
	t.Helper()
	select {
	case evt := <-f.events:
		return evt, true
	case <-time.After(200 * time.Millisecond):
		return Event{}, false
	}
}

// expectNone asserts no event arrives within the staleness window
func (f *fakeConn) expectNone(t *testing.T) {
	t.Helper()
	select {
	case evt := <-f.events:
		t.Fatalf("expected no event, got %s", evt.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

// newTestStack wires registry, rooms and relay with no simulated delay
func newTestStack() (*PresenceRegistry, *RoomManager, *SignalRelay) {
	rooms := NewRoomManager()
	registry := NewPresenceRegistry(rooms)
	relay := NewSignalRelay(registry, rooms, 0)
	rooms.AttachRelay(relay)
	registry.AttachRelay(relay)
	return registry, rooms, relay
}

func TestRegisterMarksOnline(t *testing.T) {
	registry, _, _ := newTestStack()

	registry.Register("user-a", newFakeConn())
	if !registry.IsOnline("user-a") {
		t.Error("expected user-a online after register")
	}

	registry.Unregister("user-a")
	if registry.IsOnline("user-a") {
		t.Error("expected user-a offline after unregister")
	}
}

func TestUnregisterUnknownUserIsNoop(t *testing.T) {
	registry, _, _ := newTestStack()

	// Must not panic or broadcast anything
	registry.Unregister("never-connected")

	if len(registry.ListOnline()) != 0 {
		t.Errorf("expected empty registry, got %v", registry.ListOnline())
	}
}

func TestLastConnectWinsReplacesSession(t *testing.T) {
	registry, _, _ := newTestStack()

	first := newFakeConn()
	second := newFakeConn()

	registry.Register("user-a", first)
	registry.Register("user-a", second)

	if got := len(registry.ListOnline()); got != 1 {
		t.Fatalf("expected 1 session, got %d", got)
	}

	conn, ok := registry.ConnOf("user-a")
	if !ok {
		t.Fatal("expected a session for user-a")
	}
	if conn != Conn(second) {
		t.Error("expected the second connection to have replaced the first")
	}
}

func TestRegisterBroadcastsOnlineToOthers(t *testing.T) {
	registry, _, _ := newTestStack()

	observer := newFakeConn()
	subject := newFakeConn()
	registry.Register("observer", observer)

	registry.Register("subject", subject)

	evt, ok := observer.next(t)
	if !ok {
		t.Fatal("observer did not receive a presence event")
	}
	if evt.Type != EventUserStatusChanged {
		t.Errorf("expected %s, got %s", EventUserStatusChanged, evt.Type)
	}
	data := evt.Data.(map[string]interface{})
	if data["userId"] != "subject" || data["status"] != string(models.StatusOnline) {
		t.Errorf("unexpected payload: %v", data)
	}

	// The subject itself must not see its own status change
	subject.expectNone(t)
}

func TestUnregisterBroadcastsOffline(t *testing.T) {
	registry, _, _ := newTestStack()

	observer := newFakeConn()
	registry.Register("observer", observer)
	registry.Register("subject", newFakeConn())

	// Drain the online broadcast
	if _, ok := observer.next(t); !ok {
		t.Fatal("missing online broadcast")
	}

	registry.Unregister("subject")

	evt, ok := observer.next(t)
	if !ok {
		t.Fatal("observer did not receive the offline event")
	}
	data := evt.Data.(map[string]interface{})
	if data["userId"] != "subject" || data["status"] != string(models.StatusOffline) {
		t.Errorf("unexpected payload: %v", data)
	}
}

func TestUnregisterCascadesRoomCleanup(t *testing.T) {
	registry, rooms, _ := newTestStack()

	registry.Register("user-a", newFakeConn())
	rooms.CreateOrJoin("note_1", "user-a", models.RoomNoteShare, nil)
	rooms.CreateOrJoin("group_1", "user-a", models.RoomStudyGroup, nil)

	registry.Unregister("user-a")

	if _, err := rooms.MembersOf("note_1"); err != ErrRoomNotFound {
		t.Errorf("expected note_1 deleted after cascade, got %v", err)
	}
	if _, err := rooms.MembersOf("group_1"); err != ErrRoomNotFound {
		t.Errorf("expected group_1 deleted after cascade, got %v", err)
	}
	if len(rooms.RoomsOf("user-a")) != 0 {
		t.Error("expected user-a in no rooms after cascade")
	}
}

func TestReportInconsistencies(t *testing.T) {
	registry, _, _ := newTestStack()
	monitor := NewHeartbeatMonitor()

	// Agrees: online in both views
	registry.Register("both", newFakeConn())
	monitor.MarkOnline("both")

	// Socket-only
	registry.Register("socket-only", newFakeConn())

	// REST-only
	monitor.MarkOnline("rest-only")

	mismatched := ReportInconsistencies(registry, monitor)
	if len(mismatched) != 2 {
		t.Fatalf("expected 2 mismatches, got %v", mismatched)
	}

	seen := map[string]bool{}
	for _, userID := range mismatched {
		seen[userID] = true
	}
	if !seen["socket-only"] || !seen["rest-only"] {
		t.Errorf("unexpected mismatch set: %v", mismatched)
	}
	if seen["both"] {
		t.Error("agreeing user reported as inconsistent")
	}
}

// A connection evicted by last-connect-wins closes eventually; its teardown
// must not touch the session its replacement owns.
func TestEvictedConnCloseKeepsReplacementSession(t *testing.T) {
	registry, rooms, _ := newTestStack()

	evicted := newFakeConn()
	replacement := newFakeConn()
	registry.Register("user-a", evicted)
	registry.Register("user-a", replacement)
	rooms.CreateOrJoin("note_1", "user-a", models.RoomNoteShare, nil)

	registry.UnregisterConn("user-a", evicted)

	if !registry.IsOnline("user-a") {
		t.Fatal("evicted connection close tore down the live session")
	}
	if _, err := rooms.MembersOf("note_1"); err != nil {
		t.Fatal("evicted connection close cascaded room cleanup")
	}
	if conn, _ := registry.ConnOf("user-a"); conn != replacement {
		t.Fatal("session no longer owned by the replacement connection")
	}

	// The owning connection still tears down normally
	registry.UnregisterConn("user-a", replacement)
	if registry.IsOnline("user-a") {
		t.Fatal("owning connection close must unregister")
	}
	if _, err := rooms.MembersOf("note_1"); err != ErrRoomNotFound {
		t.Fatalf("expected room gone after real disconnect, got %v", err)
	}
}
