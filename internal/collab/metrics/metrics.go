package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks live socket sessions in the presence registry
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyhub_active_sessions",
		Help: "Number of live websocket sessions",
	})

	// ActiveRooms tracks live collaboration rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyhub_active_rooms",
		Help: "Number of live collaboration rooms",
	})

	// EventsRelayed counts events accepted by recipient send buffers
	EventsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_events_relayed_total",
		Help: "Realtime events delivered to client send buffers",
	})

	// EventsDropped counts events dropped because a client buffer was full
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_events_dropped_total",
		Help: "Realtime events dropped on full client send buffers",
	})

	// InvitationsSent counts durable invitation records created
	InvitationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_invitations_sent_total",
		Help: "Invitations recorded durably",
	})

	// InvitationsDelivered counts invitations that also reached a live session
	InvitationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_invitations_delivered_total",
		Help: "Invitations nudged to an online recipient",
	})
)
