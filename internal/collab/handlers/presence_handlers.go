package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/studyhub/collab-server/internal/collab/models"
	"github.com/studyhub/collab-server/internal/collab/repository"
	"github.com/studyhub/collab-server/internal/collab/services"
	"github.com/studyhub/collab-server/internal/common/errors"
	"github.com/studyhub/collab-server/internal/common/middleware"
)

// PresenceHandlers serves the REST-side presence surface. The REST view
// (HeartbeatMonitor) and the socket view (PresenceRegistry) are reported
// through separate endpoints and never merged.
type PresenceHandlers struct {
	monitor  *services.HeartbeatMonitor
	registry *services.PresenceRegistry
	rooms    *services.RoomManager
	users    *repository.UserRepository
}

// NewPresenceHandlers creates the handlers
func NewPresenceHandlers(monitor *services.HeartbeatMonitor, registry *services.PresenceRegistry, rooms *services.RoomManager, users *repository.UserRepository) *PresenceHandlers {
	return &PresenceHandlers{
		monitor:  monitor,
		registry: registry,
		rooms:    rooms,
		users:    users,
	}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UserOnline handles POST /auth/user-online
func (ph *PresenceHandlers) UserOnline(c *gin.Context) {
	userID, ok := ph.resolveBodyEmail(c)
	if !ok {
		return
	}

	ph.monitor.MarkOnline(userID)
	c.JSON(200, gin.H{"success": true})
}

// UserOffline handles POST /auth/user-offline
func (ph *PresenceHandlers) UserOffline(c *gin.Context) {
	userID, ok := ph.resolveBodyEmail(c)
	if !ok {
		return
	}

	ph.monitor.MarkOffline(userID)
	c.JSON(200, gin.H{"success": true})
}

// Heartbeat handles POST /auth/heartbeat
func (ph *PresenceHandlers) Heartbeat(c *gin.Context) {
	userID, ok := ph.resolveBodyEmail(c)
	if !ok {
		return
	}

	ph.monitor.RecordHeartbeat(userID)
	c.JSON(200, gin.H{"success": true})
}

// OnlineStatus handles GET /auth/online-status. It reports the REST-side
// view, restricted to the members of the caller's study groups; callers in
// no group see the whole REST view. Disagreements with the socket view are
// logged, never surfaced.
func (ph *PresenceHandlers) OnlineStatus(c *gin.Context) {
	callerID := c.GetString("user_id")

	services.ReportInconsistencies(ph.registry, ph.monitor)

	roster := ph.studyGroupRoster(callerID)
	if roster == nil {
		users := ph.monitor.OnlineUsers()
		c.JSON(200, gin.H{"onlineUsers": users, "count": len(users)})
		return
	}

	var online []string
	for userID := range roster {
		if ph.monitor.IsOnline(userID) {
			online = append(online, userID)
		}
	}
	if online == nil {
		online = []string{}
	}
	c.JSON(200, gin.H{"onlineUsers": online, "count": len(online)})
}

// OnlineUsers handles GET /online-users with the socket-side registry snapshot
func (ph *PresenceHandlers) OnlineUsers(c *gin.Context) {
	users := ph.registry.ListOnline()
	c.JSON(200, gin.H{"onlineUsers": users, "count": len(users)})
}

// studyGroupRoster collects the members of every study-group room the
// caller is in, nil when the caller belongs to none. Note-share rooms never
// scope the result.
func (ph *PresenceHandlers) studyGroupRoster(userID string) map[string]bool {
	var roster map[string]bool
	for _, roomID := range ph.rooms.RoomsOfKind(userID, models.RoomStudyGroup) {
		members, err := ph.rooms.MembersOf(roomID)
		if err != nil {
			continue
		}
		if roster == nil {
			roster = make(map[string]bool)
		}
		for _, member := range members {
			if member != userID {
				roster[member] = true
			}
		}
	}
	return roster
}

// resolveBodyEmail binds the {email} body and resolves it to a user ID
func (ph *PresenceHandlers) resolveBodyEmail(c *gin.Context) (string, bool) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.BadRequest("email is required"))
		return "", false
	}

	user, err := ph.users.GetByEmail(req.Email)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return "", false
	}
	return user.ID, true
}
