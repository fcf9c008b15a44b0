package handlers

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/studyhub/collab-server/internal/collab/repository"
	"github.com/studyhub/collab-server/internal/collab/services"
	"github.com/studyhub/collab-server/internal/common/errors"
	"github.com/studyhub/collab-server/internal/common/middleware"
)

// InvitationHandlers serves the invitation REST surface
type InvitationHandlers struct {
	coordinator *services.InvitationCoordinator
	users       *repository.UserRepository
}

// NewInvitationHandlers creates the handlers
func NewInvitationHandlers(coordinator *services.InvitationCoordinator, users *repository.UserRepository) *InvitationHandlers {
	return &InvitationHandlers{
		coordinator: coordinator,
		users:       users,
	}
}

type sendInvitationRequest struct {
	FromEmail string `json:"fromEmail" binding:"required,email"`
	ToEmail   string `json:"toEmail" binding:"required,email"`
	RoomID    string `json:"roomId" binding:"required"`
	NoteTitle string `json:"noteTitle"`
}

// SendInvitation handles POST /auth/send-invitation. The caller always gets
// a definitive answer once the durable record exists; delivered only says
// whether the live nudge reached the recipient.
func (ih *InvitationHandlers) SendInvitation(c *gin.Context) {
	var req sendInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.BadRequest("fromEmail, toEmail and roomId are required"))
		return
	}

	fromUser, err := ih.users.GetByEmail(req.FromEmail)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	toUser, err := ih.users.GetByEmail(req.ToEmail)
	if err != nil {
		middleware.JSONErrorResponse(c, errors.RecipientUnknown(req.ToEmail))
		return
	}

	outcome, err := ih.coordinator.SendInvitation(fromUser.ID, toUser.ID, req.RoomID, req.NoteTitle)
	if err != nil {
		if stderrors.Is(err, services.ErrRecipientUnknown) {
			middleware.JSONErrorResponse(c, errors.RecipientUnknown(req.ToEmail))
			return
		}
		middleware.JSONErrorResponse(c, errors.Internal("failed to record invitation", err.Error()))
		return
	}

	c.JSON(200, gin.H{
		"success":      true,
		"invitationId": outcome.InvitationID,
		"delivered":    outcome.Delivered,
	})
}

// ListInvitations handles GET /auth/invitations for the authenticated recipient
func (ih *InvitationHandlers) ListInvitations(c *gin.Context) {
	userID := c.GetString("user_id")

	invitations, err := ih.coordinator.PendingInvitations(userID)
	if err != nil {
		middleware.JSONErrorResponse(c, errors.Internal("failed to list invitations", err.Error()))
		return
	}

	c.JSON(200, gin.H{"invitations": invitations, "count": len(invitations)})
}

// AcceptInvitation handles POST /auth/invitations/:id/accept
func (ih *InvitationHandlers) AcceptInvitation(c *gin.Context) {
	ih.transition(c, ih.coordinator.AcceptInvitation)
}

// RejectInvitation handles POST /auth/invitations/:id/reject
func (ih *InvitationHandlers) RejectInvitation(c *gin.Context) {
	ih.transition(c, ih.coordinator.RejectInvitation)
}

func (ih *InvitationHandlers) transition(c *gin.Context, apply func(string) error) {
	id := c.Param("id")
	if id == "" {
		middleware.JSONErrorResponse(c, errors.BadRequest("invitation id is required"))
		return
	}

	if err := apply(id); err != nil {
		switch {
		case stderrors.Is(err, services.ErrInvitationNotFound):
			middleware.JSONErrorResponse(c, errors.NotFound("invitation"))
		case stderrors.Is(err, services.ErrInvalidInvitationState):
			middleware.JSONErrorResponse(c, errors.InvalidInvitationState())
		default:
			middleware.JSONErrorResponse(c, errors.Internal("failed to update invitation", err.Error()))
		}
		return
	}

	c.JSON(200, gin.H{"success": true})
}
