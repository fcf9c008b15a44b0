package services

import "errors"

var (
	// Room errors
	ErrRoomNotFound = errors.New("room not found")

	// Invitation errors
	ErrRecipientUnknown       = errors.New("invitation recipient does not resolve to a user")
	ErrInvalidInvitationState = errors.New("invitation is not pending")
	ErrInvitationNotFound     = errors.New("invitation not found")
)
