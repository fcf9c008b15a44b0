package repository

import (
	"gorm.io/gorm"

	"github.com/studyhub/collab-server/internal/collab/models"
	"github.com/studyhub/collab-server/internal/collab/services"
)

// InvitationRepository is the gorm-backed durable invitation store. Each
// recipient holds at most `cap` invitations; creating one past the cap
// evicts the oldest first.
type InvitationRepository struct {
	db  *gorm.DB
	cap int
}

// NewInvitationRepository creates a repository with the given per-recipient cap
func NewInvitationRepository(db *gorm.DB, cap int) *InvitationRepository {
	if cap <= 0 {
		cap = 50
	}
	return &InvitationRepository{db: db, cap: cap}
}

// Create persists a new invitation, evicting the recipient's oldest records
// beyond the cap inside the same transaction.
func (r *InvitationRepository) Create(inv *models.Invitation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Invitation{}).
			Where("to_user_id = ?", inv.ToUserID).
			Count(&count).Error; err != nil {
			return err
		}

		if count <= int64(r.cap) {
			return nil
		}

		var evict []models.Invitation
		if err := tx.Where("to_user_id = ?", inv.ToUserID).
			Order("created_at ASC").
			Limit(int(count) - r.cap).
			Find(&evict).Error; err != nil {
			return err
		}
		for _, old := range evict {
			if err := tx.Delete(&models.Invitation{}, "id = ?", old.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID loads an invitation
func (r *InvitationRepository) GetByID(id string) (*models.Invitation, error) {
	var inv models.Invitation
	result := r.db.First(&inv, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, services.ErrInvitationNotFound
		}
		return nil, result.Error
	}
	return &inv, nil
}

// Transition moves a pending invitation to a terminal status. The WHERE on
// the current status makes the pending check and the update one atomic
// step; false means the invitation was no longer pending.
func (r *InvitationRepository) Transition(id string, status models.InvitationStatus) (bool, error) {
	result := r.db.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Update("status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPendingForUser returns the recipient's pending invitations, newest first
func (r *InvitationRepository) ListPendingForUser(userID string) ([]*models.Invitation, error) {
	var invitations []*models.Invitation
	result := r.db.
		Where("to_user_id = ? AND status = ?", userID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations)
	if result.Error != nil {
		return nil, result.Error
	}
	return invitations, nil
}
