package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyhub/collab-server/internal/collab/models"
	"github.com/studyhub/collab-server/internal/common/errors"
)

// UserRepository reads the identity records this service collaborates
// with. User lifecycle management is owned by the main study-app API; the
// collaboration server only resolves tokens and invitation targets.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("user")
		}
		return nil, errors.Internal("failed to fetch user", result.Error.Error())
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	result := r.db.Where("email = ?", email).First(&user)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("user")
		}
		return nil, errors.Internal("failed to fetch user", result.Error.Error())
	}
	return &user, nil
}

// Ensure creates a user record for email if none exists and returns it.
// Used by dev seeding; production records come from the main API.
func (r *UserRepository) Ensure(email, name string) (*models.User, error) {
	user, err := r.GetByEmail(email)
	if err == nil {
		return user, nil
	}

	user = &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if result := r.db.Create(user); result.Error != nil {
		return nil, errors.Internal("failed to create user", result.Error.Error())
	}
	return user, nil
}
