package userRepo

import "wodbooker/models"

// UserRepository defines methods for user data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address. Returns nil when
	// no user exists for the email.
	GetByEmail(email string) (*models.User, error)
	// GetAll retrieves all users.
	GetAll() ([]models.User, error)
	// Create inserts a new user record.
	Create(user *models.User) error
	// Update modifies an existing user record.
	Update(user *models.User) error
	// UpdateCookie stores a refreshed portal cookie blob for the user.
	UpdateCookie(id string, cookie []byte) error
	// SetForceLogin flags the user as requiring a fresh credential login.
	SetForceLogin(id string, forceLogin bool) error
}
