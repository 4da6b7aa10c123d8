package users

import "context"

// UserRepo is the user directory. Implementations return
// errors.ErrUserNotFound for unknown users and errors.ErrUserExists when an
// email is already registered.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)

	// SetValidationToken stores a pending password reset token for the
	// user registered under email
	SetValidationToken(ctx context.Context, email, token string) error
	GetByValidationToken(ctx context.Context, token string) (*User, error)
	// UpdatePassword replaces the password hash and clears any pending
	// reset token
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
