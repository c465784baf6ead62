package identity

import (
	"context"
	"errors"
	"time"

	"github.com/gotchalabs/social-auth/providers"
)

// Status is a user account's lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusBanned    Status = "BANNED"
	StatusDeleted   Status = "DELETED"
)

var (
	// ErrUserNotFound is returned by repositories when no user matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrBlankSubject rejects identities without a subject identifier.
	ErrBlankSubject = errors.New("external identity has no subject")

	// Login rejections by account state.
	ErrUserDeleted   = errors.New("account deleted")
	ErrUserBanned    = errors.New("account banned")
	ErrUserSuspended = errors.New("account suspended")
)

// User is a local account backed by a social identity.
type User struct {
	ID        int64
	Provider  providers.Provider
	SubjectID string
	Nickname  string
	Email     string
	AvatarURL string

	// SocialRevokeToken severs the provider link on account deletion.
	// Apple issues it on first authorization only.
	SocialRevokeToken string

	Status         Status
	SuspendedUntil time.Time
	CreatedAt      time.Time
	LastLoginAt    time.Time
}

// UserRepository is the persistence collaborator the resolver works
// against.
type UserRepository interface {
	// FindBySocial returns the user linked to (provider, subjectID), or
	// ErrUserNotFound.
	FindBySocial(ctx context.Context, p providers.Provider, subjectID string) (*User, error)

	// ExistsByNickname reports whether a nickname is taken.
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)

	// Create persists a new user and returns it with its ID assigned.
	Create(ctx context.Context, u *User) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, u *User) error
}
