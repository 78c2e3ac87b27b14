package authkit

import (
	"context"

	"github.com/tyemirov/elearning/internal/store"
)

// UserStore reads and creates accounts for the auth core.
type UserStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	UserByID(ctx context.Context, userID string) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
}
