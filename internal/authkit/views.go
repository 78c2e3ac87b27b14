package authkit

import (
	"time"

	"github.com/tyemirov/elearning/internal/store"
)

// UserView is the client-facing projection of a user. It has no password or
// reset token fields.
type UserView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewUserView projects user for a response body.
func NewUserView(user *store.User) UserView {
	if user == nil {
		return UserView{}
	}
	return UserView{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}
