package authkit

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/store"
)

type identityContextKey struct{}

// IdentityContextKey is the gin context key holding the authenticated *store.User.
const IdentityContextKey = "auth_identity"

// WithIdentity returns a copy of ctx carrying user.
func WithIdentity(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, identityContextKey{}, user)
}

// IdentityFromContext returns the user attached by the auth middleware.
func IdentityFromContext(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(identityContextKey{}).(*store.User)
	return user, ok && user != nil
}

// CurrentUser returns the user attached to the gin request by RequireIdentity.
func CurrentUser(contextGin *gin.Context) (*store.User, bool) {
	if value, found := contextGin.Get(IdentityContextKey); found {
		if user, ok := value.(*store.User); ok && user != nil {
			return user, true
		}
	}
	return IdentityFromContext(contextGin.Request.Context())
}

func attachIdentity(contextGin *gin.Context, user *store.User) {
	contextGin.Set(IdentityContextKey, user)
	contextGin.Request = contextGin.Request.WithContext(WithIdentity(contextGin.Request.Context(), user))
}
