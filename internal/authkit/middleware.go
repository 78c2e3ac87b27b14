package authkit

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/apierror"
	"github.com/tyemirov/elearning/internal/store"
	"go.uber.org/zap"
)

// Middleware failure messages.
const (
	MessageInvalidAuthentication = "Invalid Authentication"
	MessageUserDoesNotExist      = "User does not exist"
	MessageAccessDenied          = "Access Denied"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// Authenticator resolves request identities from access tokens.
type Authenticator struct {
	tokens  *TokenManager
	users   UserStore
	logger  *zap.Logger
	metrics MetricsRecorder
}

// NewAuthenticator builds the auth middleware factory.
func NewAuthenticator(tokens *TokenManager, users UserStore, logger *zap.Logger, metrics MetricsRecorder) *Authenticator {
	if tokens == nil {
		panic("token manager is required")
	}
	if users == nil {
		panic("user store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewCounterMetrics()
	}
	return &Authenticator{tokens: tokens, users: users, logger: logger, metrics: metrics}
}

// RequireIdentity rejects requests without a valid access token for an
// existing user, and otherwise attaches that user to the request.
func (authenticator *Authenticator) RequireIdentity() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, err := authenticator.identify(contextGin)
		if err != nil {
			apierror.Respond(contextGin, authenticator.logger, "auth.middleware.identify", err)
			return
		}
		attachIdentity(contextGin, user)
		contextGin.Next()
	}
}

// RequireRole behaves like RequireIdentity and additionally rejects users
// whose role differs from role.
func (authenticator *Authenticator) RequireRole(role string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, err := authenticator.identify(contextGin)
		if err != nil {
			apierror.Respond(contextGin, authenticator.logger, "auth.middleware.identify", err)
			return
		}
		if user.Role != role {
			authenticator.metrics.Increment(MetricAccessDenied)
			authenticator.logger.Warn("role check failed",
				zap.String("code", "auth.middleware.access_denied"),
				zap.String("user_id", user.ID),
				zap.String("required_role", role))
			apierror.Respond(contextGin, authenticator.logger, "auth.middleware.role", apierror.Unauthorized(MessageAccessDenied))
			return
		}
		attachIdentity(contextGin, user)
		contextGin.Next()
	}
}

func (authenticator *Authenticator) identify(contextGin *gin.Context) (*store.User, error) {
	rawToken := bearerToken(contextGin.GetHeader(authorizationHeader))
	if rawToken == "" {
		authenticator.metrics.Increment(MetricInvalidAuthentication)
		return nil, apierror.Unauthorized(MessageInvalidAuthentication)
	}
	claims, verifyErr := authenticator.tokens.Verify(rawToken, TokenKindAccess)
	if verifyErr != nil {
		authenticator.metrics.Increment(MetricInvalidAuthentication)
		authenticator.logger.Debug("access token rejected",
			zap.String("code", "auth.middleware.invalid_token"),
			zap.Error(verifyErr))
		return nil, apierror.Unauthorized(MessageInvalidAuthentication)
	}
	user, lookupErr := authenticator.users.UserByID(contextGin.Request.Context(), claims.UserID)
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			authenticator.metrics.Increment(MetricInvalidAuthentication)
			return nil, apierror.Unauthorized(MessageUserDoesNotExist)
		}
		return nil, apierror.Internal(lookupErr)
	}
	return user, nil
}

// bearerToken accepts the raw token the API documents, and tolerates a
// "Bearer " scheme prefix.
func bearerToken(headerValue string) string {
	trimmed := strings.TrimSpace(headerValue)
	if len(trimmed) >= len(bearerPrefix) && strings.EqualFold(trimmed[:len(bearerPrefix)], bearerPrefix) {
		trimmed = strings.TrimSpace(trimmed[len(bearerPrefix):])
	}
	return trimmed
}
