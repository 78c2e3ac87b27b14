package authkit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/apierror"
	"github.com/tyemirov/elearning/internal/store"
	"go.uber.org/zap"
)

// Response messages of the account/session routes.
const (
	MessageUserExists         = "User already exists"
	MessageUserCreated        = "User created successfully"
	MessageUserNotFound       = "User not found"
	MessageInvalidCredentials = "Invalid credentials"
	MessageLoginSuccessful    = "Login successful"
	MessageLoggedOut          = "Logged out"
	MessageInvalidToken       = "Invalid token"
	MessageInvalidRequestBody = "Invalid request body"
)

// WelcomeNotifier sends the registration email.
type WelcomeNotifier interface {
	Welcome(ctx context.Context, recipient string)
}

// Service wires the account/session handlers.
type Service struct {
	configuration ServerConfig
	users         UserStore
	tokens        *TokenManager
	hasher        PasswordHasher
	notifier      WelcomeNotifier
	logger        *zap.Logger
	metrics       MetricsRecorder
}

// Dependencies are the collaborators of Service.
type Dependencies struct {
	Users    UserStore
	Tokens   *TokenManager
	Hasher   PasswordHasher
	Notifier WelcomeNotifier
	Logger   *zap.Logger
	Metrics  MetricsRecorder
}

// NewService validates dependencies and builds the account/session handlers.
func NewService(configuration ServerConfig, dependencies Dependencies) *Service {
	if dependencies.Users == nil {
		panic("user store is required")
	}
	if dependencies.Tokens == nil {
		panic("token manager is required")
	}
	if dependencies.Notifier == nil {
		panic("notifier is required")
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Metrics == nil {
		dependencies.Metrics = NewCounterMetrics()
	}
	return &Service{
		configuration: configuration,
		users:         dependencies.Users,
		tokens:        dependencies.Tokens,
		hasher:        dependencies.Hasher,
		notifier:      dependencies.Notifier,
		logger:        dependencies.Logger,
		metrics:       dependencies.Metrics,
	}
}

// MountAuthRoutes registers /register, /login, /logout, and /refresh_token on router.
func (service *Service) MountAuthRoutes(router gin.IRouter) {
	router.POST("/register", service.handleRegister)
	router.POST("/login", service.handleLogin)
	router.POST("/logout", service.handleLogout)
	router.POST("/refresh_token", service.handleRefreshToken)
}

func (service *Service) handleRegister(contextGin *gin.Context) {
	var request RegisterRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, service.logger, "auth.register.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	request.Email = strings.TrimSpace(request.Email)
	if violations := ValidateRegisterRequest(request); len(violations) > 0 {
		apierror.Respond(contextGin, service.logger, "auth.register.validate", apierror.Validation(violations...))
		return
	}

	ctx := contextGin.Request.Context()
	_, lookupErr := service.users.UserByEmail(ctx, request.Email)
	switch {
	case lookupErr == nil:
		service.metrics.Increment(MetricRegisterConflict)
		apierror.Respond(contextGin, service.logger, "auth.register.exists", apierror.Conflict(MessageUserExists))
		return
	case !errors.Is(lookupErr, store.ErrNotFound):
		apierror.Respond(contextGin, service.logger, "auth.register.lookup", lookupErr)
		return
	}

	digest, hashErr := service.hasher.Hash(request.Password)
	if hashErr != nil {
		apierror.Respond(contextGin, service.logger, "auth.register.hash", hashErr)
		return
	}
	user := &store.User{
		Name:         strings.TrimSpace(request.Name),
		Email:        request.Email,
		PasswordHash: digest,
		Role:         store.RoleUser,
	}
	if createErr := service.users.CreateUser(ctx, user); createErr != nil {
		if errors.Is(createErr, store.ErrDuplicate) {
			service.metrics.Increment(MetricRegisterConflict)
			apierror.Respond(contextGin, service.logger, "auth.register.duplicate", apierror.Conflict(MessageUserExists))
			return
		}
		apierror.Respond(contextGin, service.logger, "auth.register.create", createErr)
		return
	}
	service.metrics.Increment(MetricRegisterSuccess)
	service.notifier.Welcome(ctx, user.Email)

	contextGin.JSON(http.StatusCreated, gin.H{
		"message": MessageUserCreated,
		"user":    NewUserView(user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (service *Service) handleLogin(contextGin *gin.Context) {
	var request loginRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, service.logger, "auth.login.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	if violations := FirstViolation(Required(MessageRequiredFields, request.Email, request.Password)); len(violations) > 0 {
		apierror.Respond(contextGin, service.logger, "auth.login.validate", apierror.Validation(violations...))
		return
	}

	user, lookupErr := service.users.UserByEmail(contextGin.Request.Context(), request.Email)
	if lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			service.metrics.Increment(MetricLoginFailure)
			apierror.Respond(contextGin, service.logger, "auth.login.unknown_email", apierror.NotFound(MessageUserNotFound))
			return
		}
		apierror.Respond(contextGin, service.logger, "auth.login.lookup", lookupErr)
		return
	}
	if !service.hasher.Verify(request.Password, user.PasswordHash) {
		service.metrics.Increment(MetricLoginFailure)
		apierror.Respond(contextGin, service.logger, "auth.login.credentials", apierror.Unauthorized(MessageInvalidCredentials))
		return
	}

	accessToken, _, accessErr := service.tokens.IssueAccess(user.ID)
	if accessErr != nil {
		apierror.Respond(contextGin, service.logger, "auth.login.mint_access", accessErr)
		return
	}
	refreshToken, _, refreshErr := service.tokens.IssueRefresh(user.ID)
	if refreshErr != nil {
		apierror.Respond(contextGin, service.logger, "auth.login.mint_refresh", refreshErr)
		return
	}
	service.metrics.Increment(MetricLoginSuccess)

	writeRefreshCookie(contextGin, service.configuration, refreshToken, service.tokens.TTL(TokenKindRefresh))
	contextGin.JSON(http.StatusOK, gin.H{
		"message":     MessageLoginSuccessful,
		"accessToken": accessToken,
		"user":        NewUserView(user),
	})
}

func (service *Service) handleLogout(contextGin *gin.Context) {
	clearRefreshCookie(contextGin, service.configuration)
	service.metrics.Increment(MetricLogout)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageLoggedOut})
}

type refreshTokenRequest struct {
	Token string `json:"token"`
}

func (service *Service) handleRefreshToken(contextGin *gin.Context) {
	var request refreshTokenRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		apierror.Respond(contextGin, service.logger, "auth.refresh.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	refreshToken := strings.TrimSpace(request.Token)
	if refreshToken == "" {
		refreshToken = readRefreshCookie(contextGin, service.configuration)
	}
	if refreshToken == "" {
		service.metrics.Increment(MetricRefreshFailure)
		apierror.Respond(contextGin, service.logger, "auth.refresh.missing", apierror.Unauthorized(MessageInvalidToken))
		return
	}

	claims, verifyErr := service.tokens.Verify(refreshToken, TokenKindRefresh)
	if verifyErr != nil {
		service.metrics.Increment(MetricRefreshFailure)
		service.logger.Debug("refresh token rejected",
			zap.String("code", "auth.refresh.invalid"),
			zap.Error(verifyErr))
		apierror.Respond(contextGin, service.logger, "auth.refresh.invalid", apierror.Unauthorized(MessageInvalidToken))
		return
	}

	if _, lookupErr := service.users.UserByID(contextGin.Request.Context(), claims.UserID); lookupErr != nil {
		if errors.Is(lookupErr, store.ErrNotFound) {
			service.metrics.Increment(MetricRefreshFailure)
			apierror.Respond(contextGin, service.logger, "auth.refresh.unknown_user", apierror.NotFound(MessageUserNotFound))
			return
		}
		apierror.Respond(contextGin, service.logger, "auth.refresh.lookup", lookupErr)
		return
	}

	accessToken, _, mintErr := service.tokens.IssueAccess(claims.UserID)
	if mintErr != nil {
		apierror.Respond(contextGin, service.logger, "auth.refresh.mint", mintErr)
		return
	}
	service.metrics.Increment(MetricRefreshSuccess)
	contextGin.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
