// Package accounts serves the authenticated self-service routes under
// /api/users: profile update, password reset, account deletion, and course
// enrollment.
package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/apierror"
	"github.com/tyemirov/elearning/internal/authkit"
	"github.com/tyemirov/elearning/internal/media"
	"github.com/tyemirov/elearning/internal/store"
	"go.uber.org/zap"
)

// Account route messages.
const (
	MessageUserUpdated          = "User updated successfully"
	MessageUserNotFound         = "User not found"
	MessageEmailInUse           = "Email already in use"
	MessageUnknownRole          = "Role must be USER or ADMIN"
	MessageEmailRequired        = "Email is required"
	MessageResetLinkSent        = "Password reset link sent to your email"
	MessageInvalidToken         = "Invalid token"
	MessagePasswordUnchanged    = "New password must be different from the current password"
	MessagePasswordReset        = "Password reset successfully"
	MessageAccountDeleted       = "Account deleted successfully"
	MessageCourseIDRequired     = "Course ID is required"
	MessageCourseNotFound       = "Course not found"
	MessageAlreadyEnrolled      = "User is already enrolled in the course"
	MessageEnrolled             = "User enrolled in course successfully"
	MessageInvalidProfileUpload = "Profile picture must be an image"
	MessageInvalidRequestBody   = "Invalid request body"
)

// UserStore reads and mutates accounts.
type UserStore interface {
	UserByID(ctx context.Context, userID string) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UpdateUser(ctx context.Context, user *store.User) error
	SetResetToken(ctx context.Context, userID string, resetToken string) error
	DeleteUser(ctx context.Context, userID string) error
}

// EnrollmentStore reads courses and records enrollments.
type EnrollmentStore interface {
	CourseByID(ctx context.Context, courseID string) (*store.Course, error)
	FindEnrollment(ctx context.Context, userID string, courseID string) (*store.Enrollment, error)
	CreateEnrollment(ctx context.Context, enrollment *store.Enrollment) error
	EnrollmentsForUser(ctx context.Context, userID string) ([]store.Enrollment, error)
}

// Notifier sends the account lifecycle emails.
type Notifier interface {
	ProfileUpdated(ctx context.Context, recipient string)
	PasswordResetLink(ctx context.Context, recipient string, resetToken string)
	PasswordResetComplete(ctx context.Context, recipient string)
	AccountDeleted(ctx context.Context, recipient string)
	Enrolled(ctx context.Context, recipient string, courseTitle string)
}

// Dependencies are the collaborators of Handlers.
type Dependencies struct {
	Users       UserStore
	Enrollments EnrollmentStore
	Tokens      *authkit.TokenManager
	Hasher      authkit.PasswordHasher
	Notifier    Notifier
	Uploader    media.ImageUploader
	Guard       gin.HandlerFunc
	Logger      *zap.Logger
	Metrics     authkit.MetricsRecorder
}

// Handlers serves the account routes.
type Handlers struct {
	users       UserStore
	enrollments EnrollmentStore
	tokens      *authkit.TokenManager
	hasher      authkit.PasswordHasher
	notifier    Notifier
	uploader    media.ImageUploader
	guard       gin.HandlerFunc
	logger      *zap.Logger
	metrics     authkit.MetricsRecorder
}

// NewHandlers validates dependencies and builds the account handlers.
func NewHandlers(dependencies Dependencies) *Handlers {
	switch {
	case dependencies.Users == nil:
		panic("user store is required")
	case dependencies.Enrollments == nil:
		panic("enrollment store is required")
	case dependencies.Tokens == nil:
		panic("token manager is required")
	case dependencies.Notifier == nil:
		panic("notifier is required")
	case dependencies.Guard == nil:
		panic("identity guard is required")
	}
	if dependencies.Uploader == nil {
		dependencies.Uploader = media.PassthroughUploader{}
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Metrics == nil {
		dependencies.Metrics = authkit.NewCounterMetrics()
	}
	return &Handlers{
		users:       dependencies.Users,
		enrollments: dependencies.Enrollments,
		tokens:      dependencies.Tokens,
		hasher:      dependencies.Hasher,
		notifier:    dependencies.Notifier,
		uploader:    dependencies.Uploader,
		guard:       dependencies.Guard,
		logger:      dependencies.Logger,
		metrics:     dependencies.Metrics,
	}
}

// Mount registers the account routes on router. Every route requires an
// authenticated caller.
func (handlers *Handlers) Mount(router gin.IRouter) {
	authenticated := router.Group("", handlers.guard)
	authenticated.GET("/me", handlers.handleMe)
	authenticated.PUT("/update", handlers.handleUpdate)
	authenticated.POST("/forgot-password", handlers.handleForgotPassword)
	authenticated.POST("/reset-password/:token", handlers.handleResetPassword)
	authenticated.DELETE("/delete", handlers.handleDelete)
	authenticated.POST("/enroll", handlers.handleEnroll)
	authenticated.GET("/enrollments", handlers.handleEnrollments)
}

// caller reloads the authenticated user so handlers see the current record.
func (handlers *Handlers) caller(contextGin *gin.Context) (*store.User, error) {
	identity, ok := authkit.CurrentUser(contextGin)
	if !ok {
		return nil, apierror.Unauthorized(authkit.MessageInvalidAuthentication)
	}
	user, err := handlers.users.UserByID(contextGin.Request.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound(MessageUserNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (handlers *Handlers) handleMe(contextGin *gin.Context) {
	user, err := handlers.caller(contextGin)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.me.lookup", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"user": authkit.NewUserView(user)})
}

type updateProfileRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ProfilePicture string `json:"profilePicture"`
	Role           string `json:"role"`
}

func (handlers *Handlers) handleUpdate(contextGin *gin.Context) {
	var request updateProfileRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.update.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	user, err := handlers.caller(contextGin)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.update.lookup", err)
		return
	}
	if err := handlers.applyProfileUpdate(contextGin.Request.Context(), user, request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.update.apply", err)
		return
	}
	if err := handlers.users.UpdateUser(contextGin.Request.Context(), user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			err = apierror.Conflict(MessageEmailInUse)
		case errors.Is(err, store.ErrNotFound):
			err = apierror.NotFound(MessageUserNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "users.update.store", err)
		return
	}
	handlers.notifier.ProfileUpdated(contextGin.Request.Context(), user.Email)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageUserUpdated, "user": authkit.NewUserView(user)})
}

// applyProfileUpdate overlays the non-empty fields of request onto user.
func (handlers *Handlers) applyProfileUpdate(ctx context.Context, user *store.User, request updateProfileRequest) error {
	if name := strings.TrimSpace(request.Name); name != "" {
		user.Name = name
	}

	if email := strings.TrimSpace(request.Email); email != "" && email != user.Email {
		owner, err := handlers.users.UserByEmail(ctx, email)
		switch {
		case err == nil && owner.ID != user.ID:
			return apierror.Conflict(MessageEmailInUse)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}
		user.Email = email
	}

	if request.Password != "" {
		if violations := ValidateNewPassword(request.Password); len(violations) > 0 {
			return apierror.Validation(violations...)
		}
		digest, err := handlers.hasher.Hash(request.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = digest
	}

	if role := strings.TrimSpace(request.Role); role != "" && role != user.Role {
		if user.Role != store.RoleAdmin {
			handlers.metrics.Increment(authkit.MetricAccessDenied)
			return apierror.Unauthorized(authkit.MessageAccessDenied)
		}
		if !store.IsKnownRole(role) {
			return apierror.Validation(MessageUnknownRole)
		}
		user.Role = role
	}

	if picture := strings.TrimSpace(request.ProfilePicture); picture != "" {
		location, err := handlers.uploader.UploadProfilePicture(ctx, user.ID, picture)
		if err != nil {
			if errors.Is(err, media.ErrMalformedDataURI) || errors.Is(err, media.ErrUnsupportedImageType) {
				return apierror.Validation(MessageInvalidProfileUpload)
			}
			return err
		}
		user.ProfilePicture = location
	}
	return nil
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (handlers *Handlers) handleForgotPassword(contextGin *gin.Context) {
	var request forgotPasswordRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.forgot_password.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	if violations := authkit.FirstViolation(authkit.Required(MessageEmailRequired, request.Email)); len(violations) > 0 {
		apierror.Respond(contextGin, handlers.logger, "users.forgot_password.validate", apierror.Validation(violations...))
		return
	}

	ctx := contextGin.Request.Context()
	user, err := handlers.users.UserByEmail(ctx, request.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.NotFound(MessageUserNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "users.forgot_password.lookup", err)
		return
	}
	resetToken, _, err := handlers.tokens.IssueReset(user.ID)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.forgot_password.mint", err)
		return
	}
	if err := handlers.users.SetResetToken(ctx, user.ID, resetToken); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.forgot_password.store", err)
		return
	}
	handlers.metrics.Increment(authkit.MetricPasswordResetRequest)
	handlers.notifier.PasswordResetLink(ctx, user.Email, resetToken)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageResetLinkSent})
}

func (handlers *Handlers) handleResetPassword(contextGin *gin.Context) {
	var request ResetPasswordRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	user, err := handlers.caller(contextGin)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.lookup", err)
		return
	}

	resetToken := strings.TrimSpace(contextGin.Param("token"))
	if resetToken == "" || user.ResetToken == "" || user.ResetToken != resetToken {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.token_mismatch", apierror.Unauthorized(MessageInvalidToken))
		return
	}
	claims, verifyErr := handlers.tokens.Verify(resetToken, authkit.TokenKindReset)
	if verifyErr != nil || claims.UserID != user.ID {
		handlers.logger.Debug("reset token rejected",
			zap.String("code", "users.reset_password.invalid_token"),
			zap.String("user_id", user.ID),
			zap.Error(verifyErr))
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.invalid_token", apierror.Unauthorized(MessageInvalidToken))
		return
	}

	if violations := ValidateResetPasswordRequest(request); len(violations) > 0 {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.validate", apierror.Validation(violations...))
		return
	}
	if handlers.hasher.Verify(request.Password, user.PasswordHash) {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.unchanged", apierror.Validation(MessagePasswordUnchanged))
		return
	}

	digest, err := handlers.hasher.Hash(request.Password)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.hash", err)
		return
	}
	user.PasswordHash = digest
	user.ResetToken = ""
	if err := handlers.users.UpdateUser(contextGin.Request.Context(), user); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.reset_password.store", err)
		return
	}
	handlers.metrics.Increment(authkit.MetricPasswordResetComplete)
	handlers.notifier.PasswordResetComplete(contextGin.Request.Context(), user.Email)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessagePasswordReset, "user": authkit.NewUserView(user)})
}

func (handlers *Handlers) handleDelete(contextGin *gin.Context) {
	user, err := handlers.caller(contextGin)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.delete.lookup", err)
		return
	}
	if err := handlers.users.DeleteUser(contextGin.Request.Context(), user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.NotFound(MessageUserNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "users.delete.store", err)
		return
	}
	handlers.logger.Info("account deleted", zap.String("user_id", user.ID))
	handlers.notifier.AccountDeleted(contextGin.Request.Context(), user.Email)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageAccountDeleted})
}

type enrollRequest struct {
	CourseID string `json:"courseId"`
}

func (handlers *Handlers) handleEnroll(contextGin *gin.Context) {
	var request enrollRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.enroll.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	if violations := authkit.FirstViolation(authkit.Required(MessageCourseIDRequired, request.CourseID)); len(violations) > 0 {
		apierror.Respond(contextGin, handlers.logger, "users.enroll.validate", apierror.Validation(violations...))
		return
	}
	user, err := handlers.caller(contextGin)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.enroll.lookup_user", err)
		return
	}

	ctx := contextGin.Request.Context()
	course, err := handlers.enrollments.CourseByID(ctx, strings.TrimSpace(request.CourseID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.NotFound(MessageCourseNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "users.enroll.lookup_course", err)
		return
	}
	if _, findErr := handlers.enrollments.FindEnrollment(ctx, user.ID, course.ID); findErr == nil {
		apierror.Respond(contextGin, handlers.logger, "users.enroll.exists", apierror.Conflict(MessageAlreadyEnrolled))
		return
	} else if !errors.Is(findErr, store.ErrNotFound) {
		apierror.Respond(contextGin, handlers.logger, "users.enroll.find", findErr)
		return
	}

	enrollment := &store.Enrollment{UserID: user.ID, CourseID: course.ID}
	if err := handlers.enrollments.CreateEnrollment(ctx, enrollment); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			err = apierror.Conflict(MessageAlreadyEnrolled)
		}
		apierror.Respond(contextGin, handlers.logger, "users.enroll.store", err)
		return
	}
	handlers.notifier.Enrolled(ctx, user.Email, course.Title)
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageEnrolled, "enrollment": enrollment})
}

func (handlers *Handlers) handleEnrollments(contextGin *gin.Context) {
	identity, ok := authkit.CurrentUser(contextGin)
	if !ok {
		apierror.Respond(contextGin, handlers.logger, "users.enrollments.identity", apierror.Unauthorized(authkit.MessageInvalidAuthentication))
		return
	}
	enrollments, err := handlers.enrollments.EnrollmentsForUser(contextGin.Request.Context(), identity.ID)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "users.enrollments.list", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"userCourses": enrollments})
}
