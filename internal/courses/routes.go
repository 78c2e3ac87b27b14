// Package courses serves the course catalogue under /api/courses.
package courses

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/apierror"
	"github.com/tyemirov/elearning/internal/authkit"
	"github.com/tyemirov/elearning/internal/store"
	"go.uber.org/zap"
)

// Course route messages.
const (
	MessageCourseCreated      = "Course created successfully"
	MessageCourseUpdated      = "Course updated successfully"
	MessageCourseDeleted      = "Course deleted successfully"
	MessageCourseNotFound     = "Course not found"
	MessageInvalidRequestBody = "Invalid request body"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// CourseStore persists courses.
type CourseStore interface {
	CreateCourse(ctx context.Context, course *store.Course) error
	CourseByID(ctx context.Context, courseID string) (*store.Course, error)
	ListCourses(ctx context.Context, filter store.CourseFilter) ([]store.Course, error)
	UpdateCourse(ctx context.Context, course *store.Course) error
	DeleteCourse(ctx context.Context, courseID string) error
}

// Guards produces the middleware protecting course routes.
type Guards interface {
	RequireIdentity() gin.HandlerFunc
	RequireRole(role string) gin.HandlerFunc
}

// Handlers serves the course routes.
type Handlers struct {
	courses CourseStore
	guards  Guards
	logger  *zap.Logger
}

// NewHandlers builds the course handlers.
func NewHandlers(courses CourseStore, guards Guards, logger *zap.Logger) *Handlers {
	if courses == nil {
		panic("course store is required")
	}
	if guards == nil {
		panic("route guards are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{courses: courses, guards: guards, logger: logger}
}

// Mount registers the course routes on router. Writes require ADMIN; reads
// require any authenticated user.
func (handlers *Handlers) Mount(router gin.IRouter) {
	adminOnly := handlers.guards.RequireRole(store.RoleAdmin)
	authenticated := handlers.guards.RequireIdentity()

	router.POST("/create-course", adminOnly, handlers.handleCreate)
	router.GET("/get-courses", authenticated, handlers.handleList)
	router.GET("/get-course/:id", authenticated, handlers.handleGet)
	router.PUT("/update-course/:id", adminOnly, handlers.handleUpdate)
	router.DELETE("/delete-course/:id", adminOnly, handlers.handleDelete)
}

func (handlers *Handlers) handleCreate(contextGin *gin.Context) {
	var request CourseRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.create.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	request = request.trimmed()
	if violations := ValidateCourseRequest(request); len(violations) > 0 {
		apierror.Respond(contextGin, handlers.logger, "courses.create.validate", apierror.Validation(violations...))
		return
	}

	creator, _ := authkit.CurrentUser(contextGin)
	course := &store.Course{}
	request.apply(course)
	if creator != nil {
		course.CreatedByID = creator.ID
	}
	if err := handlers.courses.CreateCourse(contextGin.Request.Context(), course); err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.create.store", err)
		return
	}
	handlers.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("created_by", course.CreatedByID))
	contextGin.JSON(http.StatusCreated, gin.H{"message": MessageCourseCreated, "course": course})
}

func (handlers *Handlers) handleList(contextGin *gin.Context) {
	page := positiveQueryInt(contextGin, "page", defaultPage)
	limit := positiveQueryInt(contextGin, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if page-1 > math.MaxInt/limit {
		// No offset this large can hold a course.
		contextGin.JSON(http.StatusOK, gin.H{"courses": []store.Course{}})
		return
	}
	filter := store.CourseFilter{
		Title:    contextGin.Query("title"),
		Category: contextGin.Query("category"),
		Level:    contextGin.Query("level"),
		Offset:   (page - 1) * limit,
		Limit:    limit,
	}
	courses, err := handlers.courses.ListCourses(contextGin.Request.Context(), filter)
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.list.store", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (handlers *Handlers) handleGet(contextGin *gin.Context) {
	course, err := handlers.lookup(contextGin.Request.Context(), contextGin.Param("id"))
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.get.lookup", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"course": course})
}

func (handlers *Handlers) handleUpdate(contextGin *gin.Context) {
	var request CourseRequest
	if err := contextGin.ShouldBindJSON(&request); err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.update.bind", apierror.Validation(MessageInvalidRequestBody))
		return
	}
	ctx := contextGin.Request.Context()
	course, err := handlers.lookup(ctx, contextGin.Param("id"))
	if err != nil {
		apierror.Respond(contextGin, handlers.logger, "courses.update.lookup", err)
		return
	}

	merged := mergeInto(*course, request.trimmed())
	if violations := ValidateCourseRequest(merged); len(violations) > 0 {
		apierror.Respond(contextGin, handlers.logger, "courses.update.validate", apierror.Validation(violations...))
		return
	}
	merged.apply(course)
	if err := handlers.courses.UpdateCourse(ctx, course); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.NotFound(MessageCourseNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "courses.update.store", err)
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageCourseUpdated, "course": course})
}

func (handlers *Handlers) handleDelete(contextGin *gin.Context) {
	courseID := contextGin.Param("id")
	if err := handlers.courses.DeleteCourse(contextGin.Request.Context(), courseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.NotFound(MessageCourseNotFound)
		}
		apierror.Respond(contextGin, handlers.logger, "courses.delete.store", err)
		return
	}
	handlers.logger.Info("course deleted", zap.String("course_id", courseID))
	contextGin.JSON(http.StatusOK, gin.H{"message": MessageCourseDeleted})
}

func (handlers *Handlers) lookup(ctx context.Context, courseID string) (*store.Course, error) {
	course, err := handlers.courses.CourseByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound(MessageCourseNotFound)
		}
		return nil, err
	}
	return course, nil
}

// positiveQueryInt falls back to fallback for absent, malformed, or
// non-positive values.
func positiveQueryInt(contextGin *gin.Context, key string, fallback int) int {
	raw, present := contextGin.GetQuery(key)
	if !present {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
