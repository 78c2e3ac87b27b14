// Package apierror maps request failures onto HTTP responses.
//
// Handlers return typed errors built by Validation, NotFound, Unauthorized,
// Conflict, or Internal; Respond is the single boundary that writes them.
// Anything else is treated as an internal failure: it is logged and the client
// only sees a generic message.
package apierror

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Kind classifies a request failure.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// InternalMessage is the only text a client sees for unexpected failures.
const InternalMessage = "Internal server error"

// Error is a classified failure carrying client-safe messages.
type Error struct {
	Kind     Kind
	Messages []string
	Cause    error
}

func (apiError *Error) Error() string {
	message := strings.Join(apiError.Messages, ", ")
	if apiError.Cause != nil {
		return string(apiError.Kind) + ": " + message + ": " + apiError.Cause.Error()
	}
	return string(apiError.Kind) + ": " + message
}

func (apiError *Error) Unwrap() error {
	return apiError.Cause
}

// Status returns the HTTP status code used for the error kind.
// Authorization failures answer 400, matching the public API contract.
func (apiError *Error) Status() int {
	switch apiError.Kind {
	case KindValidation, KindUnauthorized, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message joins the client-facing messages.
func (apiError *Error) Message() string {
	if apiError.Kind == KindInternal {
		return InternalMessage
	}
	return strings.Join(apiError.Messages, ", ")
}

func Validation(messages ...string) *Error {
	return &Error{Kind: KindValidation, Messages: messages}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Messages: []string{message}}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Messages: []string{message}}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Messages: []string{message}}
}

// Internal wraps an unexpected failure. The cause is logged, never returned.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Messages: []string{InternalMessage}, Cause: cause}
}

// Classify returns the typed form of err, treating unknown errors as internal.
func Classify(err error) *Error {
	var apiError *Error
	if errors.As(err, &apiError) {
		return apiError
	}
	return Internal(err)
}

// Respond aborts the request with the JSON body for err. Internal failures
// are logged under code.
func Respond(contextGin *gin.Context, logger *zap.Logger, code string, err error) {
	apiError := Classify(err)
	if apiError.Kind == KindInternal {
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Error("request failed",
			zap.String("code", code),
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.FullPath()),
			zap.Error(apiError.Cause))
	}
	contextGin.AbortWithStatusJSON(apiError.Status(), gin.H{"message": apiError.Message()})
}
