package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

func TestRespondStatusAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedMessage string
	}{
		{name: "validation", err: Validation("Please provide all required fields"), expectedStatus: http.StatusBadRequest, expectedMessage: "Please provide all required fields"},
		{name: "not found", err: NotFound("User not found"), expectedStatus: http.StatusNotFound, expectedMessage: "User not found"},
		{name: "unauthorized", err: Unauthorized("Access Denied"), expectedStatus: http.StatusBadRequest, expectedMessage: "Access Denied"},
		{name: "conflict", err: Conflict("User already exists"), expectedStatus: http.StatusBadRequest, expectedMessage: "User already exists"},
		{name: "wrapped typed", err: fmt.Errorf("outer: %w", NotFound("Course not found")), expectedStatus: http.StatusNotFound, expectedMessage: "Course not found"},
		{name: "untyped", err: errors.New("dial tcp: connection refused"), expectedStatus: http.StatusInternalServerError, expectedMessage: InternalMessage},
		{name: "internal", err: Internal(errors.New("secret detail")), expectedStatus: http.StatusInternalServerError, expectedMessage: InternalMessage},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/probe", func(contextGin *gin.Context) {
				Respond(contextGin, zaptest.NewLogger(t), "test.probe", testCase.err)
			})
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/probe", nil))

			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d", testCase.expectedStatus, recorder.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["message"] != testCase.expectedMessage {
				t.Fatalf("expected message %q, got %q", testCase.expectedMessage, body["message"])
			}
		})
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	if !errors.Is(Internal(cause), cause) {
		t.Fatalf("expected Internal to unwrap to its cause")
	}
}
