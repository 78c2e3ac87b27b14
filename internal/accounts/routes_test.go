package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/elearning/internal/authkit"
	"github.com/tyemirov/elearning/internal/media"
	"github.com/tyemirov/elearning/internal/notify"
	"github.com/tyemirov/elearning/internal/notify/notifytest"
	"github.com/tyemirov/elearning/internal/store"
	"github.com/tyemirov/elearning/internal/store/storetest"
	"go.uber.org/zap/zaptest"
)

const memberPassword = "Abcdef1!"

type stubUploader struct {
	sources []string
	err     error
}

func (uploader *stubUploader) UploadProfilePicture(ctx context.Context, userID string, source string) (string, error) {
	if uploader.err != nil {
		return "", uploader.err
	}
	uploader.sources = append(uploader.sources, source)
	return "https://cdn.example.com/profile-pictures/" + userID + ".png", nil
}

type accountHarness struct {
	router   *gin.Engine
	database *store.Database
	tokens   *authkit.TokenManager
	hasher   authkit.PasswordHasher
	mailer   *notifytest.RecordingMailer
	uploader *stubUploader
}

func newAccountHarness(t *testing.T) *accountHarness {
	t.Helper()
	uploader := &stubUploader{}
	harness := newAccountHarnessWithUploader(t, uploader)
	harness.uploader = uploader
	return harness
}

func newAccountHarnessWithUploader(t *testing.T, uploader media.ImageUploader) *accountHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)
	database := storetest.Open(t)
	tokens, err := authkit.NewTokenManager(authkit.ServerConfig{
		JWTSigningKey: []byte("accounts-test-key"),
		JWTIssuer:     "elearning-test",
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		ResetTTL:      15 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	mailer := &notifytest.RecordingMailer{}
	hasher := authkit.NewPasswordHasher(authkit.DefaultPasswordCost)

	handlers := NewHandlers(Dependencies{
		Users:       database,
		Enrollments: database,
		Tokens:      tokens,
		Hasher:      hasher,
		Notifier:    notify.NewNotifier(mailer, notify.Config{ClientURL: "https://app.example.com"}, logger),
		Uploader:    uploader,
		Guard:       authkit.NewAuthenticator(tokens, database, logger, nil).RequireIdentity(),
		Logger:      logger,
	})
	router := gin.New()
	handlers.Mount(router.Group("/api/users"))

	return &accountHarness{
		router:   router,
		database: database,
		tokens:   tokens,
		hasher:   hasher,
		mailer:   mailer,
	}
}

// createUser stores an account and returns it with an access token.
func (harness *accountHarness) createUser(t *testing.T, email string, role string) (*store.User, string) {
	t.Helper()
	digest, err := harness.hasher.Hash(memberPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := &store.User{Name: "Member", Email: email, PasswordHash: digest, Role: role}
	if err := harness.database.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := harness.tokens.IssueAccess(user.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return user, token
}

func (harness *accountHarness) do(t *testing.T, method string, path string, token string, body any) (int, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	request := httptest.NewRequest(method, path, &payload)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", token)
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)

	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode %q: %v", recorder.Body.String(), err)
	}
	return recorder.Code, decoded
}

func (harness *accountHarness) reload(t *testing.T, userID string) *store.User {
	t.Helper()
	user, err := harness.database.UserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func TestRoutesRequireAuthentication(t *testing.T) {
	harness := newAccountHarness(t)

	status, body := harness.do(t, http.MethodGet, "/api/users/enrollments", "", nil)
	if status != http.StatusBadRequest || body["message"] != authkit.MessageInvalidAuthentication {
		t.Fatalf("expected invalid authentication, got %d %v", status, body)
	}
}

func TestMeReturnsView(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodGet, "/api/users/me", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	view := body["user"].(map[string]any)
	if view["id"] != user.ID || view["email"] != "a@x.com" {
		t.Fatalf("unexpected view %v", view)
	}
	if _, leaked := view["password"]; leaked {
		t.Fatalf("password must not be serialized")
	}
}

func TestUpdateProfileKeepsEmptyFields(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{
		"name":           "Renamed",
		"email":          "",
		"password":       "",
		"profilePicture": "data:image/png;base64,iVBORw0KGgo=",
	})
	if status != http.StatusOK || body["message"] != MessageUserUpdated {
		t.Fatalf("expected update success, got %d %v", status, body)
	}

	stored := harness.reload(t, user.ID)
	if stored.Name != "Renamed" || stored.Email != "a@x.com" || stored.Role != store.RoleUser {
		t.Fatalf("unexpected stored user %+v", stored)
	}
	if stored.PasswordHash != user.PasswordHash {
		t.Fatalf("expected password to be kept")
	}
	if stored.ProfilePicture != "https://cdn.example.com/profile-pictures/"+user.ID+".png" {
		t.Fatalf("expected uploaded picture url, got %q", stored.ProfilePicture)
	}
	if subjects := harness.mailer.Subjects(); len(subjects) != 1 || subjects[0] != "Profile Updated" {
		t.Fatalf("expected profile updated email, got %v", subjects)
	}
}

func TestUpdateProfileHashesNewPassword(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"password": "short"})
	if status != http.StatusBadRequest || body["message"] != authkit.MessagePasswordLength {
		t.Fatalf("expected password rule violation, got %d %v", status, body)
	}

	status, _ = harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"password": "Newpass1!"})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	stored := harness.reload(t, user.ID)
	if stored.PasswordHash == "Newpass1!" || !harness.hasher.Verify("Newpass1!", stored.PasswordHash) {
		t.Fatalf("expected new password stored as digest")
	}
}

func TestUpdateProfileRejectsTakenEmailAndRoleEscalation(t *testing.T) {
	harness := newAccountHarness(t)
	member, token := harness.createUser(t, "a@x.com", store.RoleUser)
	harness.createUser(t, "b@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"email": "b@x.com"})
	if status != http.StatusBadRequest || body["message"] != MessageEmailInUse {
		t.Fatalf("expected email conflict, got %d %v", status, body)
	}

	status, body = harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"role": store.RoleAdmin})
	if status != http.StatusBadRequest || body["message"] != authkit.MessageAccessDenied {
		t.Fatalf("expected access denied, got %d %v", status, body)
	}
	if stored := harness.reload(t, member.ID); stored.Role != store.RoleUser || stored.Email != "a@x.com" {
		t.Fatalf("expected member unchanged, got %+v", stored)
	}
	if len(harness.mailer.Messages()) != 0 {
		t.Fatalf("expected no email for rejected updates")
	}
}

func TestUpdateProfileAdminRoleChange(t *testing.T) {
	harness := newAccountHarness(t)
	admin, token := harness.createUser(t, "root@x.com", store.RoleAdmin)

	status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"role": "OWNER"})
	if status != http.StatusBadRequest || body["message"] != MessageUnknownRole {
		t.Fatalf("expected unknown role, got %d %v", status, body)
	}
	status, _ = harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"role": store.RoleUser})
	if status != http.StatusOK {
		t.Fatalf("expected admin role change, got %d", status)
	}
	if stored := harness.reload(t, admin.ID); stored.Role != store.RoleUser {
		t.Fatalf("expected role USER, got %s", stored.Role)
	}
}

func TestUpdateProfileRejectsInvalidPicture(t *testing.T) {
	harness := newAccountHarness(t)
	harness.uploader.err = media.ErrUnsupportedImageType
	_, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"profilePicture": "data:text/plain;base64,aGk="})
	if status != http.StatusBadRequest || body["message"] != MessageInvalidProfileUpload {
		t.Fatalf("expected invalid picture, got %d %v", status, body)
	}

	harness.uploader.err = errors.New("bucket unavailable")
	status, body = harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"profilePicture": "data:image/png;base64,iVBORw0KGgo="})
	if status != http.StatusInternalServerError || body["message"] != "Internal server error" {
		t.Fatalf("expected internal error, got %d %v", status, body)
	}
}

func TestUpdateProfileValidatesPictureWithoutObjectStore(t *testing.T) {
	harness := newAccountHarnessWithUploader(t, media.PassthroughUploader{})
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	for _, source := range []string{"data:text/plain;base64,aGk=", "data:image/png;base64,@@@"} {
		status, body := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"profilePicture": source})
		if status != http.StatusBadRequest || body["message"] != MessageInvalidProfileUpload {
			t.Fatalf("expected invalid picture for %q, got %d %v", source, status, body)
		}
	}
	if stored := harness.reload(t, user.ID); stored.ProfilePicture != "" {
		t.Fatalf("expected picture untouched, got %q", stored.ProfilePicture)
	}

	status, _ := harness.do(t, http.MethodPut, "/api/users/update", token, map[string]string{"profilePicture": "https://cdn.example.com/me.png"})
	if status != http.StatusOK {
		t.Fatalf("expected URL picture to be accepted, got %d", status)
	}
	if stored := harness.reload(t, user.ID); stored.ProfilePicture != "https://cdn.example.com/me.png" {
		t.Fatalf("expected URL stored, got %q", stored.ProfilePicture)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodPost, "/api/users/forgot-password", token, map[string]string{})
	if status != http.StatusBadRequest || body["message"] != MessageEmailRequired {
		t.Fatalf("expected email required, got %d %v", status, body)
	}
	status, body = harness.do(t, http.MethodPost, "/api/users/forgot-password", token, map[string]string{"email": "nobody@x.com"})
	if status != http.StatusNotFound || body["message"] != MessageUserNotFound {
		t.Fatalf("expected 404, got %d %v", status, body)
	}
	status, body = harness.do(t, http.MethodPost, "/api/users/forgot-password", token, map[string]string{"email": "a@x.com"})
	if status != http.StatusOK || body["message"] != MessageResetLinkSent {
		t.Fatalf("expected reset link sent, got %d %v", status, body)
	}

	resetToken := harness.reload(t, user.ID).ResetToken
	if resetToken == "" {
		t.Fatalf("expected reset token to be stored")
	}
	messages := harness.mailer.Messages()
	if len(messages) != 1 || messages[0].Subject != "Password Reset" {
		t.Fatalf("expected reset email, got %+v", messages)
	}
	if expected := "Use this link to reset your password: https://app.example.com/reset-password/" + resetToken; messages[0].Text != expected {
		t.Fatalf("expected %q, got %q", expected, messages[0].Text)
	}

	resetPath := "/api/users/reset-password/" + resetToken
	testCases := []struct {
		name            string
		path            string
		body            map[string]string
		expectedMessage string
	}{
		{name: "wrong path token", path: "/api/users/reset-password/other", body: map[string]string{"password": "Newpass1!", "confirmPassword": "Newpass1!"}, expectedMessage: MessageInvalidToken},
		{name: "missing confirmation", path: resetPath, body: map[string]string{"password": "Newpass1!"}, expectedMessage: MessageResetFieldsRequired},
		{name: "mismatch", path: resetPath, body: map[string]string{"password": "Newpass1!", "confirmPassword": "Newpass2!"}, expectedMessage: MessagePasswordsMismatch},
		{name: "weak password", path: resetPath, body: map[string]string{"password": "newpass1!", "confirmPassword": "newpass1!"}, expectedMessage: authkit.MessagePasswordUppercase},
		{name: "unchanged password", path: resetPath, body: map[string]string{"password": memberPassword, "confirmPassword": memberPassword}, expectedMessage: MessagePasswordUnchanged},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			status, body := harness.do(t, http.MethodPost, testCase.path, token, testCase.body)
			if status != http.StatusBadRequest || body["message"] != testCase.expectedMessage {
				t.Fatalf("expected %q, got %d %v", testCase.expectedMessage, status, body)
			}
		})
	}

	status, body = harness.do(t, http.MethodPost, resetPath, token, map[string]string{"password": "Newpass1!", "confirmPassword": "Newpass1!"})
	if status != http.StatusOK || body["message"] != MessagePasswordReset {
		t.Fatalf("expected reset success, got %d %v", status, body)
	}
	stored := harness.reload(t, user.ID)
	if !harness.hasher.Verify("Newpass1!", stored.PasswordHash) || stored.ResetToken != "" {
		t.Fatalf("expected new digest and cleared reset token")
	}
	if subjects := harness.mailer.Subjects(); subjects[len(subjects)-1] != "Password Reset Successful" {
		t.Fatalf("expected confirmation email, got %v", subjects)
	}

	status, body = harness.do(t, http.MethodPost, resetPath, token, map[string]string{"password": "Other1pass!", "confirmPassword": "Other1pass!"})
	if status != http.StatusBadRequest || body["message"] != MessageInvalidToken {
		t.Fatalf("expected reused token to be rejected, got %d %v", status, body)
	}
}

func TestResetPasswordRejectsNonResetToken(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	if err := harness.database.SetResetToken(context.Background(), user.ID, token); err != nil {
		t.Fatalf("set reset token: %v", err)
	}
	status, body := harness.do(t, http.MethodPost, "/api/users/reset-password/"+token, token, map[string]string{"password": "Newpass1!", "confirmPassword": "Newpass1!"})
	if status != http.StatusBadRequest || body["message"] != MessageInvalidToken {
		t.Fatalf("expected access token to be refused as reset token, got %d %v", status, body)
	}
}

func TestEnrollment(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)
	course := &store.Course{Title: "Go Basics", Category: "programming", Level: "BEGINNER", Description: "Learn the language", Instructor: "Ada", Duration: 60}
	if err := harness.database.CreateCourse(context.Background(), course); err != nil {
		t.Fatalf("create course: %v", err)
	}

	status, body := harness.do(t, http.MethodGet, "/api/users/enrollments", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for empty list, got %d", status)
	}
	if courses, ok := body["userCourses"].([]any); !ok || len(courses) != 0 {
		t.Fatalf("expected empty list, got %v", body["userCourses"])
	}

	status, body = harness.do(t, http.MethodPost, "/api/users/enroll", token, map[string]string{})
	if status != http.StatusBadRequest || body["message"] != MessageCourseIDRequired {
		t.Fatalf("expected course id required, got %d %v", status, body)
	}
	status, body = harness.do(t, http.MethodPost, "/api/users/enroll", token, map[string]string{"courseId": "missing"})
	if status != http.StatusNotFound || body["message"] != MessageCourseNotFound {
		t.Fatalf("expected course not found, got %d %v", status, body)
	}

	status, body = harness.do(t, http.MethodPost, "/api/users/enroll", token, map[string]string{"courseId": course.ID})
	if status != http.StatusOK || body["message"] != MessageEnrolled {
		t.Fatalf("expected enrollment, got %d %v", status, body)
	}
	status, body = harness.do(t, http.MethodPost, "/api/users/enroll", token, map[string]string{"courseId": course.ID})
	if status != http.StatusBadRequest || body["message"] != MessageAlreadyEnrolled {
		t.Fatalf("expected duplicate enrollment conflict, got %d %v", status, body)
	}
	if count, err := harness.database.CountEnrollments(context.Background(), user.ID); err != nil || count != 1 {
		t.Fatalf("expected one enrollment, got %d %v", count, err)
	}

	status, body = harness.do(t, http.MethodGet, "/api/users/enrollments", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	courses := body["userCourses"].([]any)
	if len(courses) != 1 {
		t.Fatalf("expected one enrollment, got %v", courses)
	}
	enrolled := courses[0].(map[string]any)["course"].(map[string]any)
	if enrolled["title"] != "Go Basics" {
		t.Fatalf("expected course details, got %v", enrolled)
	}
	if subjects := harness.mailer.Subjects(); len(subjects) != 1 || subjects[0] != "Course Enrollment" {
		t.Fatalf("expected one enrollment email, got %v", subjects)
	}
}

func TestDeleteAccount(t *testing.T) {
	harness := newAccountHarness(t)
	user, token := harness.createUser(t, "a@x.com", store.RoleUser)

	status, body := harness.do(t, http.MethodDelete, "/api/users/delete", token, nil)
	if status != http.StatusOK || body["message"] != MessageAccountDeleted {
		t.Fatalf("expected delete success, got %d %v", status, body)
	}
	if _, err := harness.database.UserByID(context.Background(), user.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected user removed, got %v", err)
	}
	if subjects := harness.mailer.Subjects(); len(subjects) != 1 || subjects[0] != "Account Deleted" {
		t.Fatalf("expected account deleted email, got %v", subjects)
	}

	status, body = harness.do(t, http.MethodDelete, "/api/users/delete", token, nil)
	if status != http.StatusBadRequest || body["message"] != authkit.MessageUserDoesNotExist {
		t.Fatalf("expected stale token to be refused, got %d %v", status, body)
	}
}
