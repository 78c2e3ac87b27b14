package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tyemirov/elearning/internal/notify"
	"github.com/tyemirov/elearning/internal/notify/notifytest"
	"go.uber.org/zap/zaptest"
)

func TestNotifierAppliesSenderAndOverride(t *testing.T) {
	mailer := &notifytest.RecordingMailer{}
	notifier := notify.NewNotifier(mailer, notify.Config{OverrideRecipient: "sandbox@example.com"}, zaptest.NewLogger(t))

	notifier.Welcome(context.Background(), "ada@example.com")

	messages := mailer.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].From != notify.DefaultSender {
		t.Fatalf("expected default sender, got %q", messages[0].From)
	}
	if messages[0].To != "sandbox@example.com" {
		t.Fatalf("expected override recipient, got %q", messages[0].To)
	}
	if messages[0].Subject != "Registration Successful!" {
		t.Fatalf("unexpected subject %q", messages[0].Subject)
	}
}

func TestNotifierSwallowsDeliveryErrors(t *testing.T) {
	mailer := &notifytest.RecordingMailer{Err: errors.New("provider down")}
	notifier := notify.NewNotifier(mailer, notify.Config{}, zaptest.NewLogger(t))

	notifier.AccountDeleted(context.Background(), "ada@example.com")

	if len(mailer.Messages()) != 1 {
		t.Fatalf("expected delivery to be attempted once")
	}
}

func TestPasswordResetLinkUsesClientURL(t *testing.T) {
	mailer := &notifytest.RecordingMailer{}
	notifier := notify.NewNotifier(mailer, notify.Config{ClientURL: "https://learn.example.com/"}, zaptest.NewLogger(t))

	notifier.PasswordResetLink(context.Background(), "ada@example.com", "token-123")

	messages := mailer.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	expectedLink := "https://learn.example.com/reset-password/token-123"
	if !strings.Contains(messages[0].Text, expectedLink) || !strings.Contains(messages[0].HTML, expectedLink) {
		t.Fatalf("expected reset link %q in message, got %+v", expectedLink, messages[0])
	}
}

func TestEnrolledEscapesCourseTitle(t *testing.T) {
	mailer := &notifytest.RecordingMailer{}
	notifier := notify.NewNotifier(mailer, notify.Config{}, zaptest.NewLogger(t))

	notifier.Enrolled(context.Background(), "ada@example.com", "<Go>")

	message := mailer.Messages()[0]
	if !strings.Contains(message.HTML, "&lt;Go&gt;") {
		t.Fatalf("expected escaped title in html, got %q", message.HTML)
	}
	if !strings.Contains(message.Text, "<Go>") {
		t.Fatalf("expected raw title in text, got %q", message.Text)
	}
}
