package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"
)

// DefaultSender is the From address used when none is configured.
const DefaultSender = "onboarding@resend.dev"

// Config configures the Notifier.
type Config struct {
	From string
	// OverrideRecipient, when set, receives every message instead of the
	// account's address. Sandbox provider accounts only deliver to one inbox.
	OverrideRecipient string
	ClientURL         string
}

// Notifier sends the platform's transactional emails. Delivery is best
// effort: failures are logged and never returned to the caller.
type Notifier struct {
	mailer Mailer
	config Config
	logger *zap.Logger
}

// NewNotifier builds a Notifier.
func NewNotifier(mailer Mailer, configuration Config, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	if strings.TrimSpace(configuration.From) == "" {
		configuration.From = DefaultSender
	}
	configuration.ClientURL = strings.TrimRight(configuration.ClientURL, "/")
	return &Notifier{mailer: mailer, config: configuration, logger: logger}
}

// Welcome confirms a new registration.
func (notifier *Notifier) Welcome(ctx context.Context, recipient string) {
	notifier.deliver(ctx, "mail.welcome", Message{
		To:      recipient,
		Subject: "Registration Successful!",
		Text:    "Welcome to elearning! You have successfully registered.",
		HTML:    "<p>Welcome to elearning! You have successfully registered.</p>",
	})
}

// ProfileUpdated confirms a profile change.
func (notifier *Notifier) ProfileUpdated(ctx context.Context, recipient string) {
	notifier.deliver(ctx, "mail.profile_updated", Message{
		To:      recipient,
		Subject: "Profile Updated",
		Text:    "Your profile has been updated successfully",
		HTML:    "<p>Your profile has been updated successfully</p>",
	})
}

// PasswordResetLink sends the link that carries resetToken to the client app.
func (notifier *Notifier) PasswordResetLink(ctx context.Context, recipient string, resetToken string) {
	link := notifier.ResetLink(resetToken)
	notifier.deliver(ctx, "mail.password_reset_link", Message{
		To:      recipient,
		Subject: "Password Reset",
		Text:    "Use this link to reset your password: " + link,
		HTML:    fmt.Sprintf(`<p>Use this link to reset your password: <a href="%s">Reset Password</a></p>`, html.EscapeString(link)),
	})
}

// PasswordResetComplete confirms a password change.
func (notifier *Notifier) PasswordResetComplete(ctx context.Context, recipient string) {
	notifier.deliver(ctx, "mail.password_reset_complete", Message{
		To:      recipient,
		Subject: "Password Reset Successful",
		Text:    "Your password has been reset successfully",
		HTML:    "<p>Your password has been reset successfully</p>",
	})
}

// AccountDeleted confirms an account deletion.
func (notifier *Notifier) AccountDeleted(ctx context.Context, recipient string) {
	notifier.deliver(ctx, "mail.account_deleted", Message{
		To:      recipient,
		Subject: "Account Deleted",
		Text:    "Your account has been deleted successfully",
		HTML:    "<p>Your account has been deleted successfully</p>",
	})
}

// Enrolled confirms an enrollment in courseTitle.
func (notifier *Notifier) Enrolled(ctx context.Context, recipient string, courseTitle string) {
	notifier.deliver(ctx, "mail.enrolled", Message{
		To:      recipient,
		Subject: "Course Enrollment",
		Text:    "You have successfully enrolled in " + courseTitle,
		HTML:    "<p>You have successfully enrolled in " + html.EscapeString(courseTitle) + "</p>",
	})
}

// ResetLink builds the client URL that completes a password reset.
func (notifier *Notifier) ResetLink(resetToken string) string {
	return notifier.config.ClientURL + "/reset-password/" + resetToken
}

func (notifier *Notifier) deliver(ctx context.Context, code string, message Message) {
	message.From = notifier.config.From
	if notifier.config.OverrideRecipient != "" {
		message.To = notifier.config.OverrideRecipient
	}
	if err := notifier.mailer.Send(ctx, message); err != nil {
		notifier.logger.Error("email delivery failed",
			zap.String("code", code),
			zap.String("subject", message.Subject),
			zap.Error(err))
	}
}
