package accounts

import "github.com/tyemirov/elearning/internal/authkit"

// Password reset validation messages.
const (
	MessageResetFieldsRequired = "Password and confirm password are required"
	MessagePasswordsMismatch   = "Passwords do not match"
)

// ResetPasswordRequest is the body of POST /api/users/reset-password/:token.
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ValidateResetPasswordRequest reports the first violated reset rule.
func ValidateResetPasswordRequest(request ResetPasswordRequest) []string {
	rules := []authkit.Rule{
		authkit.Required(MessageResetFieldsRequired, request.Password, request.ConfirmPassword),
		{Message: MessagePasswordsMismatch, Violated: func() bool { return request.Password != request.ConfirmPassword }},
	}
	return authkit.FirstViolation(append(rules, authkit.PasswordRules(request.Password)...)...)
}

// ValidateNewPassword applies the password rules to a profile update.
func ValidateNewPassword(password string) []string {
	return authkit.FirstViolation(authkit.PasswordRules(password)...)
}
