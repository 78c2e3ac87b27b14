package authkit

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation messages shared by every password-accepting request.
const (
	MessageRequiredFields       = "Please provide all required fields"
	MessagePasswordLength       = "Password must be between 6 and 20 characters"
	MessagePasswordLowercase    = "Password must contain a lowercase letter"
	MessagePasswordUppercase    = "Password must contain an uppercase letter"
	MessagePasswordDigit        = "Password must contain a number"
	MessagePasswordSpecial      = "Password must contain a special character"
	MessagePasswordAllowedChars = "Password must contain only alphanumeric characters and special characters"
	MessagePasswordSpaces       = "Password must not contain spaces"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 20
)

var (
	lowercasePattern    = regexp.MustCompile(`[a-z]`)
	uppercasePattern    = regexp.MustCompile(`[A-Z]`)
	digitPattern        = regexp.MustCompile(`[0-9]`)
	specialPattern      = regexp.MustCompile(`[!@#$%^&*]`)
	allowedCharsPattern = regexp.MustCompile(`^[a-zA-Z0-9!@#$%^&*]+$`)
)

// Rule pairs a violation check with the message reported when it fails.
type Rule struct {
	Violated func() bool
	Message  string
}

// FirstViolation evaluates rules in order and reports only the first failing
// rule's message. It returns nil when every rule passes.
func FirstViolation(rules ...Rule) []string {
	for _, rule := range rules {
		if rule.Violated() {
			return []string{rule.Message}
		}
	}
	return nil
}

// Required fails when any of the values is empty. Whitespace counts as a
// value and is left to the rules that follow.
func Required(message string, values ...string) Rule {
	return Rule{
		Message: message,
		Violated: func() bool {
			for _, value := range values {
				if value == "" {
					return true
				}
			}
			return false
		},
	}
}

// PasswordRules returns the ordered acceptability rules for a new password.
func PasswordRules(password string) []Rule {
	return []Rule{
		{Message: MessagePasswordLength, Violated: func() bool {
			length := utf8.RuneCountInString(password)
			return length < minPasswordLength || length > maxPasswordLength
		}},
		{Message: MessagePasswordLowercase, Violated: func() bool { return !lowercasePattern.MatchString(password) }},
		{Message: MessagePasswordUppercase, Violated: func() bool { return !uppercasePattern.MatchString(password) }},
		{Message: MessagePasswordDigit, Violated: func() bool { return !digitPattern.MatchString(password) }},
		{Message: MessagePasswordSpecial, Violated: func() bool { return !specialPattern.MatchString(password) }},
		{Message: MessagePasswordAllowedChars, Violated: func() bool { return !allowedCharsPattern.MatchString(password) }},
		{Message: MessagePasswordSpaces, Violated: func() bool { return strings.Contains(password, " ") }},
	}
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateRegisterRequest reports the first violated registration rule.
func ValidateRegisterRequest(request RegisterRequest) []string {
	rules := append([]Rule{Required(MessageRequiredFields, request.Name, request.Email, request.Password)}, PasswordRules(request.Password)...)
	return FirstViolation(rules...)
}
