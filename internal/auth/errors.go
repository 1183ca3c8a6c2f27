package auth

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	codeNotSignedIn = "NOT_SIGNED_IN"
	fallbackMessage = "Something went wrong. Please try again."
)

// Error is a failure reported by the auth provider, identified by its code.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string {
	return "auth: " + e.Code
}

// messages maps provider codes to what the user sees.
var messages = map[string]string{
	"EMAIL_EXISTS":                "This email is already registered. Try signing in instead.",
	"EMAIL_NOT_FOUND":             "Invalid email or password.",
	"INVALID_PASSWORD":            "Invalid email or password.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"INVALID_EMAIL":               "Email address is not valid.",
	"MISSING_PASSWORD":            "Please enter your password.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Please try again later.",
	"OPERATION_NOT_ALLOWED":       "This sign-in method is not enabled.",
	"INVALID_IDP_RESPONSE":        "Google sign-in failed. Please try again.",
	"INVALID_ID_TOKEN":            "Your session has expired. Please sign in again.",
	"TOKEN_EXPIRED":               "Your session has expired. Please sign in again.",
	codeNotSignedIn:               "Please sign in first.",
}

// Message turns any auth error into user-facing text. Unknown codes and
// non-provider errors get the generic fallback.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if msg, ok := messages[ae.Code]; ok {
			return msg
		}
	}
	return fallbackMessage
}

// IsCode reports whether err is a provider error with the given code.
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

func parseError(status int, raw []byte) *Error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	code := "UNKNOWN"
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		code = payload.Error.Message
	}
	// "WEAK_PASSWORD : Password should be at least 6 characters"
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}
	return &Error{Status: status, Code: code}
}
