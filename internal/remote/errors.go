// Package remote implements the hosted store the storefront talks to:
// account auth with persisted sessions, profile and order records, and an
// asynchronous auth-event feed per connected client.
package remote

const (
	CodeNotFound           = "not_found"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserExists         = "user_already_exists"
	CodeWeakPassword       = "weak_password"
	CodeValidation         = "validation_failed"
	CodeNoSession          = "session_not_found"
)

// Error is a coded remote-store failure. Message is safe to show to users.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works on fresh values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "record not found"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
	ErrUserExists         = &Error{Code: CodeUserExists, Message: "User already registered"}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword, Message: "Password should be at least 6 characters"}
	ErrNoSession          = &Error{Code: CodeNoSession, Message: "Auth session missing"}
)
