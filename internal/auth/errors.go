package auth

import "errors"

// Flow error kinds. Callers match with errors.Is.
var (
	// ErrInvalidState covers forged, expired or malformed state tokens.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrUnknownBackend is returned when a backend name is not configured.
	ErrUnknownBackend = errors.New("unknown authentication backend")

	// ErrProviderCommunication wraps provider endpoint failures, including timeouts.
	ErrProviderCommunication = errors.New("oauth provider communication failed")

	// ErrInactiveUser is returned when the resolved user is deactivated.
	ErrInactiveUser = errors.New("user is inactive")
)

// Client-facing error codes.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeInvalidState        = "OAUTH_INVALID_STATE"
	CodeUnknownBackend      = "OAUTH_UNKNOWN_BACKEND"
	CodeProviderError       = "OAUTH_PROVIDER_ERROR"
	CodeLoginBadCredentials = "LOGIN_BAD_CREDENTIALS"
)

// ErrorCode maps a flow error to its client-facing code. Inactive users get
// the generic bad-credentials code so account state is not disclosed.
func ErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState, true
	case errors.Is(err, ErrUnknownBackend):
		return CodeUnknownBackend, true
	case errors.Is(err, ErrProviderCommunication):
		return CodeProviderError, true
	case errors.Is(err, ErrInactiveUser):
		return CodeLoginBadCredentials, true
	}
	return "", false
}
