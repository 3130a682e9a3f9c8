package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection wraps transport failures: DNS, refused connections,
	// timeouts and unreadable responses.
	ErrConnection = errors.New("connection failed")
	// ErrNotConfigured is returned when the endpoint for an operation is empty.
	ErrNotConfigured = errors.New("remote endpoint not configured")
	// ErrUnknownProvider is returned by OAuthURL for unsupported providers.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrNoToken is returned when a callback URL carries no session token.
	ErrNoToken = errors.New("session token missing")
)

// RemoteError is a non-success response. Message carries the server's
// error text when it sent one.
type RemoteError struct {
	Operation string
	Status    int
	Message   string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Operation, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.Status)
}

// UserMessage returns text suitable for showing to a person: the server's
// message when there is one, a generic connection message otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return ErrConnection.Error()
}
