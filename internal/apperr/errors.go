package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInternal           = errors.New("internal error")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTransport covers dial failures, timeouts and broken connections.
	ErrTransport = errors.New("upstream unreachable")
	// ErrProtocolMismatch is returned when a response decodes but does not
	// carry the shape or marker the caller relies on.
	ErrProtocolMismatch = errors.New("unexpected upstream response")
)

// UpstreamError is a non-2xx answer from the marketplace API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
}

// Message returns the most useful human readable text for err, falling back
// to fallback when nothing better is known.
func Message(err error, fallback string) string {
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	var ve ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ve[0].Message
	}
	return fallback
}
