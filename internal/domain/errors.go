package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrConfig           = errors.New("configuration error")
	ErrAuth             = errors.New("authentication rejected")
	ErrTransport        = errors.New("transport failure")
	ErrNotFound         = errors.New("not found")
	ErrKindMismatch     = errors.New("kind mismatch")
	ErrPermissionDenied = errors.New("permission denied")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrTimeout          = errors.New("deadline exceeded")
	ErrPlatform         = errors.New("platform error")
	ErrSessionNotReady  = errors.New("session not ready")
)

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrConfig, "ConfigError"},
	{ErrAuth, "AuthError"},
	{ErrSessionNotReady, "SessionNotReadyError"},
	{ErrKindMismatch, "KindMismatchError"},
	{ErrNotFound, "NotFoundError"},
	{ErrPermissionDenied, "PermissionDeniedError"},
	{ErrPayloadTooLarge, "PayloadTooLargeError"},
	{ErrTimeout, "TimeoutError"},
	{ErrTransport, "TransportError"},
	{ErrPlatform, "PlatformError"},
}

// KindOf names the taxonomy kind of err for one-line diagnostics.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.name
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TimeoutError"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "Error"
	}
}

// PlatformError is a non-2xx answer from a chat or REST platform.
type PlatformError struct {
	Status  int
	Code    int
	Message string
	Body    []byte
}

func NewPlatformError(status, code int, message string, body []byte) *PlatformError {
	return &PlatformError{Status: status, Code: code, Message: message, Body: body}
}

func (e *PlatformError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status %d", e.Status)
	if e.Code != 0 {
		fmt.Fprintf(&b, " code %d", e.Code)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case len(e.Body) > 0:
		b.WriteString(": " + strings.TrimSpace(string(e.Body)))
	}
	return b.String()
}

func (e *PlatformError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	default:
		return ErrPlatform
	}
}

// Retryable reports whether the failure is transient (5xx or rate limited).
func (e *PlatformError) Retryable() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

type KindMismatchError struct {
	Ref  TargetRef
	Want ChannelKind
	Got  ChannelKind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("%s resolves to a %s channel, want %s", e.Ref, e.Got, e.Want)
}

func (e *KindMismatchError) Unwrap() error {
	return ErrKindMismatch
}
