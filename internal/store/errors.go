package store

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for outcomes where no extra context is needed. All
// authorization and validation outcomes are returned as typed errors, never
// panics; only infrastructure failures (the database being unavailable)
// surface as plain wrapped errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyBanned = errors.New("identity already banned")
)

// ValidationError reports malformed input. Field names the offending input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BannedError rejects a mutation from an actively banned identity. It
// carries enough for the UI to render the reason and the remaining time.
type BannedError struct {
	Reason    string
	Remaining time.Duration
}

func (e *BannedError) Error() string {
	return fmt.Sprintf("banned: %s (%s remaining)", e.Reason, e.Remaining.Round(time.Second))
}

// RateLimitedError rejects an action still inside its cooldown window.
type RateLimitedError struct {
	Action    string
	Remaining time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s again in %s", e.Action, e.Remaining.Round(time.Millisecond))
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
