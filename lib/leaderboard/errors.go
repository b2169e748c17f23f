package leaderboard

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus = errors.New("leaderboard: unexpected status")
	ErrNotJSON          = errors.New("leaderboard: response is not JSON")
	ErrBadBaseURL       = errors.New("leaderboard: base URL is invalid")
	ErrNoSigner         = errors.New("leaderboard: a signer is required")
)

// StatusError is returned when a call that must succeed gets a non-2xx
// answer. It matches ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("leaderboard: unexpected %s status %s: %s", e.Endpoint, e.Status, bytes.TrimSpace(e.Body))
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
