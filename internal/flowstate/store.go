// Package flowstate persists in-flight login flows between the OAuth
// initiate and callback requests: the CSRF nonce, the sanitized return
// path being round-tripped through the provider, and whether the flow was
// started from a popup window.
package flowstate

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no flow exists for the handle, including
// flows that already expired or were consumed.
var ErrNotFound = errors.New("flowstate: flow not found")

// Flow is one pending login attempt.
type Flow struct {
	Nonce      string    `json:"nonce"`
	ReturnPath string    `json:"return_path"`
	Popup      bool      `json:"popup"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists flows under opaque handles with a TTL. Flows are
// single-use: Take consumes.
type Store interface {
	// Save persists the flow under handle for at most ttl.
	Save(ctx context.Context, handle string, flow Flow, ttl time.Duration) error
	// Take returns the flow for handle and removes it, or ErrNotFound.
	Take(ctx context.Context, handle string) (Flow, error)
}
