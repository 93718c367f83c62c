// Package authstate holds the process-wide authenticated/unauthenticated
// state consumed by route guards.
//
// The holder is a binary gate, not an error diagnoser: a network failure
// and an explicit invalid session both settle to unauthenticated here.
// Finer-grained diagnostics are logged, never surfaced.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	"famletter/internal/probe"
)

// Snapshot is the immutable view consumers read. Loading is true only
// before the first probe sequence settles.
type Snapshot struct {
	Authenticated bool
	Loading       bool
	User          *probe.User
}

// Prober is the subset of the session prober the holder drives.
type Prober interface {
	Verify(ctx context.Context) probe.Result
	CurrentUser(ctx context.Context) (*probe.User, probe.Result)
	Logout(ctx context.Context) error
}

// Holder owns the session state. Exactly one instance exists for the
// lifetime of the application; consumers read snapshots but never mutate
// them directly. All mutation goes through Bootstrap, Login, Logout and
// RefreshAuth.
type Holder struct {
	prober Prober
	logger *slog.Logger

	mu   sync.Mutex
	snap Snapshot
	// gen orders probe sequences. A probe applies its result only if no
	// newer probe started while it was in flight, so a stale response can
	// never overwrite a newer one.
	gen uint64
}

// New constructs a Holder in the initial loading state.
func New(prober Prober, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{
		prober: prober,
		logger: logger,
		snap:   Snapshot{Loading: true},
	}
}

// Snapshot returns the current state.
func (h *Holder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Bootstrap runs the mount-time probe sequence and settles the holder out
// of its loading state.
func (h *Holder) Bootstrap(ctx context.Context) Snapshot {
	return h.runProbe(ctx)
}

// Login re-runs the probe sequence. Used by the callback coordinator and by
// any caller that just completed an auth-affecting action.
func (h *Holder) Login(ctx context.Context) Snapshot {
	return h.runProbe(ctx)
}

// RefreshAuth re-runs the probe sequence on demand.
func (h *Holder) RefreshAuth(ctx context.Context) Snapshot {
	return h.runProbe(ctx)
}

// Logout issues the best-effort server-side logout, then unconditionally
// resets to unauthenticated. A failed network call is logged and otherwise
// ignored; the local reset must never block on the server.
func (h *Holder) Logout(ctx context.Context) Snapshot {
	if err := h.prober.Logout(ctx); err != nil {
		h.logger.Warn("server-side logout failed", "error", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++ // invalidate any probe still in flight
	h.snap = Snapshot{}
	return h.snap
}

func (h *Holder) runProbe(ctx context.Context) Snapshot {
	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.mu.Unlock()

	next := Snapshot{}

	if result := h.prober.Verify(ctx); result.Outcome == probe.OutcomeValid {
		user, userResult := h.prober.CurrentUser(ctx)
		if userResult.Outcome == probe.OutcomeValid {
			next = Snapshot{Authenticated: true, User: user}
		} else {
			h.logger.Warn("session verified but user fetch failed", "outcome", userResult.Outcome.String(), "status", userResult.StatusCode)
		}
	} else if result.Outcome == probe.OutcomeNetworkError {
		h.logger.Warn("session probe network error", "error", result.Err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.gen {
		// A newer probe or logout superseded this one; discard.
		return h.snap
	}
	h.snap = next
	return h.snap
}
