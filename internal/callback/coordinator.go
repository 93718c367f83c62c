// Package callback drives the OAuth callback page: it stores the
// round-tripped return path, probes the session, resolves popup versus
// main-window context and decides the final navigation or close action.
package callback

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"famletter/internal/authstate"
	"famletter/internal/probe"
	"famletter/internal/returnurl"
	"famletter/internal/safepath"
)

// State is the coordinator's machine state. Processing transitions to
// exactly one of Success or Error; both are terminal for the page load.
type State int

const (
	StateProcessing State = iota
	StateSuccess
	StateError
)

// String returns a short label for logging.
func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the coordinator's terminal value, driving the status panel.
type Outcome struct {
	State   State
	User    *probe.User
	Message string
}

// Opener message types. The payload shape is fixed by the web client.
const (
	MessageTypeSuccess = "KAKAO_LOGIN_SUCCESS"
	MessageTypeError   = "KAKAO_LOGIN_ERROR"
)

// Message is the structured payload posted to the opener window in popup
// context. The environment must target it at the page's own origin, never
// a wildcard.
type Message struct {
	Type  string      `json:"type"`
	User  *probe.User `json:"user,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Env abstracts the window the coordinator runs in.
type Env interface {
	// InPopup reports whether a same-origin opener window distinct from
	// the current window is present.
	InPopup() bool
	// PostToOpener delivers msg to the opener at the page's own origin.
	PostToOpener(msg Message) error
	// CloseWindow attempts a programmatic close. Browsers may refuse to
	// close windows not opened by script.
	CloseWindow() error
	// Navigate performs client-side navigation to an application path.
	Navigate(path string)
}

// Prober is the session prober the coordinator consults.
type Prober interface {
	Verify(ctx context.Context) probe.Result
	Refresh(ctx context.Context) probe.Result
	CurrentUser(ctx context.Context) (*probe.User, probe.Result)
}

// SessionRefresher updates the process-wide auth state after a confirmed
// login. Only the main-window branch uses it; a popup's opener refreshes
// its own state from the posted message.
type SessionRefresher interface {
	Login(ctx context.Context) authstate.Snapshot
}

// Delays are the coordinator's pacing constants. Each one exists for a
// reason; none is a retry loop.
type Delays struct {
	// CookieGrace tolerates cookie-propagation latency between the
	// redirect response and the browser sending the new session cookie.
	// One-shot, never repeated.
	CookieGrace time.Duration
	// SuccessRedirect keeps the success message visible before the
	// main-window navigation. Purely cosmetic.
	SuccessRedirect time.Duration
	// PopupClose gives the opener time to process the success message
	// before the popup closes.
	PopupClose time.Duration
	// PopupErrorClose gives the user time to read an error message in a
	// popup before it closes.
	PopupErrorClose time.Duration
	// ErrorRedirect bounds how long a main-window error page is shown
	// before routing back to login.
	ErrorRedirect time.Duration
}

// DefaultDelays returns the standard pacing.
func DefaultDelays() Delays {
	return Delays{
		CookieGrace:     200 * time.Millisecond,
		SuccessRedirect: 500 * time.Millisecond,
		PopupClose:      1500 * time.Millisecond,
		PopupErrorClose: 3 * time.Second,
		ErrorRedirect:   2 * time.Second,
	}
}

// Paths are the application routes the coordinator navigates to.
type Paths struct {
	Login             string
	ProfileCompletion string
}

// DefaultPaths returns the standard application routes.
func DefaultPaths() Paths {
	return Paths{
		Login:             "/login",
		ProfileCompletion: "/profile/complete",
	}
}

// Config wires a Coordinator.
type Config struct {
	Prober Prober
	Env    Env
	Store  *returnurl.Store
	Auth   SessionRefresher
	Delays Delays
	Paths  Paths
	Logger *slog.Logger
}

// Coordinator runs the callback sequence exactly once per page load.
type Coordinator struct {
	cfg Config

	mu      sync.Mutex
	ran     bool
	outcome Outcome
}

// New constructs a Coordinator, applying default delays and paths where
// the config leaves them zero.
func New(cfg Config) *Coordinator {
	if cfg.Delays == (Delays{}) {
		cfg.Delays = DefaultDelays()
	}
	if cfg.Paths == (Paths{}) {
		cfg.Paths = DefaultPaths()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, outcome: Outcome{State: StateProcessing}}
}

// Outcome returns the current machine state.
func (c *Coordinator) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Run executes the callback sequence for callbackURL. It returns the
// terminal outcome, or the Processing outcome when ctx ends first (the
// page was torn down; the result is discarded). A second call returns the
// first call's outcome without re-running anything.
func (c *Coordinator) Run(ctx context.Context, callbackURL *url.URL) Outcome {
	c.mu.Lock()
	if c.ran {
		out := c.outcome
		c.mu.Unlock()
		return out
	}
	c.ran = true
	c.mu.Unlock()

	return c.run(ctx, callbackURL)
}

func (c *Coordinator) run(ctx context.Context, callbackURL *url.URL) Outcome {
	query := callbackURL.Query()

	// The original path is round-tripped through the provider as opaque
	// state. Store it before anything else so that even a failed attempt
	// leaves a retry landing on the original target.
	if state := query.Get("state"); state != "" {
		c.cfg.Store.Save(state)
	}

	if reason, failed := failureReason(callbackURL); failed {
		return c.fail(ctx, callbackURL, reasonMessage(reason))
	}

	// One-shot grace period for the session cookie to settle.
	if !c.sleep(ctx, c.cfg.Delays.CookieGrace) {
		return c.Outcome()
	}

	verified := c.cfg.Prober.Verify(ctx)
	if verified.Outcome == probe.OutcomeInvalid {
		// Suspected cookie-propagation race: one refresh, one re-verify,
		// nothing more.
		if refreshed := c.cfg.Prober.Refresh(ctx); refreshed.Outcome == probe.OutcomeValid {
			verified = c.cfg.Prober.Verify(ctx)
		}
	}
	if verified.Outcome != probe.OutcomeValid {
		c.cfg.Logger.Warn("callback: session verification failed", "outcome", verified.Outcome.String(), "status", verified.StatusCode)
		return c.fail(ctx, callbackURL, probeFailureMessage(verified))
	}

	user, fetched := c.cfg.Prober.CurrentUser(ctx)
	if fetched.Outcome != probe.OutcomeValid {
		c.cfg.Logger.Warn("callback: user fetch failed", "outcome", fetched.Outcome.String(), "status", fetched.StatusCode)
		return c.fail(ctx, callbackURL, probeFailureMessage(fetched))
	}

	if c.cfg.Env.InPopup() {
		return c.succeedPopup(ctx, user)
	}
	return c.succeedMainWindow(ctx, user)
}

func (c *Coordinator) succeedPopup(ctx context.Context, user *probe.User) Outcome {
	if err := c.cfg.Env.PostToOpener(Message{Type: MessageTypeSuccess, User: user}); err != nil {
		c.cfg.Logger.Warn("callback: post to opener failed", "error", err)
	}

	out := c.setOutcome(Outcome{State: StateSuccess, User: user, Message: msgLoginComplete})

	if !c.sleep(ctx, c.cfg.Delays.PopupClose) {
		return out
	}
	if err := c.cfg.Env.CloseWindow(); err != nil {
		// Some browsers refuse to close windows not opened by script.
		// Leave the panel asking the user to close it; never navigate a
		// popup anywhere.
		c.cfg.Logger.Warn("callback: popup close blocked", "error", err)
		return c.setOutcome(Outcome{State: StateSuccess, User: user, Message: msgCloseManually})
	}
	return out
}

func (c *Coordinator) succeedMainWindow(ctx context.Context, user *probe.User) Outcome {
	if c.cfg.Auth != nil {
		c.cfg.Auth.Login(ctx)
	}

	// New users must complete their profile before anything else; the
	// stored return path is overridden, not consumed.
	target := c.cfg.Paths.ProfileCompletion
	if user.ProfileComplete() {
		target = safepath.Sanitize(c.cfg.Store.Read())
	}

	out := c.setOutcome(Outcome{State: StateSuccess, User: user, Message: msgLoginComplete})

	if !c.sleep(ctx, c.cfg.Delays.SuccessRedirect) {
		return out
	}
	c.cfg.Env.Navigate(target)
	return out
}

// fail drives the terminal Error state. Every probe or assertion failure
// funnels through here; nothing escapes to a global handler.
func (c *Coordinator) fail(ctx context.Context, callbackURL *url.URL, message string) Outcome {
	out := c.setOutcome(Outcome{State: StateError, Message: message})

	if c.cfg.Env.InPopup() {
		if err := c.cfg.Env.PostToOpener(Message{Type: MessageTypeError, Error: message}); err != nil {
			c.cfg.Logger.Warn("callback: post to opener failed", "error", err)
		}
		if !c.sleep(ctx, c.cfg.Delays.PopupErrorClose) {
			return out
		}
		if err := c.cfg.Env.CloseWindow(); err != nil {
			c.cfg.Logger.Warn("callback: popup close blocked", "error", err)
			return c.setOutcome(Outcome{State: StateError, Message: message + " " + msgCloseManually})
		}
		return out
	}

	if !c.sleep(ctx, c.cfg.Delays.ErrorRedirect) {
		return out
	}

	// Preserve the intended destination so a second login attempt lands
	// where the first one meant to.
	target := c.cfg.Paths.Login
	if resolved := c.cfg.Store.ResolveForLogin(callbackURL); resolved != safepath.Home {
		target += "?" + url.Values{returnurl.QueryParam: {resolved}}.Encode()
	}
	c.cfg.Env.Navigate(target)
	return out
}

func (c *Coordinator) setOutcome(out Outcome) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcome = out
	return out
}

// sleep waits for d, returning false when ctx ends first. The page
// lifecycle owns ctx; a cancelled context means the run's result is to be
// discarded, so callers stop without touching anything further.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Provider failure reasons, echoed in the callback URL. Anything outside
// the fixed vocabulary maps to the unknown catch-all.
const (
	ReasonNoCode         = "no_code"
	ReasonInvalidAccount = "invalid_account"
	ReasonServerError    = "server_error"
)

// User-facing status messages.
const (
	msgLoginComplete  = "로그인이 완료되었습니다."
	msgCloseManually  = "이 창을 직접 닫아주세요."
	msgVerifyFailed   = "인증 확인에 실패했습니다. 다시 로그인해 주세요."
	msgServerError    = "서버 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	msgNoCode         = "인증 코드를 받지 못했습니다. 다시 시도해 주세요."
	msgInvalidAccount = "사용할 수 없는 계정입니다."
	msgUnknownFailure = "로그인에 실패했습니다. 다시 시도해 주세요."
)

// failureReason normalizes both failure signaling styles, a reason query
// parameter and a failure-specific path segment, into one internal reason.
func failureReason(u *url.URL) (string, bool) {
	if reason := u.Query().Get("reason"); reason != "" {
		return reason, true
	}
	if strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/failure") {
		return "", true
	}
	return "", false
}

func reasonMessage(reason string) string {
	switch reason {
	case ReasonNoCode:
		return msgNoCode
	case ReasonInvalidAccount:
		return msgInvalidAccount
	case ReasonServerError:
		return msgServerError
	default:
		return msgUnknownFailure
	}
}

// probeFailureMessage distinguishes "session expired" from "server error"
// when the probe result allows it.
func probeFailureMessage(result probe.Result) string {
	if result.Outcome == probe.OutcomeNetworkError || result.StatusCode >= http.StatusInternalServerError {
		return msgServerError
	}
	return msgVerifyFailed
}
