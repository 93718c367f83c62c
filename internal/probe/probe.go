// Package probe issues the read-only session verification calls against the
// auth gateway and normalizes their outcome into a tri-state result.
//
// A network failure is deliberately distinguished from an explicit 401: a
// transport error may be transient and must not be treated as "definitely
// logged out".
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Outcome classifies the result of a single probe call.
type Outcome int

const (
	// OutcomeValid means the gateway confirmed an authenticated session.
	OutcomeValid Outcome = iota
	// OutcomeInvalid means the gateway explicitly rejected the session.
	OutcomeInvalid
	// OutcomeNetworkError means the call never completed (transport
	// failure or timeout); the session state is unknown.
	OutcomeNetworkError
)

// String returns a short label for logging.
func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Result carries the outcome of a probe call plus enough detail for callers
// that distinguish a 401 from a server-side failure. StatusCode is zero when
// the request never completed.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Err        error
}

// User mirrors the gateway's representation of the authenticated principal.
// It is replaced wholesale on every fetch, never patched field-by-field.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Active    bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ProfileComplete reports whether the user has finished initial profile
// setup. Users missing a name or phone number are routed to the
// profile-completion page after login.
func (u *User) ProfileComplete() bool {
	return u != nil && strings.TrimSpace(u.Name) != "" && strings.TrimSpace(u.Phone) != ""
}

const defaultTimeout = 10 * time.Second

// Client probes the auth gateway. It carries credentials (cookies) on every
// call via its cookie jar and applies a bounded timeout so a silent outage
// cannot stall a caller indefinitely.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures the Client during construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. The caller is
// responsible for credential handling on the replacement.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New constructs a Client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}

	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		jar, _ := cookiejar.New(nil)
		c.client = &http.Client{Timeout: defaultTimeout, Jar: jar}
	}

	return c
}

// Verify issues the credential-bearing session-verification call.
func (c *Client) Verify(ctx context.Context) Result {
	resp, err := c.do(ctx, http.MethodGet, "/auth/verify")
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusOK {
		var payload struct {
			Valid bool `json:"valid"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return Result{Outcome: OutcomeInvalid, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode verify response: %w", err)}
		}
		if payload.Valid {
			return Result{Outcome: OutcomeValid, StatusCode: resp.StatusCode}
		}
		return Result{Outcome: OutcomeInvalid, StatusCode: resp.StatusCode}
	}

	return classify(resp.StatusCode)
}

// CurrentUser fetches the authenticated principal. The returned user is nil
// unless the result outcome is OutcomeValid.
func (c *Client) CurrentUser(ctx context.Context) (*User, Result) {
	resp, err := c.do(ctx, http.MethodGet, "/auth/me")
	if err != nil {
		return nil, Result{Outcome: OutcomeNetworkError, Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusOK {
		var user User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, Result{Outcome: OutcomeInvalid, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode user: %w", err)}
		}
		return &user, Result{Outcome: OutcomeValid, StatusCode: resp.StatusCode}
	}

	return nil, classify(resp.StatusCode)
}

// Refresh attempts a session refresh. A successful refresh is not proof of
// validity; callers must re-invoke Verify once afterwards. Callers must not
// retry beyond that single refresh-then-reverify fallback.
func (c *Client) Refresh(ctx context.Context) Result {
	resp, err := c.do(ctx, http.MethodPost, "/auth/refresh")
	if err != nil {
		return Result{Outcome: OutcomeNetworkError, Err: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Outcome: OutcomeValid, StatusCode: resp.StatusCode}
	}

	return classify(resp.StatusCode)
}

// VerifyWithRefresh runs Verify and, on an explicit Invalid, applies the
// single refresh-then-reverify fallback for cookie-propagation races. Any
// other outcome is returned unchanged.
func (c *Client) VerifyWithRefresh(ctx context.Context) Result {
	first := c.Verify(ctx)
	if first.Outcome != OutcomeInvalid {
		return first
	}

	if refreshed := c.Refresh(ctx); refreshed.Outcome != OutcomeValid {
		return first
	}

	return c.Verify(ctx)
}

// Logout issues the best-effort server-side logout. Failures are returned
// for logging but never block the caller's local state reset.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout")
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)
	return nil
}

// LoginURL fetches the third-party authorization URL for a login attempt,
// attaching returnPath so the gateway can round-trip it through the
// provider as opaque state.
func (c *Client) LoginURL(ctx context.Context, returnPath string) (string, error) {
	target := "/auth/kakao/url"
	if returnPath != "" {
		target += "?" + url.Values{"returnUrl": {returnPath}}.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, target)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login url: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		LoginURL string `json:"login_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode login url: %w", err)
	}
	if payload.LoginURL == "" {
		return "", fmt.Errorf("login url: empty response")
	}
	return payload.LoginURL, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func classify(status int) Result {
	// 4xx is an explicit rejection; anything else that reached us but did
	// not succeed is treated like a transport-level failure so callers do
	// not mistake an outage for a logged-out user.
	if status >= 400 && status < 500 {
		return Result{Outcome: OutcomeInvalid, StatusCode: status}
	}
	return Result{Outcome: OutcomeNetworkError, StatusCode: status, Err: fmt.Errorf("unexpected status %d", status)}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
