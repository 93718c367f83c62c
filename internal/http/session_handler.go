package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"famletter/internal/auth"
)

const sessionCookieName = "famletter_session"

// SessionHandler manages the cookie-backed member session endpoints that
// the web client's session prober calls.
type SessionHandler struct {
	auth         *auth.Service
	logger       *slog.Logger
	secureCookie bool
	sessionTTL   time.Duration
}

// NewSessionHandler creates a handler.
func NewSessionHandler(authService *auth.Service, env string, sessionTTL time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		auth:         authService,
		logger:       logger,
		secureCookie: !strings.EqualFold(env, "development"),
		sessionTTL:   sessionTTL,
	}
}

// Verify handles GET /auth/verify. It answers {"valid": true} for a live
// session and 401 otherwise. Internal failures surface as 500 so clients
// can tell an outage apart from an expired session.
func (h *SessionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}

	user, err := h.auth.ValidateSession(r.Context(), token)
	if err != nil {
		h.logger.Error("verify session", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"valid": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// Me handles GET /auth/me behind the auth middleware.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Refresh handles POST /auth/refresh. A valid session is rotated: the old
// token stops working and a fresh cookie with a full TTL is issued.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromRequest(r)
	if token == "" {
		unauthorized(w)
		return
	}

	fresh, err := h.auth.RefreshSession(r.Context(), token, r.UserAgent(), clientIPFromRequest(r))
	if err != nil {
		h.logger.Error("refresh session", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	if fresh == "" {
		http.SetCookie(w, clearedSessionCookie(h.secureCookie))
		unauthorized(w)
		return
	}

	http.SetCookie(w, newSessionCookie(fresh, h.sessionTTL, h.secureCookie))
	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /auth/logout. The server-side session delete is best
// effort; the cookie is cleared regardless so the client always ends up
// logged out locally.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionTokenFromRequest(r); token != "" {
		if err := h.auth.DeleteSession(r.Context(), token); err != nil {
			h.logger.Warn("logout: session delete failed", "error", err)
		}
	}

	http.SetCookie(w, clearedSessionCookie(h.secureCookie))
	w.WriteHeader(http.StatusNoContent)
}

func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func newSessionCookie(token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

func clearedSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

// userResponse is the wire shape of a member as the web client consumes it.
type userResponse struct {
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

func toUserResponse(user *auth.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Phone:     user.Phone,
		BirthDate: user.BirthDate,
		AvatarURL: user.AvatarURL,
		Active:    user.Active,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
