package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"famletter/internal/auth"
	"famletter/internal/callback"
	"famletter/internal/flowstate"
	"famletter/internal/safepath"
)

const (
	flowCookieName = "famletter_login_flow"
	// spaCallbackPath is the web client route that finishes the login.
	spaCallbackPath = "/auth/callback"
)

// KakaoAuthenticator is the slice of the Kakao OAuth client the handlers
// need; tests substitute a fake.
type KakaoAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.KakaoClaims, error)
}

// OAuthHandler drives the Kakao round trip: it hands out consent URLs,
// persists the pending flow, and finishes the exchange on callback.
type OAuthHandler struct {
	kakao        KakaoAuthenticator
	authService  *auth.Service
	flows        flowstate.Store
	flowTTL      time.Duration
	sessionTTL   time.Duration
	appURL       string
	secureCookie bool
	logger       *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(kakao KakaoAuthenticator, authService *auth.Service, flows flowstate.Store, appURL, env string, flowTTL, sessionTTL time.Duration, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		kakao:        kakao,
		authService:  authService,
		flows:        flows,
		flowTTL:      flowTTL,
		sessionTTL:   sessionTTL,
		appURL:       strings.TrimSuffix(appURL, "/"),
		secureCookie: !strings.EqualFold(env, "development"),
		logger:       logger,
	}
}

// LoginURL handles GET /auth/kakao/url.
// It answers the consent URL as JSON for clients that open the provider in
// a popup window themselves.
func (h *OAuthHandler) LoginURL(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.beginFlow(w, r)
	if err != nil {
		h.logger.Error("begin login flow", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"login_url": authURL})
}

// InitiateLogin handles GET /auth/kakao/login.
// Same flow setup as LoginURL, but redirects straight to the provider for
// main-window navigation.
func (h *OAuthHandler) InitiateLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.beginFlow(w, r)
	if err != nil {
		h.logger.Error("begin login flow", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// beginFlow persists a pending flow and returns the provider consent URL.
// The flow handle travels through the provider as the OAuth state; the
// CSRF nonce stays split between the flow record and a browser cookie.
func (h *OAuthHandler) beginFlow(w http.ResponseWriter, r *http.Request) (string, error) {
	nonce, err := auth.GenerateState()
	if err != nil {
		return "", err
	}

	flow := flowstate.Flow{
		Nonce:      nonce,
		ReturnPath: safepath.Sanitize(r.URL.Query().Get("returnUrl")),
		Popup:      r.URL.Query().Get("popup") == "true",
		CreatedAt:  time.Now(),
	}

	handle := uuid.NewString()
	if err := h.flows.Save(r.Context(), handle, flow, h.flowTTL); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    nonce,
		Path:     "/auth/kakao",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.flowTTL.Seconds()),
	})

	return h.kakao.AuthURL(handle), nil
}

// Callback handles GET /auth/kakao/callback.
// Every branch ends in a redirect back to the web client's callback route;
// failures carry a reason parameter the client turns into a message.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    "",
		Path:     "/auth/kakao",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})

	handle := r.URL.Query().Get("state")
	if handle == "" {
		h.logger.Warn("oauth callback: missing state")
		h.redirectFailure(w, r, callback.ReasonServerError, safepath.Home)
		return
	}

	flow, err := h.flows.Take(r.Context(), handle)
	if err != nil {
		if errors.Is(err, flowstate.ErrNotFound) {
			h.logger.Warn("oauth callback: unknown or expired flow")
		} else {
			h.logger.Error("oauth callback: flow lookup failed", "error", err)
		}
		h.redirectFailure(w, r, callback.ReasonServerError, safepath.Home)
		return
	}

	nonceCookie, err := r.Cookie(flowCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(nonceCookie.Value), []byte(flow.Nonce)) != 1 {
		h.logger.Warn("oauth callback: nonce mismatch")
		h.redirectFailure(w, r, callback.ReasonServerError, flow.ReturnPath)
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider error", "error", errParam, "description", r.URL.Query().Get("error_description"))
		reason := callback.ReasonServerError
		if errParam == "access_denied" {
			reason = callback.ReasonInvalidAccount
		}
		h.redirectFailure(w, r, reason, flow.ReturnPath)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("oauth callback: missing authorization code")
		h.redirectFailure(w, r, callback.ReasonNoCode, flow.ReturnPath)
		return
	}

	claims, err := h.kakao.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		h.redirectFailure(w, r, callback.ReasonServerError, flow.ReturnPath)
		return
	}

	user, err := h.authService.CreateOrUpdateUser(r.Context(), claims)
	if err != nil {
		h.logger.Error("oauth callback: member upsert failed", "error", err)
		h.redirectFailure(w, r, callback.ReasonServerError, flow.ReturnPath)
		return
	}

	token, err := h.authService.CreateSession(r.Context(), user.ID, r.UserAgent(), clientIPFromRequest(r))
	if err != nil {
		h.logger.Error("oauth callback: session creation failed", "error", err)
		h.redirectFailure(w, r, callback.ReasonServerError, flow.ReturnPath)
		return
	}

	http.SetCookie(w, newSessionCookie(token, h.sessionTTL, h.secureCookie))

	h.logger.Info("kakao login successful", "user_id", user.ID, "popup", flow.Popup)

	h.redirectSuccess(w, r, flow.ReturnPath)
}

// redirectSuccess sends the browser to the web client's callback route,
// round-tripping the member's intended destination as state.
func (h *OAuthHandler) redirectSuccess(w http.ResponseWriter, r *http.Request, returnPath string) {
	target := h.appURL + spaCallbackPath
	if path := safepath.Sanitize(returnPath); path != safepath.Home {
		target += "?" + url.Values{"state": {path}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason, returnPath string) {
	values := url.Values{"reason": {reason}}
	if path := safepath.Sanitize(returnPath); path != safepath.Home {
		values.Set("state", path)
	}
	http.Redirect(w, r, h.appURL+spaCallbackPath+"?"+values.Encode(), http.StatusTemporaryRedirect)
}
