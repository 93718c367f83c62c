package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"famletter/internal/auth"
	"famletter/internal/config"
	"famletter/internal/flowstate"
)

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, authService *auth.Service, kakao KakaoAuthenticator, flows flowstate.Store, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	sessionHandler := NewSessionHandler(authService, cfg.Environment, cfg.SessionTTL, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/verify", sessionHandler.Verify)
		r.Post("/refresh", sessionHandler.Refresh)
		r.Post("/logout", sessionHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(newAuthMiddleware(authService, logger))
			r.Get("/me", sessionHandler.Me)
		})

		if kakao != nil {
			oauthHandler := NewOAuthHandler(kakao, authService, flows, cfg.AppURL, cfg.Environment, cfg.FlowTTL, cfg.SessionTTL, logger)
			r.Route("/kakao", func(r chi.Router) {
				r.Get("/url", oauthHandler.LoginURL)
				r.Get("/login", oauthHandler.InitiateLogin)
				r.Get("/callback", oauthHandler.Callback)
			})
		} else {
			logger.Warn("Kakao OAuth disabled; login endpoints are not mounted")
		}
	})

	r.NotFound(http.NotFoundHandler().ServeHTTP)

	return r
}
