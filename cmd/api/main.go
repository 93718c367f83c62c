package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"famletter/internal/auth"
	"famletter/internal/config"
	"famletter/internal/flowstate"
	transporthttp "famletter/internal/http"
	"famletter/internal/platform/database"
	"famletter/internal/platform/logging"
	"famletter/internal/platform/migrate"
)

const sessionCleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local development reads .env; deployed environments set real vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	repo, cleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	flows, flowCleanup, err := buildFlowStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize flow store", "error", err)
		os.Exit(1)
	}
	if flowCleanup != nil {
		defer flowCleanup()
	}

	authService := auth.NewService(repo, cfg.SessionTTL)
	go runSessionCleanup(ctx, authService, logger)

	kakao, err := buildKakao(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize Kakao authenticator", "error", err)
		os.Exit(1)
	}

	var kakaoAuth transporthttp.KakaoAuthenticator
	if kakao != nil {
		kakaoAuth = kakao
	}

	router := transporthttp.NewRouter(cfg, authService, kakaoAuth, flows, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("famletter auth gateway listening", "addr", srv.Addr, "store", cfg.DataStore, "flow_store", cfg.FlowStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory repository")
		return auth.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), cleanup, nil
}

func buildFlowStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (flowstate.Store, func(), error) {
	if !cfg.UseRedisFlowStore() {
		store := flowstate.NewMemoryStore()
		store.StartSweeper(ctx, cfg.FlowTTL)
		logger.Info("using in-memory login flow store")
		return store, nil, nil
	}

	client, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("connected to redis")
	return flowstate.NewRedisStore(client), func() { _ = client.Close() }, nil
}

// buildKakao returns nil without error when no client ID is configured,
// which only Load permits in development.
func buildKakao(ctx context.Context, cfg config.Config, logger *slog.Logger) (*auth.KakaoAuthenticator, error) {
	if cfg.KakaoClientID == "" {
		logger.Warn("KAKAO_CLIENT_ID not set; Kakao login disabled")
		return nil, nil
	}
	return auth.NewKakaoAuthenticator(ctx, cfg.KakaoClientID, cfg.KakaoClientSecret, cfg.KakaoRedirectURL, cfg.KakaoIssuer)
}

func runSessionCleanup(ctx context.Context, service *auth.Service, logger *slog.Logger) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("removed expired sessions", "count", removed)
			}
		}
	}
}
