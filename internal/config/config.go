package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the famletter auth gateway.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	FlowStore      string
	RedisURL       string
	LogLevel       string
	AllowedOrigins []string

	// AppURL is the base URL of the web application the gateway redirects
	// back to after the Kakao round trip.
	AppURL string

	KakaoClientID     string
	KakaoClientSecret string
	KakaoRedirectURL  string
	// KakaoIssuer overrides the OIDC issuer; empty selects production.
	KakaoIssuer string

	SessionTTL time.Duration
	FlowTTL    time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/famletter_database_url")
	if err != nil {
		return Config{}, err
	}

	kakaoSecret, err := getEnvOrFile("KAKAO_CLIENT_SECRET", "/run/secrets/famletter_kakao_client_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		DatabaseURL:       databaseURL,
		DataStore:         strings.ToLower(getEnv("DATA_STORE", "memory")),
		FlowStore:         strings.ToLower(getEnv("FLOW_STORE", "memory")),
		RedisURL:          getEnv("REDIS_URL", ""),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:    parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		AppURL:            strings.TrimSuffix(getEnv("APP_URL", "http://localhost:3000"), "/"),
		KakaoClientID:     getEnv("KAKAO_CLIENT_ID", ""),
		KakaoClientSecret: strings.TrimSpace(kakaoSecret),
		KakaoRedirectURL:  getEnv("KAKAO_REDIRECT_URL", "http://localhost:8080/auth/kakao/callback"),
		KakaoIssuer:       getEnv("KAKAO_ISSUER", ""),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	sessionTTL, err := parseDuration("SESSION_TTL", 14*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = sessionTTL

	flowTTL, err := parseDuration("LOGIN_FLOW_TTL", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.FlowTTL = flowTTL

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if cfg.FlowStore == "redis" && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("FLOW_STORE is redis but REDIS_URL is not set")
	}

	if cfg.Environment != "development" {
		if cfg.KakaoClientID == "" {
			return Config{}, fmt.Errorf("KAKAO_CLIENT_ID is required outside development")
		}
		if cfg.KakaoClientSecret == "" {
			return Config{}, fmt.Errorf("KAKAO_CLIENT_SECRET is required outside development")
		}
		if len(cfg.AllowedOrigins) == 0 {
			return Config{}, fmt.Errorf("ALLOWED_ORIGINS must define at least one origin outside development")
		}
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				return Config{}, fmt.Errorf("ALLOWED_ORIGINS cannot contain wildcard outside development")
			}
		}
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repository should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// UseRedisFlowStore returns true if pending login flows live in Redis.
func (c Config) UseRedisFlowStore() bool {
	return c.FlowStore == "redis"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
