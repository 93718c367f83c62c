package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAllowsEmptyOAuthInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("KAKAO_CLIENT_ID", "")
	t.Setenv("KAKAO_CLIENT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.KakaoClientID != "" {
		t.Fatalf("expected no Kakao client ID in development, got %q", cfg.KakaoClientID)
	}
	if cfg.SessionTTL != 14*24*time.Hour {
		t.Fatalf("expected default session TTL of 14 days, got %v", cfg.SessionTTL)
	}
	if cfg.FlowTTL != 10*time.Minute {
		t.Fatalf("expected default login flow TTL of 10 minutes, got %v", cfg.FlowTTL)
	}
}

func TestLoadRequiresOAuthOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("KAKAO_CLIENT_ID", "")
	t.Setenv("KAKAO_CLIENT_SECRET", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when OAuth config missing outside development")
	}
	if !strings.Contains(err.Error(), "KAKAO_CLIENT_ID is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsWildcardOriginsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("KAKAO_CLIENT_ID", "client-id")
	t.Setenv("KAKAO_CLIENT_SECRET", "client-secret")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com,*")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ALLOWED_ORIGINS contains wildcard")
	}
	if !strings.Contains(err.Error(), "cannot contain wildcard") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "postgres")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATA_STORE is postgres without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL is not set") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRequiresRedisURLForRedisFlowStore(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("FLOW_STORE", "redis")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when FLOW_STORE is redis without REDIS_URL")
	}
	if !strings.Contains(err.Error(), "REDIS_URL is not set") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadTrimsTrailingSlashFromAppURL(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_URL", "https://family.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.AppURL != "https://family.example.com" {
		t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.AppURL)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_TTL", "72h")
	t.Setenv("LOGIN_FLOW_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.SessionTTL != 72*time.Hour {
		t.Fatalf("expected session TTL of 72h, got %v", cfg.SessionTTL)
	}
	if cfg.FlowTTL != 5*time.Minute {
		t.Fatalf("expected flow TTL of 5m, got %v", cfg.FlowTTL)
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATA_STORE", "memory")
	t.Setenv("PORT", "not-a-port")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
