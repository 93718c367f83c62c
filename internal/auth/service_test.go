package auth

import (
	"context"
	"testing"
	"time"
)

func TestCreateOrUpdateUserCreatesNewMember(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Hour)

	claims := &KakaoClaims{Sub: "kakao-123", Email: "kim@example.com", Nickname: "김은지", Picture: "https://k.kakaocdn.net/img.jpg"}
	user, err := svc.CreateOrUpdateUser(context.Background(), claims)
	if err != nil {
		t.Fatalf("CreateOrUpdateUser() error: %v", err)
	}

	if user.Email != "kim@example.com" || user.Name != "김은지" {
		t.Fatalf("user = %+v", user)
	}
	if !user.Active {
		t.Fatal("new members must start active")
	}
	if user.ProfileComplete() {
		t.Fatal("kakao signup has no phone; profile must be incomplete")
	}
	if user.OAuthProvider != "kakao" || user.OAuthProviderID != "kakao-123" {
		t.Fatalf("provider fields = %q/%q", user.OAuthProvider, user.OAuthProviderID)
	}
}

func TestCreateOrUpdateUserRefreshesExistingMember(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	first, err := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-123", Email: "kim@example.com", Nickname: "은지"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	second, err := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-123", Email: "kim@example.com", Nickname: "은지맘", Picture: "https://k.kakaocdn.net/new.jpg"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("second login created a new member: %s != %s", second.ID, first.ID)
	}
	if second.Name != "은지맘" || second.AvatarURL != "https://k.kakaocdn.net/new.jpg" {
		t.Fatalf("profile not refreshed: %+v", second)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	user, err := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-1", Email: "a@example.com", Nickname: "A"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	token, err := svc.CreateSession(ctx, user.ID, "test-agent", "203.0.113.7")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	validated, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession() error: %v", err)
	}
	if validated == nil || validated.ID != user.ID {
		t.Fatalf("ValidateSession() = %+v, want member %s", validated, user.ID)
	}

	if err := svc.DeleteSession(ctx, token); err != nil {
		t.Fatalf("DeleteSession() error: %v", err)
	}

	validated, err = svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession() after delete error: %v", err)
	}
	if validated != nil {
		t.Fatal("deleted session still validates")
	}
}

func TestValidateSessionRejectsExpired(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Nanosecond)
	ctx := context.Background()

	user, _ := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-1", Email: "a@example.com", Nickname: "A"})
	token, err := svc.CreateSession(ctx, user.ID, "", "")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	time.Sleep(time.Millisecond)

	validated, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession() error: %v", err)
	}
	if validated != nil {
		t.Fatal("expired session still validates")
	}
}

func TestValidateSessionRejectsDeactivatedMember(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	user, _ := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-1", Email: "a@example.com", Nickname: "A"})
	token, _ := svc.CreateSession(ctx, user.ID, "", "")

	// Deactivate behind the service's back.
	stored := repo.users[user.ID]
	stored.Active = false
	repo.users[user.ID] = stored

	validated, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatalf("ValidateSession() error: %v", err)
	}
	if validated != nil {
		t.Fatal("deactivated member still validates")
	}
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Hour)
	ctx := context.Background()

	user, _ := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-1", Email: "a@example.com", Nickname: "A"})
	token, _ := svc.CreateSession(ctx, user.ID, "", "")

	fresh, err := svc.RefreshSession(ctx, token, "", "")
	if err != nil {
		t.Fatalf("RefreshSession() error: %v", err)
	}
	if fresh == "" || fresh == token {
		t.Fatalf("expected a rotated token, got %q", fresh)
	}

	if validated, _ := svc.ValidateSession(ctx, token); validated != nil {
		t.Fatal("old token still validates after rotation")
	}
	if validated, _ := svc.ValidateSession(ctx, fresh); validated == nil {
		t.Fatal("rotated token does not validate")
	}
}

func TestRefreshSessionRejectsUnknownToken(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), time.Hour)

	fresh, err := svc.RefreshSession(context.Background(), "no-such-token", "", "")
	if err != nil {
		t.Fatalf("RefreshSession() error: %v", err)
	}
	if fresh != "" {
		t.Fatalf("expected empty token for unknown session, got %q", fresh)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, time.Nanosecond)
	ctx := context.Background()

	user, _ := svc.CreateOrUpdateUser(ctx, &KakaoClaims{Sub: "kakao-1", Email: "a@example.com", Nickname: "A"})
	if _, err := svc.CreateSession(ctx, user.ID, "", ""); err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	time.Sleep(time.Millisecond)

	removed, err := svc.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions() error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
