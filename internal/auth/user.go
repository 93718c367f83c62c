package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User represents a family-newsletter member. It mirrors server state and
// is replaced wholesale on every fetch, never patched field-by-field.
type User struct {
	ID              uuid.UUID
	Email           string
	Name            string
	Phone           string
	BirthDate       *time.Time
	AvatarURL       string
	Active          bool
	OAuthProvider   string
	OAuthProviderID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastLoginAt     time.Time
}

// ProfileComplete reports whether the member finished initial profile
// setup. Kakao supplies a nickname but never a phone number, so freshly
// created accounts stay incomplete until the member fills in the rest.
func (u *User) ProfileComplete() bool {
	return u != nil && strings.TrimSpace(u.Name) != "" && strings.TrimSpace(u.Phone) != ""
}

// Session represents an authenticated member session.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// KakaoClaims contains the relevant claims from a Kakao ID token.
type KakaoClaims struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Picture  string `json:"picture"`
}
