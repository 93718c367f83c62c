package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// KakaoIssuer is Kakao's OIDC issuer.
const KakaoIssuer = "https://kauth.kakao.com"

// KakaoAuthenticator handles Kakao OAuth 2.0 / OIDC authentication.
type KakaoAuthenticator struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewKakaoAuthenticator creates a new KakaoAuthenticator. An empty issuer
// selects Kakao's production issuer; tests point it at a local stub.
func NewKakaoAuthenticator(ctx context.Context, clientID, clientSecret, redirectURL, issuer string) (*KakaoAuthenticator, error) {
	if issuer == "" {
		issuer = KakaoIssuer
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile_nickname", "profile_image", "account_email"},
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})

	return &KakaoAuthenticator{config: config, verifier: verifier}, nil
}

// AuthURL generates the Kakao consent URL with the given state.
func (k *KakaoAuthenticator) AuthURL(state string) string {
	return k.config.AuthCodeURL(state)
}

// Exchange exchanges the authorization code for tokens and returns the
// member claims from the verified ID token.
func (k *KakaoAuthenticator) Exchange(ctx context.Context, code string) (*KakaoClaims, error) {
	token, err := k.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in response")
	}

	idToken, err := k.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims KakaoClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("id_token missing sub claim")
	}

	return &claims, nil
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
