// Package auth issues and verifies session tokens and handles the SSO
// authorization code exchange.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/config"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenManager issues and verifies HMAC-signed session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a token manager.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed session token for a user.
func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning the user it names.
func (m *TokenManager) Verify(tokenString string) (*models.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !token.Valid {
		return nil, errors.ErrUnauthorized
	}

	return &models.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}, nil
}

// =============================================================================
// SSO code exchange
// =============================================================================

// SSOExchanger trades an authorization code for an identity at the SSO
// provider, then issues a local session token.
type SSOExchanger struct {
	cfg    config.AuthConfig
	tokens *TokenManager
	client *http.Client
}

// NewSSOExchanger creates an SSO exchanger.
func NewSSOExchanger(cfg config.AuthConfig, tokens *TokenManager) *SSOExchanger {
	return &SSOExchanger{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Session is the result of a successful code exchange.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Exchange trades an authorization code for a local session.
func (e *SSOExchanger) Exchange(ctx context.Context, code string) (*Session, error) {
	if code == "" {
		return nil, errors.NewValidationError("code", "authorization code is required")
	}
	if e.cfg.SSOTokenURL == "" {
		return nil, errors.NewValidationError("sso", "SSO is not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", e.cfg.SSOClientID)
	form.Set("client_secret", e.cfg.SSOClientSecret)
	form.Set("redirect_uri", e.cfg.SSORedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SSOTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrUnauthorized
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.ErrUnauthorized
	}

	user, err := e.fetchUserInfo(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	token, err := e.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func (e *SSOExchanger) fetchUserInfo(ctx context.Context, accessToken string) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.SSOUserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.ErrUnauthorized
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, errors.ErrUnauthorized
	}

	return &models.User{ID: info.Sub, Email: info.Email, Name: info.Name, Role: "member"}, nil
}
