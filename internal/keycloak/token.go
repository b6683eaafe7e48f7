package keycloak

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrAuthenticationRequired is returned when a call carries no bearer token
// and no development credentials are configured.
var ErrAuthenticationRequired = errors.New("authentication required: provide a bearer token or set KC_DEV_USER and KC_DEV_PASSWORD")

type bearerKey struct{}

// WithBearerToken returns a context carrying the caller's access token.
// An empty token leaves ctx unchanged.
func WithBearerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerTokenFromContext returns the caller's access token, if any.
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerKey{}).(string)
	return token, ok && token != ""
}

// ParseAuthorizationHeader extracts the token from a "Bearer <token>" header.
func ParseAuthorizationHeader(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Principal returns the user name carried in an access token. The token is
// not verified; Keycloak does that when the token is used.
func Principal(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "unknown"
	}
	for _, key := range []string{"preferred_username", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

// TokenSource resolves the access token used for an admin API call.
type TokenSource struct {
	gc     *gocloak.GoCloak
	cfg    Config
	logger zerolog.Logger

	mu          sync.RWMutex
	devToken    *gocloak.JWT
	tokenExpiry time.Time
}

// NewTokenSource creates a token source for the given client.
func NewTokenSource(gc *gocloak.GoCloak, cfg Config, logger zerolog.Logger) *TokenSource {
	return &TokenSource{
		gc:     gc,
		cfg:    cfg,
		logger: logger.With().Str("component", "token_source").Logger(),
	}
}

// Token prefers the caller's bearer token and falls back to a cached
// development login.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := BearerTokenFromContext(ctx); ok {
		s.logger.Debug().
			Str("principal", Principal(token)).
			Msg("Using caller token for Keycloak admin API")
		return token, nil
	}

	if !s.cfg.HasDevCredentials() {
		return "", ErrAuthenticationRequired
	}

	s.mu.RLock()
	if s.devToken != nil && time.Now().Before(s.tokenExpiry) {
		token := s.devToken.AccessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	return s.loginDev(ctx)
}

func (s *TokenSource) loginDev(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.devToken != nil && time.Now().Before(s.tokenExpiry) {
		return s.devToken.AccessToken, nil
	}

	s.logger.Warn().
		Str("user", s.cfg.DevUser).
		Str("realm", s.cfg.Realm).
		Msg("Logging in to Keycloak with dev credentials (DEV MODE ONLY)")

	token, err := s.gc.Login(ctx, s.cfg.ClientID, "", s.cfg.Realm, s.cfg.DevUser, s.cfg.DevPassword)
	if err != nil {
		return "", fmt.Errorf("keycloak dev login: %w", err)
	}

	s.devToken = token
	// Expire 30 s early.
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-30) * time.Second)

	return token.AccessToken, nil
}
