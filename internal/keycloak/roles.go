// Package keycloak looks up realm roles through the Keycloak admin REST API.
package keycloak

import (
	"context"
	"fmt"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/rs/zerolog"
)

// Config holds the connection settings for the admin API.
type Config struct {
	// URL is the Keycloak base URL, e.g. http://localhost:8180.
	URL string
	// Realm is the realm used to obtain dev tokens. Lookups name their own realm.
	Realm       string
	ClientID    string
	DevUser     string
	DevPassword string
}

// HasDevCredentials reports whether a development login is configured.
func (c Config) HasDevCredentials() bool {
	return c.DevUser != "" && c.DevPassword != ""
}

// RequestRecorder observes admin API calls. telemetry.Metrics implements it.
type RequestRecorder interface {
	RecordKeycloakRequest(operation, status string, duration time.Duration)
}

// RoleService fetches realm roles. It is safe for concurrent use.
type RoleService struct {
	gc       *gocloak.GoCloak
	tokens   *TokenSource
	recorder RequestRecorder
	logger   zerolog.Logger
}

// NewRoleService creates a role service for the Keycloak instance in cfg.
// recorder may be nil.
func NewRoleService(cfg Config, recorder RequestRecorder, logger zerolog.Logger) *RoleService {
	gc := gocloak.NewClient(cfg.URL)
	logger = logger.With().Str("component", "keycloak").Logger()

	return &RoleService{
		gc:       gc,
		tokens:   NewTokenSource(gc, cfg, logger),
		recorder: recorder,
		logger:   logger,
	}
}

// GetRealmRoles returns all roles of realm.
func (s *RoleService) GetRealmRoles(ctx context.Context, realm string) ([]*gocloak.Role, error) {
	var roles []*gocloak.Role
	err := s.do(ctx, "get_realm_roles", func(token string) (err error) {
		roles, err = s.gc.GetRealmRoles(ctx, token, realm, gocloak.GetRoleParams{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get realm roles: %w", err)
	}
	if roles == nil {
		roles = []*gocloak.Role{}
	}
	return roles, nil
}

// GetRealmRole returns the role named roleName in realm.
func (s *RoleService) GetRealmRole(ctx context.Context, realm, roleName string) (*gocloak.Role, error) {
	var role *gocloak.Role
	err := s.do(ctx, "get_realm_role", func(token string) (err error) {
		role, err = s.gc.GetRealmRole(ctx, token, realm, roleName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get realm role %s: %w", roleName, err)
	}
	return role, nil
}

// GetRoleComposites returns the realm roles that roleName is composed of.
func (s *RoleService) GetRoleComposites(ctx context.Context, realm, roleName string) ([]*gocloak.Role, error) {
	var roles []*gocloak.Role
	err := s.do(ctx, "get_role_composites", func(token string) (err error) {
		roles, err = s.gc.GetCompositeRealmRoles(ctx, token, realm, roleName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get role composites %s: %w", roleName, err)
	}
	if roles == nil {
		roles = []*gocloak.Role{}
	}
	return roles, nil
}

func (s *RoleService) do(ctx context.Context, operation string, call func(token string) error) error {
	start := time.Now()

	token, err := s.tokens.Token(ctx)
	if err != nil {
		s.record(operation, "auth_error", start)
		return err
	}

	if err := call(token); err != nil {
		s.record(operation, "error", start)
		s.logger.Debug().
			Err(err).
			Str("operation", operation).
			Msg("Keycloak admin API call failed")
		return err
	}

	s.record(operation, "success", start)
	return nil
}

func (s *RoleService) record(operation, status string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordKeycloakRequest(operation, status, time.Since(start))
	}
}
