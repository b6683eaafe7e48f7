// Package role exposes Keycloak realm-role lookups as MCP tools.
//
// Every tool forwards its arguments unchanged, serializes whatever the
// lookup returns, and reports any failure as a *tools.CallError with a
// fixed message. The underlying cause is logged, never returned.
package role

import (
	"context"
	"encoding/json"

	"github.com/Nerzal/gocloak/v13"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"keycloak-mcp-go/internal/tools"
)

const (
	ToolGetRealmRoles     = "get-realm-roles"
	ToolGetRealmRole      = "get-realm-role"
	ToolGetRoleComposites = "get-role-composites"
)

var (
	realmParam = tools.Param{Name: "realm", Description: "A String denoting the name of the realm"}
	roleParam  = tools.Param{Name: "roleName", Description: "A String denoting the name of the role"}
)

// Lookup is the role source the tools delegate to.
type Lookup interface {
	GetRealmRoles(ctx context.Context, realm string) ([]*gocloak.Role, error)
	GetRealmRole(ctx context.Context, realm, roleName string) (*gocloak.Role, error)
	GetRoleComposites(ctx context.Context, realm, roleName string) ([]*gocloak.Role, error)
}

// Adapter implements the role operations. It holds no mutable state.
type Adapter struct {
	lookup     Lookup
	serializer tools.Serializer
	logger     zerolog.Logger
}

// New creates an Adapter.
func New(lookup Lookup, serializer tools.Serializer, logger zerolog.Logger) *Adapter {
	return &Adapter{
		lookup:     lookup,
		serializer: serializer,
		logger:     logger.With().Str("component", "role_tool").Logger(),
	}
}

// GetRealmRoles returns the serialized roles of realm.
func (a *Adapter) GetRealmRoles(ctx context.Context, realm string) (string, error) {
	roles, err := a.lookup.GetRealmRoles(ctx, realm)
	if err != nil {
		return "", a.fail(err, "realm", realm, "Failed to get realm roles: %s", realm)
	}

	out, err := a.serializer.Marshal(roles)
	if err != nil {
		return "", a.fail(err, "realm", realm, "Failed to get realm roles: %s", realm)
	}
	return out, nil
}

// GetRealmRole returns the serialized role roleName of realm.
func (a *Adapter) GetRealmRole(ctx context.Context, realm, roleName string) (string, error) {
	role, err := a.lookup.GetRealmRole(ctx, realm, roleName)
	if err != nil {
		return "", a.fail(err, "role_name", roleName, "Failed to get realm role: %s", roleName)
	}

	out, err := a.serializer.Marshal(role)
	if err != nil {
		return "", a.fail(err, "role_name", roleName, "Failed to get realm role: %s", roleName)
	}
	return out, nil
}

// GetRoleComposites returns the serialized composites of roleName.
func (a *Adapter) GetRoleComposites(ctx context.Context, realm, roleName string) (string, error) {
	roles, err := a.lookup.GetRoleComposites(ctx, realm, roleName)
	if err != nil {
		return "", a.fail(err, "role_name", roleName, "Failed to get role composites: %s", roleName)
	}

	out, err := a.serializer.Marshal(roles)
	if err != nil {
		return "", a.fail(err, "role_name", roleName, "Failed to get role composites: %s", roleName)
	}
	return out, nil
}

// fail logs cause and returns the caller-facing error built from format.
func (a *Adapter) fail(cause error, field, value, format string, args ...any) *tools.CallError {
	callErr := tools.NewCallError(format, args...)
	a.logger.Error().
		Err(cause).
		Str(field, value).
		Msg(callErr.Message)
	return callErr
}

// Tools returns the MCP tools backed by a.
func (a *Adapter) Tools() []tools.Tool {
	return []tools.Tool{
		&tool{
			def: tools.NewDefinition(ToolGetRealmRoles, "Get all roles from a keycloak realm", realmParam),
			call: func(ctx context.Context, args roleArgs) (string, error) {
				return a.GetRealmRoles(ctx, args.Realm)
			},
			decodeFailure: func(args roleArgs) *tools.CallError {
				return tools.NewCallError("Failed to get realm roles: %s", args.Realm)
			},
			logger: a.logger,
		},
		&tool{
			def: tools.NewDefinition(ToolGetRealmRole, "Get a specific role from a keycloak realm", realmParam, roleParam),
			call: func(ctx context.Context, args roleArgs) (string, error) {
				return a.GetRealmRole(ctx, args.Realm, args.RoleName)
			},
			decodeFailure: func(args roleArgs) *tools.CallError {
				return tools.NewCallError("Failed to get realm role: %s", args.RoleName)
			},
			logger: a.logger,
		},
		&tool{
			def: tools.NewDefinition(ToolGetRoleComposites, "Get role composites from a keycloak realm", realmParam, roleParam),
			call: func(ctx context.Context, args roleArgs) (string, error) {
				return a.GetRoleComposites(ctx, args.Realm, args.RoleName)
			},
			decodeFailure: func(args roleArgs) *tools.CallError {
				return tools.NewCallError("Failed to get role composites: %s", args.RoleName)
			},
			logger: a.logger,
		},
	}
}

type roleArgs struct {
	Realm    string `json:"realm"`
	RoleName string `json:"roleName"`
}

// tool binds one Adapter operation to the tools.Tool interface.
type tool struct {
	def           *mcp.Tool
	call          func(ctx context.Context, args roleArgs) (string, error)
	decodeFailure func(args roleArgs) *tools.CallError
	logger        zerolog.Logger
}

func (t *tool) Name() string {
	return t.def.Name
}

func (t *tool) Definition() *mcp.Tool {
	return t.def
}

func (t *tool) Call(ctx context.Context, raw json.RawMessage) (string, error) {
	var args roleArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			callErr := t.decodeFailure(args)
			t.logger.Error().
				Err(err).
				Str("tool", t.def.Name).
				Msg(callErr.Message)
			return "", callErr
		}
	}
	return t.call(ctx, args)
}
