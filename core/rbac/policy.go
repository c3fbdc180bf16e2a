package rbac

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gofrs/uuid/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/auth"
)

type Permission string

const (
	PermCreate  Permission = "create"
	PermListAny Permission = "list_any"
	PermListOwn Permission = "list_own"
	PermViewAny Permission = "view_any"
	PermViewOwn Permission = "view_own"
)

const incidentsObject = "incidents"

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

type Rule struct {
	Role       auth.Role
	Permission Permission
}

func DefaultRules() []Rule {
	return []Rule{
		{Role: auth.RoleManager, Permission: PermCreate},
		{Role: auth.RoleManager, Permission: PermListAny},
		{Role: auth.RoleManager, Permission: PermViewAny},
		{Role: auth.RoleAdvisor, Permission: PermCreate},
		{Role: auth.RoleAdvisor, Permission: PermListOwn},
		{Role: auth.RoleAdvisor, Permission: PermViewOwn},
	}
}

type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy(rules []Rule) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build policy model")
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create policy enforcer")
	}
	for _, r := range rules {
		if _, err := e.AddPolicy(r.Role.String(), incidentsObject, string(r.Permission)); err != nil {
			return nil, goerr.Wrap(err, "failed to add policy rule", goerr.V("role", r.Role.String()), goerr.V("perm", r.Permission))
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role auth.Role, perm Permission) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(role.String(), incidentsObject, string(perm))
	return err == nil && ok
}

func (p *Policy) CanCreateIncident(caller *auth.Identity) error {
	if caller == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if !p.Allowed(caller.Role, PermCreate) {
		return apperr.Forbidden("Not authorized to create incidents")
	}
	return nil
}

// CanListIncidents allows managers for any user and everybody else for themselves only.
func (p *Policy) CanListIncidents(caller *auth.Identity, requestedUserID uuid.UUID) error {
	return p.ownOrAny(caller, requestedUserID, PermListAny, PermListOwn)
}

func (p *Policy) CanViewIncident(caller *auth.Identity, ownerUserID uuid.UUID) error {
	return p.ownOrAny(caller, ownerUserID, PermViewAny, PermViewOwn)
}

func (p *Policy) ownOrAny(caller *auth.Identity, userID uuid.UUID, anyPerm, ownPerm Permission) error {
	if caller == nil {
		return apperr.Unauthorized("Authentication required")
	}
	if p.Allowed(caller.Role, anyPerm) {
		return nil
	}
	if caller.Subject == userID && p.Allowed(caller.Role, ownPerm) {
		return nil
	}
	return apperr.Forbidden("Not authorized to access this data")
}
