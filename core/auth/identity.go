package auth

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"
)

type Role int

const (
	RoleAdvisor Role = iota
	RoleManager
)

// ParseRole maps the token's user_type claim; anything but "manager" is an advisor.
func ParseRole(userType string) Role {
	if strings.EqualFold(strings.TrimSpace(userType), "manager") {
		return RoleManager
	}
	return RoleAdvisor
}

func (r Role) String() string {
	if r == RoleManager {
		return "manager"
	}
	return "advisor"
}

// Identity is the verified caller behind a bearer token.
type Identity struct {
	Subject uuid.UUID
	Role    Role
}

func (i *Identity) IsManager() bool {
	return i != nil && i.Role == RoleManager
}

type ctxKey struct{}

var IdentityContextKey = ctxKey{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, id)
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityContextKey).(*Identity)
	return id
}
