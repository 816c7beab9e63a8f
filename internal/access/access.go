// Package access decides which actors may change posts.
package access

import (
	"context"

	"github.com/dfryer1193/newsroom/blog/domain"
)

var (
	_ domain.Authorizer = (*RoleAuthorizer)(nil)
	_ domain.Authorizer = AllowAll{}
)

type Role string

const (
	RoleEditor Role = "editor"
	RoleAuthor Role = "author"
)

// RoleAuthorizer grants editors every operation and authors every operation
// except delete. Unknown actors are denied.
type RoleAuthorizer struct {
	roles map[string]Role
}

func NewRoleAuthorizer(editors, authors []string) *RoleAuthorizer {
	roles := make(map[string]Role, len(editors)+len(authors))
	for _, a := range authors {
		roles[a] = RoleAuthor
	}
	// An actor listed in both gets the stronger role.
	for _, e := range editors {
		roles[e] = RoleEditor
	}
	return &RoleAuthorizer{roles: roles}
}

func (r *RoleAuthorizer) RoleOf(actor string) (Role, bool) {
	role, ok := r.roles[actor]
	return role, ok
}

func (r *RoleAuthorizer) IsAuthorized(_ context.Context, actor string, op domain.Operation) bool {
	switch r.roles[actor] {
	case RoleEditor:
		return true
	case RoleAuthor:
		return op != domain.OpDelete
	}
	return false
}

// AllowAll authorizes everyone. Use it when an upstream proxy already
// enforces access.
type AllowAll struct{}

func (AllowAll) IsAuthorized(context.Context, string, domain.Operation) bool {
	return true
}
