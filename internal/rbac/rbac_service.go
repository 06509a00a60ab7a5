package rbac

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"go-leave/internal/identity"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock

type Service interface {
	Enforce(role, resource, action string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

// NewService builds an enforcer over the static role catalog. Every
// role may read, create and cancel leave and read balances; manager
// approval opens at Team Leader, final review at HR Executive.
func NewService() (Service, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}

	for _, role := range identity.Roles() {
		if _, err := enforcer.AddGroupingPolicy(string(role), "any"); err != nil {
			return nil, err
		}
		if role.AtLeast(identity.RoleTeamLeader) {
			if _, err := enforcer.AddGroupingPolicy(string(role), "manager"); err != nil {
				return nil, err
			}
		}
		if role.AtLeast(identity.ReviewerThreshold) {
			if _, err := enforcer.AddGroupingPolicy(string(role), "reviewer"); err != nil {
				return nil, err
			}
		}
	}

	policies := [][]string{
		{"any", "leave", "read"},
		{"any", "leave", "create"},
		{"any", "leave", "cancel"},
		{"any", "balance", "read"},
		{"any", "employee", "read"},
		{"manager", "leave", "approve"},
		{"reviewer", "leave", "finalize"},
		{"reviewer", "employee", "write"},
	}
	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}

	return &service{enforcer: enforcer}, nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Enforce(role, resource, action)
}
