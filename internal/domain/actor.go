package domain

import "strings"

// Role enumerates the caller roles the core recognizes. Authentication is
// external; the request layer resolves a trusted Actor and threads it into
// every operation.
type Role string

const (
	RoleOperator   Role = "operador"
	RoleTechnician Role = "manutentor"
	RoleManager    Role = "gestor"
	RoleAdmin      Role = "admin"
)

// NormalizeRole folds free-text role values from legacy records; unknown
// values default to operador, the least privileged role.
func NormalizeRole(value string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleTechnician:
		return RoleTechnician
	case RoleManager:
		return RoleManager
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleOperator
	}
}

// Actor is the authenticated caller of an operation, already resolved by the
// request layer against the usuarios table.
type Actor struct {
	ID    string
	Role  Role
	Email string
	Name  string
}

// Snapshot denormalizes the actor into the historical user record stored on
// a chamado.
func (a Actor) Snapshot() UserSnapshot {
	snap := UserSnapshot{}
	if a.ID != "" {
		id := a.ID
		snap.ID = &id
	}
	if a.Name != "" {
		name := a.Name
		snap.Name = &name
	}
	if a.Email != "" {
		email := a.Email
		snap.Email = &email
	}
	return snap
}

// Is reports whether the actor holds any of the given roles. Admin passes
// every role check.
func (a Actor) Is(roles ...Role) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
