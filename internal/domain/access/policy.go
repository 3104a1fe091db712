package access

type actionSet map[Action]struct{}

// Matrix answers permission questions from a table built once at startup.
// It is never mutated afterwards, so concurrent reads need no locking.
type Matrix struct {
	grants map[Role]map[Resource]actionSet
}

// NewMatrix indexes entries by role and resource. Duplicate rows merge.
func NewMatrix(entries []Entry) *Matrix {
	m := &Matrix{grants: make(map[Role]map[Resource]actionSet)}
	for _, e := range entries {
		byResource, ok := m.grants[e.Role]
		if !ok {
			byResource = make(map[Resource]actionSet)
			m.grants[e.Role] = byResource
		}
		set, ok := byResource[e.Resource]
		if !ok {
			set = make(actionSet)
			byResource[e.Resource] = set
		}
		for _, a := range e.Actions {
			set[a] = struct{}{}
		}
	}
	return m
}

// Default is the matrix over DefaultEntries.
func Default() *Matrix {
	return NewMatrix(DefaultEntries())
}

// HasPermission is fail-closed: a miss at any level is false.
func (m *Matrix) HasPermission(role Role, resource Resource, action Action) bool {
	set, ok := m.grants[role][resource]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// RolesWithPermission lists roles granted action on resource, in Roles order.
func (m *Matrix) RolesWithPermission(resource Resource, action Action) []Role {
	var out []Role
	for _, r := range Roles {
		if m.HasPermission(r, resource, action) {
			out = append(out, r)
		}
	}
	return out
}

// ResourceAccess reports whether role has any action on resource.
func (m *Matrix) ResourceAccess(role Role, resource Resource) bool {
	return len(m.grants[role][resource]) > 0
}

// Missing returns the required pairs role is not granted, in input order.
func (m *Matrix) Missing(role Role, required []Permission) []Permission {
	var missing []Permission
	for _, p := range required {
		if !m.HasPermission(role, p.Resource, p.Action) {
			missing = append(missing, p)
		}
	}
	return missing
}
