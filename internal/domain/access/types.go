package access

import "strings"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleAgent   Role = "AGENT"
	RoleViewer  Role = "VIEWER"
)

// Roles in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleAgent, RoleViewer}

type Resource string

const (
	ResourceLeads        Resource = "leads"
	ResourceProperties   Resource = "properties"
	ResourceOwners       Resource = "owners"
	ResourceContacts     Resource = "contacts"
	ResourceUsers        Resource = "users"
	ResourceMedia        Resource = "media"
	ResourceStages       Resource = "stages"
	ResourceActivityLogs Resource = "activity_logs"
	ResourceBilling      Resource = "billing"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Permission is one (resource, action) pair.
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// ParseRole accepts any casing; unknown roles come back as-is and are
// denied everything by the matrix.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}
