package access

// Entry is a row of the permission table: a role's actions on one resource.
type Entry struct {
	Role     Role
	Resource Resource
	Actions  []Action
}

var (
	crud      = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	writeRead = []Action{ActionCreate, ActionRead, ActionUpdate}
	readOnly  = []Action{ActionRead}
)

// DefaultEntries is the audited role grid.
func DefaultEntries() []Entry {
	return []Entry{
		// ADMIN: everything
		{RoleAdmin, ResourceLeads, crud},
		{RoleAdmin, ResourceProperties, crud},
		{RoleAdmin, ResourceOwners, crud},
		{RoleAdmin, ResourceContacts, crud},
		{RoleAdmin, ResourceUsers, crud},
		{RoleAdmin, ResourceMedia, crud},
		{RoleAdmin, ResourceStages, crud},
		{RoleAdmin, ResourceActivityLogs, crud},
		{RoleAdmin, ResourceBilling, crud},

		// MANAGER: runs the pipeline, reads the team and billing
		{RoleManager, ResourceLeads, crud},
		{RoleManager, ResourceProperties, crud},
		{RoleManager, ResourceOwners, crud},
		{RoleManager, ResourceContacts, crud},
		{RoleManager, ResourceUsers, readOnly},
		{RoleManager, ResourceMedia, crud},
		{RoleManager, ResourceStages, crud},
		{RoleManager, ResourceActivityLogs, readOnly},
		{RoleManager, ResourceBilling, readOnly},

		// AGENT: works records, never deletes
		{RoleAgent, ResourceLeads, writeRead},
		{RoleAgent, ResourceProperties, writeRead},
		{RoleAgent, ResourceOwners, writeRead},
		{RoleAgent, ResourceContacts, writeRead},
		{RoleAgent, ResourceMedia, writeRead},
		{RoleAgent, ResourceStages, readOnly},
		{RoleAgent, ResourceActivityLogs, []Action{ActionCreate, ActionRead}},

		// VIEWER
		{RoleViewer, ResourceLeads, readOnly},
		{RoleViewer, ResourceProperties, readOnly},
		{RoleViewer, ResourceOwners, readOnly},
		{RoleViewer, ResourceContacts, readOnly},
		{RoleViewer, ResourceMedia, readOnly},
		{RoleViewer, ResourceStages, readOnly},
	}
}
