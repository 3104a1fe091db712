package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission_Scenarios(t *testing.T) {
	m := Default()

	assert.False(t, m.HasPermission(RoleViewer, ResourceLeads, ActionDelete))
	assert.True(t, m.HasPermission(RoleViewer, ResourceLeads, ActionRead))
	assert.True(t, m.HasPermission(RoleAdmin, ResourceLeads, ActionDelete))
	assert.False(t, m.HasPermission(RoleAgent, ResourceLeads, ActionDelete))
	assert.True(t, m.HasPermission(RoleAgent, ResourceLeads, ActionCreate))
}

func TestHasPermission_FailClosed(t *testing.T) {
	m := Default()

	assert.False(t, m.HasPermission(Role("OWNER"), ResourceLeads, ActionRead), "unknown role")
	assert.False(t, m.HasPermission(RoleViewer, ResourceBilling, ActionRead), "resource not in role's rows")
	assert.False(t, m.HasPermission(RoleAdmin, Resource("spaceships"), ActionRead), "unknown resource")
	assert.False(t, m.HasPermission(RoleAdmin, ResourceLeads, Action("export")), "unknown action")
}

func TestViewerOnlyReadsLeads(t *testing.T) {
	m := Default()
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		assert.False(t, m.HasPermission(RoleViewer, ResourceLeads, a), a)
	}
}

func TestAdminHasEverything(t *testing.T) {
	m := Default()
	for _, e := range DefaultEntries() {
		for _, a := range e.Actions {
			assert.True(t, m.HasPermission(RoleAdmin, e.Resource, a), "%s:%s", e.Resource, a)
		}
	}
}

func TestHasPermission_Pure(t *testing.T) {
	m := Default()
	first := m.HasPermission(RoleManager, ResourceUsers, ActionDelete)

	// interleave unrelated lookups and introspection calls
	_ = m.RolesWithPermission(ResourceUsers, ActionDelete)
	_ = m.ResourceAccess(RoleManager, ResourceUsers)
	_ = m.HasPermission(RoleAdmin, ResourceUsers, ActionDelete)

	for i := 0; i < 100; i++ {
		assert.Equal(t, first, m.HasPermission(RoleManager, ResourceUsers, ActionDelete))
	}
}

func TestRolesWithPermission(t *testing.T) {
	m := Default()

	assert.Equal(t, []Role{RoleAdmin, RoleManager, RoleAgent, RoleViewer}, m.RolesWithPermission(ResourceLeads, ActionRead))
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, m.RolesWithPermission(ResourceLeads, ActionDelete))
	assert.Equal(t, []Role{RoleAdmin}, m.RolesWithPermission(ResourceBilling, ActionUpdate))
	assert.Empty(t, m.RolesWithPermission(Resource("nothing"), ActionRead))
}

func TestRolesWithPermission_AgreesWithHasPermission(t *testing.T) {
	m := Default()
	resources := []Resource{ResourceLeads, ResourceUsers, ResourceBilling, ResourceActivityLogs}
	actions := []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	for _, res := range resources {
		for _, act := range actions {
			granted := map[Role]bool{}
			for _, r := range m.RolesWithPermission(res, act) {
				granted[r] = true
			}
			for _, r := range Roles {
				assert.Equal(t, m.HasPermission(r, res, act), granted[r], "%s %s:%s", r, res, act)
			}
		}
	}
}

func TestResourceAccess(t *testing.T) {
	m := Default()

	assert.True(t, m.ResourceAccess(RoleViewer, ResourceLeads))
	assert.False(t, m.ResourceAccess(RoleViewer, ResourceUsers))
	assert.False(t, m.ResourceAccess(RoleAgent, ResourceBilling))
	assert.True(t, m.ResourceAccess(RoleManager, ResourceBilling))
}

func TestMissing(t *testing.T) {
	m := Default()
	required := []Permission{
		{ResourceLeads, ActionRead},
		{ResourceLeads, ActionDelete},
		{ResourceUsers, ActionCreate},
	}

	missing := m.Missing(RoleViewer, required)
	assert.Equal(t, []Permission{{ResourceLeads, ActionDelete}, {ResourceUsers, ActionCreate}}, missing)
	assert.Empty(t, m.Missing(RoleAdmin, required))
	assert.Equal(t, "leads:delete", missing[0].String())
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" admin"))
	assert.Equal(t, RoleViewer, ParseRole("Viewer"))
}
