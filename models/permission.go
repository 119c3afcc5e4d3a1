package models

// Permission names, formatted resource:action.
const (
	PermUsersCreate = "users:create"
	PermUsersRead   = "users:read"
	PermUsersUpdate = "users:update"
	PermUsersDelete = "users:delete"
	PermUsersInvite = "users:invite"

	PermRolesCreate = "roles:create"
	PermRolesRead   = "roles:read"
	PermRolesUpdate = "roles:update"
	PermRolesDelete = "roles:delete"

	PermDashboardRead = "dashboard:read"

	PermCollectionsCreate = "collections:create"
	PermCollectionsRead   = "collections:read"
	PermCollectionsUpdate = "collections:update"
	PermCollectionsDelete = "collections:delete"

	PermReportsCreate = "reports:create"
	PermReportsRead   = "reports:read"
	PermReportsUpdate = "reports:update"
	PermReportsDelete = "reports:delete"

	PermLogsCreate = "logs:create"
	PermLogsRead   = "logs:read"
	PermLogsUpdate = "logs:update"
	PermLogsDelete = "logs:delete"

	PermSettingsRead   = "settings:read"
	PermSettingsUpdate = "settings:update"

	PermProfileRead   = "profile:read"
	PermProfileUpdate = "profile:update"
)

var AdminPermissions = []string{
	PermUsersCreate, PermUsersRead, PermUsersUpdate, PermUsersDelete, PermUsersInvite,
	PermRolesCreate, PermRolesRead, PermRolesUpdate, PermRolesDelete,
	PermDashboardRead,
	PermCollectionsCreate, PermCollectionsRead, PermCollectionsUpdate, PermCollectionsDelete,
	PermReportsCreate, PermReportsRead, PermReportsUpdate, PermReportsDelete,
	PermLogsCreate, PermLogsRead, PermLogsUpdate, PermLogsDelete,
	PermSettingsRead, PermSettingsUpdate,
	PermProfileRead, PermProfileUpdate,
}

var CollectorPermissions = []string{
	PermCollectionsRead, PermCollectionsCreate, PermCollectionsUpdate,
	PermLogsRead, PermLogsCreate, PermLogsUpdate,
	PermProfileRead, PermProfileUpdate,
}

// PermissionsFor returns a copy of the default permission set for a role type.
func PermissionsFor(t RoleType) []string {
	src := CollectorPermissions
	if t == RoleTypeAdmin {
		src = AdminPermissions
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
