package model

// Permission name constants. The fixed policy set is enumerable at startup for
// seeding and route wiring; the graph traversal itself stays data-driven, so a
// brand new permission only needs rows, not code.
const (
	PermEventsRead     = "events.read"
	PermEventsWrite    = "events.write"
	PermEventsComplete = "events.complete"
	PermEventsPostpone = "events.postpone"
	PermEventsFollowUp = "events.followup"
	PermEventsReject   = "events.reject"

	PermUsersRead   = "users.read"
	PermUsersWrite  = "users.write"
	PermUsersDelete = "users.delete"

	PermRolesManage = "roles.manage"
	PermAuditRead   = "audit.read"
	PermStatsRead   = "stats.read"
)

// AllPermissionNames returns every permission name known at compile time
func AllPermissionNames() []string {
	return []string{
		PermEventsRead, PermEventsWrite, PermEventsComplete,
		PermEventsPostpone, PermEventsFollowUp, PermEventsReject,
		PermUsersRead, PermUsersWrite, PermUsersDelete,
		PermRolesManage, PermAuditRead, PermStatsRead,
	}
}
