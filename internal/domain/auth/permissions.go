package auth

import "context"

const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleTechnician = "technician"
)

const (
	PermClockSelf       = "clock.self"
	PermClockManage     = "clock.manage"
	PermReportsSubmit   = "reports.submit"
	PermReportsRead     = "reports.read"
	PermAuditsSubmit    = "audits.submit"
	PermLocationsRead   = "locations.read"
	PermLocationsWrite  = "locations.write"
	PermEmployeesRead   = "employees.read"
	PermEmployeesWrite  = "employees.write"
	PermSchedulesRead   = "schedules.read"
	PermSchedulesWrite  = "schedules.write"
	PermAuditTrailRead  = "audit.read"
	PermInvitesManage   = "invites.manage"
	PermAttendanceRead  = "attendance.read"
	PermAttendanceAdmin = "attendance.admin"
)

var Roles = []string{RoleAdmin, RoleSupervisor, RoleTechnician}

var RolePermissions = map[string][]string{
	RoleTechnician: {
		PermClockSelf,
		PermReportsSubmit,
		PermReportsRead,
		PermLocationsRead,
		PermSchedulesRead,
	},
	RoleSupervisor: {
		PermClockSelf,
		PermClockManage,
		PermReportsSubmit,
		PermReportsRead,
		PermAuditsSubmit,
		PermLocationsRead,
		PermEmployeesRead,
		PermSchedulesRead,
		PermSchedulesWrite,
		PermAttendanceRead,
	},
	RoleAdmin: {
		PermClockSelf,
		PermClockManage,
		PermReportsSubmit,
		PermReportsRead,
		PermAuditsSubmit,
		PermLocationsRead,
		PermLocationsWrite,
		PermEmployeesRead,
		PermEmployeesWrite,
		PermSchedulesRead,
		PermSchedulesWrite,
		PermAuditTrailRead,
		PermInvitesManage,
		PermAttendanceRead,
		PermAttendanceAdmin,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct {
	index map[string]map[string]struct{}
}

func NewStaticPermissions() *StaticPermissions {
	index := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		index[role] = set
	}
	return &StaticPermissions{index: index}
}

func (p *StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	perms, ok := p.index[role]
	if !ok {
		return false, nil
	}
	_, allowed := perms[permission]
	return allowed, nil
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}
