package auth

import "github.com/godilite/staff-perf/internal/repository/models"

type Permission string

const (
	PermStaffRead       Permission = "staff.read"
	PermStaffWrite      Permission = "staff.write"
	PermBranchesWrite   Permission = "branches.write"
	PermAccountsWrite   Permission = "accounts.write"
	PermRatingsSubmit   Permission = "ratings.submit"
	PermPerformanceRead Permission = "performance.read"
	PermPerformanceOrg  Permission = "performance.org"
)

var AllPermissions = []Permission{
	PermStaffRead,
	PermStaffWrite,
	PermBranchesWrite,
	PermAccountsWrite,
	PermRatingsSubmit,
	PermPerformanceRead,
	PermPerformanceOrg,
}

var RolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: AllPermissions,
	models.RoleHR: {
		PermStaffRead,
		PermStaffWrite,
		PermBranchesWrite,
		PermAccountsWrite,
		PermPerformanceRead,
		PermPerformanceOrg,
	},
	models.RoleOperations: {
		PermStaffRead,
		PermRatingsSubmit,
		PermPerformanceRead,
		PermPerformanceOrg,
	},
	models.RoleManager: {
		PermStaffRead,
		PermRatingsSubmit,
		PermPerformanceRead,
	},
	models.RoleSupervisor: {
		PermStaffRead,
		PermRatingsSubmit,
		PermPerformanceRead,
	},
	models.RoleStaff: {
		PermStaffRead,
		PermPerformanceRead,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role models.Role, perm Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
