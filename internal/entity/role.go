package entity

// Role classifies marketplace participants. BUYER and FARMER are the only
// roles with in-scope operations; INSPECTOR and ADMIN exist in the data
// model for verification and administration flows.
type Role string

const (
	RoleBuyer     Role = "BUYER"
	RoleFarmer    Role = "FARMER"
	RoleInspector Role = "INSPECTOR"
	RoleAdmin     Role = "ADMIN"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleFarmer, RoleInspector, RoleAdmin:
		return true
	}
	return false
}
