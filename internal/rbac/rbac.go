package rbac

type Role string
type Action string

const (
	RoleAdmin     Role = "Admin"
	RoleLawyer    Role = "Lawyer"
	RoleParalegal Role = "Paralegal"
	RoleStaff     Role = "Staff"
)

const (
	ActionRead        Action = "read"
	ActionWrite       Action = "write"
	ActionBilling     Action = "billing"
	ActionManageUsers Action = "manage-users"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleLawyer:
		return action == ActionRead || action == ActionWrite || action == ActionBilling
	case RoleParalegal:
		return action == ActionRead || action == ActionWrite
	case RoleStaff:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleAdmin, RoleLawyer, RoleParalegal, RoleStaff:
		return Role(role)
	default:
		return RoleStaff
	}
}
