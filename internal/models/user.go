package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "SuperAdmin"
	RoleAdmin       UserRole = "Admin"
	RoleCoordinator UserRole = "Coordinator"
	RoleVolunteer   UserRole = "Volunteer"
)

// IsAdmin reports whether the role bypasses mission team checks.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

// Capability is the outcome of checking an actor against a mission team.
type Capability struct {
	IsCreator      bool `json:"is_creator"`
	IsCollaborator bool `json:"is_collaborator"`
	IsAdmin        bool `json:"is_admin"`
}

// CanManage reports whether the actor may coordinate the mission.
func (c Capability) CanManage() bool {
	return c.IsCreator || c.IsCollaborator || c.IsAdmin
}

// User is the subset of the users table the lifecycle engine touches.
type User struct {
	ID          string   `db:"id" json:"id"`
	Name        string   `db:"name" json:"name"`
	Email       string   `db:"email" json:"email"`
	Role        UserRole `db:"role" json:"role"`
	TotalPoints int      `db:"total_points" json:"total_points"`
}
