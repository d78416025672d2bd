package users

import "time"

// RoleType represents a user's role within the club
type RoleType string

const (
	RoleAdmin      RoleType = "admin"      // Can manage teams, users, and club configuration
	RoleCoach      RoleType = "coach"      // Can manage assigned teams, games, and events
	RoleSupervisor RoleType = "supervisor" // Assists coaches, can manage attendance
	RolePlayer     RoleType = "player"     // Regular team member
	RoleParent     RoleType = "parent"     // Guardian of one or more players
)

// Roles lists every assignable role, in descending order of privilege.
var Roles = []RoleType{RoleAdmin, RoleCoach, RoleSupervisor, RolePlayer, RoleParent}

// Valid reports whether r is one of the known club roles.
func (r RoleType) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID         int64     `json:"id,omitempty"`          // Unique identifier for the user
	Email      string    `json:"email,omitempty"`       // User's email address
	FirstName  string    `json:"first_name,omitempty"`  // First name of the user
	LastName   string    `json:"last_name,omitempty"`   // Last name of the user
	Phone      string    `json:"phone,omitempty"`       // Contact phone number
	Role       RoleType  `json:"role,omitempty"`        // Club role
	IsActive   bool      `json:"is_active,omitempty"`   // Active, may the user log in
	IsVerified bool      `json:"is_verified,omitempty"` // Verified, has the user confirmed their email
	CreatedAt  time.Time `json:"created_at,omitempty"`  // Date and time when the user registered
	UpdatedAt  time.Time `json:"updated_at,omitempty"`  // Last profile change
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsCoach reports whether the user may act as a coach. Admins are always
// allowed to act as coaches.
func (u *User) IsCoach() bool {
	return u != nil && (u.Role == RoleCoach || u.Role == RoleAdmin)
}

// IsSupervisor reports whether the user may act as a supervisor. Coaches and
// admins subsume the supervisor role.
func (u *User) IsSupervisor() bool {
	return u != nil && (u.Role == RoleSupervisor || u.IsCoach())
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
