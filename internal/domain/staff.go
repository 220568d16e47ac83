// internal/domain/staff.go
package domain

// Role type to distinguish between staff roles. Staff accounts themselves
// live in the studio's identity service; this application only reads the
// role claim out of the access token for authorization.
type Role string

// Define constants for roles
const (
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// IsValid checks the role against the known set.
func (r Role) IsValid() bool {
	return r == RoleInstructor || r == RoleAdmin
}
