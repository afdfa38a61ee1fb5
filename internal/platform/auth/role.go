package auth

import "fmt"

// Role is the closed set of caller roles recognised by the platform.
// Handlers and the booking visibility rules match on it exhaustively instead
// of threading loose strings around.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
	RoleSpecialist Role = "specialist"
)

// ParseRole validates a raw role claim against the closed enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser, RoleSpecialist:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Identity is the authenticated caller attached to every request.
type Identity struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
