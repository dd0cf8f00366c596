package models

// Record is one row of the recipient list. Fields are stored as read from
// the source; defaults are applied by the recipient resolver.
type Record struct {
	Row             int
	Email           string
	Company         string
	ContactName     string
	RolePreference  string
	SubjectOverride string
}

// RoleKey selects the template a recipient receives.
type RoleKey int

const (
	RoleSoftware RoleKey = iota
	RoleFrontend
	RoleBackend
)

func (r RoleKey) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	default:
		return "software"
	}
}
