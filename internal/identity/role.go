package identity

// Role is a totally ordered value type over the fixed role hierarchy.
// Comparisons go through Level / AtLeast, never through string matching,
// so a typo can only produce the no-authority level, not a silent grant.
type Role string

const (
	RoleAdmin         Role = "Admin"
	RoleVicePresident Role = "Vice President"
	RoleHRBP          Role = "HR BP"
	RoleHRManager     Role = "HR Manager"
	RoleHRExecutive   Role = "HR Executive"
	RoleTeamManager   Role = "Team Manager"
	RoleTeamLeader    Role = "Team Leader"
	RoleEmployee      Role = "Employee"
)

// ReviewerThreshold is the least-privileged role that may grant or deny
// final approval, independent of reporting line.
const ReviewerThreshold = RoleHRExecutive

// noAuthorityLevel sits below every real role.
const noAuthorityLevel = 999

var roleLevels = map[Role]int{
	RoleAdmin:         1,
	RoleVicePresident: 2,
	RoleHRBP:          3,
	RoleHRManager:     4,
	RoleHRExecutive:   5,
	RoleTeamManager:   6,
	RoleTeamLeader:    7,
	RoleEmployee:      8,
}

// Level returns the hierarchy position; lower = more authority.
func (r Role) Level() int {
	if l, ok := roleLevels[r]; ok {
		return l
	}
	return noAuthorityLevel
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether r carries authority at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Level() <= other.Level()
}

// Roles returns the hierarchy from most to least authority.
func Roles() []Role {
	return []Role{
		RoleAdmin,
		RoleVicePresident,
		RoleHRBP,
		RoleHRManager,
		RoleHRExecutive,
		RoleTeamManager,
		RoleTeamLeader,
		RoleEmployee,
	}
}
