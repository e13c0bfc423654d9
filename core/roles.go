package core

// Roles
const (
	RoleAdmin  Role = "Admin"
	RoleSchool Role = "School"
	RoleReader Role = "Reader"
)

var AllRoles = []Role{RoleAdmin, RoleSchool, RoleReader}

type Role string

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the authenticated actor performing an operation, rebuilt per
// request from the session token claims.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

func (p Principal) IsAdmin() bool  { return p.Role == RoleAdmin }
func (p Principal) IsSchool() bool { return p.Role == RoleSchool }

// Operations guarded by the access policy.
type Operation string

const (
	OpUserRegister Operation = "user:register"
	OpUserList     Operation = "user:list"
	OpUserRead     Operation = "user:read"
	OpUserUpdate   Operation = "user:update"
	OpUserDelete   Operation = "user:delete"

	OpSchoolRegister Operation = "school:register"
	OpSchoolList     Operation = "school:list"
	OpSchoolRead     Operation = "school:read"
	OpSchoolFind     Operation = "school:find"
	OpSchoolUpdate   Operation = "school:update"
	OpSchoolDelete   Operation = "school:delete"
	OpSchoolCities   Operation = "school:cities"
	OpSchoolNames    Operation = "school:names"

	OpStudentCreate    Operation = "student:create"
	OpStudentList      Operation = "student:list"
	OpStudentFind      Operation = "student:find"
	OpStudentUpdate    Operation = "student:update"
	OpStudentStatus    Operation = "student:status"
	OpStudentDelete    Operation = "student:delete"
	OpStudentStandards Operation = "student:standards"
	OpStudentCounts    Operation = "student:counts"
	OpStudentTotal     Operation = "student:total"
)

// operationRoles is the access policy: which roles may perform which
// operation. Adding a role is a data change here, not a code change in every
// service.
var operationRoles = map[Operation][]Role{
	OpUserRegister: {RoleAdmin},
	OpUserList:     {RoleAdmin},
	OpUserRead:     {RoleAdmin, RoleSchool, RoleReader},
	OpUserUpdate:   {RoleAdmin, RoleSchool, RoleReader},
	OpUserDelete:   {RoleAdmin, RoleSchool, RoleReader},

	OpSchoolRegister: {RoleAdmin},
	OpSchoolList:     {RoleAdmin},
	OpSchoolRead:     {RoleAdmin},
	OpSchoolFind:     {RoleAdmin},
	OpSchoolUpdate:   {RoleAdmin, RoleSchool},
	OpSchoolDelete:   {RoleAdmin},
	OpSchoolCities:   {RoleAdmin, RoleSchool},
	OpSchoolNames:    {RoleAdmin, RoleSchool},

	OpStudentCreate:    {RoleAdmin, RoleSchool},
	OpStudentList:      {RoleAdmin, RoleSchool},
	OpStudentFind:      {RoleAdmin, RoleSchool},
	OpStudentUpdate:    {RoleAdmin, RoleSchool},
	OpStudentStatus:    {RoleAdmin, RoleSchool},
	OpStudentDelete:    {RoleAdmin, RoleSchool},
	OpStudentStandards: {RoleAdmin, RoleSchool},
	OpStudentCounts:    {RoleAdmin, RoleSchool},
	OpStudentTotal:     {RoleAdmin},
}

var ErrPermissionDenied = AuthorizationError("permission denied")

// Authorize checks that the principal's role may perform op.
func Authorize(p Principal, op Operation) error {
	for _, role := range operationRoles[op] {
		if p.Role == role {
			return nil
		}
	}
	return ErrPermissionDenied
}

// Scope is the subset of records a principal may see or mutate. The zero
// value is unrestricted (Admin). Repositories fold a non-zero scope into
// every query, which makes out-of-scope records indistinguishable from
// absent ones.
type Scope struct {
	UserID   string // restrict users to this record
	SchoolID string // restrict schools to this record / students to this owner
}

// UserScope restricts non-admins to their own user record.
func (p Principal) UserScope() Scope {
	if p.IsAdmin() {
		return Scope{}
	}
	return Scope{UserID: p.ID}
}

// SchoolScope restricts a School principal to its own record.
func (p Principal) SchoolScope() Scope {
	if p.IsAdmin() {
		return Scope{}
	}
	return Scope{SchoolID: p.ID}
}

// StudentScope restricts a School principal to its own students.
func (p Principal) StudentScope() Scope {
	if p.IsAdmin() {
		return Scope{}
	}
	return Scope{SchoolID: p.ID}
}
