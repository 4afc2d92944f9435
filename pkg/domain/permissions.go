package domain

// Role is a named group granting a fixed set of permissions.
type Role string

const (
	RoleAuthor  Role = "Author"
	RoleCurator Role = "Curator"
	RoleAdmin   Role = "Admin"
)

// Permission is a string capability required to invoke an operation.
type Permission string

const (
	PermCompleteFeedback    Permission = "complete:feedback"
	PermGetPublication      Permission = "get:publication"
	PermGetFeedback         Permission = "get:feedback"
	PermGiveOkToPublication Permission = "giveokto:publication"
	PermPatchFeedback       Permission = "patch:feedback"
	PermPostFeedback        Permission = "post:feedback"
	PermDeleteFeedback      Permission = "delete:feedback"
	PermGetPublications     Permission = "get:publications"
	PermPublishPublication  Permission = "publish:publication"
	PermExportPublication   Permission = "export:publication"
	PermPostPublication     Permission = "post:publication"
	PermDeletePublication   Permission = "delete:publication"
	PermAddUser             Permission = "add:user"
)

var rolePermissions = map[Role][]Permission{
	RoleAuthor: {
		PermCompleteFeedback,
		PermGetPublication,
		PermGetFeedback,
		PermGiveOkToPublication,
	},
	RoleCurator: {
		PermGetFeedback,
		PermPatchFeedback,
		PermPostFeedback,
		PermDeleteFeedback,
		PermGetPublication,
	},
	RoleAdmin: {
		PermGetPublications,
		PermGetPublication,
		PermPublishPublication,
		PermExportPublication,
		PermPostPublication,
		PermDeletePublication,
		PermAddUser,
	},
}

// PermissionSet is a set of granted permissions.
type PermissionSet map[Permission]struct{}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// ResolvePermissions maps role names to the union of their permission sets.
// Role names are case-sensitive; unknown names contribute nothing.
func ResolvePermissions(roles []string) PermissionSet {
	granted := make(PermissionSet)
	for _, name := range roles {
		for _, p := range rolePermissions[Role(name)] {
			granted[p] = struct{}{}
		}
	}
	return granted
}

// KnownRole reports whether name is part of the fixed role vocabulary.
func KnownRole(name string) bool {
	_, ok := rolePermissions[Role(name)]
	return ok
}
