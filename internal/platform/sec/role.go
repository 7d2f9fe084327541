// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// UserRole is the authorization level carried in the token's "rol" claim.
type UserRole string

const (
	RoleMember    UserRole = "member"
	RoleAuthor    UserRole = "author"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

// Roles lists every known role from least to most privileged.
var Roles = []UserRole{RoleMember, RoleAuthor, RoleModerator, RoleAdmin}

// Valid reports whether r is one of [Roles].
func (r UserRole) Valid() bool {
	return r.rank() > 0
}

// AtLeast reports whether r grants everything target grants.
// Unknown roles rank below every known role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.rank() >= target.rank()
}

func (r UserRole) rank() int {
	for index, role := range Roles {
		if role == r {
			return index + 1
		}
	}
	return 0
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID string
	Role   UserRole
}

// CanModify reports whether the actor may change a resource owned by
// ownerID. Moderators and above may change any resource.
func (a Actor) CanModify(ownerID string) bool {
	if a.Role.AtLeast(RoleModerator) {
		return true
	}
	return a.UserID != "" && a.UserID == ownerID && a.Role.Valid()
}
