package models

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleMember    Role = "MEMBER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	default:
		return false
	}
}

// RoleSet is the set of roles allowed to perform an action.
type RoleSet map[Role]struct{}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

var (
	// ModerateRoles may manage members and group settings.
	ModerateRoles = NewRoleSet(RoleAdmin, RoleModerator)
	// DestructiveRoles may delete the group.
	DestructiveRoles = NewRoleSet(RoleAdmin)
	// AssignableRoles are the only targets of a role change.
	AssignableRoles = NewRoleSet(RoleModerator, RoleMember)
)

// HasRole reports whether member holds one of the required roles.
// A nil member never does.
func HasRole(member *Member, required RoleSet) bool {
	if member == nil {
		return false
	}
	return required.Contains(member.Role)
}

type Member struct {
	BaseModel
	UserID      uuid.UUID  `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_member_user_group"`
	ChatGroupID uuid.UUID  `json:"chatGroupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_member_user_group"`
	Role        Role       `json:"role" gorm:"type:varchar(20);not null;default:'MEMBER'"`
	User        *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ChatGroup   *ChatGroup `json:"chatGroup,omitempty" gorm:"foreignKey:ChatGroupID"`
}
