package models

import "testing"

func TestHasRole(t *testing.T) {
	testCases := []struct {
		name     string
		member   *Member
		required RoleSet
		want     bool
	}{
		{name: "nil member", member: nil, required: ModerateRoles, want: false},
		{name: "admin moderates", member: &Member{Role: RoleAdmin}, required: ModerateRoles, want: true},
		{name: "moderator moderates", member: &Member{Role: RoleModerator}, required: ModerateRoles, want: true},
		{name: "member cannot moderate", member: &Member{Role: RoleMember}, required: ModerateRoles, want: false},
		{name: "admin destroys", member: &Member{Role: RoleAdmin}, required: DestructiveRoles, want: true},
		{name: "moderator cannot destroy", member: &Member{Role: RoleModerator}, required: DestructiveRoles, want: false},
		{name: "unknown role", member: &Member{Role: Role("OWNER")}, required: ModerateRoles, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasRole(tc.member, tc.required); got != tc.want {
				t.Fatalf("expected HasRole=%v, got %v", tc.want, got)
			}
		})
	}
}

func TestAssignableRolesExcludeAdmin(t *testing.T) {
	if AssignableRoles.Contains(RoleAdmin) {
		t.Fatalf("ADMIN must not be assignable through a role change")
	}
	if !AssignableRoles.Contains(RoleModerator) || !AssignableRoles.Contains(RoleMember) {
		t.Fatalf("MODERATOR and MEMBER must be assignable")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleModerator, RoleMember} {
		if !r.Valid() {
			t.Fatalf("expected %s to be valid", r)
		}
	}
	if Role("admin").Valid() {
		t.Fatalf("roles are case sensitive")
	}
}
