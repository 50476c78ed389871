package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/roadwatch-api/internal/models"
)

var (
	admin   = Actor{ID: "admin-1", Role: models.RoleAdmin}
	officer = Actor{ID: "officer-1", Role: models.RoleOfficer}
	user    = Actor{ID: "user-1", Role: models.RoleUser}
)

func TestCanPerform(t *testing.T) {
	cases := []struct {
		name     string
		actor    Actor
		resource Resource
		action   Action
		allowed  bool
		reason   string
	}{
		{"admin cannot delete self", admin, Resource{OwnerID: "admin-1", OwnerRole: models.RoleAdmin}, ActionDeleteUser, false, ReasonSelf},
		{"user cannot delete self", user, Resource{OwnerID: "user-1", OwnerRole: models.RoleUser}, ActionDeleteUser, false, ReasonSelf},
		{"admin cannot ban admin", admin, Resource{OwnerID: "admin-2", OwnerRole: models.RoleAdmin}, ActionBanUser, false, ReasonProtectedAdmin},
		{"admin cannot delete admin", admin, Resource{OwnerID: "admin-2", OwnerRole: models.RoleAdmin}, ActionDeleteUser, false, ReasonProtectedAdmin},
		{"admin bans user", admin, Resource{OwnerID: "user-1", OwnerRole: models.RoleUser}, ActionBanUser, true, ""},
		{"admin deletes officer", admin, Resource{OwnerID: "officer-1", OwnerRole: models.RoleOfficer}, ActionDeleteUser, true, ""},
		{"admin approves", admin, Resource{OwnerID: "user-9"}, ActionApproveApplication, true, ""},
		{"admin verifies", admin, Resource{}, ActionVerifyAccident, true, ""},
		{"admin deletes any accident", admin, Resource{OwnerID: "user-1"}, ActionDeleteAccident, true, ""},
		{"admin deletes any comment", admin, Resource{OwnerID: "user-1"}, ActionDeleteComment, true, ""},
		{"admin exports", admin, Resource{}, ActionExport, true, ""},
		{"officer verifies", officer, Resource{}, ActionVerifyAccident, true, ""},
		{"officer manages routes", officer, Resource{}, ActionManageRoutes, true, ""},
		{"officer cannot ban", officer, Resource{OwnerID: "user-1", OwnerRole: models.RoleUser}, ActionBanUser, false, ReasonRole},
		{"officer cannot approve", officer, Resource{}, ActionApproveApplication, false, ReasonRole},
		{"officer cannot delete others accident", officer, Resource{OwnerID: "user-1"}, ActionDeleteAccident, false, ReasonRole},
		{"user cannot verify", user, Resource{}, ActionVerifyAccident, false, ReasonRole},
		{"owner deletes own accident", user, Resource{OwnerID: "user-1"}, ActionDeleteAccident, true, ""},
		{"owner deletes own comment", user, Resource{OwnerID: "user-1"}, ActionDeleteComment, true, ""},
		{"user cannot delete others comment", user, Resource{OwnerID: "user-2"}, ActionDeleteComment, false, ReasonRole},
		{"user upvotes others comment", user, Resource{OwnerID: "user-2"}, ActionUpvoteComment, true, ""},
		{"user cannot upvote own comment", user, Resource{OwnerID: "user-1"}, ActionUpvoteComment, false, ReasonOwner},
		{"admin cannot upvote own comment", admin, Resource{OwnerID: "admin-1"}, ActionUpvoteComment, false, ReasonOwner},
		{"anonymous actor owns nothing", Actor{}, Resource{}, ActionDeleteAccident, false, ReasonRole},
		{"unknown action", admin, Resource{}, Action("drop_tables"), false, ReasonRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := CanPerform(tc.actor, tc.resource, tc.action)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
		})
	}
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(models.RoleAdmin, ActionListUsers))
	assert.True(t, HasRole(models.RoleOfficer, ActionVerifyAccident))
	assert.False(t, HasRole(models.RoleOfficer, ActionListUsers))
	assert.False(t, HasRole(models.RoleUser, ActionManageRoutes))
}
