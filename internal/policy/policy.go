// Package policy decides whether an actor may perform an action on a resource.
package policy

import "github.com/noah-isme/roadwatch-api/internal/models"

// Action names a guarded operation.
type Action string

const (
	ActionApproveApplication Action = "approve_application"
	ActionBanUser            Action = "ban_user"
	ActionDeleteUser         Action = "delete_user"
	ActionListUsers          Action = "list_users"
	ActionListPending        Action = "list_pending"
	ActionVerifyAccident     Action = "verify_accident"
	ActionDeleteAccident     Action = "delete_accident"
	ActionDeleteComment      Action = "delete_comment"
	ActionUpvoteComment      Action = "upvote_comment"
	ActionManageRoutes       Action = "manage_routes"
	ActionExport             Action = "export"
)

// Deny reasons.
const (
	ReasonSelf           = "self"
	ReasonProtectedAdmin = "protected_admin"
	ReasonOwner          = "owner"
	ReasonRole           = "role"
)

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role models.Role
}

// Resource describes the target. OwnerID is the owning or targeted user, if any.
type Resource struct {
	OwnerID   string
	OwnerRole models.Role
}

// Decision is the outcome of CanPerform. Reason is set on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

type rule struct {
	match    func(Actor, Resource, Action) bool
	decision Decision
}

var (
	moderation = actions(
		ActionApproveApplication, ActionBanUser, ActionDeleteUser, ActionListUsers, ActionListPending,
		ActionVerifyAccident, ActionDeleteAccident, ActionDeleteComment, ActionManageRoutes, ActionExport,
	)
	officerActions = actions(ActionVerifyAccident, ActionManageRoutes)
	ownerActions   = actions(ActionDeleteAccident, ActionDeleteComment)
)

// rules is evaluated top to bottom; the first match decides.
var rules = []rule{
	{
		match: func(a Actor, r Resource, act Action) bool {
			return act == ActionDeleteUser && isOwner(a, r)
		},
		decision: deny(ReasonSelf),
	},
	{
		match: func(_ Actor, r Resource, act Action) bool {
			return (act == ActionBanUser || act == ActionDeleteUser) && r.OwnerRole == models.RoleAdmin
		},
		decision: deny(ReasonProtectedAdmin),
	},
	{
		match: func(a Actor, _ Resource, act Action) bool {
			return a.Role == models.RoleAdmin && moderation[act]
		},
		decision: allow(),
	},
	{
		match: func(a Actor, _ Resource, act Action) bool {
			return a.Role == models.RoleOfficer && officerActions[act]
		},
		decision: allow(),
	},
	{
		match: func(a Actor, r Resource, act Action) bool {
			return act == ActionUpvoteComment && isOwner(a, r)
		},
		decision: deny(ReasonOwner),
	},
	{
		match: func(a Actor, r Resource, act Action) bool {
			return ownerActions[act] && isOwner(a, r)
		},
		decision: allow(),
	},
	{
		match: func(a Actor, _ Resource, act Action) bool {
			return act == ActionUpvoteComment && a.ID != ""
		},
		decision: allow(),
	},
}

// CanPerform evaluates the rule table for the triple.
func CanPerform(actor Actor, resource Resource, action Action) Decision {
	for _, r := range rules {
		if r.match(actor, resource, action) {
			return r.decision
		}
	}
	return deny(ReasonRole)
}

// HasRole is the route-level gate: whether role may perform action on some resource.
func HasRole(role models.Role, action Action) bool {
	return CanPerform(Actor{ID: "-", Role: role}, Resource{}, action).Allowed
}

func isOwner(a Actor, r Resource) bool {
	return a.ID != "" && a.ID == r.OwnerID
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

func actions(list ...Action) map[Action]bool {
	set := make(map[Action]bool, len(list))
	for _, a := range list {
		set[a] = true
	}
	return set
}
