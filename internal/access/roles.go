// Package access defines the closed set of admin roles and the capability
// table consulted at the access-control boundary. Handlers never compare
// role strings directly.
package access

// Role is one of the three admin cells.
type Role string

const (
	RoleOBCCell      Role = "obc_cell"
	RoleHealthCentre Role = "health_centre"
	RoleSuperAdmin   Role = "super_admin"
)

// ParseRole maps a stored role string to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOBCCell, RoleHealthCentre, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

// Action is a capability a role may hold.
type Action string

const (
	ActionCreateQuery      Action = "query.create"
	ActionReplyQuery       Action = "query.reply"
	ActionResolveQuery     Action = "query.resolve"
	ActionReopenQuery      Action = "query.reopen"
	ActionCloseQuery       Action = "query.close"
	ActionViewQueries      Action = "query.view"
	ActionViewStats        Action = "query.stats"
	ActionDeleteAttachment Action = "attachment.delete"

	ActionForwardClaim  Action = "claim.forward"
	ActionReturnClaim   Action = "claim.return"
	ActionApproveClaim  Action = "claim.approve"
	ActionRejectClaim   Action = "claim.reject"
	ActionCompleteClaim Action = "claim.complete"
	ActionViewClaims    Action = "claim.view"
)

// capabilities is the single source of truth for role permissions.
var capabilities = map[Role]map[Action]bool{
	RoleOBCCell: actionSet(
		ActionCreateQuery, ActionReplyQuery, ActionResolveQuery,
		ActionReopenQuery, ActionViewQueries, ActionViewStats,
		ActionForwardClaim, ActionReturnClaim, ActionViewClaims,
	),
	RoleHealthCentre: actionSet(
		ActionReplyQuery, ActionResolveQuery, ActionViewQueries,
		ActionViewStats,
		ActionApproveClaim, ActionRejectClaim, ActionCompleteClaim,
		ActionViewClaims,
	),
	RoleSuperAdmin: actionSet(
		ActionCreateQuery, ActionReplyQuery, ActionResolveQuery,
		ActionReopenQuery, ActionCloseQuery, ActionViewQueries,
		ActionViewStats, ActionDeleteAttachment,
		ActionForwardClaim, ActionReturnClaim, ActionApproveClaim,
		ActionRejectClaim, ActionCompleteClaim, ActionViewClaims,
	),
}

func actionSet(actions ...Action) map[Action]bool {
	set := make(map[Action]bool, len(actions))
	for _, a := range actions {
		set[a] = true
	}
	return set
}

// Can reports whether the role holds the capability.
func Can(role Role, action Action) bool {
	caps, exists := capabilities[role]
	if !exists {
		return false
	}
	return caps[action]
}
