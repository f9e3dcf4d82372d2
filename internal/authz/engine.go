// Package authz decides which principal may read, write, or mutate tickets and
// role records. Every function here is pure: no I/O, no shared state.
package authz

import "github.com/deskline/ticket-tracker/internal/domain"

// Action identifies an operation subject to authorization.
type Action string

const (
	ActionViewTicket    Action = "ticket:view"
	ActionListTickets   Action = "ticket:list"
	ActionEditTicket    Action = "ticket:edit"
	ActionCreateTicket  Action = "ticket:create"
	ActionCreateComment Action = "comment:create"
	ActionManageRoles   Action = "roles:manage"
)

// Actions lists every known action.
var Actions = []Action{
	ActionViewTicket,
	ActionListTickets,
	ActionEditTicket,
	ActionCreateTicket,
	ActionCreateComment,
	ActionManageRoles,
}

// Decision is the binary outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Decide evaluates action for the principal holding role. ownerID is the
// creator of the ticket the action targets and is ignored by actions that are
// not owner-scoped. Unauthenticated principals are denied everything.
func Decide(principal domain.Principal, role domain.Role, action Action, ownerID string) Decision {
	if !principal.Authenticated || principal.ID == "" {
		return Deny
	}

	switch action {
	case ActionViewTicket:
		return canView(principal, role, ownerID)
	case ActionListTickets:
		// Always permitted; what the caller sees is narrowed by TicketScopeFor.
		return Allow
	case ActionEditTicket:
		return Decision(role.IsStaff())
	case ActionCreateTicket:
		return Allow
	case ActionCreateComment:
		return canView(principal, role, ownerID)
	case ActionManageRoles:
		// The admin tag alone is not enough.
		return Decision(role.IsAdmin)
	default:
		return Deny
	}
}

func canView(principal domain.Principal, role domain.Role, ownerID string) Decision {
	if role.IsStaff() {
		return Allow
	}
	return Decision(ownerID != "" && principal.ID == ownerID)
}
