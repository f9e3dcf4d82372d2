package authz

import "github.com/deskline/ticket-tracker/internal/domain"

// TicketScope is the visibility predicate a role implies over the ticket
// collection. Repositories translate it into a query clause.
type TicketScope struct {
	// All is set for staff; CreatedBy is ignored when it is.
	All       bool
	CreatedBy string
}

// TicketScopeFor returns the list predicate for the principal. The second
// return is Deny for unauthenticated principals, in which case the scope must
// not be used.
func TicketScopeFor(principal domain.Principal, role domain.Role) (TicketScope, Decision) {
	if Decide(principal, role, ActionListTickets, "") == Deny {
		return TicketScope{}, Deny
	}
	if role.IsStaff() {
		return TicketScope{All: true}, Allow
	}
	return TicketScope{CreatedBy: principal.ID}, Allow
}

// Matches reports whether a ticket created by ownerID falls inside the scope.
func (s TicketScope) Matches(ownerID string) bool {
	if s.All {
		return true
	}
	return s.CreatedBy != "" && s.CreatedBy == ownerID
}
