package domain

// Principal is the verified identity performing an action. It is resolved per
// request and never persisted.
type Principal struct {
	ID            string
	Authenticated bool
}

// Anonymous is the principal of a request without a usable credential.
var Anonymous = Principal{}

// NewPrincipal returns an authenticated principal for the user id.
func NewPrincipal(userID string) Principal {
	return Principal{ID: userID, Authenticated: userID != ""}
}
