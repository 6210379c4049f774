package catalog

import "strings"

// AuthorizationGuard scopes a store call to the rows of one owner.
// The zero value carries no owner and is rejected by every store operation.
type AuthorizationGuard struct {
	ownerID string
}

// GuardFor builds the guard for an authenticated owner id.
func GuardFor(ownerID string) (AuthorizationGuard, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return AuthorizationGuard{}, ErrMissingOwner
	}

	return AuthorizationGuard{ownerID: ownerID}, nil
}

// OwnerID returns the id every read and write is restricted to.
func (g AuthorizationGuard) OwnerID() string {
	return g.ownerID
}

// IsZero reports whether the guard was built without an owner.
func (g AuthorizationGuard) IsZero() bool {
	return g.ownerID == ""
}

// Check returns ErrMissingOwner for the zero guard.
func (g AuthorizationGuard) Check() error {
	if g.IsZero() {
		return ErrMissingOwner
	}

	return nil
}
