package auth

import "github.com/fathima-sithara/quickads/internal/apperr"

// Principal is the caller of an operation. It is passed explicitly to every
// service call that needs to know who is acting.
type Principal struct {
	UserID string
	Phone  string
	Roles  []string
}

// Anonymous is the zero principal.
var Anonymous = Principal{}

func (p Principal) Authenticated() bool {
	return p.UserID != ""
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequireUser returns ErrUnauthorized for anonymous callers.
func (p Principal) RequireUser() error {
	if !p.Authenticated() {
		return apperr.ErrUnauthorized
	}
	return nil
}

// RequireRole returns ErrUnauthorized or ErrForbidden.
func (p Principal) RequireRole(role string) error {
	if err := p.RequireUser(); err != nil {
		return err
	}
	if !p.HasRole(role) {
		return apperr.ErrForbidden
	}
	return nil
}
