// Package session holds the signed-in identity of a storefront visitor.
//
// Sign-in here is a mock: no password, no verification, and the admin role
// is granted by a substring match on the email. It must be replaced with real
// credential checks before production use.
package session

import (
	"strings"

	"github.com/go-faster/errors"
)

// Role identifies what a signed-in identity may access.
type Role string

const (
	// RoleCustomer is the default role.
	RoleCustomer Role = "customer"
	// RoleAdmin unlocks the admin dashboard.
	RoleAdmin Role = "admin"
)

// mockUserID is the fixed identifier every mock sign-in receives.
const mockUserID = "u1"

// ErrEmptyEmail is returned by SignIn for an empty email.
var ErrEmptyEmail = errors.New("email is required")

// Identity is the currently signed-in user.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// IsAdmin reports whether the identity has the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// NewIdentity derives an identity from an email address. The display name is
// everything before the first "@"; the role is admin when the email contains
// "admin" anywhere (case-sensitive).
func NewIdentity(email string) (Identity, error) {
	if email == "" {
		return Identity{}, ErrEmptyEmail
	}
	name, _, _ := strings.Cut(email, "@")
	role := RoleCustomer
	if strings.Contains(email, "admin") {
		role = RoleAdmin
	}
	return Identity{
		ID:    mockUserID,
		Name:  name,
		Email: email,
		Role:  role,
	}, nil
}

// State holds zero or one identity. The zero value is signed out.
type State struct {
	current *Identity
}

// SignIn replaces the current identity with one derived from email.
func (s *State) SignIn(email string) (Identity, error) {
	id, err := NewIdentity(email)
	if err != nil {
		return Identity{}, err
	}
	s.current = &id
	return id, nil
}

// SignOut clears the current identity.
func (s *State) SignOut() {
	s.current = nil
}

// Identity returns the current identity, if any.
func (s *State) Identity() (Identity, bool) {
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Role returns the current role, or "" when signed out.
func (s *State) Role() Role {
	if s.current == nil {
		return ""
	}
	return s.current.Role
}
