package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the marketplace role of a user. The set is closed and mutually exclusive.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleWorker   Role = "WORKER"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleWorker, RoleAdmin}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// UserID is the backend's user identifier. The backend may send it as a JSON
// number or a string; both decode to the same textual form.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// User is the authenticated marketplace user as returned by the backend.
type User struct {
	ID        UserID `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// Clone returns a copy of u, or nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// UserPatch carries a partial profile update. Nil fields are left untouched.
// Identity and role are not patchable.
type UserPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// Apply merges p into u in place.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil
}

// Registration is the payload of a sign-up request.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// Credentials is the payload of a login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthPayload is what a successful register or login yields.
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
