package domain

import "time"

// Operation names one of the asynchronous session operations.
type Operation string

const (
	OpRegister     Operation = "register"
	OpLogin        Operation = "login"
	OpLogout       Operation = "logout"
	OpCheckSession Operation = "check_session"
	OpUpdateUser   Operation = "update_user"
	OpClearError   Operation = "clear_error"
)

// Phase is where an operation is in its pending -> fulfilled | rejected life.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseFulfilled  Phase = "fulfilled"
	PhaseRejected   Phase = "rejected"
	PhaseSuperseded Phase = "superseded"
)

// SessionState is the in-memory record of who is logged in for one client.
// User and Token are set and cleared together.
type SessionState struct {
	User    *User  `json:"user"`
	Token   string `json:"-"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	// Hydrated turns true once the first check against the persisted store settled.
	Hydrated bool `json:"hydrated"`
}

// Clone returns a deep copy so callers never share the live user record.
func (s SessionState) Clone() SessionState {
	s.User = s.User.Clone()
	return s
}

func (s SessionState) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

func (s SessionState) role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s SessionState) IsCustomer() bool { return s.role() == RoleCustomer }
func (s SessionState) IsWorker() bool   { return s.role() == RoleWorker }
func (s SessionState) IsAdmin() bool    { return s.role() == RoleAdmin }

// HasAnyRole reports whether the current user holds one of roles.
func (s SessionState) HasAnyRole(roles ...Role) bool {
	r := s.role()
	if r == "" {
		return false
	}
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// IsAllowed applies a role whitelist; an empty whitelist admits any user.
func (s SessionState) IsAllowed(whitelist []Role) bool {
	return len(whitelist) == 0 || s.HasAnyRole(whitelist...)
}

// Capabilities is the projection of role queries used by navigation.
type Capabilities struct {
	Authenticated bool `json:"authenticated"`
	Customer      bool `json:"customer"`
	Worker        bool `json:"worker"`
	Admin         bool `json:"admin"`
}

func (s SessionState) Capabilities() Capabilities {
	return Capabilities{
		Authenticated: s.IsAuthenticated(),
		Customer:      s.IsCustomer(),
		Worker:        s.IsWorker(),
		Admin:         s.IsAdmin(),
	}
}

// Transition records one step of an operation on a client's session.
type Transition struct {
	ClientID      string
	Op            Operation
	Phase         Phase
	RequestID     uint64
	Authenticated bool
	Role          Role
	Error         string
	At            time.Time
}
