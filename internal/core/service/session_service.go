package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/metrics"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

// Observer receives session transitions. Observe is called outside the
// session lock and must not block.
type Observer interface {
	Observe(t domain.Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(domain.Transition)

func (f ObserverFunc) Observe(t domain.Transition) { f(t) }

// SessionOptions tunes a SessionService.
type SessionOptions struct {
	// RejectExpired makes CheckSession reject stored JWTs whose exp has passed.
	RejectExpired bool
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// LogoutResult is always a success for the caller. Notified reports whether
// the backend acknowledged the logout.
type LogoutResult struct {
	Notified bool
}

// credentialOps write user and token on success and drive the loading flag.
var credentialOps = []domain.Operation{domain.OpRegister, domain.OpLogin}

// SessionService is the session state machine of one browser client.
//
// Every dispatched operation gets a monotonically increasing request id. A
// result is applied only while its id is the latest one dispatched for its
// operation kind; older results are dropped and reported as ErrSuperseded.
// Logout also supersedes in-flight register and login calls.
type SessionService struct {
	clientID      string
	store         ports.SessionStore
	backend       ports.AuthBackend
	log           zerolog.Logger
	rejectExpired bool
	nowFunc       func() time.Time

	mu        sync.Mutex
	state     domain.SessionState
	nextID    uint64
	latest    map[domain.Operation]uint64
	inflight  map[domain.Operation]uint64
	observers map[int]Observer
	nextObs   int
}

// NewSessionService returns an empty, not yet hydrated session.
func NewSessionService(
	clientID string,
	store ports.SessionStore,
	backend ports.AuthBackend,
	log zerolog.Logger,
	opts SessionOptions,
) *SessionService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		clientID:      clientID,
		store:         store,
		backend:       backend,
		log:           log.With().Str("component", "session").Str("client_id", clientID).Logger(),
		rejectExpired: opts.RejectExpired,
		nowFunc:       now,
		latest:        make(map[domain.Operation]uint64),
		inflight:      make(map[domain.Operation]uint64),
		observers:     make(map[int]Observer),
	}
}

// ClientID returns the browser client this session belongs to.
func (s *SessionService) ClientID() string { return s.clientID }

// State returns a copy of the current session state.
func (s *SessionService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers o for every subsequent transition. The returned func
// removes the subscription.
func (s *SessionService) Subscribe(o Observer) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Register signs up a new user and, on success, persists and adopts the
// returned session.
func (s *SessionService) Register(ctx context.Context, reg domain.Registration) error {
	id, start := s.dispatch(domain.OpRegister)
	payload, err := s.backend.Register(ctx, reg)
	return s.settleCredentials(ctx, domain.OpRegister, id, start, payload, err, domain.MsgRegistrationFailed)
}

// Login authenticates with email and password and, on success, persists and
// adopts the returned session.
func (s *SessionService) Login(ctx context.Context, creds domain.Credentials) error {
	id, start := s.dispatch(domain.OpLogin)
	payload, err := s.backend.Login(ctx, creds)
	return s.settleCredentials(ctx, domain.OpLogin, id, start, payload, err, domain.MsgLoginFailed)
}

// Logout clears the session and the persisted store, then notifies the
// backend. It cannot fail: a backend error is logged and reflected only in
// LogoutResult.Notified.
func (s *SessionService) Logout(ctx context.Context) LogoutResult {
	start := s.nowFunc()

	s.mu.Lock()
	id := s.nextRequestIDLocked(domain.OpLogout)
	for _, op := range credentialOps {
		s.nextRequestIDLocked(op)
		delete(s.inflight, op)
	}
	token := s.state.Token
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("clear persisted session on logout")
	}
	s.state.User = nil
	s.state.Token = ""
	s.state.Error = ""
	s.state.Loading = false
	s.state.Hydrated = true
	s.mu.Unlock()

	res := LogoutResult{}
	if token != "" {
		if err := s.backend.Logout(ctx, token); err != nil {
			metrics.BackendLogoutFailuresTotal.Inc()
			s.log.Warn().Err(err).Msg("backend logout failed, session cleared locally")
		} else {
			res.Notified = true
		}
	}

	s.mu.Lock()
	t, obs := s.transitionLocked(domain.OpLogout, domain.PhaseFulfilled, id)
	s.mu.Unlock()
	s.finish(t, obs, start)
	return res
}

// CheckSession hydrates the session from the persisted store without any
// network call. A missing token or user rejects with ErrNotAuthenticated; a
// store failure rejects with ErrAuthCheckFailed. Both clear the store.
func (s *SessionService) CheckSession(ctx context.Context) error {
	start := s.nowFunc()

	s.mu.Lock()
	id := s.nextRequestIDLocked(domain.OpCheckSession)
	s.state.Error = ""

	user, token, rejectErr := s.readStoreLocked(ctx)
	phase := domain.PhaseFulfilled
	if rejectErr != nil {
		phase = domain.PhaseRejected
		if err := s.store.Clear(ctx); err != nil {
			s.log.Error().Err(err).Msg("clear persisted session after failed check")
		}
		s.state.User = nil
		s.state.Token = ""
	} else {
		s.state.User = user
		s.state.Token = token
	}
	s.state.Hydrated = true
	t, obs := s.transitionLocked(domain.OpCheckSession, phase, id)
	s.mu.Unlock()

	s.finish(t, obs, start)
	if rejectErr != nil {
		s.log.Debug().Err(rejectErr).Msg("session check rejected")
	}
	return rejectErr
}

// ClearError acknowledges the last failure.
func (s *SessionService) ClearError() {
	s.mu.Lock()
	id := s.nextRequestIDLocked(domain.OpClearError)
	s.state.Error = ""
	t, obs := s.transitionLocked(domain.OpClearError, domain.PhaseFulfilled, id)
	s.mu.Unlock()
	s.notify(t, obs)
}

// UpdateUser merges patch into the current user and re-persists it.
func (s *SessionService) UpdateUser(ctx context.Context, patch domain.UserPatch) error {
	start := s.nowFunc()

	s.mu.Lock()
	if s.state.User == nil {
		s.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	id := s.nextRequestIDLocked(domain.OpUpdateUser)
	merged := s.state.User.Clone()
	patch.Apply(merged)
	if err := s.store.SetUser(ctx, merged); err != nil {
		t, obs := s.transitionLocked(domain.OpUpdateUser, domain.PhaseRejected, id)
		s.mu.Unlock()
		s.finish(t, obs, start)
		return fmt.Errorf("update user: %w", err)
	}
	s.state.User = merged
	t, obs := s.transitionLocked(domain.OpUpdateUser, domain.PhaseFulfilled, id)
	s.mu.Unlock()

	s.finish(t, obs, start)
	return nil
}

// dispatch enters the pending phase of a credential operation.
func (s *SessionService) dispatch(op domain.Operation) (uint64, time.Time) {
	start := s.nowFunc()

	s.mu.Lock()
	id := s.nextRequestIDLocked(op)
	s.inflight[op] = id
	s.state.Loading = true
	s.state.Error = ""
	t, obs := s.transitionLocked(op, domain.PhasePending, id)
	s.mu.Unlock()

	s.notify(t, obs)
	return id, start
}

func (s *SessionService) settleCredentials(
	ctx context.Context,
	op domain.Operation,
	id uint64,
	start time.Time,
	payload *domain.AuthPayload,
	callErr error,
	fallback string,
) error {
	s.mu.Lock()
	if s.latest[op] != id {
		t, obs := s.transitionLocked(op, domain.PhaseSuperseded, id)
		s.mu.Unlock()
		s.finish(t, obs, start)
		s.log.Debug().Str("op", string(op)).Uint64("request_id", id).Msg("stale result ignored")
		return domain.ErrSuperseded
	}

	err := callErr
	if err == nil && (payload == nil || payload.Token == "" || payload.User == nil) {
		err = errors.New("backend returned an incomplete session")
	}
	if err == nil {
		err = s.persistLocked(ctx, payload)
	}

	var result error
	phase := domain.PhaseFulfilled
	if err != nil {
		phase = domain.PhaseRejected
		msg := domain.FailureMessage(err, fallback)
		s.state.Error = msg
		result = &domain.OperationError{Op: op, Message: msg, Err: err}
	} else {
		s.state.User = payload.User.Clone()
		s.state.Token = payload.Token
		s.state.Hydrated = true
	}
	if s.inflight[op] == id {
		delete(s.inflight, op)
	}
	s.state.Loading = len(s.inflight) > 0
	t, obs := s.transitionLocked(op, phase, id)
	s.mu.Unlock()

	s.finish(t, obs, start)
	if result != nil {
		s.log.Info().Err(err).Str("op", string(op)).Msg("session operation rejected")
	} else {
		s.log.Info().Str("op", string(op)).Str("role", string(payload.User.Role)).Msg("session established")
	}
	return result
}

// persistLocked writes token and user together; a partial write is rolled back.
func (s *SessionService) persistLocked(ctx context.Context, payload *domain.AuthPayload) error {
	if err := s.store.SetToken(ctx, payload.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.store.SetUser(ctx, payload.User); err != nil {
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.log.Error().Err(clearErr).Msg("roll back partially persisted session")
		}
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func (s *SessionService) readStoreLocked(ctx context.Context) (*domain.User, string, error) {
	token, err := s.store.Token(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read token: %v", domain.ErrAuthCheckFailed, err)
	}
	user, err := s.store.User(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read user: %v", domain.ErrAuthCheckFailed, err)
	}
	if token == "" || user == nil {
		return nil, "", domain.ErrNotAuthenticated
	}
	if s.rejectExpired && tokenExpired(token, s.nowFunc()) {
		return nil, "", domain.ErrSessionExpired
	}
	return user, token, nil
}

func (s *SessionService) nextRequestIDLocked(op domain.Operation) uint64 {
	s.nextID++
	s.latest[op] = s.nextID
	return s.nextID
}

func (s *SessionService) transitionLocked(op domain.Operation, phase domain.Phase, id uint64) (domain.Transition, []Observer) {
	t := domain.Transition{
		ClientID:      s.clientID,
		Op:            op,
		Phase:         phase,
		RequestID:     id,
		Authenticated: s.state.IsAuthenticated(),
		Error:         s.state.Error,
		At:            s.nowFunc().UTC(),
	}
	if s.state.User != nil {
		t.Role = s.state.User.Role
	}
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	return t, obs
}

func (s *SessionService) finish(t domain.Transition, obs []Observer, start time.Time) {
	metrics.SessionOperationsTotal.WithLabelValues(string(t.Op), string(t.Phase)).Inc()
	metrics.SessionOperationDuration.WithLabelValues(string(t.Op)).Observe(s.nowFunc().Sub(start).Seconds())
	s.notify(t, obs)
}

func (s *SessionService) notify(t domain.Transition, obs []Observer) {
	for _, o := range obs {
		o.Observe(t)
	}
}

// tokenExpired peeks at the exp claim of a JWT without verifying it. Opaque
// tokens never count as expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}
