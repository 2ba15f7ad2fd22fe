package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/metrics"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

const (
	defaultIdleTTL        = 30 * time.Minute
	defaultSweep          = 5 * time.Minute
	defaultHydrateTimeout = 5 * time.Second
)

// ManagerConfig configures a SessionManager.
type ManagerConfig struct {
	Session SessionOptions
	// IdleTTL is how long an unused session stays in memory.
	IdleTTL time.Duration
	// SweepEvery is the interval of the eviction job.
	SweepEvery time.Duration
	// HydrateTimeout bounds the store read of a first access. It is detached
	// from the request, so a client that hangs up does not wipe its session.
	HydrateTimeout time.Duration
	// Observer, when set, is subscribed to every session created.
	Observer Observer
}

type managedSession struct {
	svc         *SessionService
	lastSeen    time.Time
	unsubscribe func()

	hydrateMu sync.Mutex
	hydrated  bool
}

// SessionManager keeps one SessionService per browser client. Sessions are
// hydrated from their persisted store on first access and dropped from memory
// after IdleTTL without use; the persisted store outlives eviction.
type SessionManager struct {
	stores  ports.StoreFactory
	backend ports.AuthBackend
	cfg     ManagerConfig
	log     zerolog.Logger
	nowFunc func() time.Time

	mu       sync.Mutex
	sessions map[string]*managedSession
	cron     *cron.Cron
}

// NewSessionManager returns a manager; call Start to enable idle eviction.
func NewSessionManager(stores ports.StoreFactory, backend ports.AuthBackend, cfg ManagerConfig, log zerolog.Logger) *SessionManager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = defaultSweep
	}
	if cfg.HydrateTimeout <= 0 {
		cfg.HydrateTimeout = defaultHydrateTimeout
	}
	now := cfg.Session.Now
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		stores:   stores,
		backend:  backend,
		cfg:      cfg,
		log:      log.With().Str("component", "session_manager").Logger(),
		nowFunc:  now,
		sessions: make(map[string]*managedSession),
	}
}

// Session returns the live session of clientID, hydrating it on first use.
// Concurrent first callers wait for the same hydration.
func (m *SessionManager) Session(ctx context.Context, clientID string) *SessionService {
	m.mu.Lock()
	ms, ok := m.sessions[clientID]
	if !ok {
		svc := NewSessionService(clientID, m.stores.For(clientID), m.backend, m.log, m.cfg.Session)
		ms = &managedSession{svc: svc, unsubscribe: func() {}}
		if m.cfg.Observer != nil {
			ms.unsubscribe = svc.Subscribe(m.cfg.Observer)
		}
		m.sessions[clientID] = ms
		metrics.SessionsLive.Set(float64(len(m.sessions)))
	}
	ms.lastSeen = m.nowFunc()
	m.mu.Unlock()

	m.hydrate(ctx, ms)
	return ms.svc
}

// hydrate runs the first CheckSession of ms. A check cut short by its own
// deadline is retried on the next access.
func (m *SessionManager) hydrate(ctx context.Context, ms *managedSession) {
	ms.hydrateMu.Lock()
	defer ms.hydrateMu.Unlock()
	if ms.hydrated {
		return
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.HydrateTimeout)
	defer cancel()

	// A rejected check is the normal outcome for an anonymous client.
	_ = ms.svc.CheckSession(hctx)
	if hctx.Err() != nil {
		m.log.Warn().Str("client_id", ms.svc.ClientID()).Msg("session hydration timed out, will retry")
		return
	}
	ms.hydrated = true
}

// Len returns the number of sessions held in memory.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were dropped.
func (m *SessionManager) Sweep() int {
	cutoff := m.nowFunc().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var evicted []*managedSession
	for id, ms := range m.sessions {
		if ms.lastSeen.Before(cutoff) {
			evicted = append(evicted, ms)
			delete(m.sessions, id)
		}
	}
	metrics.SessionsLive.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, ms := range evicted {
		ms.unsubscribe()
	}
	if len(evicted) > 0 {
		m.log.Debug().Int("evicted", len(evicted)).Msg("idle sessions evicted")
	}
	return len(evicted)
}

// Start schedules the idle sweep.
func (m *SessionManager) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.cfg.SweepEvery), func() { m.Sweep() }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()

	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	return nil
}

// Stop halts the sweep and waits for a running sweep to finish.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// State returns a snapshot of clientID's session, hydrating it if needed.
func (m *SessionManager) State(ctx context.Context, clientID string) domain.SessionState {
	return m.Session(ctx, clientID).State()
}
