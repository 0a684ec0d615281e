// Package session gates the dashboard behind a shared password.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/bh-network-dashboard/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidPassword = errors.New("incorrect password")
	ErrRateLimited     = errors.New("too many login attempts")
	ErrNotFound        = errors.New("session not found")
	ErrExpired         = errors.New("session expired")
)

// Session is an authenticated dashboard visit.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Manager issues and validates sessions. Sessions live in memory and do not
// survive a restart.
type Manager struct {
	hash    []byte
	ttl     time.Duration
	clock   clockwork.Clock
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	sessions map[string]Session
}

// Options configures a Manager.
type Options struct {
	Password       string
	TTL            time.Duration
	LoginPerMinute int
	Clock          clockwork.Clock
}

// NewManager hashes the password and returns a ready Manager.
func NewManager(opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Manager, error) {
	if opts.Password == "" {
		return nil, errors.New("session password is empty")
	}
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive, got %s", opts.TTL)
	}
	if opts.LoginPerMinute <= 0 {
		return nil, fmt.Errorf("login rate must be positive, got %d", opts.LoginPerMinute)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &Manager{
		hash:     hash,
		ttl:      opts.TTL,
		clock:    opts.Clock,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.LoginPerMinute)), opts.LoginPerMinute),
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]Session),
	}, nil
}

// Login checks the password and opens a new session.
func (m *Manager) Login(password string) (Session, error) {
	now := m.clock.Now()
	if !m.limiter.AllowN(now, 1) {
		m.metrics.LoginAttempts.WithLabelValues("throttled").Inc()
		m.logger.Warn("login throttled")
		return Session{}, ErrRateLimited
	}

	if err := bcrypt.CompareHashAndPassword(m.hash, []byte(password)); err != nil {
		m.metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return Session{}, ErrInvalidPassword
	}

	s := Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.LoginAttempts.WithLabelValues("success").Inc()
	m.metrics.ActiveSessions.Set(float64(active))
	return s, nil
}

// Lookup returns the session with the given id. An expired session is
// removed and reported as ErrExpired.
func (m *Manager) Lookup(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Expired(m.clock.Now()) {
		delete(m.sessions, id)
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		return Session{}, ErrExpired
	}
	return s, nil
}

// Logout ends the session. Unknown ids are ignored.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.ActiveSessions.Set(float64(active))
}

// Purge drops every expired session and returns how many were removed.
func (m *Manager) Purge() int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return n
}

// Active is the number of sessions currently held, expired or not.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RunJanitor purges expired sessions every interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := m.Purge(); n > 0 {
				m.logger.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
