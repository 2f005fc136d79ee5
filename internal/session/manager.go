package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// DefaultTTL is used when the manager is built without a TTL.
const DefaultTTL = 12 * time.Hour

// Manager creates, resolves and revokes sessions. Resolved sessions are
// cached locally and evicted through one notifier subscription.
type Manager struct {
	store    Store
	notifier Notifier
	ttl      time.Duration
	logger   *logging.Logger
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]*Session
}

// NewManager wires a session manager. A nil notifier disables cross-replica
// eviction.
func NewManager(store Store, notifier Notifier, ttl time.Duration, logger *logging.Logger) *Manager {
	if store == nil {
		panic("session: store required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:    store,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		cache:    make(map[string]*Session),
	}
}

// TTL returns the lifetime given to new sessions.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for a signed-in identity.
func (m *Manager) Create(ctx context.Context, id Identity) (*Session, error) {
	now := m.now().UTC()
	role := id.Role
	if role == "" {
		role = RolePatient
	}
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       role,
		HospitalID: id.HospitalID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	m.remember(sess)
	return sess, nil
}

// Lookup resolves a session id, consulting the cache first.
func (m *Manager) Lookup(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	now := m.now()

	m.mu.RLock()
	cached, ok := m.cache[id]
	m.mu.RUnlock()
	if ok {
		if !cached.Expired(now) {
			cp := *cached
			return &cp, nil
		}
		m.evict(id)
		return nil, ErrNotFound
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(now) {
		return nil, ErrNotFound
	}
	m.remember(sess)
	cp := *sess
	return &cp, nil
}

// Revoke deletes the session and tells every replica to drop it.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("session: revoke: %w", err)
	}
	m.evict(id)
	if m.notifier != nil {
		if err := m.notifier.Publish(ctx, id); err != nil {
			m.logger.Warn("session revoke broadcast failed", "session_id", id, "error", err)
		}
	}
	return nil
}

// Run consumes revocations until ctx is done. Call it once per process.
func (m *Manager) Run(ctx context.Context) error {
	if m.notifier == nil {
		<-ctx.Done()
		return nil
	}
	revoked, err := m.notifier.Subscribe(ctx)
	if err != nil {
		return err
	}
	m.logger.Info("session revocation subscription started")
	for id := range revoked {
		m.evict(id)
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Sweep drops expired sessions from the cache, and from the store when it
// keeps sessions in memory. It returns the number of cache entries dropped.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	dropped := 0
	for id, sess := range m.cache {
		if sess.Expired(now) {
			delete(m.cache, id)
			dropped++
		}
	}
	m.mu.Unlock()
	if s, ok := m.store.(interface{ Sweep(time.Time) int }); ok {
		s.Sweep(now)
	}
	return dropped
}

// RunSweeper sweeps expired sessions every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

// Cached reports whether id is held in the local cache.
func (m *Manager) Cached(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[id]
	return ok
}

func (m *Manager) remember(sess *Session) {
	cp := *sess
	m.mu.Lock()
	m.cache[sess.ID] = &cp
	m.mu.Unlock()
}

func (m *Manager) evict(id string) {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
}
