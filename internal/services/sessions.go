// Package services – SessionManager
//
// Sessions live in memory only. Closing a session forgets its orchestrator
// immediately; requests it still has in flight run to completion in the
// background and its journal rows are purged once they have.
package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SessionManager maps session IDs to orchestrators.
type SessionManager struct {
	Remote  RemoteClient
	Journal *Journal // optional

	mu       sync.RWMutex
	sessions map[string]*Orchestrator
	drains   sync.WaitGroup

	closing   chan struct{}
	closeOnce sync.Once
}

// NewSessionManager constructs a SessionManager. j may be nil.
func NewSessionManager(rc RemoteClient, j *Journal) *SessionManager {
	return &SessionManager{
		Remote:   rc,
		Journal:  j,
		sessions: make(map[string]*Orchestrator),
		closing:  make(chan struct{}),
	}
}

// Closing is closed once the manager starts shutting down. Long-lived
// streams select on it so the HTTP server can drain.
func (m *SessionManager) Closing() <-chan struct{} { return m.closing }

// Close signals Closing. It is safe to call more than once and suits
// http.Server.RegisterOnShutdown.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() { close(m.closing) })
}

// Create opens a new session.
func (m *SessionManager) Create() *Orchestrator {
	var rec Recorder
	if m.Journal != nil {
		rec = m.Journal
	}
	o := NewOrchestrator(uuid.NewString(), m.Remote, rec)

	m.mu.Lock()
	m.sessions[o.ID()] = o
	m.mu.Unlock()

	sessionsActive.Inc()
	log.Info().Str("session_id", o.ID()).Msg("session opened")
	return o
}

// Get returns the session's orchestrator or ErrSessionNotFound.
func (m *SessionManager) Get(id string) (*Orchestrator, error) {
	m.mu.RLock()
	o, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return o, nil
}

// Delete closes a session. It returns at once; in-flight requests drain in
// the background and the session's journal rows are purged afterwards.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	o, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	o.Close()
	sessionsActive.Dec()
	log.Info().Str("session_id", id).Msg("session closed")

	m.drains.Add(1)
	go func() {
		defer m.drains.Done()
		o.Wait()
		if m.Journal == nil {
			return
		}
		if err := m.Journal.Purge(context.Background(), id); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("journal purge failed")
		}
	}()
	return nil
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown waits for the in-flight requests of every session, open or
// closing, or until ctx is done.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.Close()

	m.mu.RLock()
	all := make([]*Orchestrator, 0, len(m.sessions))
	for _, o := range m.sessions {
		all = append(all, o)
	}
	m.mu.RUnlock()

	var g errgroup.Group
	for _, o := range all {
		o := o
		g.Go(func() error { return waitCtx(ctx, o.Wait) })
	}
	g.Go(func() error { return waitCtx(ctx, m.drains.Wait) })
	return g.Wait()
}

func waitCtx(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
