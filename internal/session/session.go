// Package session maps API callers to their in-memory pipeline state. A
// session owns one processing workflow, one subtitle workflow, and the clip
// batch produced by the most recent generation. Nothing here survives a
// process restart.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/clips"
	"clipforge/internal/metrics"
	"clipforge/internal/workflow"
)

// Session is the per-caller pipeline state.
type Session struct {
	ID        string
	CreatedAt time.Time

	Processing *workflow.ProcessingWorkflow
	Subtitle   *workflow.SubtitleWorkflow

	mu    sync.Mutex
	batch *clips.Batch
}

// Batch returns the clip batch of the latest generation run, or nil if no
// generation has happened yet.
func (s *Session) Batch() *clips.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// SetBatch installs the batch of a new generation run, replacing any
// previous one.
func (s *Session) SetBatch(b *clips.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = b
}

// Manager creates and tracks sessions by ID.
type Manager struct {
	processingCfg workflow.Config
	subtitleCfg   workflow.SubtitleConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. Each new session gets fresh
// workflows built from the given collaborator configs.
func NewManager(processingCfg workflow.Config, subtitleCfg workflow.SubtitleConfig) *Manager {
	return &Manager{
		processingCfg: processingCfg,
		subtitleCfg:   subtitleCfg,
		sessions:      make(map[string]*Session),
	}
}

// Create allocates a new session with idle workflows.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now(),
		Processing: workflow.NewProcessing(m.processingCfg),
		Subtitle:   workflow.NewSubtitle(m.subtitleCfg),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsCreatedTotal.Inc()
	metrics.SessionsActive.Inc()
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

// Delete removes a session. Unknown IDs are a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	_, existed := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if existed {
		metrics.SessionsActive.Dec()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
