package session

import (
	"context"
	"sync"

	"github.com/verte-zerg/sprint/internal/model"
)

// MemoryStore keeps the best score and history in process memory. Hosts use
// it when persistent storage is unavailable.
type MemoryStore struct {
	mu       sync.Mutex
	best     int
	sessions []model.SessionResult
}

// BestWPM implements BestStore.
func (m *MemoryStore) BestWPM(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.best, nil
}

// SetBestWPM implements BestStore.
func (m *MemoryStore) SetBestWPM(_ context.Context, wpm int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.best = wpm
	return nil
}

// RecordSession implements Recorder.
func (m *MemoryStore) RecordSession(_ context.Context, r model.SessionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, r)
	return nil
}

// Sessions returns a copy of the recorded sessions.
func (m *MemoryStore) Sessions() []model.SessionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SessionResult(nil), m.sessions...)
}
