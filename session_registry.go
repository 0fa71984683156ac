package main

import (
	"fmt"
	"log/slog"
	"sync"

	"go-policy-wizard/wizard"

	"github.com/google/uuid"
)

// SessionRegistry holds the live wizard sessions and falls back to the
// snapshot storage for sessions this process has not seen yet. Snapshots are
// written after every mutation, so a restarted instance (or another replica
// behind the same Redis) can pick a session up mid-wizard.
type SessionRegistry struct {
	mutex    sync.Mutex
	sessions map[string]*wizard.Session
	storage  SessionStorage
}

func NewSessionRegistry(storage SessionStorage) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*wizard.Session),
		storage:  storage,
	}
}

// Create starts a fresh session under a new id and persists its initial
// snapshot.
func (r *SessionRegistry) Create() (string, *wizard.Session) {
	sessionId := uuid.NewString()
	session := wizard.NewSession()

	r.mutex.Lock()
	r.sessions[sessionId] = session
	r.mutex.Unlock()

	r.Persist(sessionId, session)
	slog.Info("Session created", "session_id", sessionId)
	return sessionId, session
}

// Get returns the live session, restoring it from the snapshot storage when
// this process does not hold it yet.
func (r *SessionRegistry) Get(sessionId string) (*wizard.Session, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if session, ok := r.sessions[sessionId]; ok {
		return session, nil
	}

	snapshot, err := r.storage.RetrieveSession(sessionId)
	if err != nil {
		return nil, fmt.Errorf("unknown session %s: %w", sessionId, err)
	}
	slog.Debug("Restoring session from storage", "session_id", sessionId)
	session := wizard.Restore(snapshot)
	r.sessions[sessionId] = session
	return session, nil
}

// Persist writes the current snapshot. Persistence is best effort: the live
// session keeps working when the storage write fails.
func (r *SessionRegistry) Persist(sessionId string, session *wizard.Session) {
	if err := r.storage.StoreSession(sessionId, session.Snapshot()); err != nil {
		slog.Warn("Failed to persist session snapshot", "session_id", sessionId, "error", err)
	}
}

// Remove drops the session from memory and storage.
func (r *SessionRegistry) Remove(sessionId string) {
	r.mutex.Lock()
	delete(r.sessions, sessionId)
	r.mutex.Unlock()

	if err := r.storage.RemoveSession(sessionId); err != nil {
		slog.Debug("No stored snapshot to remove", "session_id", sessionId, "error", err)
	}
	slog.Info("Session removed", "session_id", sessionId)
}

func (r *SessionRegistry) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}
