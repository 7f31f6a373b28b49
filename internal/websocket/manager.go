package websocket

import (
	"sync"

	"github.com/google/uuid"

	"ai-researcher-be/internal/pkg/logger"
)

// Manager tracks live sessions so shutdown can close them cleanly.
type Manager struct {
	log       logger.ILogger
	queueSize int

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(log logger.ILogger, queueSize int) *Manager {
	return &Manager{
		log:       log,
		queueSize: queueSize,
		sessions:  make(map[string]*Session),
	}
}

func (m *Manager) Register(conn Conn) *Session {
	session := NewSession(uuid.NewString(), NewClient(conn, m.queueSize), m.log)
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	m.log.Info("websocket", "session registered", map[string]any{"session_id": session.ID})
	return session
}

func (m *Manager) Unregister(session *Session) {
	m.mu.Lock()
	delete(m.sessions, session.ID)
	m.mu.Unlock()
	session.Client.Shutdown()
	m.log.Info("websocket", "session unregistered", map[string]any{"session_id": session.ID})
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown drops every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Client.Shutdown()
	}
}
