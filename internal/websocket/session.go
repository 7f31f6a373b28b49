package websocket

import (
	"encoding/json"
	"sync"

	"ai-researcher-be/internal/dto"
	"ai-researcher-be/internal/pkg/logger"
	"ai-researcher-be/pkg/chat"
)

// Session is the per-connection state: the outbound client and the chat
// agent bound to the most recently completed report. A new report replaces
// the agent; earlier questions answered against the old one simply finish
// against it.
type Session struct {
	ID     string
	Client *Client
	log    logger.ILogger

	mu        sync.Mutex
	chatAgent *chat.AgentWithMemory
}

func NewSession(id string, client *Client, log logger.ILogger) *Session {
	return &Session{ID: id, Client: client, log: log}
}

// BindChatAgent replaces the session's retrieval chat agent. The previous
// agent's conversation history is released since it can no longer be reached.
func (s *Session) BindChatAgent(agent *chat.AgentWithMemory) {
	s.mu.Lock()
	old := s.chatAgent
	s.chatAgent = agent
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// ChatAgent returns the currently bound agent, or nil before the first
// completed report.
func (s *Session) ChatAgent() *chat.AgentWithMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatAgent
}

// SendLogs enqueues a progress event. Marshal failures are logged and the
// event dropped; the run carries on.
func (s *Session) SendLogs(output string) {
	s.sendJSON(dto.NewLogsEvent(output))
}

// SendChat enqueues a chat answer event.
func (s *Session) SendChat(content string) {
	s.sendJSON(dto.NewChatEvent(content))
}

// SendPath enqueues the exported file locations for a finished report.
func (s *Session) SendPath(paths dto.FilePaths) {
	s.sendJSON(dto.NewPathEvent(paths))
}

func (s *Session) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error("websocket", "failed to marshal outbound event", map[string]any{
			"session_id": s.ID,
			"error":      err.Error(),
		})
		return
	}
	if !s.Client.Enqueue(payload) {
		s.log.Warn("websocket", "outbound queue overflow, dropping connection", map[string]any{
			"session_id": s.ID,
		})
	}
}
