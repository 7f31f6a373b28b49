package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-researcher-be/internal/dto"
	"ai-researcher-be/internal/pkg/logger"
	"ai-researcher-be/pkg/chat"
)

// ReportService is what the dispatcher needs from the application layer.
type ReportService interface {
	TaskFilename(query string) string
	GenerateReport(ctx context.Context, cmd dto.StartCommand, progress func(output string)) (string, error)
	Export(report string, filename string) dto.FilePaths
	NewChatAgent(report string) (*chat.AgentWithMemory, error)
}

// Handler runs the inbound side of each connection: it reads text frames,
// parses the leading command word and dispatches. Commands execute
// synchronously, so one connection has at most one in-flight command.
type Handler struct {
	manager *Manager
	service ReportService
	log     logger.ILogger
}

func NewHandler(manager *Manager, service ReportService, log logger.ILogger) *Handler {
	return &Handler{manager: manager, service: service, log: log}
}

// Serve owns the connection until the peer disconnects or the transport
// fails. It must be called from the connection's handler goroutine.
func (h *Handler) Serve(conn Conn) {
	session := h.manager.Register(conn)
	defer h.manager.Unregister(session)

	go session.Client.WritePump()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Info("websocket", "connection closed", map[string]any{
				"session_id": session.ID,
				"reason":     err.Error(),
			})
			return
		}
		h.dispatch(context.Background(), session, string(data))
	}
}

func (h *Handler) dispatch(ctx context.Context, session *Session, message string) {
	switch {
	case strings.HasPrefix(message, "start"):
		h.handleStart(ctx, session, strings.TrimSpace(strings.TrimPrefix(message, "start")))
	case strings.HasPrefix(message, "human_feedback"):
		// Accepted for protocol compatibility; runs are fully autonomous.
		h.log.Info("websocket", "human_feedback received", map[string]any{
			"session_id": session.ID,
			"payload":    strings.TrimSpace(strings.TrimPrefix(message, "human_feedback")),
		})
	case strings.HasPrefix(message, "chat"):
		h.handleChat(ctx, session, strings.TrimSpace(strings.TrimPrefix(message, "chat")))
	default:
		h.log.Warn("websocket", "unknown command ignored", map[string]any{
			"session_id": session.ID,
			"command":    firstWord(message),
		})
	}
}

func (h *Handler) handleStart(ctx context.Context, session *Session, payload string) {
	var cmd dto.StartCommand
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		h.log.Warn("websocket", "malformed start payload ignored", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return
	}
	if err := cmd.Validate(); err != nil {
		h.log.Warn("websocket", "invalid start command", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return
	}

	// Stamped at ingestion; the run's duration must not shift the name.
	filename := h.service.TaskFilename(cmd.Task)

	report, err := h.service.GenerateReport(ctx, cmd, session.SendLogs)
	if err != nil {
		h.log.Error("websocket", "report run failed", map[string]any{
			"session_id": session.ID,
			"task":       cmd.Task,
			"error":      err.Error(),
		})
		session.SendLogs("Report generation failed: " + err.Error())
		return
	}

	session.SendPath(h.service.Export(report, filename))

	agent, err := h.service.NewChatAgent(report)
	if err != nil {
		h.log.Error("websocket", "failed to build chat agent for report", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		// A stale agent would answer about the previous report; chat
		// falls back to the empty-knowledge-base reply instead.
		session.BindChatAgent(nil)
		return
	}
	session.BindChatAgent(agent)
}

func (h *Handler) handleChat(ctx context.Context, session *Session, payload string) {
	var cmd dto.ChatCommand
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		h.log.Warn("websocket", "malformed chat payload ignored", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return
	}
	if err := cmd.Validate(); err != nil {
		h.log.Warn("websocket", "invalid chat command", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return
	}

	agent := session.ChatAgent()
	if agent == nil {
		session.SendChat(chat.EmptyKnowledgeBaseMessage)
		return
	}

	answer, err := agent.Ask(ctx, cmd.Message)
	if err != nil {
		h.log.Error("websocket", "chat answer failed", map[string]any{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		session.SendLogs("Chat failed: " + err.Error())
		return
	}
	session.SendChat(answer)
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		return s[:i]
	}
	if len(s) > 32 {
		return s[:32]
	}
	return s
}
