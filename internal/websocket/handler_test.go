package websocket

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-researcher-be/internal/dto"
	"ai-researcher-be/internal/repository/memory"
	"ai-researcher-be/pkg/chat"
	"ai-researcher-be/pkg/llm"
	"ai-researcher-be/pkg/vectorstore"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error {
	return nil
}

// echoProvider always answers with its fixed reply.
type echoProvider struct{ reply string }

func (p echoProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.reply, nil
}

func (p echoProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.reply, nil
}

type emptyIndex struct{}

func (emptyIndex) Query(query string, k int) ([]vectorstore.Chunk, error) { return nil, nil }
func (emptyIndex) Len() int                                               { return 0 }

// stubReportService hands out one scripted report per start command.
type stubReportService struct {
	mu      sync.Mutex
	reports []string
	genErr  error
	// agentErrFor makes NewChatAgent fail for this exact report text.
	agentErrFor string

	generateCalls []dto.StartCommand
	exportCalls   []string
}

func (s *stubReportService) TaskFilename(query string) string {
	return "task_" + query
}

func (s *stubReportService) GenerateReport(ctx context.Context, cmd dto.StartCommand, progress func(string)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generateCalls = append(s.generateCalls, cmd)
	if s.genErr != nil {
		return "", s.genErr
	}
	progress("researching " + cmd.Task)
	report := s.reports[0]
	if len(s.reports) > 1 {
		s.reports = s.reports[1:]
	}
	return report, nil
}

func (s *stubReportService) Export(report string, filename string) dto.FilePaths {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportCalls = append(s.exportCalls, filename)
	return dto.FilePaths{MD: "outputs/" + filename + ".md"}
}

func (s *stubReportService) NewChatAgent(report string) (*chat.AgentWithMemory, error) {
	s.mu.Lock()
	agentErrFor := s.agentErrFor
	s.mu.Unlock()
	if agentErrFor != "" && report == agentErrFor {
		return nil, errors.New("agent build failed")
	}
	return chat.NewAgentWithMemory(
		report,
		echoProvider{reply: "about: " + report},
		nil,
		memory.NewConversationRepository(),
		emptyIndex{},
		log.New(io.Discard, "", 0),
	)
}

func (s *stubReportService) started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.generateCalls)
}

type servedConn struct {
	conn    *fakeConn
	done    chan struct{}
	manager *Manager
}

func serve(t *testing.T, svc ReportService) *servedConn {
	t.Helper()
	conn := newFakeConn()
	manager := NewManager(noopLogger{}, 16)
	handler := NewHandler(manager, svc, noopLogger{})

	done := make(chan struct{})
	go func() {
		handler.Serve(conn)
		close(done)
	}()
	return &servedConn{conn: conn, done: done, manager: manager}
}

func (s *servedConn) send(frame string) { s.conn.inbound <- []byte(frame) }

func (s *servedConn) close(t *testing.T) {
	t.Helper()
	close(s.conn.inbound)
	<-s.done
}

func (s *servedConn) waitForText(t *testing.T, substr string) string {
	t.Helper()
	var found string
	waitFor(t, func() bool {
		for _, text := range s.conn.writtenTexts() {
			if strings.Contains(text, substr) {
				found = text
				return true
			}
		}
		return false
	})
	return found
}

func TestHandler_ChatBeforeAnyReport(t *testing.T) {
	s := serve(t, &stubReportService{})
	defer s.close(t)

	s.send(`chat {"message": "what did you find?"}`)

	event := s.waitForText(t, chat.EmptyKnowledgeBaseMessage)
	assert.Contains(t, event, `"type":"chat"`)
}

func TestHandler_StartThenChat(t *testing.T) {
	svc := &stubReportService{reports: []string{"# Solar\nreport one"}}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`start {"task": "solar trends", "report_type": "basic"}`)

	// Progress streamed during the run, then the exported paths.
	s.waitForText(t, "researching solar trends")
	pathEvent := s.waitForText(t, `"type":"path"`)
	assert.Contains(t, pathEvent, "solar trends.md")

	// The chat agent now answers from the finished report.
	s.send(`chat {"message": "summarize"}`)
	chatEvent := s.waitForText(t, "about: # Solar")
	assert.Contains(t, chatEvent, `"type":"chat"`)

	require.Equal(t, 1, svc.started())
	assert.Equal(t, "basic", svc.generateCalls[0].ReportType)
	assert.Equal(t, []string{"task_solar trends"}, svc.exportCalls)
}

func TestHandler_SecondReportReplacesChatAgent(t *testing.T) {
	svc := &stubReportService{reports: []string{"report-one", "report-two"}}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`start {"task": "first", "report_type": "basic"}`)
	s.waitForText(t, "first.md")
	s.send(`start {"task": "second", "report_type": "basic"}`)
	s.waitForText(t, "second.md")

	s.send(`chat {"message": "which report?"}`)
	s.waitForText(t, "about: report-two")

	for _, text := range s.conn.writtenTexts() {
		assert.NotContains(t, text, "about: report-one")
	}
}

func TestHandler_FailedAgentBuildUnbindsPreviousAgent(t *testing.T) {
	svc := &stubReportService{
		reports:     []string{"report-one", "report-two"},
		agentErrFor: "report-two",
	}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`start {"task": "first", "report_type": "basic"}`)
	s.waitForText(t, "first.md")
	s.send(`chat {"message": "which report?"}`)
	s.waitForText(t, "about: report-one")

	// The second run finishes but its chat agent fails to build. The
	// first report's agent must not keep answering.
	s.send(`start {"task": "second", "report_type": "basic"}`)
	s.waitForText(t, "second.md")
	s.send(`chat {"message": "which report now?"}`)
	s.waitForText(t, chat.EmptyKnowledgeBaseMessage)

	answers := 0
	for _, text := range s.conn.writtenTexts() {
		if strings.Contains(text, "about: report-one") {
			answers++
		}
	}
	assert.Equal(t, 1, answers)
}

func TestHandler_RunFailureIsReportedAsLogs(t *testing.T) {
	svc := &stubReportService{genErr: errors.New("retriever unreachable")}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`start {"task": "doomed", "report_type": "detailed"}`)

	event := s.waitForText(t, "Report generation failed")
	assert.Contains(t, event, `"type":"logs"`)
	assert.Contains(t, event, "retriever unreachable")

	// No paths for a failed run.
	for _, text := range s.conn.writtenTexts() {
		assert.NotContains(t, text, `"type":"path"`)
	}
}

func TestHandler_InvalidFramesAreIgnored(t *testing.T) {
	svc := &stubReportService{reports: []string{"report"}}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`start not-json-at-all`)
	s.send(`start {"task": "missing type"}`)
	s.send(`teleport {"somewhere": "else"}`)
	s.send(`chat {"no_message_field": true}`)

	// A later valid command proves the earlier ones were processed and
	// dropped without breaking the connection.
	s.send(`chat {"message": "still alive?"}`)
	s.waitForText(t, chat.EmptyKnowledgeBaseMessage)

	assert.Equal(t, 0, svc.started())
}

func TestHandler_HumanFeedbackIsAccepted(t *testing.T) {
	svc := &stubReportService{}
	s := serve(t, svc)
	defer s.close(t)

	s.send(`human_feedback {"comment": "looks good"}`)
	s.send(`chat {"message": "hello"}`)
	s.waitForText(t, chat.EmptyKnowledgeBaseMessage)

	assert.Equal(t, 0, svc.started())
}

func TestHandler_UnregistersOnDisconnect(t *testing.T) {
	s := serve(t, &stubReportService{})
	waitFor(t, func() bool { return s.manager.Count() == 1 })

	s.close(t)
	waitFor(t, func() bool { return s.manager.Count() == 0 })
}
