package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"ai-researcher-be/internal/config"
	"ai-researcher-be/internal/dto"
	"ai-researcher-be/internal/pkg/logger"
	"ai-researcher-be/internal/repository/memory"
	"ai-researcher-be/pkg/chat"
	"ai-researcher-be/pkg/embedding"
	"ai-researcher-be/pkg/events"
	"ai-researcher-be/pkg/export"
	"ai-researcher-be/pkg/llm"
	"ai-researcher-be/pkg/report"
	"ai-researcher-be/pkg/researcher"
	"ai-researcher-be/pkg/utils"
)

// TopicReportLifecycle carries report run lifecycle events on the in-process bus.
const TopicReportLifecycle = "report.lifecycle"

// MultiAgentRunner is the pluggable strategy behind the "multi_agent"
// report type. No default implementation ships; without one the run fails.
type MultiAgentRunner interface {
	Run(ctx context.Context, task researcher.ReportTask, progress researcher.ProgressFunc) (string, error)
}

// lifecycleEnvelope is the wire form of a lifecycle event on the bus.
type lifecycleEnvelope struct {
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type ReportService struct {
	cfg           *config.Config
	log           logger.ILogger
	provider      llm.LLMProvider
	embedder      embedding.EmbeddingProvider
	retriever     researcher.Retriever
	conversations *memory.ConversationRepository
	exporter      *export.Exporter
	publisher     message.Publisher
	multiAgent    MultiAgentRunner

	// plain logger handed to the library layer
	runLog *log.Logger

	now func() time.Time
}

func NewReportService(
	cfg *config.Config,
	log logger.ILogger,
	provider llm.LLMProvider,
	embedder embedding.EmbeddingProvider,
	retriever researcher.Retriever,
	conversations *memory.ConversationRepository,
	exporter *export.Exporter,
	publisher message.Publisher,
	multiAgent MultiAgentRunner,
	runLog *log.Logger,
) *ReportService {
	return &ReportService{
		cfg:           cfg,
		log:           log,
		provider:      provider,
		embedder:      embedder,
		retriever:     retriever,
		conversations: conversations,
		exporter:      exporter,
		publisher:     publisher,
		multiAgent:    multiAgent,
		runLog:        runLog,
		now:           time.Now,
	}
}

// GenerateReport runs one report end to end, streaming progress lines
// through the supplied callback. The returned string is the full markdown
// report.
func (s *ReportService) GenerateReport(ctx context.Context, cmd dto.StartCommand, progress func(string)) (string, error) {
	if progress == nil {
		progress = func(string) {}
	}
	tone := cmd.Tone
	if tone == "" {
		tone = s.cfg.Research.DefaultTone
	}
	task := researcher.ReportTask{
		Query:        cmd.Task,
		ReportType:   cmd.ReportType,
		ReportSource: cmd.ReportSource,
		SourceURLs:   cmd.SourceURLs,
		Tone:         tone,
		Headers:      cmd.Headers,
	}

	started := s.now()
	s.publishLifecycle(events.TypeReportStarted, map[string]any{
		"task":        task.Query,
		"report_type": task.ReportType,
	})
	s.log.Info("report", "starting report run", map[string]any{
		"task":        task.Query,
		"report_type": task.ReportType,
	})
	progress(fmt.Sprintf("Starting %s report for: %s", task.ReportType, task.Query))

	text, err := s.run(ctx, task, researcher.ProgressFunc(progress))
	elapsed := s.now().Sub(started)
	if err != nil {
		s.publishLifecycle(events.TypeReportFailed, map[string]any{
			"task":        task.Query,
			"report_type": task.ReportType,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return "", err
	}

	s.publishLifecycle(events.TypeReportCompleted, map[string]any{
		"task":        task.Query,
		"report_type": task.ReportType,
		"duration_ms": elapsed.Milliseconds(),
	})
	s.log.Info("report", "report run finished", map[string]any{
		"task":        task.Query,
		"report_type": task.ReportType,
		"duration":    elapsed.String(),
	})
	progress(fmt.Sprintf("Total run time: %.2f seconds", elapsed.Seconds()))
	return text, nil
}

func (s *ReportService) run(ctx context.Context, task researcher.ReportTask, progress researcher.ProgressFunc) (string, error) {
	factory := &researcher.LLMFactory{
		Provider:     s.provider,
		Retriever:    s.retriever,
		Logger:       s.runLog,
		MaxSubtopics: s.cfg.Research.MaxSubtopics,
	}

	switch task.ReportType {
	case researcher.ReportTypeDetailed:
		runner := &report.DetailedReport{
			Task:     task,
			Factory:  factory,
			Logger:   s.runLog,
			Progress: progress,
		}
		return runner.Run(ctx)
	case researcher.ReportTypeMultiAgent:
		if s.multiAgent == nil {
			return "", fmt.Errorf("report type %q is not configured on this deployment", task.ReportType)
		}
		return s.multiAgent.Run(ctx, task, progress)
	default:
		runner := &report.BasicReport{
			Task:     task,
			Factory:  factory,
			Progress: progress,
		}
		return runner.Run(ctx)
	}
}

// TaskFilename builds the task-scoped file identifier, stamped with the
// time the request was accepted. Callers compute it once at ingestion and
// carry it through the run.
func (s *ReportService) TaskFilename(query string) string {
	return utils.SanitizeFilename(fmt.Sprintf("task_%d_%s", s.now().Unix(), query))
}

// Export writes the report under the given filename and returns the
// URL-safe relative paths of whatever formats succeeded.
func (s *ReportService) Export(text string, filename string) dto.FilePaths {
	result := s.exporter.Export(text, filename)
	return dto.FilePaths{
		PDF:  result.PDF,
		DOCX: result.DOCX,
		MD:   result.MD,
	}
}

// NewChatAgent builds a retrieval chat agent over a freshly generated report.
func (s *ReportService) NewChatAgent(text string) (*chat.AgentWithMemory, error) {
	return chat.NewAgentWithMemory(text, s.provider, s.embedder, s.conversations, nil, s.runLog)
}

func (s *ReportService) publishLifecycle(eventType string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	envelope := lifecycleEnvelope{
		Type:       eventType,
		Payload:    payload,
		OccurredAt: s.now(),
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		s.log.Error("report", "failed to marshal lifecycle event", map[string]any{"error": err.Error()})
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	if err := s.publisher.Publish(TopicReportLifecycle, msg); err != nil {
		// Lifecycle fanout is observability, not part of the run.
		s.log.Warn("report", "failed to publish lifecycle event", map[string]any{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
}
