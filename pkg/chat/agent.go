package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"ai-researcher-be/internal/repository/memory"
	"ai-researcher-be/pkg/embedding"
	"ai-researcher-be/pkg/llm"
	"ai-researcher-be/pkg/utils"
	"ai-researcher-be/pkg/vectorstore"
)

// EmptyKnowledgeBaseMessage is returned when a chat arrives before any
// report has been generated.
const EmptyKnowledgeBaseMessage = "Knowledge base is empty. Please run a research first to add knowledge."

const (
	chunkSize    = 1024
	chunkOverlap = 20
	retrievalK   = 4

	// Upper bound on tool-call rounds before the agent must answer.
	maxToolRounds = 3
)

// AgentWithMemory answers questions about one generated report. It owns a
// chunk index over the report text and a conversation thread whose history
// survives across Ask calls. One lives per connection; a new report replaces
// it, and in-flight Ask calls finish against the old instance.
type AgentWithMemory struct {
	report        string
	index         vectorstore.Index
	provider      llm.LLMProvider
	conversations *memory.ConversationRepository
	threadID      string
	logger        *log.Logger
}

// NewAgentWithMemory builds the chunk index over the report (unless an
// externally built index is supplied) and opens a fresh conversation thread.
func NewAgentWithMemory(
	report string,
	provider llm.LLMProvider,
	embedder embedding.EmbeddingProvider,
	conversations *memory.ConversationRepository,
	index vectorstore.Index,
	logger *log.Logger,
) (*AgentWithMemory, error) {
	if index == nil {
		store := vectorstore.NewInMemoryStore(embedder)
		if err := store.AddTexts(utils.SplitText(report, chunkSize, chunkOverlap)); err != nil {
			return nil, fmt.Errorf("indexing report: %w", err)
		}
		index = store
	}

	return &AgentWithMemory{
		report:        report,
		index:         index,
		provider:      provider,
		conversations: conversations,
		threadID:      uuid.New().String(),
		logger:        logger,
	}, nil
}

// ThreadID is the continuity key for this agent's conversation.
func (a *AgentWithMemory) ThreadID() string { return a.threadID }

// Close drops the agent's conversation history. Called when a newer report
// replaces this agent so the thread does not linger until cache expiry.
func (a *AgentWithMemory) Close() {
	a.conversations.Delete(a.threadID)
}

// Ask answers one user message, optionally making retrieval tool calls
// against the report index first. History for the thread is loaded before
// the call and extended after it.
func (a *AgentWithMemory) Ask(ctx context.Context, message string) (string, error) {
	framed := fmt.Sprintf(`You are an autonomous research agent. This chat is about a research report you created; answer based on the given context and report, and include citations backed by the report.

You may call the single available tool by replying with exactly:
{"tool": "search_report", "query": "<what to look up>"}
Use it when you need more context from the report; otherwise answer directly.

Report: %s
User Message: %s`, a.report, message)

	// turn collects every message produced this call, tool exchanges
	// included, so the whole exchange lands in thread memory.
	turn := []llm.Message{{Role: "user", Content: framed}}
	messages := append(a.conversations.Get(a.threadID), turn...)

	var answer string
	for round := 0; ; round++ {
		reply, err := a.provider.Chat(ctx, messages, llm.WithTemperature(0.35))
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}

		query, isToolCall := parseToolCall(reply)
		if !isToolCall || round >= maxToolRounds {
			answer = reply
			break
		}

		a.logger.Printf("[CHAT] retrieval tool call: %q", query)
		chunks, err := a.index.Query(query, retrievalK)
		if err != nil {
			return "", fmt.Errorf("report retrieval: %w", err)
		}
		var texts []string
		for _, c := range chunks {
			texts = append(texts, c.Text)
		}

		exchange := []llm.Message{
			{Role: "assistant", Content: reply},
			{Role: "user", Content: "search_report result:\n" + strings.Join(texts, "\n---\n")},
		}
		turn = append(turn, exchange...)
		messages = append(messages, exchange...)
	}

	turn = append(turn, llm.Message{Role: "assistant", Content: answer})
	a.conversations.Append(a.threadID, turn...)
	return answer, nil
}

func parseToolCall(reply string) (query string, ok bool) {
	trimmed := strings.TrimSpace(reply)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	var call struct {
		Tool  string `json:"tool"`
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &call); err != nil {
		return "", false
	}
	if call.Tool != "search_report" || call.Query == "" {
		return "", false
	}
	return call.Query, true
}
