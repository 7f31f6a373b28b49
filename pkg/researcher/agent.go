package researcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-researcher-be/pkg/llm"
)

// Agent runs the research side of one report (or one subtopic of a detailed
// report): it gathers sources and produces the LLM-written building blocks
// the report orchestrators assemble.
type Agent interface {
	// ConductResearch gathers sources for the agent's query, filling the
	// agent's context snippets and visited-URL set.
	ConductResearch(ctx context.Context) error

	// WriteReport writes the report (or subtopic section). existingHeaders
	// lists section titles already taken by earlier subtopics;
	// relevantContents carries prior sections that overlap this subtopic.
	WriteReport(ctx context.Context, existingHeaders []HeaderRecord, relevantContents []string) (string, error)

	WriteIntroduction(ctx context.Context) (string, error)
	WriteConclusion(ctx context.Context, body string) (string, error)

	// GetSubtopics asks for a decomposition of the query. A malformed
	// model response surfaces as an error; callers decide whether that is
	// fatal.
	GetSubtopics(ctx context.Context) ([]SubtopicUnit, error)

	// GetDraftSectionTitles drafts candidate markdown headers for the
	// agent's query.
	GetDraftSectionTitles(ctx context.Context) (string, error)

	Context() []string
	VisitedURLs() map[string]struct{}
	Persona() string
}

// AgentConfig seeds a new agent. Subtopic agents inherit the parent run's
// accumulated context, visited URLs and persona.
type AgentConfig struct {
	Task        ReportTask
	Kind        string // KindResearchReport or KindSubtopicReport
	ParentQuery string
	SeedContext []string
	SeedURLs    map[string]struct{}
	Persona     string
	Progress    ProgressFunc
}

// Factory creates agents; the detailed orchestrator uses it to spawn one
// isolated agent per subtopic.
type Factory interface {
	NewAgent(cfg AgentConfig) Agent
}

// LLMFactory builds agents backed by an LLM provider and a web retriever.
type LLMFactory struct {
	Provider     llm.LLMProvider
	Retriever    Retriever
	Logger       *log.Logger
	MaxSubtopics int
}

var _ Factory = &LLMFactory{}

func (f *LLMFactory) NewAgent(cfg AgentConfig) Agent {
	progress := cfg.Progress
	if progress == nil {
		progress = func(string) {}
	}
	urls := make(map[string]struct{}, len(cfg.SeedURLs))
	for u := range cfg.SeedURLs {
		urls[u] = struct{}{}
	}
	for _, u := range cfg.Task.SourceURLs {
		urls[u] = struct{}{}
	}
	kind := cfg.Kind
	if kind == "" {
		kind = KindResearchReport
	}
	return &agent{
		task:         cfg.Task,
		kind:         kind,
		parentQuery:  cfg.ParentQuery,
		persona:      cfg.Persona,
		context:      append([]string(nil), cfg.SeedContext...),
		visitedURLs:  urls,
		provider:     f.Provider,
		retriever:    f.Retriever,
		logger:       f.Logger,
		maxSubtopics: f.MaxSubtopics,
		progress:     progress,
	}
}

type agent struct {
	task        ReportTask
	kind        string
	parentQuery string
	persona     string

	context     []string
	visitedURLs map[string]struct{}

	provider     llm.LLMProvider
	retriever    Retriever
	logger       *log.Logger
	maxSubtopics int
	progress     ProgressFunc
}

// Keeps prompts inside typical context windows.
const maxContextChars = 24000

func (a *agent) Context() []string                { return a.context }
func (a *agent) VisitedURLs() map[string]struct{} { return a.visitedURLs }
func (a *agent) Persona() string                  { return a.persona }

func (a *agent) ConductResearch(ctx context.Context) error {
	if a.persona == "" {
		persona, err := a.choosePersona(ctx)
		if err != nil {
			a.logger.Printf("[AGENT] persona selection failed, using default: %v", err)
			persona = "an autonomous research agent"
		}
		a.persona = persona
	}

	a.progress(fmt.Sprintf("Starting research for '%s'...", a.task.Query))

	sources, err := a.retriever.Search(ctx, a.task.Query)
	if err != nil {
		return fmt.Errorf("research for %q failed: %w", a.task.Query, err)
	}

	added := 0
	for _, src := range sources {
		if src.Content == "" {
			continue
		}
		a.context = append(a.context, src.Content)
		if src.URL != "" {
			a.visitedURLs[src.URL] = struct{}{}
		}
		added++
	}

	a.progress(fmt.Sprintf("Gathered %d sources for '%s'", added, a.task.Query))
	return nil
}

func (a *agent) GetSubtopics(ctx context.Context) ([]SubtopicUnit, error) {
	hints := ""
	if len(a.task.Subtopics) > 0 {
		var tasks []string
		for _, s := range a.task.Subtopics {
			tasks = append(tasks, s.Task)
		}
		hints = "Include these required subtopics: " + strings.Join(tasks, "; ") + "\n"
	}

	prompt := fmt.Sprintf(`Decompose the research topic below into at most %d distinct subtopics that together cover it without overlap.
%sTopic: %s

Research summary:
%s

Respond with JSON only, in the form {"subtopics": [{"task": "..."}]}.`,
		a.maxSubtopics, hints, a.task.Query, joinTruncated(a.context, maxContextChars))

	raw, err := a.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("subtopic decomposition failed: %w", err)
	}

	var parsed struct {
		Subtopics []SubtopicUnit `json:"subtopics"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unexpected subtopics format: %w", err)
	}

	subtopics := parsed.Subtopics
	if len(subtopics) > a.maxSubtopics {
		subtopics = subtopics[:a.maxSubtopics]
	}
	for i := range subtopics {
		subtopics[i].ParentQuery = a.task.Query
	}
	return subtopics, nil
}

func (a *agent) WriteIntroduction(ctx context.Context) (string, error) {
	prompt := fmt.Sprintf(`You are %s.
Write an introduction (markdown, starting with a "# " title) for a %s report on: %s

Base it on this research:
%s`,
		a.personaOrDefault(), a.toneOrDefault(), a.task.Query, joinTruncated(a.context, maxContextChars))

	a.progress("Writing introduction...")
	return a.provider.Generate(ctx, prompt, llm.WithTemperature(0.4))
}

func (a *agent) WriteConclusion(ctx context.Context, body string) (string, error) {
	prompt := fmt.Sprintf(`You are %s.
Write a conclusion section (markdown, starting with "## Conclusion") for the report below on: %s

Report:
%s`,
		a.personaOrDefault(), a.task.Query, truncate(body, maxContextChars))

	a.progress("Writing conclusion...")
	return a.provider.Generate(ctx, prompt, llm.WithTemperature(0.4))
}

func (a *agent) GetDraftSectionTitles(ctx context.Context) (string, error) {
	prompt := fmt.Sprintf(`Draft markdown section headers (### level) for a report section about "%s" within the broader topic "%s".
Return headers only, one per line.

Research:
%s`,
		a.task.Query, a.parentQuery, joinTruncated(a.context, maxContextChars))

	return a.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
}

func (a *agent) WriteReport(ctx context.Context, existingHeaders []HeaderRecord, relevantContents []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", a.personaOrDefault())

	if a.kind == KindSubtopicReport {
		fmt.Fprintf(&b, "Write the section of a larger report on %q that covers the subtopic: %s\n", a.parentQuery, a.task.Query)
		b.WriteString("Use markdown with \"## \" as the top heading level for this section.\n")
	} else {
		fmt.Fprintf(&b, "Write a complete %s report in markdown on: %s\n", a.toneOrDefault(), a.task.Query)
	}

	if len(existingHeaders) > 0 {
		b.WriteString("\nThese section titles are already used elsewhere in the report; choose different ones:\n")
		for _, rec := range existingHeaders {
			for _, h := range rec.Headers {
				fmt.Fprintf(&b, "- %s\n", h.Text)
			}
		}
	}

	if len(relevantContents) > 0 {
		b.WriteString("\nThe following content is already covered; do not repeat it:\n")
		b.WriteString(truncate(strings.Join(relevantContents, "\n\n"), maxContextChars/4))
		b.WriteString("\n")
	}

	b.WriteString("\nResearch context:\n")
	b.WriteString(joinTruncated(a.context, maxContextChars))

	a.progress(fmt.Sprintf("Writing report for '%s'...", a.task.Query))
	return a.provider.Generate(ctx, b.String(), llm.WithTemperature(0.4))
}

func (a *agent) choosePersona(ctx context.Context) (string, error) {
	prompt := fmt.Sprintf(`In one short phrase, name the expert persona best suited to research: %s
Example: "a seasoned finance analyst". Respond with the phrase only.`, a.task.Query)
	persona, err := a.provider.Generate(ctx, prompt, llm.WithTemperature(0.2), llm.WithMaxTokens(60))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(persona), nil
}

func (a *agent) personaOrDefault() string {
	if a.persona != "" {
		return a.persona
	}
	return "an autonomous research agent"
}

func (a *agent) toneOrDefault() string {
	if a.task.Tone != "" {
		return a.task.Tone
	}
	return "objective"
}

// extractJSON trims anything around the outermost JSON object, tolerating
// models that wrap output in code fences or prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func joinTruncated(parts []string, max int) string {
	return truncate(strings.Join(parts, "\n\n"), max)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
