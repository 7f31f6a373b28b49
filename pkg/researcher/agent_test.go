package researcher

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-researcher-be/pkg/llm"
)

// routedProvider answers by prompt content and records every prompt.
type routedProvider struct {
	route   func(prompt string) (string, error)
	prompts []string
}

func (p *routedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.route(prompt)
}

func (p *routedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, options...)
}

type staticRetriever struct {
	sources []Source
	err     error
	queries []string
}

func (r *staticRetriever) Search(ctx context.Context, query string) ([]Source, error) {
	r.queries = append(r.queries, query)
	return r.sources, r.err
}

func newFactory(provider llm.LLMProvider, retriever Retriever) *LLMFactory {
	return &LLMFactory{
		Provider:     provider,
		Retriever:    retriever,
		Logger:       log.New(io.Discard, "", 0),
		MaxSubtopics: 3,
	}
}

func TestConductResearch_GathersSources(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) {
		return "a solar market analyst", nil
	}}
	retriever := &staticRetriever{sources: []Source{
		{URL: "https://a.example", Content: "content a"},
		{URL: "https://b.example", Content: ""},
		{URL: "https://c.example", Content: "content c"},
	}}

	agent := newFactory(provider, retriever).NewAgent(AgentConfig{
		Task: ReportTask{Query: "solar trends"},
	})
	require.NoError(t, agent.ConductResearch(context.Background()))

	assert.Equal(t, []string{"solar trends"}, retriever.queries)
	assert.Equal(t, []string{"content a", "content c"}, agent.Context())
	// Empty-content sources contribute neither context nor a reference.
	assert.Len(t, agent.VisitedURLs(), 2)
	assert.NotContains(t, agent.VisitedURLs(), "https://b.example")
	assert.Equal(t, "a solar market analyst", agent.Persona())
}

func TestConductResearch_PersonaFailureFallsBack(t *testing.T) {
	provider := &routedProvider{route: func(prompt string) (string, error) {
		if strings.Contains(prompt, "expert persona") {
			return "", errors.New("model offline")
		}
		return "ok", nil
	}}
	retriever := &staticRetriever{sources: []Source{{URL: "https://a", Content: "x"}}}

	agent := newFactory(provider, retriever).NewAgent(AgentConfig{
		Task: ReportTask{Query: "anything"},
	})
	require.NoError(t, agent.ConductResearch(context.Background()))
	assert.Equal(t, "an autonomous research agent", agent.Persona())
}

func TestConductResearch_RetrieverFailureIsFatal(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) { return "persona", nil }}
	retriever := &staticRetriever{err: errors.New("search backend down")}

	agent := newFactory(provider, retriever).NewAgent(AgentConfig{
		Task: ReportTask{Query: "anything"},
	})
	err := agent.ConductResearch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search backend down")
}

func TestGetSubtopics_ParsesAndCaps(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) {
		return "Here you go:\n```json\n" +
			`{"subtopics": [{"task": "one"}, {"task": "two"}, {"task": "three"}, {"task": "four"}]}` +
			"\n```", nil
	}}

	agent := newFactory(provider, &staticRetriever{}).NewAgent(AgentConfig{
		Task: ReportTask{Query: "parent topic"},
	})

	subtopics, err := agent.GetSubtopics(context.Background())
	require.NoError(t, err)
	// Capped at the configured maximum, parent query attached.
	require.Len(t, subtopics, 3)
	assert.Equal(t, "one", subtopics[0].Task)
	for _, s := range subtopics {
		assert.Equal(t, "parent topic", s.ParentQuery)
	}
}

func TestGetSubtopics_MalformedOutput(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) {
		return "I could not produce JSON, sorry.", nil
	}}

	agent := newFactory(provider, &staticRetriever{}).NewAgent(AgentConfig{
		Task: ReportTask{Query: "parent topic"},
	})

	_, err := agent.GetSubtopics(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected subtopics format")
}

func TestGetSubtopics_HintsIncludeClientSubtopics(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) {
		return `{"subtopics": []}`, nil
	}}

	agent := newFactory(provider, &staticRetriever{}).NewAgent(AgentConfig{
		Task: ReportTask{
			Query:     "parent topic",
			Subtopics: []SubtopicUnit{{Task: "must cover this"}},
		},
	})

	_, err := agent.GetSubtopics(context.Background())
	require.NoError(t, err)
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "must cover this")
}

func TestWriteReport_SubtopicPromptExcludesUsedHeaders(t *testing.T) {
	provider := &routedProvider{route: func(string) (string, error) {
		return "## Fresh Section\nbody", nil
	}}

	agent := newFactory(provider, &staticRetriever{}).NewAgent(AgentConfig{
		Task:        ReportTask{Query: "storage"},
		Kind:        KindSubtopicReport,
		ParentQuery: "renewables",
		Persona:     "an energy analyst",
	})

	_, err := agent.WriteReport(context.Background(),
		[]HeaderRecord{{Subtopic: "solar", Headers: []Header{{Level: 2, Text: "Solar Trends"}}}},
		[]string{"already written solar content"},
	)
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.Contains(t, prompt, `"renewables"`)
	assert.Contains(t, prompt, "- Solar Trends")
	assert.Contains(t, prompt, "already written solar content")
	assert.Contains(t, prompt, `"## "`)
	assert.Contains(t, prompt, "an energy analyst")
}

func TestTruncate_RuneBoundaries(t *testing.T) {
	assert.Equal(t, "éé", truncate("ééé", 2))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("太陽", 100), 7)))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, extractJSON("prose before {\"a\": 1} prose after"))
	assert.Equal(t, "no json here", extractJSON("no json here"))
}
