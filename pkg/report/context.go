package report

import (
	"ai-researcher-be/pkg/researcher"
)

// AccumulatedContext is the merge state shared across the subtopic runs of
// one detailed report: deduplicated research snippets and visited URLs,
// written sections in completion order, and the header records used to keep
// later section titles distinct. Owned exclusively by one orchestrator run.
type AccumulatedContext struct {
	snippets   []string
	snippetSet map[string]struct{}

	visitedURLs map[string]struct{}

	writtenSections []string
	existingHeaders []researcher.HeaderRecord
}

func NewAccumulatedContext() *AccumulatedContext {
	return &AccumulatedContext{
		snippetSet:  make(map[string]struct{}),
		visitedURLs: make(map[string]struct{}),
	}
}

// AddSnippets unions new research snippets into the context, preserving
// first-seen order.
func (c *AccumulatedContext) AddSnippets(snippets []string) {
	for _, s := range snippets {
		if _, seen := c.snippetSet[s]; seen {
			continue
		}
		c.snippetSet[s] = struct{}{}
		c.snippets = append(c.snippets, s)
	}
}

// AddURLs unions visited source URLs.
func (c *AccumulatedContext) AddURLs(urls map[string]struct{}) {
	for u := range urls {
		c.visitedURLs[u] = struct{}{}
	}
}

// AppendSections records written section texts in completion order.
func (c *AccumulatedContext) AppendSections(sections []string) {
	c.writtenSections = append(c.writtenSections, sections...)
}

// AppendHeaderRecord records the headers a finished subtopic used.
func (c *AccumulatedContext) AppendHeaderRecord(rec researcher.HeaderRecord) {
	c.existingHeaders = append(c.existingHeaders, rec)
}

func (c *AccumulatedContext) Snippets() []string { return c.snippets }

func (c *AccumulatedContext) VisitedURLs() map[string]struct{} { return c.visitedURLs }

func (c *AccumulatedContext) WrittenSections() []string { return c.writtenSections }

func (c *AccumulatedContext) ExistingHeaders() []researcher.HeaderRecord {
	return c.existingHeaders
}
