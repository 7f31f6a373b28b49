package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-researcher-be/pkg/researcher"
)

// DetailedReport decomposes a query into subtopics, researches them
// sequentially against a shared AccumulatedContext, and merges the written
// sections into one document with deduplicated structure.
type DetailedReport struct {
	Task     researcher.ReportTask
	Factory  researcher.Factory
	Logger   *log.Logger
	Progress researcher.ProgressFunc
}

func (r *DetailedReport) Run(ctx context.Context) (string, error) {
	progress := r.Progress
	if progress == nil {
		progress = func(string) {}
	}

	topAgent := r.Factory.NewAgent(researcher.AgentConfig{
		Task:     r.Task,
		Progress: progress,
	})

	// Initial broad research is the foundation of the whole run; its
	// failure is fatal.
	if err := topAgent.ConductResearch(ctx); err != nil {
		return "", fmt.Errorf("initial research failed: %w", err)
	}

	acc := NewAccumulatedContext()
	acc.AddSnippets(topAgent.Context())
	acc.AddURLs(topAgent.VisitedURLs())

	subtopics, err := topAgent.GetSubtopics(ctx)
	if err != nil {
		// Degrade to a report without subtopic sections rather than
		// failing the run.
		r.Logger.Printf("[REPORT] unexpected subtopics data, continuing without subtopics: %v", err)
		subtopics = nil
	}
	progress(fmt.Sprintf("Identified %d subtopics", len(subtopics)))

	introduction, err := topAgent.WriteIntroduction(ctx)
	if err != nil {
		return "", fmt.Errorf("writing introduction failed: %w", err)
	}

	var sectionReports []string
	for _, subtopic := range subtopics {
		sectionReport, err := r.runSubtopic(ctx, subtopic, topAgent.Persona(), acc, progress)
		if err != nil {
			// One subtopic must not sink the run; log, tell the
			// client, move on.
			r.Logger.Printf("[REPORT] subtopic %q failed, skipping: %v", subtopic.Task, err)
			progress(fmt.Sprintf("Skipping subtopic '%s' after an error", subtopic.Task))
			continue
		}
		if sectionReport != "" {
			sectionReports = append(sectionReports, sectionReport)
		}
	}

	body := strings.Join(sectionReports, "\n\n")

	toc := researcher.TableOfContents(body)
	conclusion, err := topAgent.WriteConclusion(ctx, body)
	if err != nil {
		return "", fmt.Errorf("writing conclusion failed: %w", err)
	}
	conclusionWithReferences := researcher.AddReferences(conclusion, acc.VisitedURLs())

	return assemble(introduction, toc, body, conclusionWithReferences), nil
}

// runSubtopic researches and writes one subtopic section, then merges its
// results back into the accumulated context.
func (r *DetailedReport) runSubtopic(
	ctx context.Context,
	subtopic researcher.SubtopicUnit,
	persona string,
	acc *AccumulatedContext,
	progress researcher.ProgressFunc,
) (string, error) {
	subAgent := r.Factory.NewAgent(researcher.AgentConfig{
		Task: researcher.ReportTask{
			Query:        subtopic.Task,
			ReportType:   r.Task.ReportType,
			ReportSource: r.Task.ReportSource,
			Tone:         r.Task.Tone,
			Headers:      r.Task.Headers,
		},
		Kind:        researcher.KindSubtopicReport,
		ParentQuery: r.Task.Query,
		SeedContext: acc.Snippets(),
		SeedURLs:    acc.VisitedURLs(),
		Persona:     persona,
		Progress:    progress,
	})

	if err := subAgent.ConductResearch(ctx); err != nil {
		return "", err
	}

	draftTitles, err := subAgent.GetDraftSectionTitles(ctx)
	if err != nil {
		return "", err
	}
	var draftTitleTexts []string
	for _, h := range researcher.ExtractHeaders(draftTitles) {
		draftTitleTexts = append(draftTitleTexts, h.Text)
	}

	relevantContents := researcher.SimilarWrittenContents(draftTitleTexts, acc.WrittenSections())

	sectionReport, err := subAgent.WriteReport(ctx, acc.ExistingHeaders(), relevantContents)
	if err != nil {
		return "", err
	}

	// Merge back even when the writer produced nothing: the research
	// itself still grows the shared context.
	acc.AppendSections(researcher.ExtractSections(sectionReport))
	acc.AddSnippets(subAgent.Context())
	acc.AddURLs(subAgent.VisitedURLs())
	acc.AppendHeaderRecord(researcher.HeaderRecord{
		Subtopic: subtopic.Task,
		Headers:  researcher.ExtractHeaders(sectionReport),
	})

	return sectionReport, nil
}

// assemble joins the document parts with blank lines, skipping empty ones.
func assemble(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
