package researcher

// Report types select the orchestration strategy for a run.
const (
	ReportTypeBasic      = "basic"
	ReportTypeDetailed   = "detailed"
	ReportTypeMultiAgent = "multi_agent"

	// Agent kinds: a top-level research run or an isolated subtopic run.
	KindResearchReport = "research_report"
	KindSubtopicReport = "subtopic_report"
)

// ReportTask describes one report request. Immutable once created,
// scoped to a single run.
type ReportTask struct {
	Query        string
	ReportType   string
	ReportSource string
	SourceURLs   []string
	Tone         string
	Subtopics    []SubtopicUnit // optional client-provided hints
	Headers      map[string]string
}

// SubtopicUnit is one decomposed research question within a detailed report.
type SubtopicUnit struct {
	Task        string `json:"task"`
	ParentQuery string `json:"-"`
}

// Header is a markdown heading extracted from generated text.
type Header struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// HeaderRecord ties a subtopic to the headers its section used, so later
// subtopics can avoid colliding section titles.
type HeaderRecord struct {
	Subtopic string
	Headers  []Header
}

// Source is one retrieved web source.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ProgressFunc receives human-readable progress lines during a run.
// Implementations must be safe for concurrent use.
type ProgressFunc func(message string)
