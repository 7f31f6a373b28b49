package export

import (
	"log"
	"net/url"
	"os"
	"path/filepath"
)

// Filenames longer than this are cut at export time.
const maxFilenameLen = 60

// Converter turns a markdown report into another document format at the
// given path. Conversion engines live outside this system.
type Converter interface {
	Convert(markdown string, outPath string) error
}

// Result holds the exported file paths, URL-escaped. A failed format leaves
// its path empty; it never fails the others.
type Result struct {
	PDF  string
	DOCX string
	MD   string
}

// Exporter writes a finished report to disk in up to three formats.
// Markdown is written directly; pdf and docx go through the optional
// converters.
type Exporter struct {
	OutputDir string
	PDF       Converter
	DOCX      Converter
	Logger    *log.Logger
}

func (e *Exporter) Export(text, filename string) Result {
	if runes := []rune(filename); len(runes) > maxFilenameLen {
		filename = string(runes[:maxFilenameLen])
	}

	return Result{
		MD:   e.writeMarkdown(text, filename),
		PDF:  e.convert(e.PDF, "pdf", text, filename),
		DOCX: e.convert(e.DOCX, "docx", text, filename),
	}
}

func (e *Exporter) writeMarkdown(text, filename string) string {
	path := filepath.Join(e.OutputDir, filename+".md")
	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		e.Logger.Printf("[EXPORT] creating output dir failed: %v", err)
		return ""
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		e.Logger.Printf("[EXPORT] writing markdown failed: %v", err)
		return ""
	}
	e.Logger.Printf("[EXPORT] report written to %s", path)
	return escapePath(path)
}

func (e *Exporter) convert(c Converter, format, text, filename string) string {
	if c == nil {
		e.Logger.Printf("[EXPORT] no %s converter configured, skipping", format)
		return ""
	}
	path := filepath.Join(e.OutputDir, filename+"."+format)
	if err := c.Convert(text, path); err != nil {
		e.Logger.Printf("[EXPORT] converting to %s failed: %v", format, err)
		return ""
	}
	e.Logger.Printf("[EXPORT] report written to %s", path)
	return escapePath(path)
}

// escapePath percent-encodes the path for transport while keeping the
// separators readable.
func escapePath(path string) string {
	u := url.URL{Path: path}
	return u.EscapedPath()
}
