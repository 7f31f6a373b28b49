package researcher

import (
	"fmt"
	"sort"
	"strings"
)

// ExtractHeaders returns all markdown headings in the text, in order.
// Lines inside fenced code blocks are ignored.
func ExtractHeaders(text string) []Header {
	var headers []Header
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		level := 0
		for level < len(trimmed) && trimmed[level] == '#' {
			level++
		}
		if level == 0 || level > 6 || level == len(trimmed) || trimmed[level] != ' ' {
			continue
		}
		headers = append(headers, Header{
			Level: level,
			Text:  strings.TrimSpace(trimmed[level+1:]),
		})
	}
	return headers
}

// ExtractSections splits a markdown report into its top-level sections.
// A section starts at a heading of level 1-3 and runs until the next one.
// Text before the first heading is not a section.
func ExtractSections(text string) []string {
	var sections []string
	var current []string
	inFence := false
	inSection := false

	flush := func() {
		if inSection {
			section := strings.TrimSpace(strings.Join(current, "\n"))
			if section != "" {
				sections = append(sections, section)
			}
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && isSectionHeading(trimmed) {
			flush()
			inSection = true
		}
		if inSection {
			current = append(current, line)
		}
	}
	flush()
	return sections
}

func isSectionHeading(trimmed string) bool {
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	return level >= 1 && level <= 3 && level < len(trimmed) && trimmed[level] == ' '
}

// TableOfContents builds a markdown table of contents from the headings of
// the report body. Returns an empty string when the body has no headings.
func TableOfContents(body string) string {
	headers := ExtractHeaders(body)
	if len(headers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Table of Contents\n")
	for _, h := range headers {
		indent := strings.Repeat("  ", h.Level-1)
		fmt.Fprintf(&b, "%s- [%s](#%s)\n", indent, h.Text, headerAnchor(h.Text))
	}
	return strings.TrimRight(b.String(), "\n")
}

func headerAnchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// AddReferences appends a references block listing each visited URL exactly
// once, in sorted order.
func AddReferences(text string, urls map[string]struct{}) string {
	if len(urls) == 0 {
		return text
	}
	sorted := make([]string, 0, len(urls))
	for u := range urls {
		sorted = append(sorted, u)
	}
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n## References\n\n")
	for _, u := range sorted {
		fmt.Fprintf(&b, "- [%s](%s)\n", u, u)
	}
	return strings.TrimRight(b.String(), "\n")
}
