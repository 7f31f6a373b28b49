package researcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractHeaders(t *testing.T) {
	text := "intro line\n" +
		"# Title\n" +
		"## Section One\n" +
		"some text\n" +
		"### Deep Dive\n" +
		"####### too deep\n" +
		"#nospace\n" +
		"```\n" +
		"# commented out in code\n" +
		"```\n" +
		"## Section Two"

	headers := ExtractHeaders(text)
	require.Len(t, headers, 4)
	assert.Equal(t, Header{Level: 1, Text: "Title"}, headers[0])
	assert.Equal(t, Header{Level: 2, Text: "Section One"}, headers[1])
	assert.Equal(t, Header{Level: 3, Text: "Deep Dive"}, headers[2])
	assert.Equal(t, Header{Level: 2, Text: "Section Two"}, headers[3])
}

func TestExtractHeaders_Empty(t *testing.T) {
	assert.Empty(t, ExtractHeaders("no headings here\njust prose"))
	assert.Empty(t, ExtractHeaders(""))
}

func TestExtractSections(t *testing.T) {
	text := "preamble that belongs to no section\n" +
		"## Alpha\n" +
		"alpha body\n" +
		"#### sub-detail stays inside alpha\n" +
		"## Beta\n" +
		"beta body"

	sections := ExtractSections(text)
	require.Len(t, sections, 2)
	assert.Contains(t, sections[0], "## Alpha")
	assert.Contains(t, sections[0], "sub-detail stays inside alpha")
	assert.NotContains(t, sections[0], "preamble")
	assert.Equal(t, "## Beta\nbeta body", sections[1])
}

func TestExtractSections_NoHeadings(t *testing.T) {
	assert.Empty(t, ExtractSections("plain text without structure"))
}

func TestTableOfContents(t *testing.T) {
	body := "## Solar Growth\ntext\n### Policy Drivers\nmore text"
	toc := TableOfContents(body)

	assert.Contains(t, toc, "## Table of Contents")
	assert.Contains(t, toc, "- [Solar Growth](#solar-growth)")
	assert.Contains(t, toc, "    - [Policy Drivers](#policy-drivers)")
}

func TestTableOfContents_EmptyBody(t *testing.T) {
	assert.Equal(t, "", TableOfContents("no headings at all"))
}

func TestAddReferences(t *testing.T) {
	urls := map[string]struct{}{
		"https://b.example/two": {},
		"https://a.example/one": {},
	}
	out := AddReferences("conclusion text", urls)

	assert.Contains(t, out, "conclusion text\n\n## References\n\n")
	// Sorted and listed exactly once each.
	idxA := len("conclusion text\n\n## References\n\n")
	assert.Equal(t,
		"- [https://a.example/one](https://a.example/one)\n- [https://b.example/two](https://b.example/two)",
		out[idxA:])
}

func TestAddReferences_NoURLs(t *testing.T) {
	assert.Equal(t, "conclusion", AddReferences("conclusion", nil))
	assert.Equal(t, "conclusion", AddReferences("conclusion", map[string]struct{}{}))
}
