package researcher

import (
	"sort"
	"strings"
)

// SimilarWrittenContents returns the previously written sections that
// topically overlap any of the draft section titles, so a writer can avoid
// duplicating material. Sections are scored by token overlap against the
// combined titles; those above the threshold are returned, most similar
// first.
func SimilarWrittenContents(draftTitles []string, writtenSections []string) []string {
	titleTokens := make(map[string]struct{})
	for _, title := range draftTitles {
		for _, tok := range tokenize(title) {
			titleTokens[tok] = struct{}{}
		}
	}
	if len(titleTokens) == 0 {
		return nil
	}

	type scored struct {
		section string
		score   float64
	}
	var matches []scored
	for _, section := range writtenSections {
		tokens := tokenize(section)
		if len(tokens) == 0 {
			continue
		}
		hits := 0
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := titleTokens[tok]; ok {
				hits++
			}
		}
		score := float64(hits) / float64(len(titleTokens))
		if score >= 0.3 {
			matches = append(matches, scored{section: section, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	result := make([]string, len(matches))
	for i, m := range matches {
		result[i] = m.section
	}
	return result
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "for": {}, "in": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
