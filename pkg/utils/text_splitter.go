package utils

// SplitText splits a long string into chunks of approximately 'chunkSize' characters
// with 'overlap' characters carried over between neighbours to preserve context.
// Chunks prefer to break at a newline or space near the target size; when no
// boundary exists in the second half of the window, it falls back to a plain
// length cut so no data is lost.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	totalLen := len(runes)
	if totalLen <= chunkSize {
		return []string{text}
	}

	if overlap >= chunkSize {
		overlap = 0 // fallback if overlap >= chunkSize
	}

	var chunks []string
	start := 0
	for start < totalLen {
		end := start + chunkSize
		if end >= totalLen {
			chunks = append(chunks, string(runes[start:totalLen]))
			break
		}

		// Look back for a natural boundary, but never shrink the chunk
		// below half its target size.
		cut := end
		for i := end; i > start+chunkSize/2; i-- {
			if runes[i-1] == '\n' || runes[i-1] == ' ' {
				cut = i
				break
			}
		}

		chunks = append(chunks, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			next = cut // guarantee forward progress
		}
		start = next
	}

	return chunks
}
