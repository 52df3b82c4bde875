// Package chunker splits flattened page text into bounded, sentence-aligned
// chunks. The indexing backend runs the same policy over the same content
// string, so chunk index N computed here lines up with the chunk the
// backend returned, as long as both sides use the same size.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultSize is the target chunk size in characters. It must match the
// size the indexing backend used, or positional chunk lookup silently
// degrades to the fuzzy fallback.
const DefaultSize = 500

// Split divides text into chunks of whole sentences. A chunk is flushed
// once appending the next sentence would exceed size and the chunk is
// already non-empty, so no chunk is ever empty and a single oversized
// sentence still becomes its own chunk. The trailing partial chunk, if
// non-empty, is emitted last.
func Split(text string, size int) []string {
	if size <= 0 {
		size = DefaultSize
	}

	var chunks []string
	var buf strings.Builder

	for _, sentence := range Sentences(text) {
		grown := buf.Len() + len(sentence)
		if buf.Len() > 0 {
			grown++ // joining space
		}

		if grown > size && buf.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(sentence)
	}

	if buf.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(buf.String()))
	}
	return chunks
}

// Sentences splits text at `.`, `!` or `?` followed by whitespace. The
// terminator stays with the preceding sentence.
func Sentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
