package store

import (
	"strings"
	"unicode/utf8"

	"analyst/pkg/config"
)

// ChunkText splits a document into ordered, bounded segments for embedding.
// Paragraphs (text separated by a blank line) are greedily packed into the
// current chunk until adding the next would exceed maxChars; the chunk is
// then closed and the next one starts with the previous chunk's trailing
// overlap as a prefix. Newlines inside a paragraph are flattened to spaces.
// A single paragraph longer than maxChars becomes its own oversized chunk
// rather than being truncated. Empty input yields no chunks.
func ChunkText(text string, cfg config.ChunkerConfig) []string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(strings.Join(strings.Fields(para), " "))
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var buffer string

	for _, paragraph := range paragraphs {
		if len(buffer)+len(paragraph)+1 <= cfg.MaxChars {
			buffer = strings.TrimSpace(buffer + " " + paragraph)
			continue
		}

		var tail string
		if buffer != "" {
			chunks = append(chunks, buffer)
			tail = trailing(buffer, cfg.OverlapChars)
		}

		buffer = strings.TrimSpace(tail + " " + paragraph)
	}

	if buffer != "" {
		chunks = append(chunks, buffer)
	}

	return chunks
}

// trailing returns the last n bytes of s, adjusted forward to a rune
// boundary so multi-byte characters are never split.
func trailing(s string, n int) string {
	idx := len(s) - n
	if idx <= 0 {
		return strings.TrimSpace(s)
	}
	for idx < len(s) && !utf8.RuneStart(s[idx]) {
		idx++
	}
	return strings.TrimSpace(s[idx:])
}
