// Package chunker splits document text into overlapping, sentence-aware
// segments sized for embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultTargetSize is the default chunk size in characters.
	DefaultTargetSize = 800
	// DefaultOverlap is the default overlap carried between chunks.
	DefaultOverlap = 200
)

// Splitter accumulates whole sentences into chunks of roughly targetSize
// characters, seeding each new chunk with the tail of the previous one.
type Splitter struct {
	targetSize int
	overlap    int
}

// NewSplitter creates a sentence-aware splitter.
func NewSplitter(targetSize, overlap int) *Splitter {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= targetSize {
		overlap = targetSize / 4
	}
	return &Splitter{targetSize: targetSize, overlap: overlap}
}

// Chunk splits text into ordered chunks. Empty input yields nil; input no
// longer than the target size yields the trimmed input as a single chunk, so
// rechunking a short chunk returns it unchanged. Chunks never come out empty
// and stay within targetSize+overlap characters unless a single sentence is
// itself longer than the target.
func (s *Splitter) Chunk(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len([]rune(trimmed)) <= s.targetSize {
		return []string{trimmed}
	}

	var chunks []string
	var buf string
	for _, sentence := range splitSentences(trimmed) {
		if buf == "" {
			buf = sentence
			continue
		}
		if len([]rune(buf))+1+len([]rune(sentence)) > s.targetSize {
			chunks = append(chunks, buf)
			if seed := strings.TrimSpace(tail(buf, s.overlap)); seed != "" {
				buf = seed + " " + sentence
			} else {
				buf = sentence
			}
			continue
		}
		buf += " " + sentence
	}
	if buf != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}

// splitSentences breaks text on runs of terminal punctuation followed by
// whitespace (or end of input). Trailing text without terminal punctuation is
// returned as a final sentence rather than dropped.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Consume the whole punctuation run ("?!", "...").
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sent := strings.TrimSpace(string(runes[start : i+1])); sent != "" {
			sentences = append(sentences, sent)
		}
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
		start = i + 1
	}

	if start < len(runes) {
		if sent := strings.TrimSpace(string(runes[start:])); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
