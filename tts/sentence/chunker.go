// Package sentence splits text into sentence-aligned chunks small enough for
// a speech engine to accept as a single utterance.
package sentence

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkSize is the soft limit, in characters, for a single chunk.
const MaxChunkSize = 250

// tokenRegex matches a run of non-terminators followed by any terminators, or
// a bare word when no terminator follows.
var tokenRegex = regexp.MustCompile(`[^.!?]+[.!?]*|[^.!?\s]+`)

// Tokenize returns the sentence-like tokens of text in order.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenRegex.FindAllString(text, -1)
}

// Chunk packs the tokens of text into chunks of at most MaxChunkSize
// characters.
func Chunk(text string) []string {
	return ChunkSize(text, MaxChunkSize)
}

// ChunkSize packs the tokens of text greedily into chunks of at most max
// characters. A single token longer than max is never split and becomes its
// own chunk.
func ChunkSize(text string, max int) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var (
		chunks []string
		acc    strings.Builder
		accLen int
	)

	flush := func() {
		if s := strings.TrimSpace(acc.String()); s != "" {
			chunks = append(chunks, s)
		}
		acc.Reset()
		accLen = 0
	}

	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if accLen+n > max && accLen > 0 {
			flush()
		}
		acc.WriteString(tok)
		accLen += n
	}
	flush()

	return chunks
}
