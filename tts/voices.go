package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// Engines may report an empty voice list while they warm up.
const (
	DefaultVoiceAttempts = 5
	DefaultVoiceDelay    = 200 * time.Millisecond
)

// LoadVoices asks lister for its voices, retrying while the list is empty.
func LoadVoices(ctx context.Context, lister VoiceLister, attempts int, delay time.Duration) ([]Voice, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		voices, err := lister.Voices(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if len(voices) > 0 {
			return voices, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("listing voices: %w", lastErr)
	}
	return nil, ErrNoVoices
}

// DefaultVoice returns the first voice flagged as default, else the first
// voice.
func DefaultVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, v := range voices {
		if v.Default {
			return v, true
		}
	}
	return voices[0], true
}

type voiceSource []Voice

func (s voiceSource) String(i int) string {
	return s[i].ID + " " + s[i].Name + " " + s[i].Language
}

func (s voiceSource) Len() int { return len(s) }

// MatchVoices returns the voices fuzzily matching query, best match first.
// An empty query matches every voice.
func MatchVoices(voices []Voice, query string) []Voice {
	if strings.TrimSpace(query) == "" {
		return voices
	}
	matches := fuzzy.FindFrom(query, voiceSource(voices))
	out := make([]Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

// ResolveVoice finds the voice named by query: an exact ID wins, otherwise
// the best fuzzy match.
func ResolveVoice(voices []Voice, query string) (Voice, error) {
	for _, v := range voices {
		if strings.EqualFold(v.ID, query) {
			return v, nil
		}
	}
	if m := MatchVoices(voices, query); len(m) > 0 && query != "" {
		return m[0], nil
	}
	return Voice{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, query)
}
