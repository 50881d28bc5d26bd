// Package moderation rejects chat messages containing blocked words.
package moderation

import (
	"fmt"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// DefaultWords is the blocked word list used when none is configured
var DefaultWords = []string{"puta", "mierda", "idiota"}

// Filter matches blocked words anywhere in a message, case-insensitively.
type Filter struct {
	matcher *goahocorasick.Machine
}

// NewFilter builds the Aho-Corasick automaton for words. An empty list gives a
// filter that accepts everything.
func NewFilter(words []string) (*Filter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		patterns = append(patterns, normalize(w))
	}
	if len(patterns) == 0 {
		return &Filter{}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build word filter: %w", err)
	}
	return &Filter{matcher: m}, nil
}

// Blocked reports whether text contains a blocked word
func (f *Filter) Blocked(text string) bool {
	if f == nil || f.matcher == nil {
		return false
	}
	runes := normalize(text)
	if len(runes) == 0 {
		return false
	}
	return len(f.matcher.MultiPatternSearch(runes, true)) > 0
}

func normalize(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		out = append(out, unicode.ToLower(r))
	}
	return out
}
