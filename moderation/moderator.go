// Package moderation redacts blacklisted terms from outgoing message text.
// Matching runs on a normalized view of the input (case, leet speak and
// separator noise removed) while redaction applies to the original runes,
// so spacing and length are preserved.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// mapping links each normalized rune back to its index in the original text.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized forms
// of the blacklisted terms.
func NewModerator(terms []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(terms))
	for i, term := range terms {
		patterns[i] = normalize([]rune(term))
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, replacement: replacement}, nil
}

// Censor replaces every character of a matched term with the replacement
// rune. Unmatched input is returned unchanged.
func (m *Moderator) Censor(text string) string {
	view := project(text)
	if len(view.normalized) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(view.normalized, false)
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(view.origIdx) {
			continue
		}
		for i := view.origIdx[start]; i <= view.origIdx[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// project builds the normalized searchable view of the input while keeping
// the original position of every retained rune.
func project(text string) mapping {
	orig := []rune(text)
	view := mapping{
		normalized: make([]rune, 0, len(orig)),
		origIdx:    make([]int, 0, len(orig)),
	}
	for i, r := range orig {
		clean := unleet(r)
		if isNoise(clean) {
			continue
		}
		view.normalized = append(view.normalized, unicode.ToLower(clean))
		view.origIdx = append(view.origIdx, i)
	}
	return view
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := unleet(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// unleet maps common leet-speak substitutions back to letters.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
