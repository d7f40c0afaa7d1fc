package companion

import "strings"

// Occurrence is a single pseudo-class reference within a compound selector.
type Occurrence struct {
	Raw   string // verbatim text: colons, functional argument, trailing qualifiers
	Key   string // normalized name used for classification only
	Index int    // left to right position within compound selector
}

// scanner tracks nesting of a selector while walking it byte by byte. Colons
// and spaces are only significant when it reports top level.
type scanner struct {
	depth   int
	quote   byte
	escaped bool
}

// step consumes c and reports whether c is a top level character which may act
// as a separator.
func (s *scanner) step(c byte) bool {
	switch {
	case s.escaped:
		s.escaped = false
		return false
	case c == '\\':
		s.escaped = true
		return false
	case s.quote != 0:
		if c == s.quote {
			s.quote = 0
		}
		return false
	case c == '"' || c == '\'':
		s.quote = c
		return false
	case c == '(' || c == '[':
		s.depth++
		return false
	case c == ')' || c == ']':
		if s.depth > 0 {
			s.depth--
			return false
		}
		return true
	}
	return s.depth == 0
}

// SplitFragments splits a complex selector into compound selectors on spaces
// outside of brackets, parentheses and quoted strings. Empty fragments produced
// by consecutive spaces are kept.
func SplitFragments(selector string) []string {
	var (
		sc    scanner
		parts []string
		start int
	)
	for i := 0; i < len(selector); i++ {
		if sc.step(selector[i]) && selector[i] == ' ' {
			parts = append(parts, selector[start:i])
			start = i + 1
		}
	}
	return append(parts, selector[start:])
}

// Tokenize splits compound selector into base part and ordered list of pseudo
// occurrences. Every occurrence starts at a top level colon (or double colon)
// and runs up to the next one, so qualifiers chained after a pseudo-class
// belong to it. Colons followed by nothing are treated as plain text.
func Tokenize(fragment string) (string, []Occurrence) {
	var (
		sc     scanner
		starts []int
	)
	for i := 0; i < len(fragment); i++ {
		if !sc.step(fragment[i]) || fragment[i] != ':' {
			continue
		}
		if n := len(starts); n > 0 && starts[n-1] == i-1 && fragment[i-1] == ':' {
			// second colon of pseudo-element
			continue
		}
		starts = append(starts, i)
	}

	// drop malformed occurrences, their text sticks to whatever precedes them
	kept := starts[:0]
	for k, start := range starts {
		end := len(fragment)
		if k+1 < len(starts) {
			end = starts[k+1]
		}
		if len(strings.TrimLeft(fragment[start:end], ":")) > 0 {
			kept = append(kept, start)
		}
	}
	if len(kept) == 0 {
		return fragment, nil
	}

	occurrences := make([]Occurrence, 0, len(kept))
	for k, start := range kept {
		end := len(fragment)
		if k+1 < len(kept) {
			end = kept[k+1]
		}
		raw := fragment[start:end]
		occurrences = append(occurrences, Occurrence{
			Raw:   raw,
			Key:   normalize(raw),
			Index: k,
		})
	}
	return fragment[:kept[0]], occurrences
}
