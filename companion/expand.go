package companion

import "strings"

// Pair holds original text of a pseudo occurrence and its replacement. For
// occurrences which are not eligible both are the same.
type Pair struct {
	Original    string
	Replacement string
}

// Pairs classifies occurrences and builds replacement pair for each of them,
// order is preserved.
func (c *Config) Pairs(occurrences []Occurrence) []Pair {
	pairs := make([]Pair, 0, len(occurrences))
	for _, o := range occurrences {
		p := Pair{Original: o.Raw, Replacement: o.Raw}
		if c.Classify(o.Key) == Eligible {
			p.Replacement = c.Companion(o.Raw)
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// ExpandFragment produces variants of a single compound selector. In default
// mode there is exactly one variant with every eligible pseudo replaced. In
// combinatorial mode every mix of original and companion is produced, original
// first within each choice. Fragment without pseudo occurrences is returned as
// is.
func (c *Config) ExpandFragment(fragment string) []string {
	base, occurrences := Tokenize(fragment)
	if len(occurrences) == 0 {
		return []string{fragment}
	}
	pairs := c.Pairs(occurrences)

	if !c.allCombinations {
		var sb strings.Builder
		sb.WriteString(base)
		for _, p := range pairs {
			sb.WriteString(p.Replacement)
		}
		return []string{sb.String()}
	}

	variants := Combinations(pairs)
	for i := range variants {
		variants[i] = base + variants[i]
	}
	return variants
}

// Combinations builds cross product over pairs. Pair with identical sides does
// not branch, so result has 2^k entries for k pairs that differ.
func Combinations(pairs []Pair) []string {
	acc := []string{""}
	for _, p := range pairs {
		next := make([]string, 0, 2*len(acc))
		for _, prefix := range acc {
			next = append(next, prefix+p.Original)
			if p.Original != p.Replacement {
				next = append(next, prefix+p.Replacement)
			}
		}
		acc = next
	}
	return acc
}

// Combine produces cartesian product of per fragment variant sets in fragment
// order, joining picked variants with single space. Empty picks are skipped so
// they never introduce double spaces. Product of no sets is a single empty
// selector.
func Combine(sets [][]string) []string {
	acc := []string{""}
	for _, set := range sets {
		next := make([]string, 0, len(acc)*len(set))
		for _, prefix := range acc {
			for _, variant := range set {
				next = append(next, joinNonEmpty(prefix, variant))
			}
		}
		acc = next
	}
	return acc
}

func joinNonEmpty(a, b string) string {
	switch {
	case len(a) == 0:
		return b
	case len(b) == 0:
		return a
	default:
		return a + " " + b
	}
}
