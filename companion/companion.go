// Package companion generates class based companions for CSS selectors using
// pseudo-classes, so ":hover" styling can be triggered by adding a class.
//
//	t := companion.New()
//	t.Selector("a:hover")                  // ["a.\:hover"]
//
//	t = companion.New(companion.WithAllCombinations(true))
//	t.Selector("a:hover b:focus")          // 3 additions, original is never repeated
//
// Transformer is safe for concurrent use, it never changes after New.
package companion

import (
	"strings"

	"go.uber.org/zap"
)

// Transformer turns selectors into their companion variants.
type Transformer struct {
	cfg *Config
	log *zap.Logger
}

// New creates Transformer. Without options it excludes ":before" and
// ":after", uses `\:` prefix and produces single fully replaced variant.
func New(options ...Option) *Transformer {
	s := &settings{prefix: DefaultPrefix}
	for _, setOpt := range options {
		setOpt(s)
	}
	log := s.log
	if log == nil {
		log = zap.NewNop()
	}
	return &Transformer{cfg: newConfig(s), log: log.Named("companion")}
}

// Config returns configuration transformer was built with.
func (t *Transformer) Config() *Config {
	return t.cfg
}

// Variants returns every selector generated for selector before merging,
// possibly including selector itself.
func (t *Transformer) Variants(selector string) []string {
	if t.cfg.excludesSelector(selector) {
		t.log.Debug("Skipping excluded selector", zap.String("selector", selector))
		return nil
	}

	fragments := SplitFragments(selector)
	if !t.cfg.allCombinations {
		parts := make([]string, len(fragments))
		for i, f := range fragments {
			parts[i] = t.cfg.ExpandFragment(f)[0]
		}
		return []string{strings.Join(parts, " ")}
	}

	sets := make([][]string, len(fragments))
	for i, f := range fragments {
		sets[i] = t.cfg.ExpandFragment(f)
	}
	return Combine(sets)
}

// Selector returns additional selectors to be put next to selector, in
// generation order. Nil means nothing to add.
func (t *Transformer) Selector(selector string) []string {
	variants := t.Variants(selector)
	additions := Merge(selector, variants)
	if len(additions) > 0 {
		t.log.Debug("Generated companions",
			zap.String("selector", selector), zap.Int("variants", len(variants)), zap.Int("added", len(additions)))
	}
	return additions
}

// Rule returns selector list of a rule extended with companions for every
// selector in it. Originals come first, additions follow in order of their
// originals. Each selector is handled independently.
func (t *Transformer) Rule(selectors []string) []string {
	out := append(make([]string, 0, len(selectors)), selectors...)
	for _, sel := range selectors {
		out = append(out, t.Selector(sel)...)
	}
	return out
}

// RuleText works on selector list kept as text, as in "a:hover,\nb:focus".
func (t *Transformer) RuleText(list string, selectors []string) string {
	for _, sel := range selectors {
		list = AppendSelectors(list, t.Selector(sel))
	}
	return list
}
