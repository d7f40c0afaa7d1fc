package css

import (
	"fmt"
	"io"
	"strings"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
// Backslashes and double quotes are escaped per CSS syntax: \" and \\.
func cssEscapeDoubleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Declaration is a single property declaration.
type Declaration struct {
	Property string // Property name (e.g., "color", "--brand")
	Value    string // Value text as found in source, whitespace collapsed
	Custom   bool   // true for custom properties, Value is kept verbatim
}

// Rule represents a qualified rule: selector list and its block.
type Rule struct {
	Selectors []string // Individual selectors in source order
	Items     []Item   // Declarations, comments and nested rules
}

// SelectorText returns selector list as it is written out.
func (r *Rule) SelectorText() string {
	return strings.Join(r.Selectors, ",\n")
}

// AtRule represents an @-rule, either a statement (@import, @charset) or one
// with a block (@media, @supports, @font-face).
type AtRule struct {
	Name    string // Rule name including "@"
	Prelude string // Everything between name and block or semicolon
	Block   bool   // true if rule has a block
	Items   []Item // Block content
}

// Item is a single entry of a stylesheet or block.
// Exactly one of Rule, AtRule, Declaration, Comment or Text is non-nil.
type Item struct {
	Rule        *Rule
	AtRule      *AtRule
	Declaration *Declaration
	Comment     *string
	// Text is source parser could not make sense of, written back unchanged
	Text *string
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []Item   // All top-level items in source order
	Warnings []string // Problems found while parsing
}

// WalkRules calls fn for every qualified rule in source order, descending into
// @-rule blocks and nested rules. Nested rules are visited after their parent.
func (s *Stylesheet) WalkRules(fn func(*Rule)) {
	walkRules(s.Items, fn)
}

func walkRules(items []Item, fn func(*Rule)) {
	for _, item := range items {
		switch {
		case item.Rule != nil:
			fn(item.Rule)
			walkRules(item.Rule.Items, fn)
		case item.AtRule != nil:
			walkRules(item.AtRule.Items, fn)
		}
	}
}

// Charset returns name declared by @charset rule if stylesheet starts with one.
func (s *Stylesheet) Charset() (string, bool) {
	if at := s.charsetRule(); at != nil {
		return unquote(at.Prelude), true
	}
	return "", false
}

// SetCharset replaces name declared by @charset rule. It does nothing and
// returns false if there is no such rule.
func (s *Stylesheet) SetCharset(name string) bool {
	at := s.charsetRule()
	if at == nil {
		return false
	}
	at.Prelude = `"` + cssEscapeDoubleQuoted(name) + `"`
	return true
}

func (s *Stylesheet) charsetRule() *AtRule {
	for _, item := range s.Items {
		switch {
		case item.Comment != nil:
			continue
		case item.AtRule != nil && strings.EqualFold(item.AtRule.Name, "@charset"):
			return item.AtRule
		}
		break
	}
	return nil
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Selectors of a rule are separated by comma and new line.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	sw := &sheetWriter{w: w}
	sw.items(s.Items, 0, true)
	return sw.total, sw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// sheetWriter keeps running total and stops writing after first error.
type sheetWriter struct {
	w     io.Writer
	total int64
	err   error
}

func (sw *sheetWriter) printf(format string, args ...any) {
	if sw.err != nil {
		return
	}
	n, err := fmt.Fprintf(sw.w, format, args...)
	sw.total += int64(n)
	sw.err = err
}

func (sw *sheetWriter) items(items []Item, depth int, top bool) {
	indent := strings.Repeat("  ", depth)
	for i, item := range items {
		switch {
		case item.Comment != nil:
			sw.printf("%s%s\n", indent, *item.Comment)
		case item.Text != nil:
			sw.printf("%s%s\n", indent, *item.Text)
		case item.Declaration != nil:
			sw.declaration(item.Declaration, indent)
		case item.Rule != nil:
			sw.rule(item.Rule, depth)
		case item.AtRule != nil:
			sw.atRule(item.AtRule, depth)
		}

		// Blank line after top-level blocks and between blocks inside a block
		if i < len(items)-1 && isBlock(item) && (top || isBlock(items[i+1])) {
			sw.printf("\n")
		}
	}
}

func isBlock(item Item) bool {
	return item.Rule != nil || item.AtRule != nil && item.AtRule.Block
}

func (sw *sheetWriter) declaration(d *Declaration, indent string) {
	if d.Custom {
		sw.printf("%s%s:%s;\n", indent, d.Property, d.Value)
		return
	}
	sw.printf("%s%s: %s;\n", indent, d.Property, d.Value)
}

func (sw *sheetWriter) rule(r *Rule, depth int) {
	indent := strings.Repeat("  ", depth)
	sw.printf("%s%s {\n", indent, strings.Join(r.Selectors, ",\n"+indent))
	sw.items(r.Items, depth+1, false)
	sw.printf("%s}\n", indent)
}

func (sw *sheetWriter) atRule(at *AtRule, depth int) {
	indent := strings.Repeat("  ", depth)
	head := at.Name
	if len(at.Prelude) > 0 {
		head += " " + at.Prelude
	}
	if !at.Block {
		sw.printf("%s%s;\n", indent, head)
		return
	}
	sw.printf("%s%s {\n", indent, head)
	sw.items(at.Items, depth+1, false)
	sw.printf("%s}\n", indent)
}
