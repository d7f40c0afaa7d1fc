package css

import (
	"bytes"
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured items keeping source order.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet. It never fails, problems are
// collected in Stylesheet.Warnings.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]Item, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	sheet.Items = p.parseItems(parser, sheet, false)
	return sheet
}

// parseItems collects items until end of input or, when nested, until the end
// of enclosing block.
func (p *Parser) parseItems(parser *css.Parser, sheet *Stylesheet, nested bool) []Item {
	var (
		items   []Item
		pending strings.Builder // selector list text seen before a comma
		raw     strings.Builder // unparsed block content
	)
	flushRaw := func() {
		if text := strings.TrimSpace(raw.String()); len(text) > 0 {
			items = append(items, Item{Text: &text})
		}
		raw.Reset()
	}

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				if nested {
					p.warn(sheet, "unexpected end of input inside block")
				}
				flushRaw()
				return items
			}

			// Parser skips offending part and goes on, the part is kept as is.
			// Closing brace among skipped tokens means enclosing block is over.
			p.warn(sheet, "parse error: "+err.Error())
			values := parser.Values()
			closed := nested && len(values) > 0 && values[len(values)-1].TokenType == css.RightBraceToken
			if closed {
				values = values[:len(values)-1]
			}
			if text := joinTokens(values); len(text) > 0 {
				items = append(items, Item{Text: &text})
			}
			if closed {
				flushRaw()
				return items
			}

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if nested {
				flushRaw()
				return items
			}
			p.warn(sheet, "unbalanced closing brace")

		case css.CommentGrammar:
			comment := string(data)
			items = append(items, Item{Comment: &comment})

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import, @charset)
			items = append(items, Item{AtRule: &AtRule{
				Name:    string(data),
				Prelude: preludeText(parser.Values()),
			}})

		case css.BeginAtRuleGrammar:
			at := &AtRule{
				Name:    string(data),
				Prelude: preludeText(parser.Values()),
				Block:   true,
			}
			at.Items = p.parseItems(parser, sheet, true)
			p.log.Debug("Parsed @-rule block", zap.String("rule", at.Name), zap.String("prelude", at.Prelude), zap.Int("items", len(at.Items)))
			items = append(items, Item{AtRule: at})

		case css.QualifiedRuleGrammar:
			// Part of selector list followed by a comma, the rest is coming.
			pending.Write(data)
			pending.WriteString(selectorText(parser.Values()))
			pending.WriteString(", ")

		case css.BeginRulesetGrammar:
			pending.Write(data)
			pending.WriteString(selectorText(parser.Values()))
			rule := &Rule{Selectors: p.parseSelectors(pending.String())}
			pending.Reset()
			rule.Items = p.parseItems(parser, sheet, true)
			items = append(items, Item{Rule: rule})

		case css.TokenGrammar:
			// Content of @-rule parser knows nothing about, kept verbatim
			if nested {
				raw.Write(data)
			}

		case css.DeclarationGrammar:
			items = append(items, Item{Declaration: &Declaration{
				Property: string(data),
				Value:    joinTokens(parser.Values()),
			}})

		case css.CustomPropertyGrammar:
			var sb strings.Builder
			for _, t := range parser.Values() {
				sb.Write(t.Data)
			}
			items = append(items, Item{Declaration: &Declaration{
				Property: string(data),
				Value:    sb.String(),
				Custom:   true,
			}})
		}
	}
}

func (p *Parser) warn(sheet *Stylesheet, msg string) {
	sheet.Warnings = append(sheet.Warnings, msg)
	p.log.Debug("CSS problem", zap.String("warning", msg))
}

// parseSelectors splits selector list text into individual selectors. Text is
// expected to come from selectorText, so parts are always separated by exactly
// one space.
func (p *Parser) parseSelectors(list string) []string {
	// Split by comma for grouped selectors
	var selectors []string
	for _, s := range splitTopLevel(list, ',') {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// joinTokens concatenates token data replacing every whitespace run with a
// single space and trimming the ends.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	return sb.String()
}

// preludeText restores @-rule prelude text from tokens, putting back spaces
// parser drops after commas and after colons of media features, so it reads
// "screen and (min-width: 10px), print".
func preludeText(tokens []css.Token) string {
	var (
		sb     strings.Builder
		space  bool
		groups []bool // true for plain parentheses, false for functions
	)
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			space = sb.Len() > 0
			continue
		}
		if space && t.TokenType != css.RightParenthesisToken {
			sb.WriteByte(' ')
		}
		space = false
		sb.Write(t.Data)

		switch t.TokenType {
		case css.LeftParenthesisToken:
			groups = append(groups, true)
		case css.FunctionToken:
			groups = append(groups, false)
		case css.RightParenthesisToken:
			if len(groups) > 0 {
				groups = groups[:len(groups)-1]
			}
		case css.CommaToken:
			space = true
		case css.ColonToken:
			space = len(groups) > 0 && groups[len(groups)-1]
		}
	}
	return sb.String()
}

// selectorText restores selector text from tokens. Parser drops whitespace
// around commas and combinators, here it is put back, so compound selectors
// are always separated by single space: "a > b:hover", ":is(a, b)".
func selectorText(tokens []css.Token) string {
	var sb strings.Builder
	space := func() {
		if s := sb.String(); len(s) > 0 && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "(") {
			sb.WriteByte(' ')
		}
	}
	for _, t := range tokens {
		switch {
		case t.TokenType == css.WhitespaceToken:
			space()
		case t.TokenType == css.CommaToken:
			trimmed := strings.TrimRight(sb.String(), " ")
			sb.Reset()
			sb.WriteString(trimmed)
			sb.WriteString(", ")
		case t.TokenType == css.DelimToken && len(t.Data) == 1 && strings.IndexByte(">+~", t.Data[0]) >= 0:
			space()
			sb.Write(t.Data)
			sb.WriteByte(' ')
		default:
			sb.Write(t.Data)
		}
	}
	return strings.TrimSpace(sb.String())
}

// splitTopLevel splits s on sep outside of parentheses, brackets and quoted
// strings, so ":is(a, b)" stays in one piece.
func splitTopLevel(s string, sep byte) []string {
	var (
		parts   []string
		depth   int
		quote   byte
		escaped bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case (c == ')' || c == ']') && depth > 0:
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
