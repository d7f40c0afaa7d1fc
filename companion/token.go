package companion

import "strings"

// Companion returns class selector standing in for an eligible pseudo
// occurrence given by its raw text, e.g. ":nth-child(2)" becomes
// `.\:nth-child\(2\)` with default prefix. Result depends only on raw and
// configuration.
func (c *Config) Companion(raw string) string {
	name := strings.TrimPrefix(raw, ":")
	name = strings.TrimPrefix(name, ":")

	token := "." + c.prefix + escapeName(name)
	if c.module {
		return ":global(" + token + ")"
	}
	return token
}

// escapeName escapes parentheses and everything inside them that cannot be
// part of a class name, so functional argument never breaks the token into
// several compound selectors: "not(.b .c)" becomes `not\(\.b\ \.c\)`.
// Whitespace runs inside arguments become a single escaped space. Text after
// the argument (chained ".class" or "#id") is kept as is.
func escapeName(name string) string {
	var (
		sb    strings.Builder
		depth int
		space bool
	)
	sb.Grow(len(name) + 8)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if depth > 0 && isSpace(c) {
			space = true
			continue
		}
		if space {
			sb.WriteString(`\ `)
			space = false
		}
		switch {
		case c == '\\' && i+1 < len(name):
			// already escaped
			sb.WriteByte(c)
			i++
			sb.WriteByte(name[i])
		case c == '(':
			depth++
			sb.WriteString(`\(`)
		case c == ')':
			if depth > 0 {
				depth--
			}
			sb.WriteString(`\)`)
		case depth > 0 && !isNameByte(c):
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	if space {
		sb.WriteString(`\ `)
	}
	return sb.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// isNameByte reports bytes allowed unescaped in CSS identifier, non-ASCII
// bytes are always allowed.
func isNameByte(c byte) bool {
	return c >= 0x80 || c == '-' || c == '_' ||
		'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'
}
