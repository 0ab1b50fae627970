package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	identRe        = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
	regexLiteralRe = regexp.MustCompile(`^/([^/]+)/[a-z]*$`)
)

// isQuote reports whether c opens a JS string literal.
func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

// skipString returns the index just past the string literal that opens at
// s[start], honouring backslash escapes. An unterminated literal runs to the
// end of s.
func skipString(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i + 1
		}
	}
	return len(s)
}

// readLiteral decodes the quoted literal at the start of s. It returns the
// decoded value, the rest of s after the literal and whether s started with
// a literal at all. Template literals are returned raw, without backticks,
// so callers can interpolate them.
func readLiteral(s string) (string, string, bool) {
	if s == "" || !isQuote(s[0]) {
		return "", s, false
	}
	end := skipString(s, 0)
	if end < 2 || s[end-1] != s[0] {
		return "", s, false
	}
	return decodeLiteral(s[:end]), s[end:], true
}

// wholeLiteral reports whether s is exactly one quoted literal.
func wholeLiteral(s string) (string, byte, bool) {
	s = strings.TrimSpace(s)
	v, rest, ok := readLiteral(s)
	if !ok || strings.TrimSpace(rest) != "" {
		return "", 0, false
	}
	return v, s[0], true
}

func decodeLiteral(lit string) string {
	body := lit[1 : len(lit)-1]
	switch lit[0] {
	case '"':
		var out string
		if err := json.Unmarshal([]byte(lit), &out); err == nil {
			return out
		}
		return unescape(body)
	case '\'':
		return unescape(body)
	}
	return body
}

// unescape handles the escapes that appear in single-quoted selectors and
// values.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// stripQuotes removes one pair of matching surrounding quotes.
func stripQuotes(raw string) string {
	t := strings.TrimSpace(raw)
	if len(t) >= 2 && isQuote(t[0]) && t[0] == t[len(t)-1] {
		return t[1 : len(t)-1]
	}
	return t
}

// splitArgs splits a call's argument text on top-level commas. A trailing
// empty argument (dangling comma) is dropped.
func splitArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case c == '(' || c == '{' || c == '[':
			depth++
		case c == ')' || c == '}' || c == ']':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		args = append(args, last)
	}
	return args
}

// call is one trailing method call of an expression: receiver.method(args).
// A bare function call has an empty receiver.
type call struct {
	receiver string
	method   string
	args     string
}

// lastCall splits expr on its trailing top-level call. expr must end with the
// closing parenthesis of that call.
func lastCall(expr string) (call, bool) {
	expr = strings.TrimSpace(expr)
	if !strings.HasSuffix(expr, ")") {
		return call{}, false
	}

	depth := 0
	open := -1
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case isQuote(c):
			i = skipString(expr, i) - 1
		case c == '(':
			if depth == 0 {
				open = i
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 && i != len(expr)-1 {
				open = -1
			}
			if depth < 0 {
				return call{}, false
			}
		}
	}
	if depth != 0 || open <= 0 {
		return call{}, false
	}

	head := expr[:open]
	j := len(head)
	for j > 0 && isIdentByte(head[j-1]) {
		j--
	}
	method := head[j:]
	if method == "" {
		return call{}, false
	}
	receiver := ""
	if j > 0 {
		if head[j-1] != '.' {
			return call{}, false
		}
		receiver = strings.TrimSpace(head[:j-1])
	}
	return call{receiver: receiver, method: method, args: expr[open+1 : len(expr)-1]}, true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// depthDelta returns the net parenthesis and brace depth change of s,
// ignoring string literals and a trailing line comment.
func depthDelta(s string) (parens, braces int) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			return parens, braces
		case c == '(':
			parens++
		case c == ')':
			parens--
		case c == '{':
			braces++
		case c == '}':
			braces--
		}
	}
	return parens, braces
}
