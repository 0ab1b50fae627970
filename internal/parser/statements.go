package parser

import (
	"strings"
)

// CleanLines trims physical lines and drops blanks and comment lines.
func CleanLines(source string) []string {
	raw := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// JoinStatements folds cleaned lines into logical statements. A statement
// ends on a line ending with ";", on a block-opening "{", or on a "}" once its
// parentheses are balanced. An object literal opened after "(", ",", ":",
// "=" or "[" does not end the statement.
func JoinStatements(lines []string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
		depth = 0
	}

	for _, line := range lines {
		appendJoined(&cur, line)
		p, _ := depthDelta(line)
		depth += p

		switch {
		case strings.HasSuffix(line, ";"):
			flush()
		case strings.HasSuffix(line, "{") && opensBlock(cur.String()):
			flush()
		case strings.HasSuffix(line, "}") && depth <= 0:
			flush()
		}
	}
	flush()
	return out
}

// appendJoined adds line to the statement being built. No space is added at
// "(" and ")" junctions or before a chained ".call", and a dangling comma in
// front of ")" is dropped.
func appendJoined(cur *strings.Builder, line string) {
	if cur.Len() == 0 {
		cur.WriteString(line)
		return
	}
	prev := cur.String()
	switch {
	case strings.HasPrefix(line, ")"):
		prev = strings.TrimSuffix(strings.TrimRight(prev, " "), ",")
		cur.Reset()
		cur.WriteString(prev)
	case strings.HasSuffix(prev, "("), strings.HasPrefix(line, "."):
	default:
		cur.WriteByte(' ')
	}
	cur.WriteString(line)
}

// opensBlock reports whether the trailing "{" of stmt starts a block rather
// than an object literal argument.
func opensBlock(stmt string) bool {
	body := strings.TrimRight(strings.TrimSuffix(stmt, "{"), " \t")
	if body == "" {
		return true
	}
	switch body[len(body)-1] {
	case '(', ',', ':', '=', '[':
		return false
	}
	return true
}
