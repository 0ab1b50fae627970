package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	assignRe      = regexp.MustCompile(`^const\s+(\w+)\s*=\s*(.+);$`)
	interpolateRe = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Scope is the per-file state the statement rules resolve values against.
type Scope struct {
	Variables   map[string]string
	LocatorVars map[string]string

	// BaseURLConstants names identifiers that hold the app origin.
	BaseURLConstants []string
	// BaseURL is the first literal assigned to a base-URL constant.
	BaseURL string

	Warnings []string
}

// NewScope creates an empty Scope.
func NewScope(baseURLConstants []string) *Scope {
	return &Scope{
		Variables:        make(map[string]string),
		LocatorVars:      make(map[string]string),
		BaseURLConstants: baseURLConstants,
	}
}

func (s *Scope) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

func (s *Scope) isBaseURLConstant(name string) bool {
	for _, c := range s.BaseURLConstants {
		if c == name {
			return true
		}
	}
	return false
}

// Assign records a `const name = value;` statement. It reports false when
// stmt is not an assignment.
func (s *Scope) Assign(stmt string) bool {
	m := assignRe.FindStringSubmatch(stmt)
	if m == nil {
		return false
	}
	name, raw := m[1], strings.TrimSpace(m[2])

	if sel, ok := s.locatorSelector(raw); ok {
		s.LocatorVars[name] = sel
		return true
	}
	if strings.Contains(raw, "Date.now()") {
		s.Variables[name] = "generated-" + name
		return true
	}
	if strings.Contains(raw, "new Date()") && strings.Contains(raw, "toISOString") {
		s.Variables[name] = "2026-01-01"
		return true
	}
	if s.isBaseURLConstant(name) {
		if v, _, ok := wholeLiteral(raw); ok {
			if s.BaseURL == "" {
				s.BaseURL = v
			}
			s.Variables[name] = v
			return true
		}
	}
	if stripped, ok := s.stripBaseURLRefs(raw); ok {
		s.Variables[name] = stripped
		return true
	}

	s.Variables[name] = s.Substitute(raw)
	return true
}

// stripBaseURLRefs removes base-URL constant references from an expression,
// leaving the path they prefix. It reports false when raw references none.
func (s *Scope) stripBaseURLRefs(raw string) (string, bool) {
	found := false
	out := raw
	for _, c := range s.BaseURLConstants {
		re := regexp.MustCompile(`(?:\$\{)?\b` + regexp.QuoteMeta(c) + `\b\}?`)
		if re.MatchString(out) {
			found = true
			out = re.ReplaceAllString(out, "")
		}
	}
	if !found {
		return "", false
	}
	out = strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '`' || r == '"' || r == '\'' {
			return -1
		}
		return r
	}, out))
	out = strings.TrimSpace(strings.TrimLeft(out, " +"))
	if out == "" {
		out = "/"
	}
	return out, true
}

// Substitute resolves a raw argument to its value: a known variable, an
// interpolated template, a decoded literal or a `<name>` placeholder for an
// unknown identifier.
func (s *Scope) Substitute(raw string) string {
	t := strings.TrimSpace(raw)
	if v, ok := s.Variables[t]; ok {
		return v
	}
	if v, q, ok := wholeLiteral(t); ok {
		if q == '`' {
			return s.interpolate(v)
		}
		return v
	}
	if strings.Contains(t, "${") {
		return s.interpolate(stripQuotes(t))
	}
	if identRe.MatchString(t) && t != "true" && t != "false" && t != "null" && t != "undefined" {
		s.warnf("Unresolved identifier: %s", t)
		return "<" + t + ">"
	}
	return stripQuotes(t)
}

func (s *Scope) interpolate(tmpl string) string {
	return interpolateRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := strings.TrimSpace(m[2 : len(m)-1])
		if s.isBaseURLConstant(key) {
			return ""
		}
		if v, ok := s.Variables[key]; ok {
			return v
		}
		s.warnf("Unresolved reference: ${%s}", key)
		return "<" + key + ">"
	})
}
