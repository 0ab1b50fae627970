package writer

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

// CustomFuncMap returns the custom template functions available in templates.
func CustomFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"quote":     jsString,
		"join":      strings.Join,
		"trimSpace": strings.TrimSpace,
		"hasPrefix": strings.HasPrefix,
		"indent": func(spaces int, s string) string {
			pad := strings.Repeat(" ", spaces)
			lines := strings.Split(s, "\n")
			for i, line := range lines {
				if line != "" {
					lines[i] = pad + line
				}
			}
			return strings.Join(lines, "\n")
		},
	}
}

// jsString renders s as a double-quoted JavaScript string literal.
func jsString(s string) string {
	out, _ := jsonLiteral(s)
	return out
}

// jsonLiteral encodes v as compact JSON without HTML escaping, so selectors
// such as "a > b" stay readable in the generated source.
func jsonLiteral(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
