package parser

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxInlineDepth bounds nested helper expansion.
const maxInlineDepth = 3

var (
	importRe       = regexp.MustCompile(`import\s+\{([^}]+)\}\s+from\s+(?:"(\.\.?/[^"]+)"|'(\.\.?/[^']+)')\s*;?`)
	localFuncRe    = regexp.MustCompile(`(?m)^\s*(?:export\s+)?async\s+function\s+(\w+)\s*\(`)
	funcHeaderRe   = regexp.MustCompile(`^(?:export\s+)?async\s+function\s+\w+\s*\(.*\{$`)
	helperCallRe   = regexp.MustCompile(`^await\s+(\w+)\(page\);$`)
	importSplitRe  = regexp.MustCompile(`\s+as\s+`)
	helperSuffixes = []string{".ts", ".js"}
)

// Helpers maps a callable name to the statements of its body.
type Helpers map[string][]string

// ImportedHelpers reads the helper functions a spec imports from relative
// modules. "b as c" registers the body of b under c. Missing files and
// missing functions are skipped.
func ImportedHelpers(specPath string, source string) Helpers {
	helpers := make(Helpers)
	for _, m := range importRe.FindAllStringSubmatch(source, -1) {
		rel := m[2]
		if rel == "" {
			rel = m[3]
		}
		helperSource, ok := readHelperModule(filepath.Dir(specPath), rel)
		if !ok {
			continue
		}
		for _, spec := range strings.Split(m[1], ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			exported, local := spec, spec
			if parts := importSplitRe.Split(spec, 2); len(parts) == 2 {
				exported, local = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			}
			if body := FunctionBody(helperSource, exported); len(body) > 0 {
				helpers[local] = JoinStatements(body)
			}
		}
		// Functions the helper module calls internally.
		for name, body := range LocalHelpers(helperSource) {
			if _, ok := helpers[name]; !ok {
				helpers[name] = body
			}
		}
	}
	return helpers
}

func readHelperModule(dir, rel string) (string, bool) {
	base := filepath.Join(dir, filepath.FromSlash(rel))
	candidates := make([]string, 0, 3)
	if ext := filepath.Ext(base); ext == ".ts" || ext == ".js" {
		candidates = append(candidates, base)
	}
	for _, suffix := range helperSuffixes {
		candidates = append(candidates, base+suffix)
	}
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err == nil {
			return string(data), true
		}
	}
	return "", false
}

// LocalHelpers registers the async functions declared in the spec file itself.
func LocalHelpers(source string) Helpers {
	helpers := make(Helpers)
	for _, m := range localFuncRe.FindAllStringSubmatch(source, -1) {
		if body := FunctionBody(source, m[1]); len(body) > 0 {
			helpers[m[1]] = JoinStatements(body)
		}
	}
	return helpers
}

// FunctionBody returns the cleaned lines of `async function name(...) {...}`
// found in source. Braces inside string literals do not count.
func FunctionBody(source, name string) []string {
	re := regexp.MustCompile(`(?:export\s+)?async\s+function\s+` + regexp.QuoteMeta(name) + `\s*\([^)]*\)\s*(?::\s*[^{]+)?\{`)
	loc := re.FindStringIndex(source)
	if loc == nil {
		return nil
	}
	open := loc[1] - 1

	depth := 0
	end := -1
scan:
	for i := open; i < len(source); i++ {
		switch c := source[i]; {
		case isQuote(c):
			i = skipString(source, i) - 1
		case c == '/' && i+1 < len(source) && source[i+1] == '/':
			if nl := strings.IndexByte(source[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				break scan
			}
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				end = i
				break scan
			}
		}
	}
	if end < 0 {
		return nil
	}
	return CleanLines(source[open+1 : end])
}

// Inline expands `await name(page);` calls with helper bodies, recursively
// up to maxInlineDepth. A helper already being expanded is left as a call.
func (h Helpers) Inline(stmts []string) []string {
	return h.inline(stmts, 0, map[string]bool{})
}

func (h Helpers) inline(stmts []string, depth int, active map[string]bool) []string {
	out := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		m := helperCallRe.FindStringSubmatch(stmt)
		if m == nil || depth >= maxInlineDepth || active[m[1]] {
			out = append(out, stmt)
			continue
		}
		body, ok := h[m[1]]
		if !ok {
			out = append(out, stmt)
			continue
		}
		active[m[1]] = true
		out = append(out, h.inline(body, depth+1, active)...)
		delete(active, m[1])
	}
	return out
}

// SkipFunctionDefinitions drops local async function definitions from the
// statement stream so their steps only appear where they are called.
func SkipFunctionDefinitions(stmts []string) []string {
	out := make([]string, 0, len(stmts))
	depth := 0
	for _, stmt := range stmts {
		if depth > 0 {
			_, b := depthDelta(stmt)
			depth += b
			continue
		}
		if funcHeaderRe.MatchString(stmt) {
			_, b := depthDelta(stmt)
			depth = b
			continue
		}
		out = append(out, stmt)
	}
	return out
}
