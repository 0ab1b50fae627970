package parser

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

var (
	testNameRe   = regexp.MustCompile("\\btest\\(\\s*(?:\"([^\"]*)\"|'([^']*)'|`([^`]*)`)\\s*,")
	specSuffixRe = regexp.MustCompile(`\.spec\.(t|j)sx?$`)
)

// ScriptParser reads Playwright test files back into steps. It understands
// the line-oriented call shapes the writer emits plus common hand-written
// locator forms; anything else becomes a warning.
type ScriptParser struct {
	opts Options
}

// NewScriptParser creates a ScriptParser.
func NewScriptParser(opts Options) *ScriptParser {
	return &ScriptParser{opts: opts.withDefaults()}
}

// SupportedExtensions returns the file suffixes this parser handles.
func (p *ScriptParser) SupportedExtensions() []string {
	return []string{".spec.ts", ".spec.js", ".spec.tsx", ".spec.jsx"}
}

// Parse never fails on content; unrecognised statements are reported in
// the parsed spec's warnings.
func (p *ScriptParser) Parse(file SourceFile) ([]domain.ParsedSpec, error) {
	source := string(file.Content)
	steps, scope := p.ParseSource(file.Path, source)

	name := testName(source)
	rel := path.Clean(strings.TrimPrefix(file.RelPath, "./"))
	id := SafeID(specSuffixRe.ReplaceAllString(rel, ""))
	if id == "" {
		id = SafeID(name)
	}
	if id == "" {
		id = "imported-test"
	}

	return []domain.ParsedSpec{{
		ID:       id,
		Name:     name,
		Path:     "tests/" + rel,
		BaseURL:  baseURLFor(scope.BaseURL, steps, p.opts.DefaultBaseURL),
		Steps:    steps,
		Warnings: nonNil(scope.Warnings),
	}}, nil
}

// ParseSource runs the statement pipeline over source: helper inlining,
// statement joining, assignments and classification.
func (p *ScriptParser) ParseSource(specPath, source string) (domain.Steps, *Scope) {
	helpers := LocalHelpers(source)
	for name, body := range ImportedHelpers(specPath, source) {
		if _, ok := helpers[name]; !ok {
			helpers[name] = body
		}
	}

	stmts := JoinStatements(CleanLines(source))
	stmts = SkipFunctionDefinitions(stmts)
	stmts = helpers.Inline(stmts)

	scope := NewScope(p.opts.BaseURLConstants)
	steps := domain.Steps{}
	for _, stmt := range stmts {
		if p.ignored(stmt) {
			continue
		}
		if strings.HasPrefix(stmt, "const ") {
			scope.Assign(stmt)
			continue
		}
		if !Classifiable(stmt) {
			continue
		}
		if step, ok := ParseStatement(stmt, scope); ok {
			steps = append(steps, step)
			continue
		}
		scope.warnf("Unsupported line: %s", stmt)
	}
	return steps, scope
}

func (p *ScriptParser) ignored(stmt string) bool {
	for _, pattern := range p.opts.IgnorePatterns {
		if pattern != "" && strings.Contains(stmt, pattern) {
			return true
		}
	}
	return false
}

func testName(source string) string {
	m := testNameRe.FindStringSubmatch(source)
	if m == nil {
		return "Imported test"
	}
	for _, g := range m[1:] {
		if name := strings.TrimSpace(g); name != "" {
			return name
		}
	}
	return "Imported test"
}

// baseURLFor prefers a declared base-URL constant, then the origin of the
// first absolute goto.
func baseURLFor(declared string, steps domain.Steps, fallback string) string {
	if declared != "" {
		return declared
	}
	for _, s := range steps {
		g, ok := s.(domain.GotoStep)
		if !ok || !strings.HasPrefix(g.URL, "http") {
			continue
		}
		if u, err := url.Parse(g.URL); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
		break
	}
	return fallback
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
