package parser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// SourceFile is one file handed to a parser.
type SourceFile struct {
	// Path is the file's location on disk, used to resolve helper imports.
	Path string
	// RelPath is the slash-separated path relative to the test root.
	RelPath string
	Content []byte
}

// Options tune parsing. Zero values fall back to DefaultOptions.
type Options struct {
	DefaultBaseURL   string
	BaseURLConstants []string
	IgnorePatterns   []string
	PlanTags         []string
}

// DefaultOptions returns the built-in parser options.
func DefaultOptions() Options {
	return Options{
		DefaultBaseURL:   "http://localhost:5173",
		BaseURLConstants: []string{"WEB_BASE_URL", "BASE_URL", "baseURL"},
		IgnorePatterns:   []string{"request.post(", "expect(res.ok())", "waitForResponse(", "checkValidity("},
		PlanTags:         []string{"e2e-steps"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DefaultBaseURL == "" {
		o.DefaultBaseURL = d.DefaultBaseURL
	}
	if o.BaseURLConstants == nil {
		o.BaseURLConstants = d.BaseURLConstants
	}
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = d.IgnorePatterns
	}
	if len(o.PlanTags) == 0 {
		o.PlanTags = d.PlanTags
	}
	return o
}

// Parser turns a source file into the tests it describes.
type Parser interface {
	Parse(file SourceFile) ([]domain.ParsedSpec, error)
	SupportedExtensions() []string
}

// ParserRegistry maps file name suffixes to parsers.
type ParserRegistry interface {
	Register(parser Parser)
	ParserFor(path string) (Parser, error)
}

// DefaultRegistry is a thread-safe parser registry keyed by file suffix.
type DefaultRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry creates a new DefaultRegistry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		parsers: make(map[string]Parser),
	}
}

// NewDefaultRegistry registers the script parser and the plan parsers.
func NewDefaultRegistry(opts Options) *DefaultRegistry {
	r := NewRegistry()
	r.Register(NewScriptParser(opts))
	r.Register(NewPlanParser(NewMarkdownParser(), opts))
	r.Register(NewPlanParser(NewAsciiDocParser(), opts))
	r.Register(NewPlanParser(NewDefaultPlaintextParser(), opts))
	return r
}

// Register adds a parser to the registry for each of its supported extensions.
func (r *DefaultRegistry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.SupportedExtensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// ParserFor returns the parser registered for the longest suffix of path.
func (r *DefaultRegistry) ParserFor(path string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lower := strings.ToLower(path)
	var (
		best    Parser
		bestLen int
	)
	for ext, p := range r.parsers {
		if strings.HasSuffix(lower, ext) && len(ext) > bestLen {
			best, bestLen = p, len(ext)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no parser registered for %q", path)
	}
	return best, nil
}

// SafeID lowercases value and reduces it to [a-z0-9-_], with whitespace
// runs turned into single dashes.
func SafeID(value string) string {
	return domain.SafeName(value)
}
