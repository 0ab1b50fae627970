package domain

import (
	"regexp"
	"strings"
)

// ParsedDocument holds the tagged blocks extracted from a plan document.
type ParsedDocument struct {
	FilePath string
	FileType string            // "markdown", "asciidoc"
	Blocks   []CodeBlock       // All extracted code blocks (tagged ones)
	Headings []Heading         // Document structure (for name inference)
	Metadata map[string]string // Any document-level metadata found
}

// CodeBlock represents a single tagged code block extracted from a document.
type CodeBlock struct {
	Tag        string            // The matched tag (e.g. "e2e-steps")
	Content    string            // Raw content of the block
	LineNumber int               // 1-based line number in source
	Attributes map[string]string // Key-value attributes from the fence info
	Context    string            // Nearest heading
}

// Heading represents a document heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// ParsedSpec is a test recovered from a script or plan file.
type ParsedSpec struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	BaseURL  string   `json:"baseURL"`
	Steps    Steps    `json:"steps"`
	Warnings []string `json:"warnings"`
}

// Definition returns the parsed spec as a TestDefinition.
func (p ParsedSpec) Definition() TestDefinition {
	return TestDefinition{Name: p.Name, Steps: p.Steps}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	unsafeNameRe = regexp.MustCompile(`[^a-z0-9\-_]`)
	dashesRe     = regexp.MustCompile(`-+`)
)

// SafeName lowercases value and reduces it to [a-z0-9-_], with whitespace
// runs turned into single dashes. It names ids, generated files and
// artifacts.
func SafeName(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = unsafeNameRe.ReplaceAllString(s, "")
	s = dashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
