package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// DocumentExtractor pulls tagged blocks out of a plan document.
type DocumentExtractor interface {
	Extract(filePath string, content []byte, tags []string) (*domain.ParsedDocument, error)
	SupportedExtensions() []string
}

// PlanParser turns the e2e-steps blocks of a plan document into specs.
type PlanParser struct {
	extractor DocumentExtractor
	opts      Options
}

// NewPlanParser wraps a document extractor.
func NewPlanParser(extractor DocumentExtractor, opts Options) *PlanParser {
	return &PlanParser{extractor: extractor, opts: opts.withDefaults()}
}

// SupportedExtensions returns the extractor's suffixes.
func (p *PlanParser) SupportedExtensions() []string {
	return p.extractor.SupportedExtensions()
}

// planBlock is the object form of a block; the list form only has Steps.
type planBlock struct {
	Name    string          `json:"name"`
	BaseURL string          `json:"baseURL"`
	Steps   json.RawMessage `json:"steps"`
}

// Parse returns one spec per tagged block. Blocks that cannot be decoded
// still yield a spec, carrying the problem as a warning.
func (p *PlanParser) Parse(file SourceFile) ([]domain.ParsedSpec, error) {
	doc, err := p.extractor.Extract(file.Path, file.Content, p.opts.PlanTags)
	if err != nil {
		return nil, err
	}

	rel := strings.TrimPrefix(file.RelPath, "./")
	fileID := SafeID(planStem(rel))
	specs := make([]domain.ParsedSpec, 0, len(doc.Blocks))

	for _, block := range doc.Blocks {
		spec := domain.ParsedSpec{
			Path:     "tests/" + rel,
			Steps:    domain.Steps{},
			Warnings: []string{},
		}

		pb, err := decodePlanBlock(block.Content)
		if err != nil {
			spec.Warnings = append(spec.Warnings, fmt.Sprintf("line %d: %v", block.LineNumber, err))
		}

		spec.Name = firstNonEmpty(block.Attributes["name"], pb.Name, block.Context, "Imported test")
		spec.Steps, spec.Warnings = decodePlanSteps(pb.Steps, block.LineNumber, spec.Warnings)
		spec.BaseURL = firstNonEmpty(block.Attributes["base-url"], pb.BaseURL, doc.Metadata["base-url"])
		if spec.BaseURL == "" {
			spec.BaseURL = baseURLFor("", spec.Steps, p.opts.DefaultBaseURL)
		}
		specs = append(specs, spec)
	}

	for i := range specs {
		id := fileID
		if len(specs) > 1 {
			id = strings.Trim(fileID+"-"+SafeID(specs[i].Name), "-")
		}
		if id == "" {
			id = SafeID(specs[i].Name)
		}
		if id == "" {
			id = "imported-test"
		}
		specs[i].ID = id
	}
	return specs, nil
}

// decodePlanBlock accepts YAML or JSON, as a step list or as an object.
func decodePlanBlock(content string) (planBlock, error) {
	var raw any
	if err := yaml.Unmarshal([]byte(content), &raw); err != nil {
		return planBlock{}, fmt.Errorf("invalid step block: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return planBlock{}, fmt.Errorf("invalid step block: %w", err)
	}

	switch raw.(type) {
	case []any:
		return planBlock{Steps: data}, nil
	case map[string]any:
		var pb planBlock
		if err := json.Unmarshal(data, &pb); err != nil {
			return planBlock{}, fmt.Errorf("invalid step block: %w", err)
		}
		return pb, nil
	case nil:
		return planBlock{}, fmt.Errorf("empty step block")
	}
	return planBlock{}, fmt.Errorf("step block must be a list or an object")
}

// decodePlanSteps keeps every step that decodes to a known type and turns
// the rest into warnings.
func decodePlanSteps(data json.RawMessage, line int, warnings []string) (domain.Steps, []string) {
	steps := domain.Steps{}
	if len(data) == 0 || string(data) == "null" {
		return steps, warnings
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return steps, append(warnings, fmt.Sprintf("line %d: steps must be a list", line))
	}
	for i, r := range raw {
		step, err := domain.DecodeStep(r)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: steps[%d]: %v", line, i, err))
			continue
		}
		if !step.Type().IsKnown() {
			warnings = append(warnings, fmt.Sprintf("line %d: steps[%d]: unsupported step type %q", line, i, step.Type()))
			continue
		}
		steps = append(steps, step)
	}
	return steps, warnings
}

func planStem(rel string) string {
	base := rel
	for _, ext := range []string{".plan.md", ".plan.markdown", ".plan.adoc", ".plan.asciidoc", ".plan.txt"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
