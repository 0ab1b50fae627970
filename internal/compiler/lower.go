package compiler

import (
	"encoding/json"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Lower turns an authoring-time draft into a RunRequest: selectors are
// built from their selector type, variable-bound fields are resolved and
// header text is parsed. Step numbers in errors are 1-based, as shown to
// the author.
func Lower(draft domain.DraftTest) (*domain.RunRequest, error) {
	steps := make(domain.Steps, 0, len(draft.Steps))
	for i, ds := range draft.Steps {
		if !complete(ds) {
			return nil, domain.NewValidationError("step %d is incomplete", i+1)
		}
		step, err := lowerStep(ds, draft.Variables)
		if err != nil {
			return nil, domain.NewValidationError("step %d: %s", i+1, err.Error())
		}
		steps = append(steps, step)
	}

	return &domain.RunRequest{
		BaseURL:   draft.BaseURL,
		Test:      domain.TestDefinition{Name: draft.Name, Steps: steps},
		Artifacts: draft.Artifacts,
	}, nil
}

// BuildSelector prefixes a raw selector with its selector engine.
func BuildSelector(t domain.SelectorType, value string) string {
	trimmed := strings.TrimSpace(value)
	switch t {
	case "", domain.SelectorCSS:
		return trimmed
	case domain.SelectorTestID:
		return "data-testid=" + trimmed
	default:
		return string(t) + "=" + trimmed
	}
}

func lowerStep(ds domain.DraftStep, vars map[string]string) (domain.Step, error) {
	sel := BuildSelector(ds.SelectorType, ds.Selector)

	switch ds.Type {
	case domain.StepGoto:
		url, err := resolveValue(ds.URL, ds.URLSource, ds.URLVar, vars)
		if err != nil {
			return nil, err
		}
		return domain.GotoStep{URL: url}, nil
	case domain.StepFill:
		value, err := resolveValue(ds.Value, ds.ValueSource, ds.ValueVar, vars)
		if err != nil {
			return nil, err
		}
		return domain.FillStep{Selector: sel, Value: value}, nil
	case domain.StepClick:
		return domain.ClickStep{Selector: sel}, nil
	case domain.StepExpectText:
		text, err := resolveValue(ds.Text, ds.TextSource, ds.TextVar, vars)
		if err != nil {
			return nil, err
		}
		return domain.ExpectTextStep{Selector: sel, Text: text}, nil
	case domain.StepExpectVisible:
		return domain.ExpectVisibleStep{Selector: sel}, nil
	case domain.StepWaitForTimeout:
		return domain.WaitForTimeoutStep{Ms: ds.Ms}, nil
	case domain.StepWaitForSelector:
		return domain.WaitForSelectorStep{Selector: sel}, nil
	case domain.StepHover:
		return domain.HoverStep{Selector: sel}, nil
	case domain.StepPrint:
		msg, err := resolveValue(ds.Message, ds.MessageSource, ds.MessageVar, vars)
		if err != nil {
			return nil, err
		}
		return domain.PrintStep{Message: msg}, nil
	case domain.StepScreenshot:
		return domain.ScreenshotStep{Name: strings.TrimSpace(ds.Name)}, nil
	case domain.StepAPIRequest:
		return lowerAPIRequest(ds, vars)
	}
	return nil, domain.NewValidationError("invalid step type: %s", ds.Type)
}

func lowerAPIRequest(ds domain.DraftStep, vars map[string]string) (domain.Step, error) {
	url, err := resolveValue(ds.URL, ds.URLSource, ds.URLVar, vars)
	if err != nil {
		return nil, err
	}
	body, err := resolveValue(ds.Body, ds.BodySource, ds.BodyVar, vars)
	if err != nil {
		return nil, err
	}

	var headers map[string]string
	if strings.TrimSpace(ds.Headers) != "" {
		if err := json.Unmarshal([]byte(ds.Headers), &headers); err != nil || headers == nil {
			return nil, domain.NewValidationError("headers must be a JSON object of strings")
		}
	}

	method := strings.ToUpper(strings.TrimSpace(ds.Method))
	if method == "" {
		method = "GET"
	}
	switch method {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return nil, domain.NewValidationError("unsupported method %q", ds.Method)
	}

	return domain.APIRequestStep{
		Method:               method,
		URL:                  url,
		Headers:              headers,
		Body:                 body,
		ExpectedStatus:       ds.ExpectedStatus,
		ExpectedBodyContains: ds.ExpectedBodyContains,
	}, nil
}

func resolveValue(value string, source domain.ValueSource, name string, vars map[string]string) (string, error) {
	if source != domain.SourceVariable {
		return value, nil
	}
	v, ok := vars[name]
	if name == "" || !ok {
		return "", domain.NewValidationError("variable not found: %s", name)
	}
	return v, nil
}

// complete mirrors the authoring form's per-step checks.
func complete(ds domain.DraftStep) bool {
	bound := func(literal string, source domain.ValueSource, name string) bool {
		if source == domain.SourceVariable {
			return name != ""
		}
		return strings.TrimSpace(literal) != ""
	}

	switch ds.Type {
	case domain.StepGoto:
		return bound(ds.URL, ds.URLSource, ds.URLVar)
	case domain.StepFill:
		return strings.TrimSpace(ds.Selector) != "" &&
			(ds.ValueSource != domain.SourceVariable || ds.ValueVar != "")
	case domain.StepClick, domain.StepExpectVisible, domain.StepWaitForSelector, domain.StepHover:
		return strings.TrimSpace(ds.Selector) != ""
	case domain.StepExpectText:
		return strings.TrimSpace(ds.Selector) != "" && bound(ds.Text, ds.TextSource, ds.TextVar)
	case domain.StepWaitForTimeout:
		return ds.Ms > 0
	case domain.StepPrint:
		return bound(ds.Message, ds.MessageSource, ds.MessageVar)
	case domain.StepScreenshot:
		return true
	case domain.StepAPIRequest:
		if !bound(ds.URL, ds.URLSource, ds.URLVar) {
			return false
		}
		if ds.BodySource == domain.SourceVariable && ds.BodyVar == "" {
			return false
		}
		return ds.ExpectedStatus == nil || *ds.ExpectedStatus >= 100
	}
	// Unknown types are reported by lowerStep.
	return true
}
