package domain

import (
	"encoding/json"
	"fmt"
)

// StepType discriminates the Step variants.
type StepType string

const (
	StepGoto            StepType = "goto"
	StepFill            StepType = "fill"
	StepClick           StepType = "click"
	StepExpectText      StepType = "expectText"
	StepExpectVisible   StepType = "expectVisible"
	StepWaitForTimeout  StepType = "waitForTimeout"
	StepWaitForSelector StepType = "waitForSelector"
	StepHover           StepType = "hover"
	StepPrint           StepType = "print"
	StepScreenshot      StepType = "screenshot"
	StepAPIRequest      StepType = "apiRequest"
)

// KnownStepTypes lists the vocabulary in declaration order.
var KnownStepTypes = []StepType{
	StepGoto, StepFill, StepClick, StepExpectText, StepExpectVisible,
	StepWaitForTimeout, StepWaitForSelector, StepHover, StepPrint,
	StepScreenshot, StepAPIRequest,
}

// IsKnown reports whether t belongs to the step vocabulary.
func (t StepType) IsKnown() bool {
	for _, k := range KnownStepTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Step is one declarative test action. Each variant is its own struct and
// carries only its own fields.
type Step interface {
	Type() StepType
}

type GotoStep struct {
	URL string `json:"url"`
}

type FillStep struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

type ClickStep struct {
	Selector string `json:"selector"`
}

type ExpectTextStep struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

type ExpectVisibleStep struct {
	Selector string `json:"selector"`
}

type WaitForTimeoutStep struct {
	Ms int `json:"ms"`
}

type WaitForSelectorStep struct {
	Selector string `json:"selector"`
}

type HoverStep struct {
	Selector string `json:"selector"`
}

type PrintStep struct {
	Message string `json:"message"`
}

type ScreenshotStep struct {
	Name string `json:"name,omitempty"`
}

// APIRequestStep issues an HTTP call relative to the run's base URL.
type APIRequestStep struct {
	Method               string            `json:"method"`
	URL                  string            `json:"url"`
	Headers              map[string]string `json:"headers,omitempty"`
	Body                 string            `json:"body,omitempty"`
	ExpectedStatus       *int              `json:"expectedStatus,omitempty"`
	ExpectedBodyContains string            `json:"expectedBodyContains,omitempty"`
}

// UnknownStep stands in for a payload whose discriminant is not part of the
// vocabulary. The compiler rejects it.
type UnknownStep struct {
	Name string
}

func (GotoStep) Type() StepType            { return StepGoto }
func (FillStep) Type() StepType            { return StepFill }
func (ClickStep) Type() StepType           { return StepClick }
func (ExpectTextStep) Type() StepType      { return StepExpectText }
func (ExpectVisibleStep) Type() StepType   { return StepExpectVisible }
func (WaitForTimeoutStep) Type() StepType  { return StepWaitForTimeout }
func (WaitForSelectorStep) Type() StepType { return StepWaitForSelector }
func (HoverStep) Type() StepType           { return StepHover }
func (PrintStep) Type() StepType           { return StepPrint }
func (ScreenshotStep) Type() StepType      { return StepScreenshot }
func (APIRequestStep) Type() StepType      { return StepAPIRequest }
func (s UnknownStep) Type() StepType       { return StepType(s.Name) }

// marshalTagged encodes payload as a JSON object with "type" as its first key.
func marshalTagged(t StepType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(string(t))
	if err != nil {
		return nil, err
	}
	out := append([]byte(`{"type":`), head...)
	if len(body) <= 2 {
		return append(out, '}'), nil
	}
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

func (s GotoStep) MarshalJSON() ([]byte, error) {
	type plain GotoStep
	return marshalTagged(StepGoto, plain(s))
}

func (s FillStep) MarshalJSON() ([]byte, error) {
	type plain FillStep
	return marshalTagged(StepFill, plain(s))
}

func (s ClickStep) MarshalJSON() ([]byte, error) {
	type plain ClickStep
	return marshalTagged(StepClick, plain(s))
}

func (s ExpectTextStep) MarshalJSON() ([]byte, error) {
	type plain ExpectTextStep
	return marshalTagged(StepExpectText, plain(s))
}

func (s ExpectVisibleStep) MarshalJSON() ([]byte, error) {
	type plain ExpectVisibleStep
	return marshalTagged(StepExpectVisible, plain(s))
}

func (s WaitForTimeoutStep) MarshalJSON() ([]byte, error) {
	type plain WaitForTimeoutStep
	return marshalTagged(StepWaitForTimeout, plain(s))
}

func (s WaitForSelectorStep) MarshalJSON() ([]byte, error) {
	type plain WaitForSelectorStep
	return marshalTagged(StepWaitForSelector, plain(s))
}

func (s HoverStep) MarshalJSON() ([]byte, error) {
	type plain HoverStep
	return marshalTagged(StepHover, plain(s))
}

func (s PrintStep) MarshalJSON() ([]byte, error) {
	type plain PrintStep
	return marshalTagged(StepPrint, plain(s))
}

func (s ScreenshotStep) MarshalJSON() ([]byte, error) {
	type plain ScreenshotStep
	return marshalTagged(StepScreenshot, plain(s))
}

func (s APIRequestStep) MarshalJSON() ([]byte, error) {
	type plain APIRequestStep
	return marshalTagged(StepAPIRequest, plain(s))
}

func (s UnknownStep) MarshalJSON() ([]byte, error) {
	return marshalTagged(StepType(s.Name), struct{}{})
}

// DecodeStep decodes one tagged step. A payload that is not an object, or has
// no string "type", decodes as UnknownStep{"unknown"}; an unrecognised type
// decodes as UnknownStep carrying that name. Only a known type with a
// malformed payload is an error.
func DecodeStep(data []byte) (Step, error) {
	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return UnknownStep{Name: "unknown"}, nil
	}
	var name string
	if len(head.Type) == 0 || json.Unmarshal(head.Type, &name) != nil {
		return UnknownStep{Name: "unknown"}, nil
	}

	var (
		step Step
		err  error
	)
	switch StepType(name) {
	case StepGoto:
		step, err = decodeInto[GotoStep](data)
	case StepFill:
		step, err = decodeInto[FillStep](data)
	case StepClick:
		step, err = decodeInto[ClickStep](data)
	case StepExpectText:
		step, err = decodeInto[ExpectTextStep](data)
	case StepExpectVisible:
		step, err = decodeInto[ExpectVisibleStep](data)
	case StepWaitForTimeout:
		step, err = decodeInto[WaitForTimeoutStep](data)
	case StepWaitForSelector:
		step, err = decodeInto[WaitForSelectorStep](data)
	case StepHover:
		step, err = decodeInto[HoverStep](data)
	case StepPrint:
		step, err = decodeInto[PrintStep](data)
	case StepScreenshot:
		step, err = decodeInto[ScreenshotStep](data)
	case StepAPIRequest:
		step, err = decodeInto[APIRequestStep](data)
	default:
		return UnknownStep{Name: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s step: %w", name, err)
	}
	return step, nil
}

func decodeInto[T Step](data []byte) (Step, error) {
	var s T
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Steps is an ordered step list that decodes tagged JSON.
type Steps []Step

func (s *Steps) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("steps must be an array: %w", err)
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Steps, 0, len(raw))
	for i, r := range raw {
		step, err := DecodeStep(r)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		out = append(out, step)
	}
	*s = out
	return nil
}

// AnyStep wraps a single Step so it can be decoded from JSON as a field.
type AnyStep struct {
	Step
}

func (a AnyStep) MarshalJSON() ([]byte, error) {
	if a.Step == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.Step)
}

func (a *AnyStep) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Step = nil
		return nil
	}
	step, err := DecodeStep(data)
	if err != nil {
		return err
	}
	a.Step = step
	return nil
}
