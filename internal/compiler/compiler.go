package compiler

import (
	"fmt"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Action is the execution-ready form of a Step: a validated step bound to
// its position in the program.
type Action struct {
	Index int
	Step  domain.Step
}

// Program is a compiled test.
type Program struct {
	BaseURL   string
	Name      string
	Actions   []Action
	Artifacts domain.ArtifactPolicy
}

// BatchTest is one compiled test of a batch.
type BatchTest struct {
	Test    domain.TestDefinition
	Actions []Action
}

// BatchProgram is a compiled batch.
type BatchProgram struct {
	BaseURL       string
	SharedActions []Action
	Tests         []BatchTest
	Artifacts     domain.ArtifactPolicy
}

// Compile validates req and lowers its steps into an ordered action list.
// It has no side effects; the returned actions hold the request's step
// values.
func Compile(req domain.RunRequest) (*Program, error) {
	if req.BaseURL == "" {
		return nil, domain.NewValidationError("baseURL is required")
	}
	if len(req.Test.Steps) == 0 {
		return nil, domain.NewValidationError("test.steps is required")
	}

	artifacts, err := compilePolicy(req.Artifacts)
	if err != nil {
		return nil, err
	}

	actions, err := compileSteps(req.Test.Steps)
	if err != nil {
		return nil, err
	}

	return &Program{
		BaseURL:   req.BaseURL,
		Name:      req.Test.Name,
		Actions:   actions,
		Artifacts: artifacts,
	}, nil
}

// CompileBatch validates a batch request. Shared steps are optional but
// are checked the same way as test steps.
func CompileBatch(req domain.BatchRunRequest) (*BatchProgram, error) {
	if req.BaseURL == "" {
		return nil, domain.NewValidationError("baseURL is required")
	}
	if len(req.Tests) == 0 {
		return nil, domain.NewValidationError("tests is required")
	}

	artifacts, err := compilePolicy(req.Artifacts)
	if err != nil {
		return nil, err
	}

	shared, err := compileSteps(req.SharedSteps)
	if err != nil {
		return nil, domain.NewValidationError("sharedSteps: %s", err.Error())
	}

	tests := make([]BatchTest, 0, len(req.Tests))
	for i, t := range req.Tests {
		if len(t.Steps) == 0 {
			return nil, domain.NewValidationError("tests[%d]: test.steps is required", i)
		}
		actions, err := compileSteps(t.Steps)
		if err != nil {
			return nil, domain.NewValidationError("tests[%d]: %s", i, err.Error())
		}
		tests = append(tests, BatchTest{Test: t, Actions: actions})
	}

	return &BatchProgram{
		BaseURL:       req.BaseURL,
		SharedActions: shared,
		Tests:         tests,
		Artifacts:     artifacts,
	}, nil
}

func compileSteps(steps domain.Steps) ([]Action, error) {
	actions := make([]Action, 0, len(steps))
	for i, s := range steps {
		if err := checkStep(s); err != nil {
			return nil, err
		}
		actions = append(actions, Action{Index: i, Step: s})
	}
	return actions, nil
}

func checkStep(s domain.Step) error {
	switch s.(type) {
	case domain.GotoStep,
		domain.FillStep,
		domain.ClickStep,
		domain.ExpectTextStep,
		domain.ExpectVisibleStep,
		domain.WaitForTimeoutStep,
		domain.WaitForSelectorStep,
		domain.HoverStep,
		domain.PrintStep,
		domain.ScreenshotStep,
		domain.APIRequestStep:
		return nil
	case nil:
		return domain.NewValidationError("invalid step type: unknown")
	default:
		if s.Type().IsKnown() {
			return domain.NewValidationError("invalid step value %T for type %s", s, s.Type())
		}
		return domain.NewValidationError("invalid step type: %s", s.Type())
	}
}

func compilePolicy(p *domain.ArtifactPolicy) (domain.ArtifactPolicy, error) {
	if p == nil {
		return domain.ArtifactPolicy{}, nil
	}
	if p.Screenshot != "" && !p.Screenshot.Valid() {
		return domain.ArtifactPolicy{}, domain.NewValidationError("invalid artifacts.screenshot: %s", p.Screenshot)
	}
	for field, m := range map[string]domain.RecordingMode{"video": p.Video, "trace": p.Trace} {
		if m != "" && !m.Valid() {
			return domain.ArtifactPolicy{}, domain.NewValidationError("invalid artifacts.%s: %s", field, m)
		}
	}
	return *p, nil
}

// String renders an action for logs.
func (a Action) String() string {
	return fmt.Sprintf("#%d %s", a.Index, a.Step.Type())
}
