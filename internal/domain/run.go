package domain

import (
	"encoding/json"
	"time"
)

// Status is the outcome of a step, a run or a batch.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// ScreenshotMode controls automatic screenshots.
type ScreenshotMode string

const (
	ScreenshotOff           ScreenshotMode = "off"
	ScreenshotOnlyOnFailure ScreenshotMode = "only-on-failure"
	ScreenshotOn            ScreenshotMode = "on"
)

// Valid reports whether m is a known mode.
func (m ScreenshotMode) Valid() bool {
	switch m {
	case ScreenshotOff, ScreenshotOnlyOnFailure, ScreenshotOn:
		return true
	}
	return false
}

// RecordingMode controls video and trace capture.
type RecordingMode string

const (
	RecordingOff             RecordingMode = "off"
	RecordingOn              RecordingMode = "on"
	RecordingRetainOnFailure RecordingMode = "retain-on-failure"
	RecordingOnFirstRetry    RecordingMode = "on-first-retry"
)

// Valid reports whether m is a known mode.
func (m RecordingMode) Valid() bool {
	switch m {
	case RecordingOff, RecordingOn, RecordingRetainOnFailure, RecordingOnFirstRetry:
		return true
	}
	return false
}

// Enabled reports whether recording starts at all.
func (m RecordingMode) Enabled() bool {
	return m != "" && m != RecordingOff
}

// Retain reports whether a recording made under m is kept for a run
// with the given outcome. There are no retries, so on-first-retry keeps
// a recording exactly when retain-on-failure would.
func (m RecordingMode) Retain(failed bool) bool {
	switch m {
	case RecordingOn:
		return true
	case RecordingRetainOnFailure, RecordingOnFirstRetry:
		return failed
	}
	return false
}

// ArtifactPolicy selects which artifacts a run captures.
type ArtifactPolicy struct {
	Screenshot ScreenshotMode `json:"screenshot,omitempty" yaml:"screenshot"`
	Video      RecordingMode  `json:"video,omitempty" yaml:"video"`
	Trace      RecordingMode  `json:"trace,omitempty" yaml:"trace"`
}

// DefaultArtifactPolicy is screenshot=only-on-failure, video=off, trace=off.
func DefaultArtifactPolicy() ArtifactPolicy {
	return ArtifactPolicy{
		Screenshot: ScreenshotOnlyOnFailure,
		Video:      RecordingOff,
		Trace:      RecordingOff,
	}
}

// WithDefaults fills unset fields from base.
func (p ArtifactPolicy) WithDefaults(base ArtifactPolicy) ArtifactPolicy {
	if p.Screenshot == "" {
		p.Screenshot = base.Screenshot
	}
	if p.Video == "" {
		p.Video = base.Video
	}
	if p.Trace == "" {
		p.Trace = base.Trace
	}
	return p
}

// TestDefinition is a named, ordered list of steps.
type TestDefinition struct {
	Name  string `json:"name"`
	Steps Steps  `json:"steps"`
}

// RunRequest asks for one test to be executed against BaseURL.
type RunRequest struct {
	BaseURL   string          `json:"baseURL"`
	Test      TestDefinition  `json:"test"`
	Artifacts *ArtifactPolicy `json:"artifacts,omitempty"`
}

// BatchRunRequest asks for several tests to run within one browser session.
type BatchRunRequest struct {
	BaseURL     string           `json:"baseURL"`
	Tests       []TestDefinition `json:"tests"`
	SharedSteps Steps            `json:"sharedSteps,omitempty"`
	Artifacts   *ArtifactPolicy  `json:"artifacts,omitempty"`
}

// StepResult is appended for every executed step.
type StepResult struct {
	Index        int    `json:"index"`
	Step         Step   `json:"step"`
	Status       Status `json:"status"`
	DurationMs   int64  `json:"durationMs"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (r *StepResult) UnmarshalJSON(data []byte) error {
	type plain StepResult
	aux := struct {
		*plain
		Step AnyStep `json:"step"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Step = aux.Step.Step
	return nil
}

// RunSummary counts steps.
type RunSummary struct {
	StepsTotal     int `json:"stepsTotal"`
	StepsCompleted int `json:"stepsCompleted"`
}

// RunArtifacts references artifact files by path.
type RunArtifacts struct {
	Dir             string   `json:"dir,omitempty"`
	ScreenshotPaths []string `json:"screenshotPaths,omitempty"`
	VideoPath       string   `json:"videoPath,omitempty"`
	TracePath       string   `json:"tracePath,omitempty"`
}

// RunError carries a top-level failure message.
type RunError struct {
	Message string `json:"message"`
}

// RunResult is the outcome of executing one action list once.
type RunResult struct {
	Status          Status        `json:"status"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
	DurationMs      int64         `json:"durationMs"`
	Summary         RunSummary    `json:"summary"`
	StepResults     []StepResult  `json:"stepResults"`
	FailedStepIndex *int          `json:"failedStepIndex,omitempty"`
	FailedStep      Step          `json:"failedStep,omitempty"`
	Artifacts       *RunArtifacts `json:"artifacts,omitempty"`
	Logs            []string      `json:"logs,omitempty"`
	Error           *RunError     `json:"error,omitempty"`
}

// Failed reports whether the run failed.
func (r *RunResult) Failed() bool {
	return r.Status == StatusFailed
}

func (r *RunResult) UnmarshalJSON(data []byte) error {
	type plain RunResult
	aux := struct {
		*plain
		FailedStep *AnyStep `json:"failedStep,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.FailedStep = nil
	if aux.FailedStep != nil {
		r.FailedStep = aux.FailedStep.Step
	}
	return nil
}

// BatchTestResult pairs a test with its isolated result.
type BatchTestResult struct {
	Test   TestDefinition `json:"test"`
	Result *RunResult     `json:"result"`
}

// BatchRunResult is the outcome of one batch.
type BatchRunResult struct {
	Status     Status            `json:"status"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	DurationMs int64             `json:"durationMs"`
	Results    []BatchTestResult `json:"results"`
	Error      *RunError         `json:"error,omitempty"`
}

// Failed reports whether the batch failed.
func (r *BatchRunResult) Failed() bool {
	return r.Status == StatusFailed
}
