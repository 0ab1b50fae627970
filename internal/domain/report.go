package domain

import "time"

// Where a TestVersion was stored.
const (
	StorageDB    = "db"
	StorageLocal = "local"
)

// Report kinds.
const (
	ReportSingle = "single"
	ReportBatch  = "batch"
)

// TestVersion is one saved revision of a test definition.
type TestVersion struct {
	TestID     string         `json:"testId"`
	Version    int            `json:"version"`
	Definition TestDefinition `json:"definition"`
	CreatedAt  time.Time      `json:"createdAt"`
	Storage    string         `json:"storage"`
}

// ReportEntry is the per-test part of a RunReport.
type ReportEntry struct {
	TestID          string          `json:"testId"`
	TestName        string          `json:"testName"`
	Status          Status          `json:"status"`
	StartedAt       time.Time       `json:"startedAt"`
	FinishedAt      time.Time       `json:"finishedAt"`
	DurationMs      int64           `json:"durationMs"`
	StepsTotal      int             `json:"stepsTotal"`
	StepsCompleted  int             `json:"stepsCompleted"`
	StepResults     []StepResult    `json:"stepResults,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	FailedStepIndex *int            `json:"failedStepIndex,omitempty"`
	FailedStep      *AnyStep        `json:"failedStep,omitempty"`
	Policy          *ArtifactPolicy `json:"policy,omitempty"`
	Artifacts       *RunArtifacts   `json:"artifacts,omitempty"`
	Logs            []string        `json:"logs,omitempty"`
}

// RunReport records one single or batch run.
type RunReport struct {
	ID         string        `json:"id"`
	Kind       string        `json:"kind"`
	CreatedAt  time.Time     `json:"createdAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Tests      []ReportEntry `json:"tests"`
}

// NewReportEntry summarises a RunResult for testID. A run that failed
// before any step carries its top-level error as the entry's message.
func NewReportEntry(testID, testName string, policy ArtifactPolicy, r *RunResult) ReportEntry {
	e := ReportEntry{
		TestID:          testID,
		TestName:        testName,
		Status:          r.Status,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		DurationMs:      r.DurationMs,
		StepsTotal:      r.Summary.StepsTotal,
		StepsCompleted:  r.Summary.StepsCompleted,
		StepResults:     r.StepResults,
		FailedStepIndex: r.FailedStepIndex,
		Policy:          &policy,
		Artifacts:       r.Artifacts,
		Logs:            r.Logs,
	}
	if r.FailedStep != nil {
		e.FailedStep = &AnyStep{Step: r.FailedStep}
	}
	if r.FailedStepIndex != nil {
		i := *r.FailedStepIndex
		if i >= 0 && i < len(r.StepResults) {
			e.ErrorMessage = r.StepResults[i].ErrorMessage
		}
	}
	if e.ErrorMessage == "" && r.Error != nil {
		e.ErrorMessage = r.Error.Message
	}
	return e
}

// PruneReports keeps, from newest to oldest, every report that still has
// an entry within its test's quota of keep reports. keep <= 0 keeps all.
// reports must already be ordered newest first.
func PruneReports(reports []RunReport, keep int) (kept, dropped []RunReport) {
	if keep <= 0 {
		return reports, nil
	}
	perTest := make(map[string]int)
	for _, r := range reports {
		include := false
		for _, e := range r.Tests {
			if perTest[e.TestID] < keep {
				include = true
				perTest[e.TestID]++
			}
		}
		if include {
			kept = append(kept, r)
		} else {
			dropped = append(dropped, r)
		}
	}
	return kept, dropped
}
