// Package service composes the compiler, scheduler, executor, reader,
// writer and repositories into the operations the CLI and HTTP layers
// expose.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/compiler"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/reader"
	"github.com/fjglira/GoE2E-Runner/internal/scheduler"
	"github.com/fjglira/GoE2E-Runner/internal/storage"
	"github.com/fjglira/GoE2E-Runner/internal/writer"
)

// Runner executes compiled programs. *executor.Executor implements it.
type Runner interface {
	Execute(ctx context.Context, p *compiler.Program) *domain.RunResult
	ExecuteBatch(ctx context.Context, p *compiler.BatchProgram) *domain.BatchRunResult
}

// SpecWriter renders and writes generated spec files. *writer.Writer
// implements it.
type SpecWriter interface {
	Render(req domain.RunRequest) (string, error)
	Write(testID string, req domain.RunRequest) (*writer.WriteResult, error)
}

// Deps are the collaborators of a TestsService. Reports may be nil, in
// which case no reports are kept.
type Deps struct {
	Runner    Runner
	Scheduler *scheduler.Scheduler
	Tests     storage.TestsRepo
	Reports   storage.ReportsRepo
	Reader    reader.Reader
	Writer    SpecWriter
	Log       logrus.FieldLogger
}

// TestsService is the application layer over tests, runs and reports.
type TestsService struct {
	runner  Runner
	sched   *scheduler.Scheduler
	tests   storage.TestsRepo
	reports storage.ReportsRepo
	reader  reader.Reader
	writer  SpecWriter
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string
}

// New creates a TestsService. A nil scheduler admits one run at a time.
func New(d Deps) *TestsService {
	sched := d.Scheduler
	if sched == nil {
		sched = scheduler.New(1, d.Log)
	}
	return &TestsService{
		runner:  d.Runner,
		sched:   sched,
		tests:   d.Tests,
		reports: d.Reports,
		reader:  d.Reader,
		writer:  d.Writer,
		log:     d.Log.WithField("component", "service"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Run compiles req, waits for a worker and executes it. A failed test is a
// result, not an error; errors are validation failures or a context
// cancelled while queued. testID names the test in the saved report and
// defaults to the test's safe name.
func (s *TestsService) Run(ctx context.Context, testID string, req domain.RunRequest) (*domain.RunResult, error) {
	// Step 1: Compile
	prog, err := compiler.Compile(req)
	if err != nil {
		return nil, err
	}

	// Step 2: Wait for a worker and execute
	res, err := scheduler.Run(ctx, s.sched, func(ctx context.Context) (*domain.RunResult, error) {
		return s.runner.Execute(ctx, prog), nil
	})
	if err != nil {
		return nil, err
	}

	// Step 3: Record the report
	if testID == "" {
		testID = reportTestID(req.Test.Name)
	}
	s.saveReport(ctx, domain.RunReport{
		ID:         s.newID(),
		Kind:       domain.ReportSingle,
		CreatedAt:  s.now().UTC(),
		FinishedAt: res.FinishedAt,
		Tests:      []domain.ReportEntry{domain.NewReportEntry(testID, req.Test.Name, prog.Artifacts, res)},
	})
	return res, nil
}

// RunDraft lowers an authoring-time draft and runs it under the draft's id.
func (s *TestsService) RunDraft(ctx context.Context, draft domain.DraftTest) (*domain.RunResult, error) {
	req, err := compiler.Lower(draft)
	if err != nil {
		return nil, err
	}
	testID := draft.ID
	if testID == "" {
		testID = draft.Identifier
	}
	return s.Run(ctx, testID, *req)
}

// RunBatch is Run for a batch: every test shares one browser session and
// one worker slot.
func (s *TestsService) RunBatch(ctx context.Context, req domain.BatchRunRequest) (*domain.BatchRunResult, error) {
	prog, err := compiler.CompileBatch(req)
	if err != nil {
		return nil, err
	}

	res, err := scheduler.Run(ctx, s.sched, func(ctx context.Context) (*domain.BatchRunResult, error) {
		return s.runner.ExecuteBatch(ctx, prog), nil
	})
	if err != nil {
		return nil, err
	}

	s.saveReport(ctx, domain.RunReport{
		ID:         s.newID(),
		Kind:       domain.ReportBatch,
		CreatedAt:  s.now().UTC(),
		FinishedAt: res.FinishedAt,
		Tests:      batchEntries(req, prog.Artifacts, res),
	})
	return res, nil
}

// batchEntries has one entry per requested test. When shared setup failed
// there are no results, and every test is reported with the batch error.
func batchEntries(req domain.BatchRunRequest, policy domain.ArtifactPolicy, res *domain.BatchRunResult) []domain.ReportEntry {
	entries := make([]domain.ReportEntry, 0, len(req.Tests))
	if len(res.Results) == 0 {
		for _, t := range req.Tests {
			e := domain.ReportEntry{
				TestID:     reportTestID(t.Name),
				TestName:   t.Name,
				Status:     domain.StatusFailed,
				StartedAt:  res.StartedAt,
				FinishedAt: res.FinishedAt,
				StepsTotal: len(t.Steps),
				Policy:     &policy,
			}
			if res.Error != nil {
				e.ErrorMessage = res.Error.Message
			}
			entries = append(entries, e)
		}
		return entries
	}
	for _, r := range res.Results {
		entries = append(entries, domain.NewReportEntry(reportTestID(r.Test.Name), r.Test.Name, policy, r.Result))
	}
	return entries
}

func reportTestID(name string) string {
	if id := domain.SafeName(name); id != "" {
		return id
	}
	return "adhoc"
}

// saveReport never fails the run it describes.
func (s *TestsService) saveReport(ctx context.Context, report domain.RunReport) {
	if s.reports == nil {
		return
	}
	if _, err := s.reports.SaveReport(context.WithoutCancel(ctx), report); err != nil {
		s.log.WithError(err).Warnf("Could not save report %s", report.ID)
		return
	}
	s.log.Debugf("Saved %s report %s", report.Kind, report.ID)
}

// SaveVersion stores def as the next version of testID.
func (s *TestsService) SaveVersion(ctx context.Context, testID string, def domain.TestDefinition) (*domain.TestVersion, error) {
	return s.tests.SaveNewVersion(ctx, testID, def)
}

// Latest returns the latest version of testID, or nil.
func (s *TestsService) Latest(ctx context.Context, testID string) (*domain.TestVersion, error) {
	return s.tests.GetLatest(ctx, testID)
}

// ListLatest returns the latest version of every stored test.
func (s *TestsService) ListLatest(ctx context.Context) ([]domain.TestVersion, error) {
	return s.tests.ListLatest(ctx)
}

// Publish validates req and writes it as a generated spec file.
func (s *TestsService) Publish(ctx context.Context, testID string, req domain.RunRequest) (*writer.WriteResult, error) {
	if _, err := compiler.Compile(req); err != nil {
		return nil, err
	}
	return s.writer.Write(testID, req)
}

// Preview validates req and returns the spec source Publish would write.
func (s *TestsService) Preview(ctx context.Context, req domain.RunRequest) (string, error) {
	if _, err := compiler.Compile(req); err != nil {
		return "", err
	}
	return s.writer.Render(req)
}

// SpecFiles parses every spec file under the test root.
func (s *TestsService) SpecFiles(ctx context.Context) ([]domain.ParsedSpec, error) {
	return s.reader.ReadAll(ctx)
}

// ImportResult pairs the parsed specs with the versions saved from them.
type ImportResult struct {
	Specs    []domain.ParsedSpec  `json:"specs"`
	Versions []domain.TestVersion `json:"versions,omitempty"`
}

// Import parses every spec file and, when save is set, stores each spec
// that has steps as a new version under its id.
func (s *TestsService) Import(ctx context.Context, save bool) (*ImportResult, error) {
	specs, err := s.reader.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := &ImportResult{Specs: specs}
	if !save {
		return out, nil
	}
	for _, spec := range specs {
		if len(spec.Steps) == 0 {
			s.log.Warnf("Skipping %s: no steps recovered from %s", spec.ID, spec.Path)
			continue
		}
		v, err := s.tests.SaveNewVersion(ctx, spec.ID, spec.Definition())
		if err != nil {
			return out, err
		}
		out.Versions = append(out.Versions, *v)
	}
	s.log.Infof("Imported %d of %d specs", len(out.Versions), len(specs))
	return out, nil
}

// Reports lists saved reports, newest first.
func (s *TestsService) Reports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if s.reports == nil {
		return []domain.RunReport{}, nil
	}
	return s.reports.ListReports(ctx, limit)
}

// Report returns one report, or nil.
func (s *TestsService) Report(ctx context.Context, id string) (*domain.RunReport, error) {
	if s.reports == nil {
		return nil, nil
	}
	return s.reports.GetReport(ctx, id)
}

// DeleteReport removes a report and reports whether it existed.
func (s *TestsService) DeleteReport(ctx context.Context, id string) (bool, error) {
	if s.reports == nil {
		return false, nil
	}
	return s.reports.DeleteReport(ctx, id)
}

// Scheduler exposes the scheduler for health reporting.
func (s *TestsService) Scheduler() *scheduler.Scheduler {
	return s.sched
}
