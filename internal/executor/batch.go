package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/compiler"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// ExecuteBatch runs the shared actions and then every test on one page of
// one session. A shared-setup failure skips all tests; a test failure does
// not stop the tests after it.
func (e *Executor) ExecuteBatch(ctx context.Context, p *compiler.BatchProgram) *domain.BatchRunResult {
	policy := p.Artifacts.WithDefaults(e.opts.Artifacts)
	dir := filepath.Join(e.opts.ArtifactsDir, "batch-"+e.newID())
	log := e.log.WithFields(logrus.Fields{"batch": filepath.Base(dir), "tests": len(p.Tests)})
	log.Infof("Running batch with %d shared step(s)", len(p.SharedActions))

	res := &domain.BatchRunResult{
		Status:    domain.StatusPassed,
		StartedAt: e.now(),
		Results:   []domain.BatchTestResult{},
	}

	s, err := e.open(ctx, dir, policy)
	if err != nil {
		log.WithError(err).Warn("Could not open browser session")
		res.Status = domain.StatusFailed
		res.Error = &domain.RunError{Message: NormalizeMessage(err)}
		e.finishBatch(res)
		return res
	}

	anyFailed := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				e.diag.Errorf("batch aborted: %v", r)
				anyFailed = true
				res.Error = &domain.RunError{Message: NormalizeMessage(r)}
			}
			rec := e.teardown(s, anyFailed)
			for _, t := range res.Results {
				rec.attach(t.Result)
			}
		}()

		page := s.Page()

		// Step 1: Shared setup
		if len(p.SharedActions) > 0 {
			sharedDir := filepath.Join(dir, "shared")
			shared := e.newRunResult(len(p.SharedActions), sharedDir)
			if err := os.MkdirAll(sharedDir, 0o755); err != nil {
				e.swallow(domain.PhaseArtifact, "create "+sharedDir, err)
			}
			e.runActions(ctx, page, p.BaseURL, sharedDir, p.SharedActions, policy, shared)
			if shared.Failed() {
				anyFailed = true
				last := shared.StepResults[len(shared.StepResults)-1]
				serr := &domain.SharedSetupError{Index: *shared.FailedStepIndex, Message: last.ErrorMessage}
				log.WithError(serr).Warn("Shared setup failed, skipping tests")
				res.Error = &domain.RunError{Message: serr.Error()}
				return
			}
		}

		// Step 2: Tests, in order, on the same page
		for i, t := range p.Tests {
			testDir := filepath.Join(dir, testDirName(i, t.Test.Name))
			if err := os.MkdirAll(testDir, 0o755); err != nil {
				e.swallow(domain.PhaseArtifact, "create "+testDir, err)
			}
			r := e.newRunResult(len(t.Actions), testDir)
			e.runActions(ctx, page, p.BaseURL, testDir, t.Actions, policy, r)
			e.finish(r)
			if r.Failed() {
				anyFailed = true
			}
			log.WithField("test", t.Test.Name).Debugf("Test %s", r.Status)
			res.Results = append(res.Results, domain.BatchTestResult{Test: t.Test, Result: r})
		}
	}()

	if anyFailed {
		res.Status = domain.StatusFailed
	}
	e.finishBatch(res)
	log.Infof("Batch %s: %d test(s) in %dms", res.Status, len(res.Results), res.DurationMs)
	return res
}

func (e *Executor) finishBatch(res *domain.BatchRunResult) {
	res.FinishedAt = e.now()
	res.DurationMs = res.FinishedAt.Sub(res.StartedAt).Milliseconds()
	recordRun("batch", string(res.Status), float64(res.DurationMs)/1000)
}

// testDirName is "<nn>-<name>" with a 1-based position.
func testDirName(i int, name string) string {
	base := domain.SafeName(name)
	if base == "" {
		base = "test"
	}
	return fmt.Sprintf("%02d-%s", i+1, base)
}
