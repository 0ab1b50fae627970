// Package executor runs compiled programs against a browser session and
// reports the outcome of each step.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/browser"
	"github.com/fjglira/GoE2E-Runner/internal/compiler"
	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Options configure sessions and artifact handling.
type Options struct {
	Engine            browser.Engine
	Headless          bool
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	ExpectTimeout     time.Duration
	APITimeout        time.Duration
	// ArtifactsDir holds one directory per run.
	ArtifactsDir string
	// Artifacts fills the fields a program's policy leaves unset.
	Artifacts domain.ArtifactPolicy
}

// OptionsFromConfig maps the executor and artifacts config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Options{
		Engine:            browser.Engine(cfg.Executor.Engine),
		Headless:          cfg.Executor.Headless,
		ActionTimeout:     ms(cfg.Executor.ActionTimeoutMs),
		NavigationTimeout: ms(cfg.Executor.NavigationTimeoutMs),
		ExpectTimeout:     ms(cfg.Executor.ExpectTimeoutMs),
		APITimeout:        ms(cfg.Executor.APITimeoutMs),
		ArtifactsDir:      cfg.Executor.ArtifactsDir,
		Artifacts:         cfg.Artifacts,
	}
}

// Executor runs programs, one browser session per call.
type Executor struct {
	launcher browser.Launcher
	api      *APIClient
	opts     Options
	log      logrus.FieldLogger
	// diag receives every swallowed artifact and cleanup error.
	diag  logrus.FieldLogger
	now   func() time.Time
	newID func() string
}

// New creates an Executor.
func New(launcher browser.Launcher, opts Options, log logrus.FieldLogger) *Executor {
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = filepath.Join(".tmp", "artifacts")
	}
	opts.Artifacts = opts.Artifacts.WithDefaults(domain.DefaultArtifactPolicy())
	return &Executor{
		launcher: launcher,
		api:      NewAPIClient(opts.APITimeout),
		opts:     opts,
		log:      log,
		diag:     log.WithField("component", "executor"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// session is an open browser session plus what is needed to tear it down.
type session struct {
	browser.Session
	dir    string
	policy domain.ArtifactPolicy
}

// recordings are the session-wide artifacts kept after teardown.
type recordings struct {
	videoPath string
	tracePath string
}

func (r recordings) attach(res *domain.RunResult) {
	if res == nil || (r.videoPath == "" && r.tracePath == "") {
		return
	}
	if res.Artifacts == nil {
		res.Artifacts = &domain.RunArtifacts{}
	}
	res.Artifacts.VideoPath = r.videoPath
	res.Artifacts.TracePath = r.tracePath
}

// Execute runs every action of p in order and stops at the first failure.
// It never returns an error: a session that cannot be opened gives a failed
// result carrying Error.
func (e *Executor) Execute(ctx context.Context, p *compiler.Program) *domain.RunResult {
	policy := p.Artifacts.WithDefaults(e.opts.Artifacts)
	dir := filepath.Join(e.opts.ArtifactsDir, e.newID())
	log := e.log.WithFields(logrus.Fields{"test": p.Name, "run": filepath.Base(dir)})
	log.Infof("Running %d step(s) against %s", len(p.Actions), p.BaseURL)

	res := e.newRunResult(len(p.Actions), dir)

	s, err := e.open(ctx, dir, policy)
	if err != nil {
		log.WithError(err).Warn("Could not open browser session")
		e.launchFailed(res, err)
		recordRun("single", string(res.Status), float64(res.DurationMs)/1000)
		return res
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.diag.Errorf("run aborted: %v", r)
				res.Status = domain.StatusFailed
				res.Error = &domain.RunError{Message: NormalizeMessage(r)}
			}
			e.teardown(s, res.Failed()).attach(res)
		}()
		e.runActions(ctx, s.Page(), p.BaseURL, dir, p.Actions, policy, res)
	}()

	e.finish(res)
	recordRun("single", string(res.Status), float64(res.DurationMs)/1000)
	log.Infof("Run %s: %d/%d step(s) in %dms", res.Status, res.Summary.StepsCompleted, res.Summary.StepsTotal, res.DurationMs)
	return res
}

func (e *Executor) newRunResult(total int, dir string) *domain.RunResult {
	return &domain.RunResult{
		Status:      domain.StatusPassed,
		StartedAt:   e.now(),
		Summary:     domain.RunSummary{StepsTotal: total},
		StepResults: []domain.StepResult{},
		Artifacts:   &domain.RunArtifacts{Dir: dir},
	}
}

func (e *Executor) launchFailed(res *domain.RunResult, err error) {
	res.Status = domain.StatusFailed
	res.Error = &domain.RunError{Message: NormalizeMessage(err)}
	res.Artifacts = nil
	e.finish(res)
}

func (e *Executor) finish(res *domain.RunResult) {
	res.FinishedAt = e.now()
	res.DurationMs = res.FinishedAt.Sub(res.StartedAt).Milliseconds()
}

// open launches a session recording into dir as the policy asks.
func (e *Executor) open(ctx context.Context, dir string, policy domain.ArtifactPolicy) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewError(domain.PhaseArtifact, dir, 0, "failed to create artifact directory", err)
	}

	opts := browser.LaunchOptions{
		Engine:            e.opts.Engine,
		Headless:          e.opts.Headless,
		Trace:             policy.Trace.Enabled(),
		ActionTimeout:     e.opts.ActionTimeout,
		NavigationTimeout: e.opts.NavigationTimeout,
		ExpectTimeout:     e.opts.ExpectTimeout,
	}
	if policy.Video.Enabled() {
		opts.VideoDir = filepath.Join(dir, "video")
	}

	s, err := e.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &session{Session: s, dir: dir, policy: policy}, nil
}

// runActions executes actions in order into res, stopping at the first
// failure, and takes the policy's failure and final screenshots.
func (e *Executor) runActions(
	ctx context.Context,
	page browser.Page,
	baseURL, dir string,
	actions []compiler.Action,
	policy domain.ArtifactPolicy,
	res *domain.RunResult,
) {
	for _, a := range actions {
		started := e.now()
		err := e.dispatch(ctx, page, baseURL, dir, a, res)
		result := domain.StepResult{
			Index:      a.Index,
			Step:       a.Step,
			Status:     domain.StatusPassed,
			DurationMs: e.now().Sub(started).Milliseconds(),
		}

		if err != nil {
			result.Status = domain.StatusFailed
			result.ErrorMessage = NormalizeMessage(err)
			res.StepResults = append(res.StepResults, result)
			recordStep(string(a.Step.Type()), string(domain.StatusFailed))

			idx := a.Index
			res.Status = domain.StatusFailed
			res.FailedStepIndex = &idx
			res.FailedStep = a.Step
			e.diag.WithError(&domain.StepExecutionError{
				Index:    a.Index,
				StepType: a.Step.Type(),
				Message:  result.ErrorMessage,
				Cause:    err,
			}).Debug("step failed")

			if policy.Screenshot == domain.ScreenshotOnlyOnFailure {
				e.screenshot(page, filepath.Join(dir, "failure.png"), res)
			}
			break
		}

		res.StepResults = append(res.StepResults, result)
		res.Summary.StepsCompleted++
		recordStep(string(a.Step.Type()), string(domain.StatusPassed))
	}

	if policy.Screenshot == domain.ScreenshotOn && len(res.StepResults) > 0 {
		e.screenshot(page, filepath.Join(dir, "final.png"), res)
	}
}

// screenshot captures a policy screenshot. Errors are swallowed.
func (e *Executor) screenshot(page browser.Page, path string, res *domain.RunResult) {
	if e.attempt(domain.PhaseArtifact, "screenshot "+path, func() error { return page.Screenshot(path) }) {
		addScreenshot(res, path)
	}
}

func addScreenshot(res *domain.RunResult, path string) {
	if res.Artifacts == nil {
		res.Artifacts = &domain.RunArtifacts{}
	}
	res.Artifacts.ScreenshotPaths = append(res.Artifacts.ScreenshotPaths, path)
}

// teardown stops tracing, closes the page and the session, and keeps or
// deletes the recordings. It never panics and never fails.
func (e *Executor) teardown(s *session, failed bool) recordings {
	var rec recordings

	if s.policy.Trace.Enabled() {
		path := ""
		if s.policy.Trace.Retain(failed) {
			path = filepath.Join(s.dir, "trace.zip")
		}
		if e.attempt(domain.PhaseCleanup, "stop tracing", func() error { return s.StopTracing(path) }) {
			rec.tracePath = path
		}
	}

	var video string
	if s.policy.Video.Enabled() {
		e.attempt(domain.PhaseArtifact, "resolve video path", func() error {
			p, err := s.Page().VideoPath()
			video = p
			return err
		})
	}

	e.attempt(domain.PhaseCleanup, "close page", func() error { return s.Page().Close() })
	e.attempt(domain.PhaseCleanup, "close session", s.Close)

	if video != "" {
		if s.policy.Video.Retain(failed) {
			rec.videoPath = video
		} else {
			e.attempt(domain.PhaseCleanup, "delete video", func() error {
				if err := os.Remove(video); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				return nil
			})
		}
	}
	return rec
}

// attempt runs fn, logging and swallowing any error or panic. It reports
// whether fn succeeded.
func (e *Executor) attempt(phase, what string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.swallow(phase, what, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		e.swallow(phase, what, err)
		return false
	}
	return true
}

func (e *Executor) swallow(phase, what string, err error) {
	recordArtifactError()
	e.diag.WithError(err).WithField("phase", phase).Warnf("%s failed", what)
}
