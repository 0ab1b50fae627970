package cli

import (
	"context"
	"errors"
	"os"

	"github.com/fjglira/GoE2E-Runner/internal/browser"
	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/executor"
	"github.com/fjglira/GoE2E-Runner/internal/reader"
	"github.com/fjglira/GoE2E-Runner/internal/scheduler"
	"github.com/fjglira/GoE2E-Runner/internal/service"
	"github.com/fjglira/GoE2E-Runner/internal/storage"
	"github.com/fjglira/GoE2E-Runner/internal/writer"
)

var installBrowsers bool

// app holds the wired components of one command invocation.
type app struct {
	svc      *service.TestsService
	repos    *storage.Repos
	launcher *browser.PlaywrightLauncher
}

// newApp wires all components from cfg. Relative paths resolve against
// the working directory.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	// Step 1: Storage
	repos, err := storage.Open(ctx, cfg.Storage, workDir, log)
	if err != nil {
		return nil, err
	}

	// Step 2: Writer and its template engine
	w, err := writer.New(cfg.Writer, workDir, log)
	if err != nil {
		repos.Close()
		return nil, err
	}

	// Step 3: Browser, executor and scheduler
	launcher := browser.NewPlaywrightLauncher(installBrowsers)
	exec := executor.New(launcher, executor.OptionsFromConfig(cfg), log)
	sched := scheduler.New(cfg.Executor.Workers, log)

	svc := service.New(service.Deps{
		Runner:    exec,
		Scheduler: sched,
		Tests:     repos.Tests,
		Reports:   repos.Reports,
		Reader:    reader.New(cfg.Reader, workDir, log),
		Writer:    w,
		Log:       log,
	})
	log.Debugf("Using %s storage and %d worker(s)", repos.Backend, sched.Workers())
	return &app{svc: svc, repos: repos, launcher: launcher}, nil
}

func (a *app) Close() error {
	return errors.Join(a.launcher.Stop(), a.repos.Close())
}
