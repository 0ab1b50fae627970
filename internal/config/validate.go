package config

import (
	"fmt"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Validate checks the Config for required fields and valid values.
func Validate(cfg *Config) error {
	var errs []string

	// Reader validation
	if len(cfg.Reader.Roots) == 0 {
		errs = append(errs, "reader.roots must not be empty")
	}
	if len(cfg.Reader.Include) == 0 {
		errs = append(errs, "reader.include must not be empty")
	}
	if cfg.Reader.Concurrency < 1 {
		errs = append(errs, fmt.Sprintf("reader.concurrency must be at least 1 (got %d)", cfg.Reader.Concurrency))
	}

	// Writer validation
	if cfg.Writer.OutputDir == "" {
		errs = append(errs, "writer.output_dir must not be empty")
	}
	if !strings.HasSuffix(cfg.Writer.FileSuffix, ".ts") && !strings.HasSuffix(cfg.Writer.FileSuffix, ".js") {
		errs = append(errs, fmt.Sprintf("writer.file_suffix must end with .ts or .js (got %q)", cfg.Writer.FileSuffix))
	}
	if cfg.Writer.Template == "" {
		errs = append(errs, "writer.template must not be empty")
	}

	// Executor validation
	if cfg.Executor.Workers < 1 {
		errs = append(errs, fmt.Sprintf("executor.workers must be at least 1 (got %d)", cfg.Executor.Workers))
	}
	switch cfg.Executor.Engine {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Sprintf("executor.engine must be one of: chromium, firefox, webkit (got %q)", cfg.Executor.Engine))
	}
	for name, v := range map[string]int{
		"executor.action_timeout_ms":     cfg.Executor.ActionTimeoutMs,
		"executor.navigation_timeout_ms": cfg.Executor.NavigationTimeoutMs,
		"executor.expect_timeout_ms":     cfg.Executor.ExpectTimeoutMs,
		"executor.api_timeout_ms":        cfg.Executor.APITimeoutMs,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive (got %d)", name, v))
		}
	}
	if cfg.Executor.ArtifactsDir == "" {
		errs = append(errs, "executor.artifacts_dir must not be empty")
	}

	// Artifact policy validation
	if !cfg.Artifacts.Screenshot.Valid() {
		errs = append(errs, fmt.Sprintf("artifacts.screenshot must be one of: off, only-on-failure, on (got %q)", cfg.Artifacts.Screenshot))
	}
	if !cfg.Artifacts.Video.Valid() {
		errs = append(errs, fmt.Sprintf("artifacts.video must be one of: off, on, retain-on-failure, on-first-retry (got %q)", cfg.Artifacts.Video))
	}
	if !cfg.Artifacts.Trace.Valid() {
		errs = append(errs, fmt.Sprintf("artifacts.trace must be one of: off, on, retain-on-failure, on-first-retry (got %q)", cfg.Artifacts.Trace))
	}

	// Storage validation
	switch cfg.Storage.Driver {
	case "local":
	case "sqlite", "postgres":
		if cfg.Storage.DSN == "" {
			errs = append(errs, fmt.Sprintf("storage.dsn must not be empty for driver %q", cfg.Storage.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be one of: local, sqlite, postgres (got %q)", cfg.Storage.Driver))
	}
	if cfg.Storage.LocalFile == "" {
		errs = append(errs, "storage.local_file must not be empty")
	}

	// Validate logging
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[cfg.Logging.Level] {
			errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
		}
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		errs = append(errs, fmt.Sprintf("logging.format must be text or json (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return domain.NewError(domain.PhaseConfig, "", 0, fmt.Sprintf("validation failed: %s", strings.Join(errs, "; ")), nil)
	}

	return nil
}
