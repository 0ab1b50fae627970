package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with the E2E_* variables, DB_URL and PORT.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var errs []string

	intVar := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s must be an integer (got %q)", key, v))
			return
		}
		*dst = n
	}
	strVar := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	intVar("E2E_WORKERS", &cfg.Executor.Workers)
	intVar("E2E_ACTION_TIMEOUT_MS", &cfg.Executor.ActionTimeoutMs)
	intVar("E2E_NAV_TIMEOUT_MS", &cfg.Executor.NavigationTimeoutMs)
	intVar("E2E_EXPECT_TIMEOUT_MS", &cfg.Executor.ExpectTimeoutMs)
	strVar("E2E_BROWSER", &cfg.Executor.Engine)
	strVar("E2E_BASE_URL", &cfg.Reader.DefaultBaseURL)

	if v, ok := lookup("E2E_HEADLESS"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Sprintf("E2E_HEADLESS must be a boolean (got %q)", v))
		} else {
			cfg.Executor.Headless = b
		}
	}

	if v, ok := lookup("E2E_SCREENSHOT"); ok && v != "" {
		cfg.Artifacts.Screenshot = domain.ScreenshotMode(v)
	}
	if v, ok := lookup("E2E_VIDEO"); ok && v != "" {
		cfg.Artifacts.Video = domain.RecordingMode(v)
	}
	if v, ok := lookup("E2E_TRACE"); ok && v != "" {
		cfg.Artifacts.Trace = domain.RecordingMode(v)
	}

	if v, ok := lookup("DB_URL"); ok && v != "" {
		cfg.Storage.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Storage.Driver = "postgres"
		} else if cfg.Storage.Driver == "local" {
			cfg.Storage.Driver = "sqlite"
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}

	if len(errs) > 0 {
		return domain.NewError(domain.PhaseConfig, "", 0, fmt.Sprintf("invalid environment: %s", strings.Join(errs, "; ")), nil)
	}
	return nil
}
