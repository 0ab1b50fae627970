package config

import "github.com/fjglira/GoE2E-Runner/internal/domain"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	recursive := true
	return &Config{
		Reader: ReaderConfig{
			Roots:            []string{"tests", "../tests"},
			Include:          []string{"*.spec.ts", "*.spec.js", "*.spec.tsx", "*.spec.jsx", "*.plan.md", "*.plan.adoc", "*.plan.txt"},
			Exclude:          []string{"node_modules/**", "artifacts/**"},
			Recursive:        &recursive,
			Concurrency:      4,
			DefaultBaseURL:   "http://localhost:5173",
			BaseURLConstants: []string{"WEB_BASE_URL", "BASE_URL", "baseURL"},
			IgnorePatterns: []string{
				"request.post(",
				"expect(res.ok())",
				"waitForResponse(",
				"checkValidity(",
			},
			PlanTags: []string{"e2e-steps"},
		},
		Writer: WriterConfig{
			Root:            "",
			OutputDir:       "generated",
			FileSuffix:      ".generated.spec.ts",
			ArtifactsDir:    "tests/artifacts",
			ConstantsImport: "../constants",
			ResetPath:       "/test/reset",
			Template:        "playwright",
		},
		Executor: ExecutorConfig{
			Workers:             1,
			Engine:              "chromium",
			Headless:            true,
			ActionTimeoutMs:     10000,
			NavigationTimeoutMs: 20000,
			ExpectTimeoutMs:     5000,
			APITimeoutMs:        30000,
			ArtifactsDir:        ".tmp/artifacts",
		},
		Artifacts: domain.DefaultArtifactPolicy(),
		Storage: StorageConfig{
			Driver:             "local",
			DSN:                ".tmp/e2erunner.db",
			LocalFile:          ".tmp/tests-db.json",
			ReportsFile:        ".tmp/reports-db.json",
			KeepReportsPerTest: 2,
		},
		Server: ServerConfig{
			Addr:           ":3333",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			CORSOrigins:    []string{"http://localhost:5173"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		DryRun: false,
	}
}
