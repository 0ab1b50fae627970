package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Config is the top-level configuration struct.
type Config struct {
	Reader    ReaderConfig          `yaml:"reader"`
	Writer    WriterConfig          `yaml:"writer"`
	Executor  ExecutorConfig        `yaml:"executor"`
	Artifacts domain.ArtifactPolicy `yaml:"artifacts"`
	Storage   StorageConfig         `yaml:"storage"`
	Server    ServerConfig          `yaml:"server"`
	Logging   LoggingConfig         `yaml:"logging"`
	DryRun    bool                  `yaml:"dry_run"`
}

type ReaderConfig struct {
	Roots            []string `yaml:"roots"`
	Include          []string `yaml:"include"`
	Exclude          []string `yaml:"exclude"`
	Recursive        *bool    `yaml:"recursive"` // pointer to distinguish unset from false
	Concurrency      int      `yaml:"concurrency"`
	DefaultBaseURL   string   `yaml:"default_base_url"`
	BaseURLConstants []string `yaml:"base_url_constants"`
	IgnorePatterns   []string `yaml:"ignore_patterns"`
	PlanTags         []string `yaml:"plan_tags"`
}

type WriterConfig struct {
	Root            string `yaml:"root"`
	OutputDir       string `yaml:"output_dir"`
	FileSuffix      string `yaml:"file_suffix"`
	ArtifactsDir    string `yaml:"artifacts_dir"`
	ConstantsImport string `yaml:"constants_import"`
	ResetPath       string `yaml:"reset_path"`
	TemplateDir     string `yaml:"template_dir"`
	Template        string `yaml:"template"`
}

type ExecutorConfig struct {
	Workers             int    `yaml:"workers"`
	Engine              string `yaml:"engine"`
	Headless            bool   `yaml:"headless"`
	ActionTimeoutMs     int    `yaml:"action_timeout_ms"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	ExpectTimeoutMs     int    `yaml:"expect_timeout_ms"`
	APITimeoutMs        int    `yaml:"api_timeout_ms"`
	ArtifactsDir        string `yaml:"artifacts_dir"`
}

type StorageConfig struct {
	Driver             string `yaml:"driver"`
	DSN                string `yaml:"dsn"`
	LocalFile          string `yaml:"local_file"`
	ReportsFile        string `yaml:"reports_file"`
	KeepReportsPerTest int    `yaml:"keep_reports_per_test"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	RateLimitRPS   int      `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	File   string `yaml:"file"`
}

// Load reads a YAML configuration file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewError(domain.PhaseConfig, path, 0, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, domain.NewError(domain.PhaseConfig, path, 0, "failed to parse config file", err)
	}

	return cfg, nil
}

// LoadWithEnv loads .env (if present), the YAML file at path and then the
// environment overrides. When optional is set a missing config file is not
// an error and the defaults are used instead.
func LoadWithEnv(path string, optional bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewError(domain.PhaseConfig, ".env", 0, "failed to load .env file", err)
	}

	var cfg *Config
	if _, err := os.Stat(path); optional && errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
	} else {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
