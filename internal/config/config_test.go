package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

func envMap(vars map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

var _ = Describe("Config", func() {
	Describe("Load", func() {
		It("should load minimal config over defaults", func() {
			cfg, err := config.Load(filepath.Join("..", "..", "testdata", "configs", "minimal.yaml"))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Executor.Workers).To(Equal(2))
			Expect(cfg.Executor.ActionTimeoutMs).To(Equal(10000))
			Expect(cfg.Reader.Roots).To(Equal([]string{"tests", "../tests"}))
			Expect(cfg.Artifacts).To(Equal(domain.DefaultArtifactPolicy()))
		})

		It("should load full config", func() {
			cfg, err := config.Load(filepath.Join("..", "..", "testdata", "configs", "full.yaml"))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Reader.Roots).To(HaveLen(2))
			Expect(cfg.Reader.PlanTags).To(ContainElements("e2e-steps", "test-plan"))
			Expect(cfg.Writer.ResetPath).To(Equal("/api/test/reset"))
			Expect(cfg.Executor.Engine).To(Equal("firefox"))
			Expect(cfg.Executor.Headless).To(BeFalse())
			Expect(cfg.Artifacts.Screenshot).To(Equal(domain.ScreenshotOn))
			Expect(cfg.Artifacts.Video).To(Equal(domain.RecordingRetainOnFailure))
			Expect(cfg.Storage.Driver).To(Equal("sqlite"))
			Expect(cfg.Logging.Format).To(Equal("json"))
		})

		It("should return error for nonexistent file", func() {
			_, err := config.Load("nonexistent.yaml")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid YAML", func() {
			tmpFile := filepath.Join(GinkgoT().TempDir(), "invalid.yaml")
			Expect(os.WriteFile(tmpFile, []byte("{{invalid yaml}}"), 0644)).To(Succeed())

			_, err := config.Load(tmpFile)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadWithEnv", func() {
		It("should fall back to defaults when an optional file is missing", func() {
			cfg, err := config.LoadWithEnv(filepath.Join(GinkgoT().TempDir(), "absent.yaml"), true)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Executor.Engine).To(Equal("chromium"))
		})

		It("should fail when a required file is missing", func() {
			_, err := config.LoadWithEnv(filepath.Join(GinkgoT().TempDir(), "absent.yaml"), false)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ApplyEnv", func() {
		It("should override executor and artifact settings", func() {
			cfg := config.DefaultConfig()
			err := config.ApplyEnv(cfg, envMap(map[string]string{
				"E2E_WORKERS":           "4",
				"E2E_ACTION_TIMEOUT_MS": "1500",
				"E2E_NAV_TIMEOUT_MS":    "2500",
				"E2E_HEADLESS":          "false",
				"E2E_VIDEO":             "on",
				"E2E_TRACE":             "retain-on-failure",
				"PORT":                  "9000",
			}))
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Executor.Workers).To(Equal(4))
			Expect(cfg.Executor.ActionTimeoutMs).To(Equal(1500))
			Expect(cfg.Executor.NavigationTimeoutMs).To(Equal(2500))
			Expect(cfg.Executor.Headless).To(BeFalse())
			Expect(cfg.Artifacts.Video).To(Equal(domain.RecordingOn))
			Expect(cfg.Artifacts.Trace).To(Equal(domain.RecordingRetainOnFailure))
			Expect(cfg.Server.Addr).To(Equal(":9000"))
		})

		It("should select the postgres driver from DB_URL", func() {
			cfg := config.DefaultConfig()
			Expect(config.ApplyEnv(cfg, envMap(map[string]string{"DB_URL": "postgres://u:p@db/tests"}))).To(Succeed())
			Expect(cfg.Storage.Driver).To(Equal("postgres"))
			Expect(cfg.Storage.DSN).To(Equal("postgres://u:p@db/tests"))
		})

		It("should switch local storage to sqlite for a file DB_URL", func() {
			cfg := config.DefaultConfig()
			Expect(config.ApplyEnv(cfg, envMap(map[string]string{"DB_URL": "file:runner.db"}))).To(Succeed())
			Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		})

		It("should reject malformed numbers", func() {
			cfg := config.DefaultConfig()
			err := config.ApplyEnv(cfg, envMap(map[string]string{"E2E_WORKERS": "many"}))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("E2E_WORKERS"))
		})
	})

	Describe("DefaultConfig", func() {
		It("should return config with sensible defaults", func() {
			cfg := config.DefaultConfig()
			Expect(cfg.Executor.Workers).To(Equal(1))
			Expect(cfg.Executor.NavigationTimeoutMs).To(Equal(20000))
			Expect(cfg.Executor.ExpectTimeoutMs).To(Equal(5000))
			Expect(*cfg.Reader.Recursive).To(BeTrue())
			Expect(cfg.Reader.DefaultBaseURL).To(Equal("http://localhost:5173"))
			Expect(cfg.Writer.FileSuffix).To(Equal(".generated.spec.ts"))
			Expect(cfg.Storage.LocalFile).To(Equal(".tmp/tests-db.json"))
		})
	})

	Describe("Validate", func() {
		It("should pass for valid config", func() {
			cfg, err := config.Load(filepath.Join("..", "..", "testdata", "configs", "full.yaml"))
			Expect(err).ToNot(HaveOccurred())
			Expect(config.Validate(cfg)).To(Succeed())
		})

		It("should pass for defaults", func() {
			Expect(config.Validate(config.DefaultConfig())).To(Succeed())
		})

		It("should fail if workers is zero", func() {
			cfg := config.DefaultConfig()
			cfg.Executor.Workers = 0
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("executor.workers"))
		})

		It("should fail for an unknown artifact mode", func() {
			cfg := config.DefaultConfig()
			cfg.Artifacts.Video = "sometimes"
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("artifacts.video"))
		})

		It("should fail if file suffix is not a script", func() {
			cfg := config.DefaultConfig()
			cfg.Writer.FileSuffix = ".txt"
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("file_suffix"))
		})

		It("should collect several problems into one error", func() {
			cfg := config.DefaultConfig()
			cfg.Storage.Driver = "mongo"
			cfg.Logging.Level = "verbose"
			err := config.Validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("storage.driver"))
			Expect(err.Error()).To(ContainSubstring("logging.level"))
		})
	})
})
