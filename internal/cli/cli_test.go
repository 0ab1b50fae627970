package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

const loginRequest = `{
  "baseURL": "http://localhost:5173",
  "test": {
    "name": "Login works",
    "steps": [
      {"type": "goto", "url": "/login"},
      {"type": "click", "selector": "#submit"}
    ]
  }
}`

// execute runs the command tree with args and returns stdout.
func execute(args ...string) (string, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

func writeConfig(dir string) string {
	specs, err := filepath.Abs(filepath.Join("..", "..", "testdata", "specs"))
	Expect(err).ToNot(HaveOccurred())
	body := strings.Join([]string{
		"reader:",
		"  roots: [" + specs + "]",
		"writer:",
		"  root: " + filepath.Join(dir, "tests"),
		"storage:",
		"  driver: local",
		"  local_file: " + filepath.Join(dir, "tests-db.json"),
		"  reports_file: " + filepath.Join(dir, "reports-db.json"),
		"logging:",
		"  level: error",
		"",
	}, "\n")
	path := filepath.Join(dir, "e2erunner.yaml")
	Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
	return path
}

var _ = Describe("CLI", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		verbose, dryRun = false, false
		importSave, importFormat = false, "json"
		publishTestID, runTestID, runDraft = "", "", false
		rootCmd.SetIn(os.Stdin)
	})

	Describe("validate", func() {
		It("should accept a valid config file", func() {
			out, err := execute("validate", "-c", writeConfig(dir))
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("is valid"))
		})

		It("should report invalid values", func() {
			path := filepath.Join(dir, "bad.yaml")
			Expect(os.WriteFile(path, []byte("executor:\n  workers: 0\n"), 0o644)).To(Succeed())

			_, err := execute("validate", "-c", path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("executor.workers"))
		})

		It("should fail for an explicit missing config file", func() {
			_, err := execute("validate", "-c", filepath.Join(dir, "missing.yaml"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("import", func() {
		It("should print the recovered specs", func() {
			out, err := execute("import", "-c", writeConfig(dir))
			Expect(err).ToNot(HaveOccurred())

			var res struct {
				Specs    []domain.ParsedSpec  `json:"specs"`
				Versions []domain.TestVersion `json:"versions"`
			}
			Expect(json.Unmarshal([]byte(out), &res)).To(Succeed())
			Expect(res.Specs).ToNot(BeEmpty())
			Expect(res.Versions).To(BeEmpty())
		})

		It("should store versions with --save", func() {
			out, err := execute("import", "-c", writeConfig(dir), "--save")
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring(`"versions"`))
			Expect(filepath.Join(dir, "tests-db.json")).To(BeAnExistingFile())
		})

		It("should not save during a dry run", func() {
			_, err := execute("import", "-c", writeConfig(dir), "--save", "--dry-run")
			Expect(err).ToNot(HaveOccurred())
			Expect(filepath.Join(dir, "tests-db.json")).ToNot(BeAnExistingFile())
		})

		It("should print YAML", func() {
			out, err := execute("import", "-c", writeConfig(dir), "-o", "yaml")
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(HavePrefix("specs:\n  - "))
		})

		It("should reject an unknown format", func() {
			_, err := execute("import", "-c", writeConfig(dir), "-o", "xml")
			Expect(err).To(MatchError(ContainSubstring("unsupported format")))
		})
	})

	Describe("publish", func() {
		var request string

		BeforeEach(func() {
			request = filepath.Join(dir, "request.json")
			Expect(os.WriteFile(request, []byte(loginRequest), 0o644)).To(Succeed())
		})

		It("should write the spec file", func() {
			out, err := execute("publish", "-c", writeConfig(dir), "--id", "login", request)
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("tests/generated/login.generated.spec.ts"))
			Expect(filepath.Join(dir, "tests", "generated", "login.generated.spec.ts")).To(BeAnExistingFile())
		})

		It("should print the rendered source during a dry run", func() {
			out, err := execute("publish", "-c", writeConfig(dir), "--dry-run", request)
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("Login works"))
			Expect(filepath.Join(dir, "tests", "generated")).ToNot(BeADirectory())
		})

		It("should read the request from stdin", func() {
			rootCmd.SetIn(strings.NewReader(loginRequest))
			out, err := execute("publish", "-c", writeConfig(dir), "--dry-run", "-")
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(ContainSubstring("Login works"))
		})

		It("should reject invalid JSON with the file name", func() {
			Expect(os.WriteFile(request, []byte("{not json"), 0o644)).To(Succeed())
			_, err := execute("publish", "-c", writeConfig(dir), request)

			var rerr *domain.RunnerError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Phase).To(Equal(domain.PhaseParse))
			Expect(rerr.File).To(Equal(request))
		})
	})

	Describe("configureLogger", func() {
		var l *logrus.Logger

		BeforeEach(func() {
			l = newLogger(false)
		})

		It("should apply level and format", func() {
			Expect(configureLogger(l, config.LoggingConfig{Level: "warn", Format: "json"}, false)).To(Succeed())
			Expect(l.GetLevel()).To(Equal(logrus.WarnLevel))
			Expect(l.Formatter).To(BeAssignableToTypeOf(&logrus.JSONFormatter{}))
		})

		It("should keep debug when verbose", func() {
			l = newLogger(true)
			Expect(configureLogger(l, config.LoggingConfig{Level: "error"}, true)).To(Succeed())
			Expect(l.GetLevel()).To(Equal(logrus.DebugLevel))
		})

		It("should reject an unknown level", func() {
			Expect(configureLogger(l, config.LoggingConfig{Level: "loud"}, false)).ToNot(Succeed())
		})

		It("should append to the log file", func() {
			file := filepath.Join(dir, "runner.log")
			Expect(configureLogger(l, config.LoggingConfig{File: file}, false)).To(Succeed())
			l.Info("hello")
			Expect(os.ReadFile(file)).To(ContainSubstring("hello"))
		})
	})
})
