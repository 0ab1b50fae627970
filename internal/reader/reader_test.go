package reader_test

import (
	"context"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/reader"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	return log
}

func ids(specs []domain.ParsedSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.ID
	}
	return out
}

var _ = Describe("Reader", func() {
	var (
		cfg     config.ReaderConfig
		workDir string
	)

	BeforeEach(func() {
		cfg = config.DefaultConfig().Reader
		cfg.Roots = []string{"specs"}
		workDir = filepath.Join("..", "..", "testdata")
	})

	It("should read every spec and plan under the test root", func() {
		specs, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(ids(specs)).To(Equal([]string{
			"planscheckout-add-to-cart",
			"planscheckout-pay",
			"planssearch",
			"planssmoke",
			"regressionvalidation",
			"smokelogin",
		}))
	})

	It("should order specs by path", func() {
		specs, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(specs[0].Path).To(Equal("tests/plans/checkout.plan.md"))
		Expect(specs[len(specs)-1].Path).To(Equal("tests/smoke.login.spec.ts"))
	})

	It("should skip excluded directories", func() {
		specs, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		for _, s := range specs {
			Expect(s.Path).ToNot(ContainSubstring("node_modules"))
		}
	})

	It("should inline imported helpers", func() {
		specs, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		smoke := specs[len(specs)-1]
		Expect(smoke.ID).To(Equal("smokelogin"))
		Expect(smoke.Steps[0]).To(Equal(domain.GotoStep{URL: "/login"}))
		Expect(smoke.Warnings).To(BeEmpty())
	})

	It("should produce the same result with a single worker", func() {
		parallel, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())

		cfg.Concurrency = 1
		serial, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(serial).To(Equal(parallel))
	})

	It("should fall back to the next configured root", func() {
		cfg.Roots = []string{"missing", "specs"}
		r := reader.New(cfg, workDir, quietLogger())
		root, err := r.Root()
		Expect(err).ToNot(HaveOccurred())
		Expect(filepath.Base(root)).To(Equal("specs"))
	})

	It("should return an empty list when no root exists", func() {
		cfg.Roots = []string{"missing"}
		specs, err := reader.New(cfg, workDir, quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(BeEmpty())
	})

	It("should return an empty list for a root without specs", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "README.md"), []byte("# none"), 0o644)).To(Succeed())
		cfg.Roots = []string{dir}
		specs, err := reader.New(cfg, "", quietLogger()).ReadAll(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(BeEmpty())
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := reader.New(cfg, workDir, quietLogger()).ReadAll(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})
})
