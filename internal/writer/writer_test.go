package writer_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/parser"
	"github.com/fjglira/GoE2E-Runner/internal/writer"
)

func intPtr(v int) *int { return &v }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// renderable covers every step type the writer emits.
var renderable = domain.Steps{
	domain.GotoStep{URL: "/login"},
	domain.FillStep{Selector: "label=email", Value: "qa@example.com"},
	domain.ClickStep{Selector: `role=button[name="Login"]`},
	domain.ExpectTextStep{Selector: "#title > h1", Text: "Events"},
	domain.ExpectVisibleStep{Selector: "text=Welcome"},
	domain.WaitForTimeoutStep{Ms: 250},
	domain.WaitForSelectorStep{Selector: "[data-testid=list]"},
	domain.HoverStep{Selector: ".menu"},
	domain.PrintStep{Message: "checkpoint reached"},
	domain.ScreenshotStep{Name: "dashboard"},
	domain.ScreenshotStep{},
	domain.APIRequestStep{
		Method:               "POST",
		URL:                  "/api/events",
		Headers:              map[string]string{"Content-Type": "application/json"},
		Body:                 `{"title":"Launch, v2"}`,
		ExpectedStatus:       intPtr(201),
		ExpectedBodyContains: "Launch",
	},
	domain.APIRequestStep{Method: "GET", URL: "http://api.local/health"},
}

var _ = Describe("Writer", func() {
	var (
		w    *writer.Writer
		cfg  config.WriterConfig
		root string
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		cfg = config.DefaultConfig().Writer
		cfg.Root = root

		var err error
		w, err = writer.New(cfg, "", quietLogger())
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("Render", func() {
		It("should emit the imports, reset hook and base URL", func() {
			src, err := w.Render(domain.RunRequest{
				BaseURL: "http://localhost:5173",
				Test:    domain.TestDefinition{Name: "Login", Steps: domain.Steps{domain.GotoStep{URL: "/"}}},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(src).To(HavePrefix(`import { test, expect } from "@playwright/test";` + "\n" +
				`import { API_BASE_URL } from "../constants";`))
			Expect(src).To(ContainSubstring("const res = await request.post(`${API_BASE_URL}/test/reset`);"))
			Expect(src).To(ContainSubstring(`test("Login @generated", async ({ page, request }) => {`))
			Expect(src).To(ContainSubstring(`  const baseURL = "http://localhost:5173";`))
			Expect(src).To(ContainSubstring(`  await page.goto(new URL("/", baseURL).toString());`))
			Expect(src).To(HaveSuffix("});\n"))
		})

		It("should only emit the apiRequest helper when needed", func() {
			src, err := w.Render(domain.RunRequest{
				BaseURL: "http://x",
				Test:    domain.TestDefinition{Name: "t", Steps: domain.Steps{domain.ClickStep{Selector: "#a"}}},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(src).ToNot(ContainSubstring("async function apiRequest"))

			src, err = w.Render(domain.RunRequest{
				BaseURL: "http://x",
				Test:    domain.TestDefinition{Name: "t", Steps: domain.Steps{domain.APIRequestStep{URL: "/h"}}},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(src).To(ContainSubstring("async function apiRequest(request, baseURL, spec) {"))
			Expect(src).To(ContainSubstring(`await apiRequest(request, baseURL, {"method":"GET","url":"/h"});`))
		})

		It("should use the configured reset path", func() {
			cfg.ResetPath = "/api/reset"
			custom, err := writer.New(cfg, "", quietLogger())
			Expect(err).ToNot(HaveOccurred())
			src, err := custom.Render(domain.RunRequest{Test: domain.TestDefinition{Name: "t"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(src).To(ContainSubstring("${API_BASE_URL}/api/reset"))
		})

		It("should reject a step it cannot render", func() {
			_, err := w.Render(domain.RunRequest{
				Test: domain.TestDefinition{Name: "t", Steps: domain.Steps{domain.UnknownStep{Name: "drag"}}},
			})
			Expect(err).To(MatchError(ContainSubstring(`cannot render step type "drag"`)))
		})
	})

	Describe("Write", func() {
		It("should write under generated/ and return a tests-relative path", func() {
			res, err := w.Write("Smoke Login", domain.RunRequest{
				BaseURL: "http://x",
				Test:    domain.TestDefinition{Name: "Login", Steps: domain.Steps{domain.GotoStep{URL: "/"}}},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Path).To(Equal("tests/generated/smoke-login.generated.spec.ts"))
			Expect(filepath.Join(root, "generated", "smoke-login.generated.spec.ts")).To(BeARegularFile())
		})

		It("should fall back to the test name and then to generated-test", func() {
			res, err := w.Write("", domain.RunRequest{Test: domain.TestDefinition{Name: "Checkout Flow"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Path).To(Equal("tests/generated/checkout-flow.generated.spec.ts"))

			res, err = w.Write("", domain.RunRequest{Test: domain.TestDefinition{Name: "!!!"}})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Path).To(Equal("tests/generated/generated-test.generated.spec.ts"))
		})

		It("should overwrite an existing file", func() {
			req := domain.RunRequest{Test: domain.TestDefinition{Name: "t", Steps: domain.Steps{domain.PrintStep{Message: "one"}}}}
			_, err := w.Write("same", req)
			Expect(err).ToNot(HaveOccurred())
			req.Test.Steps = domain.Steps{domain.PrintStep{Message: "two"}}
			_, err = w.Write("same", req)
			Expect(err).ToNot(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(root, "generated", "same.generated.spec.ts"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`console.log("two");`))
			Expect(string(data)).ToNot(ContainSubstring(`"one"`))
		})

		It("should resolve the tests directory from the working directory", func() {
			work := GinkgoT().TempDir()
			Expect(os.Mkdir(filepath.Join(work, "tests"), 0o755)).To(Succeed())
			cfg.Root = ""
			rooted, err := writer.New(cfg, filepath.Join(work, "api"), quietLogger())
			Expect(err).ToNot(HaveOccurred())
			r, err := rooted.Root()
			Expect(err).ToNot(HaveOccurred())
			Expect(r).To(Equal(filepath.Join(work, "tests")))
		})
	})

	Describe("round trip", func() {
		It("should read back the steps it wrote", func() {
			req := domain.RunRequest{
				BaseURL: "http://localhost:4173",
				Test:    domain.TestDefinition{Name: "Everything", Steps: renderable},
			}
			res, err := w.Write("everything", req)
			Expect(err).ToNot(HaveOccurred())

			file := filepath.Join(root, "generated", "everything.generated.spec.ts")
			content, err := os.ReadFile(file)
			Expect(err).ToNot(HaveOccurred())

			specs, err := parser.NewScriptParser(parser.DefaultOptions()).Parse(parser.SourceFile{
				Path:    file,
				RelPath: strings.TrimPrefix(res.Path, "tests/"),
				Content: content,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(specs).To(HaveLen(1))
			Expect(specs[0].Warnings).To(BeEmpty())
			Expect(specs[0].BaseURL).To(Equal("http://localhost:4173"))
			Expect(specs[0].Name).To(Equal("Everything @generated"))
			Expect(specs[0].Steps).To(Equal(renderable))
		})
	})
})

var _ = Describe("StepLine", func() {
	DescribeTable("rendered statements",
		func(index int, step domain.Step, expected string) {
			line, err := writer.StepLine(index, step, "tests/artifacts")
			Expect(err).ToNot(HaveOccurred())
			Expect(line).To(Equal(expected))
		},
		Entry("goto", 0, domain.GotoStep{URL: "/a"}, `await page.goto(new URL("/a", baseURL).toString());`),
		Entry("fill", 0, domain.FillStep{Selector: "#e", Value: `say "hi"`}, `await page.fill("#e", "say \"hi\"");`),
		Entry("expectVisible", 0, domain.ExpectVisibleStep{Selector: "a > b"}, `await expect(page.locator("a > b")).toBeVisible();`),
		Entry("waitForTimeout", 0, domain.WaitForTimeoutStep{Ms: 1000}, `await page.waitForTimeout(1000);`),
		Entry("named screenshot", 0, domain.ScreenshotStep{Name: "Cart Page"},
			`await page.screenshot({ path: "tests/artifacts/cart-page.png", fullPage: true });`),
		Entry("unnamed screenshot", 4, domain.ScreenshotStep{},
			`await page.screenshot({ path: "tests/artifacts/step-5.png", fullPage: true });`),
		Entry("print", 0, domain.PrintStep{Message: "done"}, `console.log("done");`),
	)
})

var _ = Describe("TemplateEngine", func() {
	It("should list the built-in template", func() {
		engine, err := writer.NewEngine("", "playwright")
		Expect(err).ToNot(HaveOccurred())
		Expect(engine.ListTemplates()).To(ContainElement("playwright"))
	})

	It("should let a template directory override the built-in template", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "playwright.tmpl"),
			[]byte(`// {{ .TestName }}{{ range .Lines }}
{{ . }}{{ end }}`), 0o644)).To(Succeed())

		engine, err := writer.NewEngine(dir, "playwright")
		Expect(err).ToNot(HaveOccurred())
		out, err := engine.Render("", writer.TemplateData{TestName: "custom", Lines: []string{"a;"}})
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal("// custom\na;\n"))
	})

	It("should fail for an unknown default template", func() {
		_, err := writer.NewEngine("", "cypress")
		Expect(err).To(MatchError(ContainSubstring(`template "cypress" not found`)))
	})
})
