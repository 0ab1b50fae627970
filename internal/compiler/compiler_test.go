package compiler_test

import (
	"encoding/json"
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/GoE2E-Runner/internal/compiler"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

func decodeRequest(raw string) domain.RunRequest {
	var req domain.RunRequest
	Expect(json.Unmarshal([]byte(raw), &req)).To(Succeed())
	return req
}

var _ = Describe("Compile", func() {
	It("should bind a goto to the base URL", func() {
		prog, err := compiler.Compile(decodeRequest(`{"baseURL":"http://x","test":{"name":"t","steps":[{"type":"goto","url":"/a"}]}}`))
		Expect(err).ToNot(HaveOccurred())
		Expect(prog.BaseURL).To(Equal("http://x"))
		Expect(prog.Actions).To(Equal([]compiler.Action{{Index: 0, Step: domain.GotoStep{URL: "/a"}}}))
	})

	It("should keep step order", func() {
		req := domain.RunRequest{BaseURL: "http://x", Test: domain.TestDefinition{Name: "t", Steps: domain.Steps{
			domain.GotoStep{URL: "/login"},
			domain.FillStep{Selector: "#email", Value: "a@b.c"},
			domain.ClickStep{Selector: "text=Entrar"},
			domain.APIRequestStep{Method: "GET", URL: "/health"},
		}}}
		prog, err := compiler.Compile(req)
		Expect(err).ToNot(HaveOccurred())
		Expect(prog.Actions).To(HaveLen(4))
		for i, a := range prog.Actions {
			Expect(a.Index).To(Equal(i))
			Expect(a.Step).To(Equal(req.Test.Steps[i]))
		}
	})

	It("should require a base URL", func() {
		_, err := compiler.Compile(domain.RunRequest{Test: domain.TestDefinition{Steps: domain.Steps{domain.ClickStep{Selector: "a"}}}})
		Expect(domain.IsValidation(err)).To(BeTrue())
		Expect(err.Error()).To(Equal("baseURL is required"))
	})

	DescribeTable("should reject empty step lists",
		func(steps domain.Steps) {
			_, err := compiler.Compile(domain.RunRequest{BaseURL: "http://x", Test: domain.TestDefinition{Name: "t", Steps: steps}})
			Expect(domain.IsValidation(err)).To(BeTrue())
			Expect(err.Error()).To(Equal("test.steps is required"))
		},
		Entry("nil", nil),
		Entry("empty", domain.Steps{}),
	)

	It("should reject unknown step types by name", func() {
		_, err := compiler.Compile(decodeRequest(`{"baseURL":"http://x","test":{"name":"t","steps":[{"type":"goto","url":"/"},{"type":"drag"}]}}`))
		Expect(domain.IsValidation(err)).To(BeTrue())
		Expect(err.Error()).To(Equal("invalid step type: drag"))
	})

	It("should reject steps without a discriminant", func() {
		_, err := compiler.Compile(decodeRequest(`{"baseURL":"http://x","test":{"name":"t","steps":[{"url":"/"}]}}`))
		Expect(err).To(MatchError("invalid step type: unknown"))
	})

	It("should reject unknown artifact modes", func() {
		bad := domain.ArtifactPolicy{Video: "always"}
		_, err := compiler.Compile(domain.RunRequest{
			BaseURL:   "http://x",
			Test:      domain.TestDefinition{Name: "t", Steps: domain.Steps{domain.PrintStep{Message: "hi"}}},
			Artifacts: &bad,
		})
		Expect(domain.IsValidation(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("artifacts.video"))
	})

	It("should be pure", func() {
		req := decodeRequest(`{"baseURL":"http://x","test":{"name":"t","steps":[{"type":"goto","url":"/a"},{"type":"screenshot","name":"home"},{"type":"apiRequest","method":"POST","url":"/api","expectedStatus":201}]},"artifacts":{"video":"on"}}`)
		first, err := compiler.Compile(req)
		Expect(err).ToNot(HaveOccurred())
		second, err := compiler.Compile(req)
		Expect(err).ToNot(HaveOccurred())
		Expect(reflect.DeepEqual(first, second)).To(BeTrue())
	})
})

var _ = Describe("CompileBatch", func() {
	var req domain.BatchRunRequest

	BeforeEach(func() {
		req = domain.BatchRunRequest{
			BaseURL:     "http://x",
			SharedSteps: domain.Steps{domain.GotoStep{URL: "/login"}},
			Tests: []domain.TestDefinition{
				{Name: "a", Steps: domain.Steps{domain.ClickStep{Selector: "#a"}}},
				{Name: "b", Steps: domain.Steps{domain.ClickStep{Selector: "#b"}, domain.HoverStep{Selector: "#c"}}},
			},
		}
	})

	It("should compile shared steps and every test", func() {
		prog, err := compiler.CompileBatch(req)
		Expect(err).ToNot(HaveOccurred())
		Expect(prog.SharedActions).To(HaveLen(1))
		Expect(prog.Tests).To(HaveLen(2))
		Expect(prog.Tests[1].Actions).To(HaveLen(2))
		Expect(prog.Tests[1].Test.Name).To(Equal("b"))
	})

	It("should allow a batch without shared steps", func() {
		req.SharedSteps = nil
		prog, err := compiler.CompileBatch(req)
		Expect(err).ToNot(HaveOccurred())
		Expect(prog.SharedActions).To(BeEmpty())
	})

	It("should name the offending test", func() {
		req.Tests[1].Steps = nil
		_, err := compiler.CompileBatch(req)
		Expect(domain.IsValidation(err)).To(BeTrue())
		Expect(err.Error()).To(Equal("tests[1]: test.steps is required"))
	})

	It("should reject an empty batch", func() {
		req.Tests = nil
		_, err := compiler.CompileBatch(req)
		Expect(err).To(MatchError("tests is required"))
	})

	It("should validate shared step types", func() {
		req.SharedSteps = domain.Steps{domain.UnknownStep{Name: "login"}}
		_, err := compiler.CompileBatch(req)
		Expect(err).To(MatchError("sharedSteps: invalid step type: login"))
	})
})
