package domain_test

import (
	"encoding/json"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

var _ = Describe("Step", func() {
	Describe("MarshalJSON", func() {
		It("should write the discriminant first", func() {
			data, err := json.Marshal(domain.FillStep{Selector: "#email", Value: "a@b.c"})
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal(`{"type":"fill","selector":"#email","value":"a@b.c"}`))
		})

		It("should encode steps without fields", func() {
			data, err := json.Marshal(domain.ScreenshotStep{})
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal(`{"type":"screenshot"}`))
		})

		It("should encode steps held as interfaces", func() {
			steps := domain.Steps{domain.GotoStep{URL: "/a"}, domain.WaitForTimeoutStep{Ms: 250}}
			data, err := json.Marshal(steps)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal(`[{"type":"goto","url":"/a"},{"type":"waitForTimeout","ms":250}]`))
		})
	})

	Describe("DecodeStep", func() {
		It("should decode every known variant", func() {
			for _, t := range domain.KnownStepTypes {
				step, err := domain.DecodeStep([]byte(fmt.Sprintf(`{"type":%q}`, t)))
				Expect(err).ToNot(HaveOccurred())
				Expect(step.Type()).To(Equal(t))
				_, unknown := step.(domain.UnknownStep)
				Expect(unknown).To(BeFalse())
			}
		})

		It("should decode an apiRequest with optional fields", func() {
			step, err := domain.DecodeStep([]byte(`{"type":"apiRequest","method":"POST","url":"/api","headers":{"X-A":"1"},"expectedStatus":201}`))
			Expect(err).ToNot(HaveOccurred())
			api, ok := step.(domain.APIRequestStep)
			Expect(ok).To(BeTrue())
			Expect(api.Method).To(Equal("POST"))
			Expect(api.Headers).To(HaveKeyWithValue("X-A", "1"))
			Expect(*api.ExpectedStatus).To(Equal(201))
		})

		It("should keep the name of an unknown type", func() {
			step, err := domain.DecodeStep([]byte(`{"type":"drag","from":"a"}`))
			Expect(err).ToNot(HaveOccurred())
			Expect(step).To(Equal(domain.UnknownStep{Name: "drag"}))
		})

		It("should report non-objects and missing types as unknown", func() {
			for _, raw := range []string{`42`, `"goto"`, `null`, `{}`, `{"type":7}`} {
				step, err := domain.DecodeStep([]byte(raw))
				Expect(err).ToNot(HaveOccurred())
				Expect(step).To(Equal(domain.UnknownStep{Name: "unknown"}), raw)
			}
		})

		It("should fail on a malformed payload of a known type", func() {
			_, err := domain.DecodeStep([]byte(`{"type":"waitForTimeout","ms":"soon"}`))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid waitForTimeout step"))
		})
	})

	Describe("Steps", func() {
		It("should decode a test definition", func() {
			var def domain.TestDefinition
			err := json.Unmarshal([]byte(`{"name":"t","steps":[{"type":"goto","url":"/a"},{"type":"click","selector":"#go"}]}`), &def)
			Expect(err).ToNot(HaveOccurred())
			Expect(def.Steps).To(Equal(domain.Steps{
				domain.GotoStep{URL: "/a"},
				domain.ClickStep{Selector: "#go"},
			}))
		})

		It("should leave null steps nil", func() {
			var def domain.TestDefinition
			Expect(json.Unmarshal([]byte(`{"name":"t","steps":null}`), &def)).To(Succeed())
			Expect(def.Steps).To(BeNil())
		})

		It("should reject a non-array", func() {
			var def domain.TestDefinition
			Expect(json.Unmarshal([]byte(`{"name":"t","steps":{}}`), &def)).ToNot(Succeed())
		})
	})

	Describe("AnyStep", func() {
		It("should survive a JSON round trip", func() {
			in := domain.AnyStep{Step: domain.ExpectTextStep{Selector: "h1", Text: "Events"}}
			data, err := json.Marshal(in)
			Expect(err).ToNot(HaveOccurred())

			var out domain.AnyStep
			Expect(json.Unmarshal(data, &out)).To(Succeed())
			Expect(out.Step).To(Equal(in.Step))
		})
	})
})

var _ = Describe("RunResult", func() {
	It("should decode steps held in results", func() {
		idx := 1
		in := domain.RunResult{
			Status:  domain.StatusFailed,
			Summary: domain.RunSummary{StepsTotal: 2, StepsCompleted: 1},
			StepResults: []domain.StepResult{
				{Index: 0, Step: domain.GotoStep{URL: "/"}, Status: domain.StatusPassed},
				{Index: 1, Step: domain.ClickStep{Selector: "#missing"}, Status: domain.StatusFailed, ErrorMessage: "timeout"},
			},
			FailedStepIndex: &idx,
			FailedStep:      domain.ClickStep{Selector: "#missing"},
		}
		data, err := json.Marshal(in)
		Expect(err).ToNot(HaveOccurred())

		var out domain.RunResult
		Expect(json.Unmarshal(data, &out)).To(Succeed())
		Expect(out.StepResults[1].Step).To(Equal(domain.ClickStep{Selector: "#missing"}))
		Expect(out.FailedStep).To(Equal(domain.ClickStep{Selector: "#missing"}))
		Expect(*out.FailedStepIndex).To(Equal(1))
	})

	It("should leave a passing result without a failed step", func() {
		var out domain.RunResult
		Expect(json.Unmarshal([]byte(`{"status":"passed","stepResults":[]}`), &out)).To(Succeed())
		Expect(out.FailedStep).To(BeNil())
		Expect(out.Failed()).To(BeFalse())
	})
})

var _ = Describe("ArtifactPolicy", func() {
	It("should fill defaults", func() {
		p := domain.ArtifactPolicy{Video: domain.RecordingOn}.WithDefaults(domain.DefaultArtifactPolicy())
		Expect(p.Screenshot).To(Equal(domain.ScreenshotOnlyOnFailure))
		Expect(p.Video).To(Equal(domain.RecordingOn))
		Expect(p.Trace).To(Equal(domain.RecordingOff))
	})

	DescribeTable("Retain",
		func(mode domain.RecordingMode, failed, keep bool) {
			Expect(mode.Retain(failed)).To(Equal(keep))
		},
		Entry("off, failed", domain.RecordingOff, true, false),
		Entry("on, passed", domain.RecordingOn, false, true),
		Entry("retain-on-failure, failed", domain.RecordingRetainOnFailure, true, true),
		Entry("retain-on-failure, passed", domain.RecordingRetainOnFailure, false, false),
		Entry("on-first-retry, failed", domain.RecordingOnFirstRetry, true, true),
		Entry("on-first-retry, passed", domain.RecordingOnFirstRetry, false, false),
	)
})

var _ = Describe("Errors", func() {
	It("should format phase, file and line", func() {
		err := domain.NewError(domain.PhaseParse, "a.spec.ts", 3, "bad statement", errors.New("boom"))
		Expect(err.Error()).To(Equal("[parse] a.spec.ts:3: bad statement: boom"))
	})

	It("should append a suggestion", func() {
		err := domain.NewErrorWithSuggestion(domain.PhaseWrite, "out", 0, "failed", "check permissions", nil)
		Expect(err.Error()).To(ContainSubstring("suggestion: check permissions"))
	})

	It("should detect wrapped validation errors", func() {
		err := fmt.Errorf("compile: %w", domain.NewValidationError("invalid step type: %s", "drag"))
		Expect(domain.IsValidation(err)).To(BeTrue())
		Expect(domain.IsValidation(errors.New("other"))).To(BeFalse())
	})
})
