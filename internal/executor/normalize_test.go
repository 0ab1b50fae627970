package executor_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/executor"
)

type messenger struct{}

func (messenger) Message() string { return "from method" }

type withField struct {
	Message string
	Code    int
}

var _ = Describe("NormalizeMessage", func() {
	DescribeTable("messages",
		func(in any, expected string) {
			Expect(executor.NormalizeMessage(in)).To(Equal(expected))
		},
		Entry("string", "plain", "plain"),
		Entry("error", errors.New("boom"), "boom"),
		Entry("wrapped error", fmt.Errorf("click: %w", errors.New("timeout")), "click: timeout"),
		Entry("Error prefix", errors.New("Error: strict mode violation"), "strict mode violation"),
		Entry("Message method", messenger{}, "from method"),
		Entry("Message field", withField{Message: "from field", Code: 3}, "from field"),
		Entry("Message field by pointer", &withField{Message: "ptr"}, "ptr"),
		Entry("validation error", domain.NewValidationError("baseURL is required"), "baseURL is required"),
		Entry("message map", map[string]any{"message": "m"}, "m"),
		Entry("nested error map", map[string]any{"error": map[string]any{"message": "inner"}}, "inner"),
		Entry("too deep falls back to JSON",
			map[string]any{"error": map[string]any{"error": map[string]any{"message": "deep"}}},
			`{"message":"deep"}`),
		Entry("plain map as JSON", map[string]any{"code": 7}, `{"code":7}`),
		Entry("number", 42, "42"),
		Entry("nil", nil, "Unknown error"),
		Entry("empty string", "  ", "Unknown error"),
	)
})
