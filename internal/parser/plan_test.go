package parser_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/parser"
)

func planFile(rel string) parser.SourceFile {
	path := filepath.Join("..", "..", "testdata", "specs", filepath.FromSlash(rel))
	content, err := os.ReadFile(path)
	Expect(err).ToNot(HaveOccurred())
	return parser.SourceFile{Path: path, RelPath: rel, Content: content}
}

var _ = Describe("MarkdownParser", func() {
	var p *parser.MarkdownParser

	BeforeEach(func() {
		p = parser.NewMarkdownParser()
	})

	Describe("SupportedExtensions", func() {
		It("should support .plan.md and .plan.markdown", func() {
			Expect(p.SupportedExtensions()).To(ContainElements(".plan.md", ".plan.markdown"))
		})
	})

	Describe("Extract checkout.plan.md", func() {
		var file parser.SourceFile

		BeforeEach(func() {
			file = planFile("plans/checkout.plan.md")
		})

		It("should extract only e2e-steps blocks", func() {
			doc, err := p.Extract(file.Path, file.Content, []string{"e2e-steps"})
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.FileType).To(Equal("markdown"))
			Expect(doc.Blocks).To(HaveLen(2))
			for _, block := range doc.Blocks {
				Expect(block.Tag).To(Equal("e2e-steps"))
			}
		})

		It("should read info string attributes", func() {
			doc, err := p.Extract(file.Path, file.Content, []string{"e2e-steps"})
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Blocks[0].Attributes["name"]).To(Equal("Add to cart"))
			Expect(doc.Blocks[1].Attributes).To(BeEmpty())
		})

		It("should set context from nearest heading", func() {
			doc, err := p.Extract(file.Path, file.Content, []string{"e2e-steps"})
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Headings[0].Text).To(Equal("Checkout plan"))
			Expect(doc.Blocks[1].Context).To(Equal("Pay"))
		})

		It("should read settings from comments", func() {
			doc, err := p.Extract(file.Path, file.Content, []string{"e2e-steps"})
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Metadata).To(HaveKeyWithValue("base-url", "http://shop.local:8080"))
		})

		It("should not extract blocks with non-matching tags", func() {
			doc, err := p.Extract(file.Path, file.Content, []string{"other-tag"})
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Blocks).To(BeEmpty())
		})
	})
})

var _ = Describe("AsciiDocParser", func() {
	It("should extract source blocks with attributes and comments", func() {
		file := planFile("plans/search.plan.adoc")
		doc, err := parser.NewAsciiDocParser().Extract(file.Path, file.Content, []string{"e2e-steps"})
		Expect(err).ToNot(HaveOccurred())
		Expect(doc.FileType).To(Equal("asciidoc"))
		Expect(doc.Blocks).To(HaveLen(1))
		Expect(doc.Blocks[0].Attributes["name"]).To(Equal("Search events"))
		Expect(doc.Blocks[0].Context).To(Equal("Search by title"))
		Expect(doc.Metadata).To(HaveKeyWithValue("base-url", "http://localhost:5173"))
	})
})

var _ = Describe("PlaintextParser", func() {
	It("should extract @begin/@end blocks", func() {
		file := planFile("plans/smoke.plan.txt")
		doc, err := parser.NewDefaultPlaintextParser().Extract(file.Path, file.Content, []string{"e2e-steps"})
		Expect(err).ToNot(HaveOccurred())
		Expect(doc.FileType).To(Equal("plaintext"))
		Expect(doc.Blocks).To(HaveLen(1))
		Expect(doc.Blocks[0].Attributes["name"]).To(Equal("Health"))
		Expect(doc.Headings[0].Text).To(Equal("Smoke plan"))
	})

	It("should reject invalid patterns", func() {
		_, err := parser.NewPlaintextParser("(", `^@end$`)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("PlanParser", func() {
	var p *parser.PlanParser

	BeforeEach(func() {
		p = parser.NewPlanParser(parser.NewMarkdownParser(), parser.DefaultOptions())
	})

	It("should turn each block into a spec", func() {
		specs, err := p.Parse(planFile("plans/checkout.plan.md"))
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(HaveLen(2))

		Expect(specs[0].ID).To(Equal("planscheckout-add-to-cart"))
		Expect(specs[0].Name).To(Equal("Add to cart"))
		Expect(specs[0].Path).To(Equal("tests/plans/checkout.plan.md"))
		Expect(specs[0].BaseURL).To(Equal("http://shop.local:8080"))
		Expect(specs[0].Steps).To(Equal(domain.Steps{
			domain.GotoStep{URL: "/products/1"},
			domain.ClickStep{Selector: "data-testid=add-to-cart"},
			domain.ExpectTextStep{Selector: "data-testid=cart-count", Text: "1"},
		}))
		Expect(specs[0].Warnings).To(BeEmpty())
	})

	It("should decode the object form and warn on unknown steps", func() {
		specs, err := p.Parse(planFile("plans/checkout.plan.md"))
		Expect(err).ToNot(HaveOccurred())

		pay := specs[1]
		Expect(pay.ID).To(Equal("planscheckout-pay"))
		Expect(pay.Name).To(Equal("Pay"))
		Expect(pay.BaseURL).To(Equal("http://pay.local"))
		status := 200
		Expect(pay.Steps).To(Equal(domain.Steps{
			domain.GotoStep{URL: "/checkout"},
			domain.APIRequestStep{Method: "GET", URL: "/api/health", ExpectedStatus: &status},
		}))
		Expect(pay.Warnings).To(HaveLen(1))
		Expect(pay.Warnings[0]).To(ContainSubstring(`unsupported step type "drag"`))
	})

	It("should use the file id for a single block", func() {
		ap := parser.NewPlanParser(parser.NewAsciiDocParser(), parser.DefaultOptions())
		specs, err := ap.Parse(planFile("plans/search.plan.adoc"))
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(HaveLen(1))
		Expect(specs[0].ID).To(Equal("planssearch"))
		Expect(specs[0].Steps).To(HaveLen(3))
		Expect(specs[0].Steps[2]).To(Equal(domain.WaitForTimeoutStep{Ms: 300}))
	})

	It("should report an undecodable block as a warning", func() {
		content := []byte("# Broken\n\n```e2e-steps\nsteps: [unclosed\n```\n")
		specs, err := p.Parse(parser.SourceFile{Path: "broken.plan.md", RelPath: "broken.plan.md", Content: content})
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(HaveLen(1))
		Expect(specs[0].Name).To(Equal("Broken"))
		Expect(specs[0].Steps).To(BeEmpty())
		Expect(specs[0].Warnings[0]).To(ContainSubstring("invalid step block"))
	})
})
