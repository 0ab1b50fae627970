package writer

import (
	"fmt"
	"path"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// StepLine returns the Playwright statement for one step. index is the
// step's 0-based position, used to name unnamed screenshots.
func StepLine(index int, step domain.Step, artifactsDir string) (string, error) {
	switch s := step.(type) {
	case domain.GotoStep:
		return fmt.Sprintf("await page.goto(new URL(%s, baseURL).toString());", jsString(s.URL)), nil
	case domain.FillStep:
		return fmt.Sprintf("await page.fill(%s, %s);", jsString(s.Selector), jsString(s.Value)), nil
	case domain.ClickStep:
		return fmt.Sprintf("await page.click(%s);", jsString(s.Selector)), nil
	case domain.ExpectTextStep:
		return fmt.Sprintf("await expect(page.locator(%s)).toHaveText(%s);", jsString(s.Selector), jsString(s.Text)), nil
	case domain.ExpectVisibleStep:
		return fmt.Sprintf("await expect(page.locator(%s)).toBeVisible();", jsString(s.Selector)), nil
	case domain.WaitForTimeoutStep:
		return fmt.Sprintf("await page.waitForTimeout(%d);", s.Ms), nil
	case domain.WaitForSelectorStep:
		return fmt.Sprintf("await page.waitForSelector(%s);", jsString(s.Selector)), nil
	case domain.HoverStep:
		return fmt.Sprintf("await page.hover(%s);", jsString(s.Selector)), nil
	case domain.PrintStep:
		return fmt.Sprintf("console.log(%s);", jsString(s.Message)), nil
	case domain.ScreenshotStep:
		return fmt.Sprintf("await page.screenshot({ path: %s, fullPage: true });",
			jsString(path.Join(artifactsDir, screenshotFile(index, s.Name)))), nil
	case domain.APIRequestStep:
		return apiRequestLine(s)
	}
	return "", fmt.Errorf("step %d: cannot render step type %q", index, step.Type())
}

// screenshotFile names a screenshot after its step, or after its position
// when the step is unnamed.
func screenshotFile(index int, name string) string {
	if base := domain.SafeName(name); base != "" {
		return base + ".png"
	}
	return fmt.Sprintf("step-%d.png", index+1)
}

// apiRequestLine passes the step, minus its discriminant, to the generated
// apiRequest helper.
func apiRequestLine(s domain.APIRequestStep) (string, error) {
	type spec struct {
		Method               string            `json:"method"`
		URL                  string            `json:"url"`
		Headers              map[string]string `json:"headers,omitempty"`
		Body                 string            `json:"body,omitempty"`
		ExpectedStatus       *int              `json:"expectedStatus,omitempty"`
		ExpectedBodyContains string            `json:"expectedBodyContains,omitempty"`
	}
	method := s.Method
	if method == "" {
		method = "GET"
	}
	lit, err := jsonLiteral(spec{
		Method:               method,
		URL:                  s.URL,
		Headers:              s.Headers,
		Body:                 s.Body,
		ExpectedStatus:       s.ExpectedStatus,
		ExpectedBodyContains: s.ExpectedBodyContains,
	})
	if err != nil {
		return "", fmt.Errorf("apiRequest: %w", err)
	}
	return fmt.Sprintf("await apiRequest(request, baseURL, %s);", lit), nil
}
