package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fjglira/GoE2E-Runner/internal/browser"
	"github.com/fjglira/GoE2E-Runner/internal/compiler"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// dispatch performs one action. A panic inside the browser driver is
// returned as an error.
func (e *Executor) dispatch(
	ctx context.Context,
	page browser.Page,
	baseURL, dir string,
	a compiler.Action,
	res *domain.RunResult,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(NormalizeMessage(r))
		}
	}()

	switch s := a.Step.(type) {
	case domain.GotoStep:
		target, rerr := resolveURL(baseURL, s.URL)
		if rerr != nil {
			return rerr
		}
		return page.Goto(target)
	case domain.FillStep:
		return page.Fill(s.Selector, s.Value)
	case domain.ClickStep:
		return page.Click(s.Selector)
	case domain.ExpectTextStep:
		return page.ExpectText(s.Selector, s.Text)
	case domain.ExpectVisibleStep:
		return page.ExpectVisible(s.Selector)
	case domain.WaitForTimeoutStep:
		return page.WaitForTimeout(s.Ms)
	case domain.WaitForSelectorStep:
		return page.WaitForSelector(s.Selector)
	case domain.HoverStep:
		return page.Hover(s.Selector)
	case domain.PrintStep:
		res.Logs = append(res.Logs, s.Message)
		return nil
	case domain.ScreenshotStep:
		path := filepath.Join(dir, screenshotFile(a.Index, s.Name))
		if serr := page.Screenshot(path); serr != nil {
			return serr
		}
		addScreenshot(res, path)
		return nil
	case domain.APIRequestStep:
		return e.api.Do(context.WithoutCancel(ctx), baseURL, s)
	}
	return fmt.Errorf("invalid step type: %s", a.Step.Type())
}

func screenshotFile(index int, name string) string {
	if base := domain.SafeName(name); base != "" {
		return base + ".png"
	}
	return fmt.Sprintf("step-%d.png", index+1)
}
