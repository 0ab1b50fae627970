package parser

import (
	"encoding/json"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

var (
	roleNameRe       = regexp.MustCompile(`\bname\s*:\s*`)
	screenshotPathRe = regexp.MustCompile(`\bpath\s*:\s*`)
	unnamedShotRe    = regexp.MustCompile(`^step(-\d+)?$`)
	msLiteralRe      = regexp.MustCompile(`^\d+$`)
)

// statementRule classifies one call shape. Rules are tried in order and the
// first that returns ok wins.
type statementRule struct {
	name  string
	match func(c call, scope *Scope) (domain.Step, bool)
}

var statementRules = []statementRule{
	{name: "goto", match: matchGoto},
	{name: "fill", match: matchFill},
	{name: "click", match: selectorAction("click", func(sel string) domain.Step { return domain.ClickStep{Selector: sel} })},
	{name: "hover", match: selectorAction("hover", func(sel string) domain.Step { return domain.HoverStep{Selector: sel} })},
	{name: "expectVisible", match: matchExpectVisible},
	{name: "expectText", match: matchExpectText},
	{name: "waitForTimeout", match: matchWaitForTimeout},
	{name: "waitForSelector", match: matchWaitForSelector},
	{name: "screenshot", match: matchScreenshot},
	{name: "apiRequest", match: matchAPIRequest},
	{name: "print", match: matchPrint},
}

// ParseStatement classifies one logical statement into a step. It reports
// false when no rule recognises the statement; the caller decides whether
// that is worth a warning.
func ParseStatement(line string, scope *Scope) (domain.Step, bool) {
	expr := strings.TrimSpace(line)
	expr = strings.TrimSpace(strings.TrimPrefix(expr, "await "))
	expr = strings.TrimSpace(strings.TrimSuffix(expr, ";"))

	c, ok := lastCall(expr)
	if !ok {
		return nil, false
	}
	for _, r := range statementRules {
		if step, ok := r.match(c, scope); ok {
			return step, true
		}
	}
	return nil, false
}

// Classifiable reports whether a statement is one the rule table is meant to
// understand.
func Classifiable(stmt string) bool {
	return strings.HasPrefix(stmt, "await ") || strings.HasPrefix(stmt, "console.log(")
}

func matchGoto(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "page" || c.method != "goto" {
		return nil, false
	}
	args := splitArgs(c.args)
	if len(args) == 0 {
		return nil, false
	}
	url := unwrapURL(args[0], scope)
	if url == "" {
		url = "/"
	}
	return domain.GotoStep{URL: url}, true
}

// unwrapURL resolves `new URL(lit, base).toString()` to lit and anything
// else through the scope.
func unwrapURL(arg string, scope *Scope) string {
	inner := strings.TrimSuffix(strings.TrimSpace(arg), ".toString()")
	if strings.HasPrefix(inner, "new URL(") {
		if c, ok := lastCall(strings.TrimPrefix(inner, "new ")); ok && c.method == "URL" && c.receiver == "" {
			if parts := splitArgs(c.args); len(parts) > 0 {
				return scope.Substitute(parts[0])
			}
		}
	}
	return scope.Substitute(arg)
}

func matchFill(c call, scope *Scope) (domain.Step, bool) {
	if c.method != "fill" {
		return nil, false
	}
	args := splitArgs(c.args)
	if c.receiver == "page" {
		if len(args) != 2 {
			return nil, false
		}
		return domain.FillStep{Selector: scope.Substitute(args[0]), Value: scope.Substitute(args[1])}, true
	}
	if len(args) != 1 {
		return nil, false
	}
	sel, ok := scope.target(c.receiver)
	if !ok {
		return nil, false
	}
	return domain.FillStep{Selector: sel, Value: scope.Substitute(args[0])}, true
}

// selectorAction matches `<locator>.method()` and `page.method(sel)`.
func selectorAction(method string, build func(sel string) domain.Step) func(call, *Scope) (domain.Step, bool) {
	return func(c call, scope *Scope) (domain.Step, bool) {
		if c.method != method {
			return nil, false
		}
		args := splitArgs(c.args)
		if c.receiver == "page" {
			if len(args) != 1 {
				return nil, false
			}
			return build(scope.Substitute(args[0])), true
		}
		if len(args) != 0 {
			return nil, false
		}
		sel, ok := scope.target(c.receiver)
		if !ok {
			return nil, false
		}
		return build(sel), true
	}
}

// expectTarget unwraps `expect(x)` and resolves x to a selector.
func expectTarget(receiver string, scope *Scope) (string, bool) {
	inner, ok := lastCall(receiver)
	if !ok || inner.receiver != "" || inner.method != "expect" {
		return "", false
	}
	args := splitArgs(inner.args)
	if len(args) != 1 {
		return "", false
	}
	return scope.target(args[0])
}

func matchExpectVisible(c call, scope *Scope) (domain.Step, bool) {
	if c.method != "toBeVisible" || strings.TrimSpace(c.args) != "" {
		return nil, false
	}
	sel, ok := expectTarget(c.receiver, scope)
	if !ok {
		return nil, false
	}
	return domain.ExpectVisibleStep{Selector: sel}, true
}

func matchExpectText(c call, scope *Scope) (domain.Step, bool) {
	if c.method != "toHaveText" {
		return nil, false
	}
	args := splitArgs(c.args)
	if len(args) != 1 {
		return nil, false
	}
	sel, ok := expectTarget(c.receiver, scope)
	if !ok {
		return nil, false
	}
	return domain.ExpectTextStep{Selector: sel, Text: scope.Substitute(args[0])}, true
}

func matchWaitForTimeout(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "page" || c.method != "waitForTimeout" {
		return nil, false
	}
	arg := strings.TrimSpace(c.args)
	if !msLiteralRe.MatchString(arg) {
		return nil, false
	}
	ms, err := strconv.Atoi(arg)
	if err != nil {
		return nil, false
	}
	return domain.WaitForTimeoutStep{Ms: ms}, true
}

func matchWaitForSelector(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "page" || c.method != "waitForSelector" {
		return nil, false
	}
	args := splitArgs(c.args)
	if len(args) == 0 {
		return nil, false
	}
	return domain.WaitForSelectorStep{Selector: scope.Substitute(args[0])}, true
}

func matchScreenshot(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "page" || c.method != "screenshot" {
		return nil, false
	}
	loc := screenshotPathRe.FindStringIndex(c.args)
	if loc == nil {
		return domain.ScreenshotStep{}, true
	}
	lit, _, ok := readLiteral(c.args[loc[1]:])
	if !ok {
		return domain.ScreenshotStep{}, true
	}
	stem := strings.TrimSuffix(path.Base(lit), path.Ext(lit))
	if unnamedShotRe.MatchString(stem) {
		stem = ""
	}
	return domain.ScreenshotStep{Name: stem}, true
}

func matchAPIRequest(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "" || c.method != "apiRequest" {
		return nil, false
	}
	args := splitArgs(c.args)
	if len(args) != 3 {
		return nil, false
	}
	var step domain.APIRequestStep
	if err := json.Unmarshal([]byte(args[2]), &step); err != nil {
		return nil, false
	}
	step.Method = strings.ToUpper(step.Method)
	if step.Method == "" {
		step.Method = "GET"
	}
	return step, true
}

func matchPrint(c call, scope *Scope) (domain.Step, bool) {
	if c.receiver != "console" || c.method != "log" {
		return nil, false
	}
	if strings.TrimSpace(c.args) == "" {
		return nil, false
	}
	return domain.PrintStep{Message: scope.Substitute(c.args)}, true
}

// target resolves an expression used as an action target: a locator
// variable, or a locator expression.
func (s *Scope) target(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if sel, ok := s.LocatorVars[expr]; ok {
		return sel, true
	}
	return s.locatorSelector(expr)
}

// locatorSelector turns a `page.getBy*(...)` or `page.locator(...)`
// expression into a selector string.
func (s *Scope) locatorSelector(expr string) (string, bool) {
	c, ok := lastCall(expr)
	if !ok || c.receiver != "page" {
		return "", false
	}
	args := splitArgs(c.args)
	if len(args) == 0 {
		return "", false
	}

	switch c.method {
	case "getByLabel":
		return "label=" + s.matcherText(args[0]), true
	case "getByText":
		return "text=" + s.matcherText(args[0]), true
	case "getByTestId":
		return "data-testid=" + s.Substitute(args[0]), true
	case "locator":
		return s.Substitute(args[0]), true
	case "getByRole":
		role, _, ok := wholeLiteral(args[0])
		if !ok || role == "" {
			return "", false
		}
		if len(args) > 1 {
			if loc := roleNameRe.FindStringIndex(args[1]); loc != nil {
				if name, _, ok := readLiteral(args[1][loc[1]:]); ok && name != "" {
					return `role=` + role + `[name="` + name + `"]`, true
				}
			}
		}
		return "role=" + role, true
	}
	return "", false
}

// matcherText accepts a regex literal such as /email/i or a value.
func (s *Scope) matcherText(arg string) string {
	if m := regexLiteralRe.FindStringSubmatch(strings.TrimSpace(arg)); m != nil {
		return m[1]
	}
	return s.Substitute(arg)
}
