package writer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"text/template"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// TemplateEngine renders a generated spec file from its template data.
type TemplateEngine interface {
	Render(name string, data TemplateData) (string, error)
	ListTemplates() []string
}

// TemplateData is the struct passed to templates.
type TemplateData struct {
	TestName        string
	BaseURL         string
	ConstantsImport string
	ResetPath       string
	NeedsAPIRequest bool
	Lines           []string
}

// DefaultEngine implements TemplateEngine.
type DefaultEngine struct {
	templates   map[string]*template.Template
	defaultName string
}

// NewEngine loads the built-in templates, then any .tmpl files found in
// templateDir. A template in templateDir replaces the built-in one of the
// same name.
func NewEngine(templateDir string, defaultTemplate string) (*DefaultEngine, error) {
	engine := &DefaultEngine{
		templates:   make(map[string]*template.Template),
		defaultName: defaultTemplate,
	}

	builtin, err := fs.Sub(builtinTemplates, "templates")
	if err != nil {
		return nil, domain.NewError(domain.PhaseTemplate, "templates", 0, "failed to open built-in templates", err)
	}
	if err := engine.loadTemplates(builtin, "templates"); err != nil {
		return nil, err
	}
	if templateDir != "" {
		if err := engine.loadTemplates(os.DirFS(templateDir), templateDir); err != nil {
			return nil, err
		}
	}

	if _, ok := engine.templates[defaultTemplate]; !ok {
		return nil, domain.NewError(domain.PhaseTemplate, templateDir, 0,
			fmt.Sprintf("template %q not found (available: %s)", defaultTemplate, strings.Join(engine.ListTemplates(), ", ")), nil)
	}
	return engine, nil
}

// loadTemplates reads all .tmpl files at the top of fsys.
func (e *DefaultEngine) loadTemplates(fsys fs.FS, label string) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return domain.NewError(domain.PhaseTemplate, label, 0, "failed to read template directory", err)
	}

	funcMap := CustomFuncMap()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}

		file := path.Join(label, entry.Name())
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return domain.NewError(domain.PhaseTemplate, file, 0, "failed to read template file", err)
		}

		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		tmpl, err := template.New(name).Funcs(funcMap).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return domain.NewError(domain.PhaseTemplate, file, 0, "failed to parse template", err)
		}

		e.templates[name] = tmpl
	}

	return nil
}

// Render executes the named template, or the default one when name is empty.
func (e *DefaultEngine) Render(name string, data TemplateData) (string, error) {
	if name == "" {
		name = e.defaultName
	}

	tmpl, ok := e.templates[name]
	if !ok {
		return "", domain.NewError(domain.PhaseTemplate, "", 0,
			fmt.Sprintf("template %q not found (available: %s)", name, strings.Join(e.ListTemplates(), ", ")), nil)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", domain.NewError(domain.PhaseTemplate, name, 0, "failed to execute template", err)
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// ListTemplates returns the sorted names of all loaded templates.
func (e *DefaultEngine) ListTemplates() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
