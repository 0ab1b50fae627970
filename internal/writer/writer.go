package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// WriteResult reports where a generated spec was written, relative to the
// project ("tests/generated/<file>").
type WriteResult struct {
	Path string `json:"path"`
}

// Writer renders test definitions as Playwright spec files.
type Writer struct {
	engine  TemplateEngine
	cfg     config.WriterConfig
	workDir string
	log     *logrus.Logger
}

// NewWriter creates a Writer around an existing engine.
func NewWriter(engine TemplateEngine, cfg config.WriterConfig, workDir string, log *logrus.Logger) *Writer {
	return &Writer{engine: engine, cfg: cfg, workDir: workDir, log: log}
}

// New builds a Writer and its template engine from config.
func New(cfg config.WriterConfig, workDir string, log *logrus.Logger) (*Writer, error) {
	engine, err := NewEngine(cfg.TemplateDir, cfg.Template)
	if err != nil {
		return nil, err
	}
	return NewWriter(engine, cfg, workDir, log), nil
}

// Render returns the source of the spec file for req without writing it.
func (w *Writer) Render(req domain.RunRequest) (string, error) {
	data := TemplateData{
		TestName:        req.Test.Name,
		BaseURL:         req.BaseURL,
		ConstantsImport: w.cfg.ConstantsImport,
		ResetPath:       w.cfg.ResetPath,
		Lines:           make([]string, 0, len(req.Test.Steps)),
	}
	for i, step := range req.Test.Steps {
		line, err := StepLine(i, step, w.cfg.ArtifactsDir)
		if err != nil {
			return "", domain.NewError(domain.PhaseWrite, "", 0, "failed to render step", err)
		}
		if step.Type() == domain.StepAPIRequest {
			data.NeedsAPIRequest = true
		}
		data.Lines = append(data.Lines, line)
	}
	return w.engine.Render(w.cfg.Template, data)
}

// FileName returns the spec file name for a test id, falling back to the
// test name and then to "generated-test".
func (w *Writer) FileName(testID string, req domain.RunRequest) string {
	base := domain.SafeName(testID)
	if base == "" {
		base = domain.SafeName(req.Test.Name)
	}
	if base == "" {
		base = "generated-test"
	}
	return base + w.cfg.FileSuffix
}

// Write renders req and writes it under <root>/<output_dir>/, creating the
// directory when needed.
func (w *Writer) Write(testID string, req domain.RunRequest) (*WriteResult, error) {
	// Step 1: Render
	source, err := w.Render(req)
	if err != nil {
		return nil, err
	}

	// Step 2: Resolve the output directory
	root, err := w.Root()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, filepath.FromSlash(w.cfg.OutputDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewError(domain.PhaseWrite, dir, 0, "failed to create output directory", err)
	}

	// Step 3: Write the file
	name := w.FileName(testID, req)
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(source), 0o644); err != nil {
		return nil, domain.NewErrorWithSuggestion(domain.PhaseWrite, target, 0,
			"failed to write generated spec",
			"check that the tests directory is writable",
			err)
	}

	w.log.WithField("test", testID).Infof("Generated: %s", target)
	return &WriteResult{Path: path.Join("tests", w.cfg.OutputDir, name)}, nil
}

// Root returns the configured root, or the first of tests and ../tests that
// exists under the working directory.
func (w *Writer) Root() (string, error) {
	base := w.workDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", domain.NewError(domain.PhaseWrite, "", 0, "failed to resolve working directory", err)
		}
		base = wd
	}
	if w.cfg.Root != "" {
		if filepath.IsAbs(w.cfg.Root) {
			return w.cfg.Root, nil
		}
		return filepath.Join(base, w.cfg.Root), nil
	}

	candidates := []string{filepath.Join(base, "tests"), filepath.Join(base, "..", "tests")}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && info.IsDir() {
			return c, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", domain.NewError(domain.PhaseWrite, c, 0, fmt.Sprintf("failed to stat %s", c), err)
		}
	}
	return candidates[0], nil
}
