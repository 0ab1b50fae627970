package reader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/parser"
	"github.com/fjglira/GoE2E-Runner/internal/scanner"
)

// Reader recovers test definitions from the spec files under the test root.
type Reader interface {
	ReadAll(ctx context.Context) ([]domain.ParsedSpec, error)
}

// DefaultReader implements Reader by wiring the scanner and the parser
// registry together.
type DefaultReader struct {
	scanner  scanner.Scanner
	registry parser.ParserRegistry
	cfg      config.ReaderConfig
	workDir  string
	log      *logrus.Logger
}

// NewReader creates a new DefaultReader. Relative roots resolve against
// workDir; an empty workDir means the process working directory.
func NewReader(
	s scanner.Scanner,
	r parser.ParserRegistry,
	cfg config.ReaderConfig,
	workDir string,
	log *logrus.Logger,
) *DefaultReader {
	return &DefaultReader{
		scanner:  s,
		registry: r,
		cfg:      cfg,
		workDir:  workDir,
		log:      log,
	}
}

// New builds a DefaultReader from config with the default parsers.
func New(cfg config.ReaderConfig, workDir string, log *logrus.Logger) *DefaultReader {
	recursive := cfg.Recursive == nil || *cfg.Recursive
	opts := parser.Options{
		DefaultBaseURL:   cfg.DefaultBaseURL,
		BaseURLConstants: cfg.BaseURLConstants,
		IgnorePatterns:   cfg.IgnorePatterns,
		PlanTags:         cfg.PlanTags,
	}
	return NewReader(scanner.NewScanner(recursive), parser.NewDefaultRegistry(opts), cfg, workDir, log)
}

// Root returns the first configured root that exists, or the first
// candidate when none does.
func (r *DefaultReader) Root() (string, error) {
	base := r.workDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", domain.NewError(domain.PhaseScan, "", 0, "failed to resolve working directory", err)
		}
		base = wd
	}

	var candidates []string
	for _, root := range r.cfg.Roots {
		if !filepath.IsAbs(root) {
			root = filepath.Join(base, root)
		}
		candidates = append(candidates, filepath.Clean(root))
	}
	if len(candidates) == 0 {
		return filepath.Join(base, "tests"), nil
	}

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			return c, nil
		}
	}
	return candidates[0], nil
}

// ReadAll runs the pipeline: resolve root → scan → parse concurrently → sort.
func (r *DefaultReader) ReadAll(ctx context.Context) ([]domain.ParsedSpec, error) {
	// Step 1: Resolve the test root
	root, err := r.Root()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		r.log.Warnf("Test root %s does not exist", root)
		return []domain.ParsedSpec{}, nil
	}

	// Step 2: Scan for spec and plan files
	r.log.Debugf("Scanning test root: %s", root)
	files, err := r.scanner.Scan(root, r.cfg.Include, r.cfg.Exclude)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.log.Warn("No spec files found")
		return []domain.ParsedSpec{}, nil
	}
	r.log.Infof("Found %d spec file(s)", len(files))

	// Step 3: Parse files concurrently into index-addressed slots
	results := make([][]domain.ParsedSpec, len(files))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			specs, err := r.parseFile(root, file)
			if err != nil {
				return err
			}
			results[i] = specs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Step 4: Flatten and order by path
	all := make([]domain.ParsedSpec, 0, len(files))
	for _, specs := range results {
		all = append(all, specs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	r.log.Infof("Read %d spec(s)", len(all))
	return all, nil
}

func (r *DefaultReader) parseFile(root, path string) ([]domain.ParsedSpec, error) {
	r.log.Debugf("Processing: %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion(domain.PhaseParse, path, 0,
			"failed to read file",
			"check that the file exists and has read permissions",
			err)
	}

	p, err := r.registry.ParserFor(path)
	if err != nil {
		r.log.Warnf("No parser for %s, skipping", path)
		return nil, nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	specs, err := p.Parse(parser.SourceFile{Path: path, RelPath: filepath.ToSlash(rel), Content: content})
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		if len(s.Warnings) > 0 {
			r.log.WithField("spec", s.Path).Debugf("%d warning(s) while reading", len(s.Warnings))
		}
	}
	return specs, nil
}
