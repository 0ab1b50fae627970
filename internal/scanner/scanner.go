package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// Scanner discovers spec and plan files under a test root.
type Scanner interface {
	Scan(rootDir string, patterns []string, excludes []string) ([]string, error)
}

// FileScanner implements Scanner using filepath.WalkDir.
type FileScanner struct {
	Recursive bool
}

// NewScanner creates a new FileScanner.
func NewScanner(recursive bool) *FileScanner {
	return &FileScanner{Recursive: recursive}
}

// Scan walks rootDir and returns sorted file paths matching any of the given
// glob patterns while excluding paths that match any exclude pattern.
// A rootDir that does not exist yields no files and no error.
func (s *FileScanner) Scan(rootDir string, patterns []string, excludes []string) ([]string, error) {
	info, err := os.Stat(rootDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.PhaseScan, rootDir, 0, "failed to stat test root", err)
	}
	if !info.IsDir() {
		return nil, domain.NewErrorWithSuggestion(domain.PhaseScan, rootDir, 0, "test root is not a directory",
			"point reader.roots at the directory holding your *.spec.ts files", nil)
	}

	var files []string

	err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Get path relative to rootDir for pattern matching
		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			if !s.Recursive {
				return filepath.SkipDir
			}
			if Excluded(relPath, excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if Excluded(relPath, excludes) {
			return nil
		}
		if Match(relPath, patterns) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, domain.NewError(domain.PhaseScan, rootDir, 0, "failed to scan directory", err)
	}

	sort.Strings(files)
	return files, nil
}

// Match reports whether the slash-separated relative path matches any pattern.
func Match(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchGlob(relPath, pattern) {
			return true
		}
	}
	return false
}

// Excluded reports whether relPath, or one of its directories, matches an
// exclude pattern. "node_modules/**" therefore also skips a nested
// "web/node_modules".
func Excluded(relPath string, excludes []string) bool {
	if len(excludes) == 0 {
		return false
	}
	parts := strings.Split(relPath, "/")
	for i := range parts {
		sub := strings.Join(parts[i:], "/")
		for _, exc := range excludes {
			if matchGlob(sub, exc) {
				return true
			}
			if strings.HasSuffix(exc, "/**") && parts[i] == strings.TrimSuffix(exc, "/**") {
				return true
			}
		}
	}
	return false
}

// matchGlob matches a path against a glob pattern, supporting ** for recursive matching.
func matchGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)

	// Handle ** patterns by splitting and matching parts
	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")

		if prefix != "" {
			if path != prefix && !strings.HasPrefix(path, prefix+"/") {
				return false
			}
			path = strings.TrimPrefix(path, prefix)
			path = strings.TrimPrefix(path, "/")
		}

		if suffix == "" {
			return true
		}

		// Try matching suffix against each possible subpath
		pathParts := strings.Split(path, "/")
		for i := range pathParts {
			subPath := strings.Join(pathParts[i:], "/")
			if matched, _ := filepath.Match(suffix, subPath); matched {
				return true
			}
		}
		return false
	}

	// Simple glob match against the base name, then the full relative path
	if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, path)
	return matched
}
