package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

type localTestsFile struct {
	Tests map[string][]domain.TestVersion `json:"tests"`
}

type localReportsFile struct {
	Reports []domain.RunReport `json:"reports"`
}

// LocalTestsRepo keeps every version in one JSON file.
type LocalTestsRepo struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLocalTestsRepo stores versions at path. The file is created on the
// first save.
func NewLocalTestsRepo(path string) *LocalTestsRepo {
	return &LocalTestsRepo{path: path, now: time.Now}
}

// Path returns the backing file.
func (r *LocalTestsRepo) Path() string { return r.path }

// SaveNewVersion implements TestsRepo. An empty testID gets a random one.
func (r *LocalTestsRepo) SaveNewVersion(_ context.Context, testID string, def domain.TestDefinition) (*domain.TestVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localTestsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	if data.Tests == nil {
		data.Tests = map[string][]domain.TestVersion{}
	}
	if testID == "" {
		testID = uuid.NewString()
	}

	list := data.Tests[testID]
	version := 1
	if n := len(list); n > 0 {
		version = list[n-1].Version + 1
	}
	v := domain.TestVersion{
		TestID:     testID,
		Version:    version,
		Definition: def,
		CreatedAt:  r.now().UTC(),
		Storage:    domain.StorageLocal,
	}
	data.Tests[testID] = append(list, v)

	if err := writeJSON(r.path, data); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetLatest implements TestsRepo.
func (r *LocalTestsRepo) GetLatest(_ context.Context, testID string) (*domain.TestVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localTestsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	list := data.Tests[testID]
	if len(list) == 0 {
		return nil, nil
	}
	v := list[len(list)-1]
	v.Storage = domain.StorageLocal
	return &v, nil
}

// ListLatest implements TestsRepo.
func (r *LocalTestsRepo) ListLatest(_ context.Context) ([]domain.TestVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localTestsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	out := []domain.TestVersion{}
	for _, list := range data.Tests {
		if len(list) == 0 {
			continue
		}
		v := list[len(list)-1]
		v.Storage = domain.StorageLocal
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestID < out[j].TestID })
	return out, nil
}

// LocalReportsRepo keeps reports in one JSON file, newest first.
type LocalReportsRepo struct {
	mu   sync.Mutex
	path string
	keep int
}

// NewLocalReportsRepo stores reports at path, keeping at most keep
// reports per test id.
func NewLocalReportsRepo(path string, keep int) *LocalReportsRepo {
	return &LocalReportsRepo{path: path, keep: keep}
}

// Path returns the backing file.
func (r *LocalReportsRepo) Path() string { return r.path }

// SaveReport implements ReportsRepo.
func (r *LocalReportsRepo) SaveReport(_ context.Context, report domain.RunReport) (*domain.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localReportsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	ordered := append([]domain.RunReport{report}, data.Reports...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedAt.After(ordered[j].CreatedAt) })
	data.Reports, _ = domain.PruneReports(ordered, r.keep)

	if err := writeJSON(r.path, data); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReport implements ReportsRepo.
func (r *LocalReportsRepo) GetReport(_ context.Context, id string) (*domain.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localReportsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	for i := range data.Reports {
		if data.Reports[i].ID == id {
			return &data.Reports[i], nil
		}
	}
	return nil, nil
}

// ListReports implements ReportsRepo.
func (r *LocalReportsRepo) ListReports(_ context.Context, limit int) ([]domain.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localReportsFile
	if err := readJSON(r.path, &data); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(data.Reports) > limit {
		data.Reports = data.Reports[:limit]
	}
	if data.Reports == nil {
		return []domain.RunReport{}, nil
	}
	return data.Reports, nil
}

// DeleteReport implements ReportsRepo.
func (r *LocalReportsRepo) DeleteReport(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var data localReportsFile
	if err := readJSON(r.path, &data); err != nil {
		return false, err
	}
	for i := range data.Reports {
		if data.Reports[i].ID == id {
			data.Reports = append(data.Reports[:i], data.Reports[i+1:]...)
			return true, writeJSON(r.path, data)
		}
	}
	return false, nil
}

// readJSON leaves v untouched when path does not exist.
func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return domain.NewErrorWithSuggestion(domain.PhaseStorage, path, 0,
			"failed to read file", "check that the file exists and has read permissions", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewErrorWithSuggestion(domain.PhaseStorage, path, 0,
			"invalid JSON store", "fix or remove the file; it is recreated on the next save", err)
	}
	return nil
}

// writeJSON replaces path through a temp file in the same directory.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to create directory", err)
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to encode store", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to write file", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to write file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to write file", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return domain.NewError(domain.PhaseStorage, path, 0, "failed to write file", err)
	}
	return nil
}
