// Package storage persists test versions and run reports, in a SQL
// database or in local JSON files.
package storage

import (
	"context"
	"time"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// TestsRepo stores versioned test definitions.
type TestsRepo interface {
	// SaveNewVersion appends a version numbered one past the latest.
	SaveNewVersion(ctx context.Context, testID string, def domain.TestDefinition) (*domain.TestVersion, error)
	// GetLatest returns nil, nil when the test has no versions.
	GetLatest(ctx context.Context, testID string) (*domain.TestVersion, error)
	// ListLatest returns the latest version of every test, by test id.
	ListLatest(ctx context.Context) ([]domain.TestVersion, error)
}

// ReportsRepo stores run reports.
type ReportsRepo interface {
	SaveReport(ctx context.Context, report domain.RunReport) (*domain.RunReport, error)
	// GetReport returns nil, nil for an unknown id.
	GetReport(ctx context.Context, id string) (*domain.RunReport, error)
	// ListReports returns reports newest first. limit <= 0 means DefaultListLimit.
	ListReports(ctx context.Context, limit int) ([]domain.RunReport, error)
	// DeleteReport reports whether a report was removed.
	DeleteReport(ctx context.Context, id string) (bool, error)
}

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 50

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func storageError(message string, cause error) error {
	return domain.NewError(domain.PhaseStorage, "", 0, message, cause)
}
