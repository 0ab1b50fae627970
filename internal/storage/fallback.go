package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/domain"
)

// FallbackTestsRepo tries a database first and falls back to the local
// file when the database call fails.
type FallbackTestsRepo struct {
	primary TestsRepo
	local   TestsRepo
	log     logrus.FieldLogger
}

// NewFallbackTestsRepo wraps primary with local as its fallback.
func NewFallbackTestsRepo(primary, local TestsRepo, log logrus.FieldLogger) *FallbackTestsRepo {
	return &FallbackTestsRepo{primary: primary, local: local, log: log.WithField("component", "storage")}
}

func (f *FallbackTestsRepo) SaveNewVersion(ctx context.Context, testID string, def domain.TestDefinition) (*domain.TestVersion, error) {
	v, err := f.primary.SaveNewVersion(ctx, testID, def)
	if err == nil {
		v.Storage = domain.StorageDB
		return v, nil
	}
	f.log.WithError(err).Warnf("Database save failed for %s, using local store", testID)
	return f.local.SaveNewVersion(ctx, testID, def)
}

func (f *FallbackTestsRepo) GetLatest(ctx context.Context, testID string) (*domain.TestVersion, error) {
	v, err := f.primary.GetLatest(ctx, testID)
	if err == nil {
		if v != nil {
			v.Storage = domain.StorageDB
		}
		return v, nil
	}
	f.log.WithError(err).Warnf("Database read failed for %s, using local store", testID)
	return f.local.GetLatest(ctx, testID)
}

func (f *FallbackTestsRepo) ListLatest(ctx context.Context) ([]domain.TestVersion, error) {
	list, err := f.primary.ListLatest(ctx)
	if err == nil {
		for i := range list {
			list[i].Storage = domain.StorageDB
		}
		return list, nil
	}
	f.log.WithError(err).Warn("Database list failed, using local store")
	return f.local.ListLatest(ctx)
}

// FallbackReportsRepo is the ReportsRepo counterpart of FallbackTestsRepo.
type FallbackReportsRepo struct {
	primary ReportsRepo
	local   ReportsRepo
	log     logrus.FieldLogger
}

// NewFallbackReportsRepo wraps primary with local as its fallback.
func NewFallbackReportsRepo(primary, local ReportsRepo, log logrus.FieldLogger) *FallbackReportsRepo {
	return &FallbackReportsRepo{primary: primary, local: local, log: log.WithField("component", "storage")}
}

func (f *FallbackReportsRepo) SaveReport(ctx context.Context, report domain.RunReport) (*domain.RunReport, error) {
	r, err := f.primary.SaveReport(ctx, report)
	if err == nil {
		return r, nil
	}
	f.log.WithError(err).Warnf("Database save failed for report %s, using local store", report.ID)
	return f.local.SaveReport(ctx, report)
}

func (f *FallbackReportsRepo) GetReport(ctx context.Context, id string) (*domain.RunReport, error) {
	r, err := f.primary.GetReport(ctx, id)
	if err == nil {
		return r, nil
	}
	f.log.WithError(err).Warnf("Database read failed for report %s, using local store", id)
	return f.local.GetReport(ctx, id)
}

func (f *FallbackReportsRepo) ListReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	list, err := f.primary.ListReports(ctx, limit)
	if err == nil {
		return list, nil
	}
	f.log.WithError(err).Warn("Database list failed, using local store")
	return f.local.ListReports(ctx, limit)
}

func (f *FallbackReportsRepo) DeleteReport(ctx context.Context, id string) (bool, error) {
	ok, err := f.primary.DeleteReport(ctx, id)
	if err == nil {
		return ok, nil
	}
	f.log.WithError(err).Warnf("Database delete failed for report %s, using local store", id)
	return f.local.DeleteReport(ctx, id)
}
