package storage

import (
	"context"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
)

// Repos bundles the repositories built from config.
type Repos struct {
	Tests   TestsRepo
	Reports ReportsRepo
	// Backend is "local" or the SQL driver in use.
	Backend string

	store *SQLStore
}

// Close releases the database, if one was opened.
func (r *Repos) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// Open builds the repositories for cfg. Relative paths resolve against
// workDir. A database that cannot be opened is logged and the local files
// are used instead.
func Open(ctx context.Context, cfg config.StorageConfig, workDir string, log *logrus.Logger) (*Repos, error) {
	localTests := NewLocalTestsRepo(resolve(workDir, cfg.LocalFile))
	localReports := NewLocalReportsRepo(resolve(workDir, cfg.ReportsFile), cfg.KeepReportsPerTest)
	local := &Repos{Tests: localTests, Reports: localReports, Backend: "local"}

	var (
		store *SQLStore
		err   error
	)
	switch cfg.Driver {
	case "", "local":
		log.Debugf("Using local storage at %s", localTests.Path())
		return local, nil
	case "sqlite":
		store, err = OpenSQLite(ctx, resolve(workDir, cfg.DSN), cfg.KeepReportsPerTest)
	case "postgres":
		store, err = OpenPostgres(ctx, cfg.DSN, cfg.KeepReportsPerTest)
	default:
		return nil, storageError("unknown storage driver "+cfg.Driver, nil)
	}
	if err != nil {
		log.WithError(err).Warnf("Could not open %s storage, using local files", cfg.Driver)
		return local, nil
	}

	log.Debugf("Using %s storage", cfg.Driver)
	return &Repos{
		Tests:   NewFallbackTestsRepo(store, localTests, log),
		Reports: NewFallbackReportsRepo(store, localReports, log),
		Backend: cfg.Driver,
		store:   store,
	}, nil
}

func resolve(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(workDir, path)
}
