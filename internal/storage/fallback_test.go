package storage_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	"github.com/DATA-DOG/go-sqlmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/fjglira/GoE2E-Runner/internal/config"
	"github.com/fjglira/GoE2E-Runner/internal/domain"
	"github.com/fjglira/GoE2E-Runner/internal/storage"
)

var _ = Describe("FallbackTestsRepo", func() {
	var (
		ctx   context.Context
		mock  sqlmock.Sqlmock
		local *storage.LocalTestsRepo
		repo  *storage.FallbackTestsRepo
		out   *bytes.Buffer
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, m, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(db.Close)
		mock = m

		out = &bytes.Buffer{}
		log := logrus.New()
		log.SetOutput(out)

		local = storage.NewLocalTestsRepo(filepath.Join(GinkgoT().TempDir(), "tests-db.json"))
		repo = storage.NewFallbackTestsRepo(storage.NewSQLStore(db, storage.DialectSQLite, 2), local, log)
	})

	It("should mark database results", func() {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COALESCE").WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
		mock.ExpectExec("INSERT INTO test_versions").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		v, err := repo.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Storage).To(Equal(domain.StorageDB))
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("should save locally when the database fails", func() {
		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		v, err := repo.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Storage).To(Equal(domain.StorageLocal))
		Expect(out.String()).To(ContainSubstring("connection refused"))

		stored, err := local.GetLatest(ctx, "login")
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Version).To(Equal(1))
	})

	It("should read locally when the database fails", func() {
		_, err := local.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		mock.ExpectQuery("FROM test_versions").WillReturnError(errors.New("connection reset"))

		v, err := repo.GetLatest(ctx, "login")
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Storage).To(Equal(domain.StorageLocal))
	})

	It("should not fall back when the database has no such test", func() {
		_, err := local.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		mock.ExpectQuery("FROM test_versions").
			WillReturnRows(sqlmock.NewRows([]string{"test_id", "version", "definition", "created_at"}))

		v, err := repo.GetLatest(ctx, "login")
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(BeNil())
	})

	It("should list locally when the database fails", func() {
		_, err := local.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		mock.ExpectQuery("SELECT t.test_id").WillReturnError(errors.New("connection reset"))

		list, err := repo.ListLatest(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Storage).To(Equal(domain.StorageLocal))
	})
})

var _ = Describe("FallbackReportsRepo", func() {
	It("should save and delete locally when the database fails", func() {
		ctx := context.Background()
		db, mock, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(db.Close)
		log := logrus.New()
		log.SetOutput(&bytes.Buffer{})

		local := storage.NewLocalReportsRepo(filepath.Join(GinkgoT().TempDir(), "reports-db.json"), 2)
		repo := storage.NewFallbackReportsRepo(storage.NewSQLStore(db, storage.DialectSQLite, 2), local, log)

		mock.ExpectBegin().WillReturnError(errors.New("down"))
		_, err = repo.SaveReport(ctx, runReport("r1", base, "login"))
		Expect(err).ToNot(HaveOccurred())

		mock.ExpectQuery("FROM run_reports").WillReturnError(errors.New("down"))
		list, err := repo.ListReports(ctx, 10)
		Expect(err).ToNot(HaveOccurred())
		Expect(reportIDs(list)).To(Equal([]string{"r1"}))

		mock.ExpectExec("DELETE FROM run_reports").WillReturnError(errors.New("down"))
		deleted, err := repo.DeleteReport(ctx, "r1")
		Expect(err).ToNot(HaveOccurred())
		Expect(deleted).To(BeTrue())
	})
})

var _ = Describe("Open", func() {
	var (
		ctx context.Context
		dir string
		log *logrus.Logger
		cfg config.StorageConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		log = logrus.New()
		log.SetOutput(&bytes.Buffer{})
		cfg = config.DefaultConfig().Storage
	})

	It("should use the local files by default", func() {
		repos, err := storage.Open(ctx, cfg, dir, log)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(repos.Close)
		Expect(repos.Backend).To(Equal("local"))

		v, err := repos.Tests.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Storage).To(Equal(domain.StorageLocal))
		Expect(filepath.Join(dir, cfg.LocalFile)).To(BeAnExistingFile())
	})

	It("should open SQLite relative to the work dir", func() {
		cfg.Driver = "sqlite"
		repos, err := storage.Open(ctx, cfg, dir, log)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(repos.Close)
		Expect(repos.Backend).To(Equal("sqlite"))

		v, err := repos.Tests.SaveNewVersion(ctx, "login", definition("Login", "/"))
		Expect(err).ToNot(HaveOccurred())
		Expect(v.Storage).To(Equal(domain.StorageDB))
		Expect(filepath.Join(dir, cfg.DSN)).To(BeAnExistingFile())

		_, err = repos.Reports.SaveReport(ctx, runReport("r1", base, "login"))
		Expect(err).ToNot(HaveOccurred())
		got, err := repos.Reports.GetReport(ctx, "r1")
		Expect(err).ToNot(HaveOccurred())
		Expect(got).ToNot(BeNil())
	})

	It("should reject an unknown driver", func() {
		cfg.Driver = "mongo"
		_, err := storage.Open(ctx, cfg, dir, log)
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver mongo")))
	})
})
