// Package store persists run results so throughput can be tracked across runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/benchreport/pkg/config"
	"github.com/ethpandaops/benchreport/pkg/results"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Store provides persistence for benchmark runs.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// SaveRun stores a run result, replacing any run with the same ID.
	SaveRun(ctx context.Context, result *results.RunResult) error
	// ListRuns returns the most recent runs without their entries.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// GetRun returns a run with its entries ordered by rank.
	GetRun(ctx context.Context, runID string) (*Run, error)
	// JobHistory returns the throughput of job on executable, newest first.
	JobHistory(ctx context.Context, job, executable string, limit int) ([]HistoryPoint, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.StoreConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.StoreConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var (
		dialector gorm.Dialector
		err       error
	)

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	s.db, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer, and each ":memory:" connection is its
	// own database.
	if s.cfg.Driver == "sqlite" {
		sqlDB, err := s.db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(
		&Run{},
		&RunEntry{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) SaveRun(ctx context.Context, result *results.RunResult) error {
	run := &Run{
		RunID:        result.RunID,
		Timestamp:    result.Timestamp,
		TimestampEnd: result.TimestampEnd,
		ClockMHz:     result.ClockMHz,
		Entries:      make([]RunEntry, 0, len(result.Entries)),
	}

	if result.System != nil {
		run.Hostname = result.System.Hostname
	}

	for _, e := range result.Entries {
		run.Entries = append(run.Entries, RunEntry{
			Job:         e.Job,
			Executable:  e.Executable,
			RealSeconds: e.Real,
			Iterations:  e.Iterations,
			IPS:         e.IPS,
			Rank:        e.Rank,
			Slowdown:    e.Slowdown,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Run

		err := tx.Where("run_id = ?", result.RunID).First(&existing).Error

		switch {
		case err == nil:
			if err := tx.Where("run_pk = ?", existing.ID).Delete(&RunEntry{}).Error; err != nil {
				return fmt.Errorf("deleting previous entries: %w", err)
			}

			if err := tx.Delete(&existing).Error; err != nil {
				return fmt.Errorf("deleting previous run: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("looking up run: %w", err)
		}

		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", result.RunID, err)
	}

	s.log.WithFields(logrus.Fields{
		"run_id":  result.RunID,
		"entries": len(run.Entries),
	}).Debug("Run saved")

	return nil
}

func (s *store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run

	q := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

func (s *store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run

	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank ASC").Order("id ASC")
		}).
		Where("run_id = ?", runID).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}

		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	return &run, nil
}

func (s *store) JobHistory(
	ctx context.Context,
	job, executable string,
	limit int,
) ([]HistoryPoint, error) {
	var points []HistoryPoint

	q := s.db.WithContext(ctx).
		Model(&RunEntry{}).
		Select("runs.run_id, runs.timestamp, run_entries.ips, run_entries.real_seconds, run_entries.iterations").
		Joins("JOIN runs ON runs.id = run_entries.run_pk").
		Where("run_entries.job = ? AND run_entries.executable = ?", job, executable).
		Order("runs.timestamp DESC")

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(&points).Error; err != nil {
		return nil, fmt.Errorf("querying history of %s on %s: %w", job, executable, err)
	}

	return points, nil
}
