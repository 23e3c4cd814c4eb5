// Package store persists the resource history to sqlite.
//
// Only resource samples are stored. At start-up the history is loaded and
// used to seed the world's resource series; while running, the Recorder
// observer appends every new sample.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/justapithecus/logbook/log"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = "file::memory:"

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 200

// ResourceSample is the stored form of one resource observation.
// (resource, time) is unique; re-appending a sample is a no-op.
type ResourceSample struct {
	ID        uint      `gorm:"primaryKey"`
	Resource  int       `gorm:"not null;uniqueIndex:idx_resource_time"`
	Time      time.Time `gorm:"not null;uniqueIndex:idx_resource_time;index"`
	Value     int       `gorm:"not null"`
	SessionID string    `gorm:"size:64"`
}

// TableName pins the table name.
func (ResourceSample) TableName() string { return "resource_samples" }

// Options configures Open.
type Options struct {
	// SessionID is stamped on appended rows.
	SessionID string
	// Logger receives gorm's warnings and errors.
	Logger *log.Logger
	// Debug logs every statement.
	Debug bool
}

// Store is the resource history database.
type Store struct {
	db        *gorm.DB
	sessionID string
}

// Open opens (creating if needed) the database at dsn and migrates it.
func Open(dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("store: dsn is required")
	}
	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(opts.Logger).LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	if strings.Contains(dsn, ":memory:") {
		// each pooled connection would otherwise get its own database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("store: open %s: %w", dsn, err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&ResourceSample{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db, sessionID: opts.SessionID}, nil
}

// Append stores samples, skipping any already present.
func (s *Store) Append(ctx context.Context, samples []types.ResourceSample) error {
	if len(samples) == 0 {
		return nil
	}
	rows := make([]ResourceSample, 0, len(samples))
	for _, smp := range samples {
		if !smp.Resource.Valid() {
			return fmt.Errorf("store: invalid resource %d", smp.Resource)
		}
		rows = append(rows, ResourceSample{
			Resource:  int(smp.Resource),
			Time:      smp.Time.UTC(),
			Value:     smp.Value,
			SessionID: s.sessionID,
		})
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Load returns samples at or after since, oldest first. A zero since loads
// everything; limit > 0 keeps only the newest limit rows.
func (s *Store) Load(ctx context.Context, since time.Time, limit int) ([]types.ResourceSample, error) {
	q := s.db.WithContext(ctx).Model(&ResourceSample{})
	if !since.IsZero() {
		q = q.Where("time >= ?", since.UTC())
	}
	q = q.Order("time DESC").Order("resource ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []ResourceSample
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}

	out := make([]types.ResourceSample, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = types.ResourceSample{
			Resource: types.Resource(r.Resource),
			Time:     r.Time.UTC(),
			Value:    r.Value,
		}
	}
	return out, nil
}

// Count returns the number of stored samples.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ResourceSample{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Prune deletes samples older than before and returns how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("time < ?", before.UTC()).Delete(&ResourceSample{})
	if res.Error != nil {
		return 0, fmt.Errorf("store: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Recorder is a world observer that appends new resource samples.
// Wrap it with world.Async; it performs a database write per change.
type Recorder struct {
	store   *Store
	timeout time.Duration
}

// NewRecorder returns a Recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s, timeout: 5 * time.Second}
}

// OnContextChanged stores the samples of a resources change.
func (r *Recorder) OnContextChanged(c world.Change) error {
	if c.Aggregate != world.AggregateResources || len(c.Samples) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.store.Append(ctx, c.Samples)
}

var _ world.Observer = (*Recorder)(nil)
