package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// ErrMigration wraps every failure of the open-time migration.
var ErrMigration = errors.New("cache migration failed")

// ContentSource yields the authoritative question definitions.
type ContentSource interface {
	Definitions(ctx context.Context) ([]domain.Question, error)
}

// ContentFunc adapts a function to ContentSource.
type ContentFunc func(ctx context.Context) ([]domain.Question, error)

func (f ContentFunc) Definitions(ctx context.Context) ([]domain.Question, error) { return f(ctx) }

// Options tune Open.
type Options struct {
	// TargetVersion is the schema version this build expects.
	TargetVersion int
	Logger        logrus.FieldLogger
}

// Store is an opened cache. It only exists once migration has completed.
type Store struct {
	Backend
	version int
	report  Report
}

// Open brings backend up to opts.TargetVersion, migrating content from src
// when the stored version is older, and returns the usable store.
func Open(ctx context.Context, backend Backend, src ContentSource, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.TargetVersion <= 0 {
		opts.TargetVersion = 1
	}

	stored, err := backend.SchemaVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema version: %v", ErrMigration, err)
	}
	s := &Store{Backend: backend, version: stored}
	if stored >= opts.TargetVersion {
		log.WithField("version", stored).Debug("cache schema up to date")
		return s, nil
	}

	report, err := migrate(ctx, backend, src, stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMigration, err)
	}
	if err := backend.SetSchemaVersion(ctx, opts.TargetVersion); err != nil {
		return nil, fmt.Errorf("%w: write schema version: %v", ErrMigration, err)
	}
	s.version = opts.TargetVersion
	s.report = report

	log.WithFields(logrus.Fields{
		"from":      stored,
		"to":        opts.TargetVersion,
		"inserted":  report.Inserted,
		"updated":   report.Updated,
		"untouched": report.Untouched,
		"orphaned":  report.Orphaned,
	}).Info("cache schema migrated")
	return s, nil
}

// Version is the schema version the store was opened at.
func (s *Store) Version() int { return s.version }

// LastMigration reports what the open-time migration changed, if it ran.
func (s *Store) LastMigration() Report { return s.report }
