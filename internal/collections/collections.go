// Package collections reconciles collection revisions with the library:
// it resolves and observes per-entry download status, fetches missing
// entries and rescues archives already sitting in the downloads folder.
package collections

import (
	"context"
	"os"
	"path/filepath"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/metrics"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"

	"github.com/rs/zerolog"
)

// DefaultMaxParallel is used when neither the caller nor the options set a limit
const DefaultMaxParallel = 4

// Downloader ties a collection's entries to the library
type Downloader struct {
	db      *db.DB
	library *library.Service
	folder  *downloads.Folder
	fetcher Fetcher
	catalog Catalog
	opener  Opener

	runner      *jobs.Runner
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	maxParallel int
	tempDir     string
}

// Option is a functional option for configuring the Downloader.
type Option func(*Downloader)

// WithLogger sets the logger for the Downloader.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithRunner sets the runner download jobs are started on.
func WithRunner(runner *jobs.Runner) Option {
	return func(d *Downloader) {
		d.runner = runner
	}
}

// WithMetrics sets the collectors downloads and rescans are recorded in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Downloader) {
		d.metrics = m
	}
}

// WithMaxParallel sets the default number of concurrent fetches.
func WithMaxParallel(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxParallel = n
		}
	}
}

// WithTempDir sets where in-flight downloads are written.
func WithTempDir(dir string) Option {
	return func(d *Downloader) {
		d.tempDir = dir
	}
}

// New creates a Downloader. The catalog and opener are only needed for
// remote entries.
func New(database *db.DB, lib *library.Service, folder *downloads.Folder, fetcher Fetcher, catalog Catalog, opener Opener, opts ...Option) *Downloader {
	d := &Downloader{
		db:          database,
		library:     lib,
		folder:      folder,
		fetcher:     fetcher,
		catalog:     catalog,
		opener:      opener,
		logger:      zerolog.Nop(),
		maxParallel: DefaultMaxParallel,
		tempDir:     filepath.Join(os.TempDir(), "lmm"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runner == nil {
		d.runner = jobs.NewRunner(jobs.WithLogger(d.logger))
	}
	return d
}

// Folder returns the downloads folder rescans read from
func (d *Downloader) Folder() *downloads.Folder {
	return d.folder
}

// GetStatus resolves an entry against the current state of the store. A nil
// group never yields Installed.
func (d *Downloader) GetStatus(ctx context.Context, entry domain.Entry, group *domain.CollectionGroup) (domain.Status, error) {
	return Resolve(ctx, d.db, entry, group)
}
