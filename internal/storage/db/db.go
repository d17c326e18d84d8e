package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/DonovanMods/lmm-collections/internal/storage/feed"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection. Reads go straight to the pool;
// writes are serialized through Update and published to the feed after commit.
type DB struct {
	*sql.DB
	reader

	feed    *feed.Bus
	logger  zerolog.Logger
	writeMu sync.Mutex
	txSeq   atomic.Int64
}

// Option is a functional option for configuring the database.
type Option func(*DB)

// WithFeed sets the bus committed transactions are published to.
func WithFeed(bus *feed.Bus) Option {
	return func(d *DB) {
		d.feed = bus
	}
}

// WithLogger sets the logger for the database.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// New creates a new database connection and runs migrations
func New(path string, opts ...Option) (*DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	database := &DB{
		DB:     sqlDB,
		reader: reader{q: sqlDB},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(database)
	}
	if database.feed == nil {
		database.feed = feed.New(feed.WithLogger(database.logger))
	}

	if err := database.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return database, nil
}

// Feed returns the bus committed transactions are published to
func (d *DB) Feed() *feed.Bus {
	return d.feed
}

// TxCount returns the number of transactions that changed data since New
func (d *DB) TxCount() int64 {
	return d.txSeq.Load()
}

// Update runs fn inside a write transaction. Writes are serialized; the
// transaction's datoms are published as one batch after a successful commit.
// fn must only use tx; calling back into d would deadlock on :memory: databases.
func (d *DB) Update(ctx context.Context, fn func(tx *Tx) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	sqlTx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	tx := &Tx{reader: reader{q: sqlTx}, tx: sqlTx}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if !tx.dirty {
		return sqlTx.Rollback()
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	id := d.txSeq.Add(1)
	d.feed.Publish(feed.Tx{ID: id, Datoms: tx.datoms})
	d.logger.Debug().Int64("tx", id).Int("datoms", len(tx.datoms)).Msg("transaction committed")

	return nil
}

// Snapshot opens a read transaction so several lookups see the same state.
// The caller must Close it.
func (d *DB) Snapshot(ctx context.Context) (*Snapshot, error) {
	sqlTx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	return &Snapshot{reader: reader{q: sqlTx}, tx: sqlTx}, nil
}

// Snapshot is a consistent read-only view of the database
type Snapshot struct {
	reader
	tx *sql.Tx
}

// Close releases the snapshot
func (s *Snapshot) Close() error {
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return nil
}

// Tx is a write transaction. It records the datoms of every indexed
// attribute it touches.
type Tx struct {
	reader
	tx     *sql.Tx
	datoms []feed.Datom
	dirty  bool
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.dirty = true
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) assert(entity int64, attr feed.Attribute, value any) {
	t.datoms = append(t.datoms, feed.Datom{Entity: entity, Attr: attr, Value: fmt.Sprint(value), Added: true})
}

func (t *Tx) retract(entity int64, attr feed.Attribute, value any) {
	t.datoms = append(t.datoms, feed.Datom{Entity: entity, Attr: attr, Value: fmt.Sprint(value), Added: false})
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// reader implements every lookup against either the pool or a transaction
type reader struct {
	q queryer
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
