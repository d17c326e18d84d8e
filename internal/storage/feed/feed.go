// Package feed publishes committed store transactions to attribute-keyed watchers.
package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Attribute names an indexed store attribute.
type Attribute string

// Indexed attributes. Values are rendered with fmt.Sprint.
const (
	LibraryItemMD5          Attribute = "library_item/md5"
	LibraryItemFileMetadata Attribute = "library_item/file_metadata"
	LibraryItemFileName     Attribute = "library_item/file_name"
	LoadoutItemLibraryItem  Attribute = "loadout_item/library_item"
	LoadoutItemBundleEntry  Attribute = "loadout_item/bundle_entry"
	LoadoutItemParent       Attribute = "loadout_item/parent"
	CollectionGroupRevision Attribute = "collection_group/revision"
	EntryRevision           Attribute = "collection_entry/revision"
	EntryManualOnly         Attribute = "collection_entry/manual_only"
	RevisionCollection      Attribute = "collection_revision/collection"
)

// Datom is one asserted or retracted attribute value of an entity.
type Datom struct {
	Entity int64
	Attr   Attribute
	Value  string
	Added  bool
}

// Key identifies an (attribute, value) pair a watcher is interested in.
type Key struct {
	Attr  Attribute
	Value string
}

// KeyOf builds a Key from any value.
func KeyOf(attr Attribute, value any) Key {
	return Key{Attr: attr, Value: fmt.Sprint(value)}
}

// Key returns the datom's (attribute, value) pair.
func (d Datom) Key() Key {
	return Key{Attr: d.Attr, Value: d.Value}
}

// Tx is a committed transaction as seen by watchers. All datoms of a
// transaction are delivered together.
type Tx struct {
	ID        int64
	Timestamp time.Time
	Datoms    []Datom
}

// Watcher receives a signal whenever a committed transaction touches one of
// its keys. Signals coalesce: C has capacity one, so a slow reader sees at
// most one pending signal and must re-read the store.
type Watcher struct {
	bus  *Bus
	mu   sync.Mutex
	keys map[Key]struct{}
	ch   chan struct{}
}

// C returns the signal channel. It is closed when the watcher is closed.
func (w *Watcher) C() <-chan struct{} {
	return w.ch
}

// SetKeys replaces the watched key set.
func (w *Watcher) SetKeys(keys ...Key) {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	w.mu.Lock()
	w.keys = set
	w.mu.Unlock()
}

func (w *Watcher) matches(touched map[Key]struct{}) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k := range w.keys {
		if _, ok := touched[k]; ok {
			return true
		}
	}
	return false
}

func (w *Watcher) notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Close unregisters the watcher and closes its channel.
func (w *Watcher) Close() {
	w.bus.remove(w)
}

// Bus fans committed transactions out to watchers.
type Bus struct {
	mu       sync.RWMutex
	watchers map[*Watcher]struct{}
	logger   zerolog.Logger
}

// Option is a functional option for configuring the bus.
type Option func(*Bus)

// WithLogger sets the logger for the bus.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates a new bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		watchers: make(map[*Watcher]struct{}),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Watch registers a watcher for the given keys.
func (b *Bus) Watch(keys ...Key) *Watcher {
	w := &Watcher{
		bus: b,
		ch:  make(chan struct{}, 1),
	}
	w.SetKeys(keys...)

	b.mu.Lock()
	b.watchers[w] = struct{}{}
	b.mu.Unlock()

	return w
}

func (b *Bus) remove(w *Watcher) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.watchers[w]; !ok {
		return
	}
	delete(b.watchers, w)
	close(w.ch)
}

// Publish signals every watcher whose keys intersect the transaction. It
// never blocks on slow watchers.
func (b *Bus) Publish(tx Tx) {
	if len(tx.Datoms) == 0 {
		return
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}

	touched := make(map[Key]struct{}, len(tx.Datoms))
	for _, d := range tx.Datoms {
		touched[d.Key()] = struct{}{}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	notified := 0
	for w := range b.watchers {
		if w.matches(touched) {
			w.notify()
			notified++
		}
	}

	b.logger.Debug().
		Int64("tx", tx.ID).
		Int("datoms", len(tx.Datoms)).
		Int("watchers", notified).
		Msg("transaction published")
}

// WatcherCount returns the number of registered watchers.
func (b *Bus) WatcherCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.watchers)
}

// Close unregisters all watchers and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for w := range b.watchers {
		close(w.ch)
	}
	b.watchers = make(map[*Watcher]struct{})
}
