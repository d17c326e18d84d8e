package collections

import (
	"context"
	"sync"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/feed"
)

// Stream is a live, latest-only view of a derived value. C yields the
// initial value first and then every change; a reader that falls behind
// only ever sees the newest value. C is closed once the observing context
// is done.
type Stream[T any] struct {
	ch chan T

	mu      sync.Mutex
	current T
}

func newStream[T any](initial T) *Stream[T] {
	s := &Stream[T]{ch: make(chan T, 1), current: initial}
	s.ch <- initial
	return s
}

// C returns the value channel
func (s *Stream[T]) C() <-chan T {
	return s.ch
}

// Current returns the last value emitted
func (s *Stream[T]) Current() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// emit replaces any unread value. Only the observing goroutine sends, so
// after the drain there is always room.
func (s *Stream[T]) emit(v T) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()

	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// StatusStream carries an entry's download status
type StatusStream = Stream[domain.Status]

// evalFunc computes a value and the store keys it depends on
type evalFunc[T any] func(ctx context.Context, group *domain.CollectionGroup) (T, []feed.Key, error)

// observe evaluates once synchronously, then re-evaluates whenever a
// committed transaction touches one of the returned keys or the group
// changes. Values equal to the last emitted one are dropped. Evaluation
// errors keep the last value; fallback is used when the first one fails.
func observe[T any](ctx context.Context, d *Downloader, group *domain.CollectionGroup, groups <-chan *domain.CollectionGroup, fallback T, eval evalFunc[T], equal func(a, b T) bool) *Stream[T] {
	watcher := d.db.Feed().Watch()
	var watched []feed.Key

	// A commit between eval and SetKeys would go unnoticed, so evaluate
	// again whenever the key set moved.
	evaluate := func() (T, error) {
		for {
			value, keys, err := eval(ctx, group)
			if err != nil || sameKeys(keys, watched) {
				return value, err
			}
			watcher.SetKeys(keys...)
			watched = keys
		}
	}

	value, err := evaluate()
	if err != nil {
		d.logger.Debug().Err(err).Msg("initial evaluation failed")
		value = fallback
	}

	stream := newStream(value)
	d.metrics.ObserverStarted()

	go func() {
		defer func() {
			watcher.Close()
			close(stream.ch)
			d.metrics.ObserverStopped()
		}()

		last := value
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.C():
				if !ok {
					return
				}
			case g, ok := <-groups:
				if !ok {
					groups = nil
					continue
				}
				group = g
			}

			next, err := evaluate()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				d.logger.Debug().Err(err).Msg("re-evaluation failed, keeping last value")
				continue
			}
			if equal(last, next) {
				continue
			}
			last = next
			stream.emit(next)
		}
	}()

	return stream
}

func sameKeys(a, b []feed.Key) bool {
	set := make(map[feed.Key]struct{}, len(b))
	for _, k := range b {
		set[k] = struct{}{}
	}
	for _, k := range a {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	seen := make(map[feed.Key]struct{}, len(a))
	for _, k := range a {
		seen[k] = struct{}{}
	}
	return len(seen) == len(set)
}

// GetStatusObservable streams an entry's status. group is the install
// context at subscription time and groups delivers later changes to it;
// either may be nil.
func (d *Downloader) GetStatusObservable(ctx context.Context, entry domain.Entry, group *domain.CollectionGroup, groups <-chan *domain.CollectionGroup) *StatusStream {
	eval := func(ctx context.Context, group *domain.CollectionGroup) (domain.Status, []feed.Key, error) {
		status, err := Resolve(ctx, d.db, entry, group)
		if err != nil {
			return status, nil, err
		}
		return status, watchKeys(entry, status), nil
	}
	return observe(ctx, d, group, groups, domain.NotDownloaded(), eval, domain.Status.Equal)
}

// IsCollectionInstalledObservable streams whether every entry of the revision
// matching itemType is installed in the group. With no matching entries it
// reports whether there is a group at all.
func (d *Downloader) IsCollectionInstalledObservable(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType, group *domain.CollectionGroup, groups <-chan *domain.CollectionGroup) (*Stream[bool], error) {
	entries, err := d.GetItems(ctx, revision.ID, itemType)
	if err != nil {
		return nil, err
	}

	eval := func(ctx context.Context, group *domain.CollectionGroup) (bool, []feed.Key, error) {
		if len(entries) == 0 {
			return group != nil, nil, nil
		}
		all := true
		var keys []feed.Key
		for _, e := range entries {
			status, err := Resolve(ctx, d.db, e, group)
			if err != nil {
				return false, nil, err
			}
			all = all && status.IsInstalled()
			keys = append(keys, watchKeys(e, status)...)
		}
		return all, keys, nil
	}
	return observe(ctx, d, group, groups, false, eval, equalComparable[bool]), nil
}

// DownloadedItemCountObservable streams how many entries of the revision
// matching itemType are downloaded. Bundled entries do not count.
func (d *Downloader) DownloadedItemCountObservable(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType) *Stream[int] {
	eval := func(ctx context.Context, _ *domain.CollectionGroup) (int, []feed.Key, error) {
		keys := []feed.Key{feed.KeyOf(feed.EntryRevision, revision.ID)}
		entries, err := d.GetItems(ctx, revision.ID, itemType)
		if err != nil {
			return 0, nil, err
		}
		count := 0
		for _, e := range entries {
			status, err := Resolve(ctx, d.db, e, nil)
			if err != nil {
				return 0, nil, err
			}
			if status.IsDownloaded() && !status.IsBundled() {
				count++
			}
			keys = append(keys, watchKeys(e, status)...)
		}
		return count, keys, nil
	}
	return observe(ctx, d, nil, nil, 0, eval, equalComparable[int])
}

// GetCollectionGroupObservable streams the group a revision is installed as
// in a loadout, nil while there is none. A zero loadoutID always yields nil.
// Its C can feed the groups argument of the other observers.
func (d *Downloader) GetCollectionGroupObservable(ctx context.Context, revision domain.CollectionRevision, loadoutID int64) *Stream[*domain.CollectionGroup] {
	eval := func(ctx context.Context, _ *domain.CollectionGroup) (*domain.CollectionGroup, []feed.Key, error) {
		keys := []feed.Key{feed.KeyOf(feed.CollectionGroupRevision, revision.ID)}
		group, err := d.GetCollectionGroup(ctx, revision.ID, loadoutID)
		return group, keys, err
	}
	return observe(ctx, d, nil, nil, (*domain.CollectionGroup)(nil), eval, sameGroup)
}

func sameGroup(a, b *domain.CollectionGroup) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func equalComparable[T comparable](a, b T) bool {
	return a == b
}
