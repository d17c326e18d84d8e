package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signalled(w *Watcher) bool {
	select {
	case _, ok := <-w.C():
		return ok
	default:
		return false
	}
}

func TestBus_PublishSignalsMatchingWatchers(t *testing.T) {
	bus := New()
	defer bus.Close()

	md5 := bus.Watch(KeyOf(LibraryItemMD5, "abc"))
	other := bus.Watch(KeyOf(LibraryItemMD5, "def"))

	bus.Publish(Tx{ID: 1, Datoms: []Datom{{Entity: 10, Attr: LibraryItemMD5, Value: "abc", Added: true}}})

	assert.True(t, signalled(md5))
	assert.False(t, signalled(other))
}

func TestBus_SignalsCoalesce(t *testing.T) {
	bus := New()
	defer bus.Close()

	w := bus.Watch(KeyOf(LoadoutItemParent, 5))
	for i := 0; i < 10; i++ {
		bus.Publish(Tx{ID: int64(i), Datoms: []Datom{{Entity: 1, Attr: LoadoutItemParent, Value: "5", Added: true}}})
	}

	assert.True(t, signalled(w))
	assert.False(t, signalled(w), "pending signals should coalesce into one")
}

func TestWatcher_SetKeys(t *testing.T) {
	bus := New()
	defer bus.Close()

	w := bus.Watch(KeyOf(LibraryItemFileMetadata, 1))
	w.SetKeys(KeyOf(LoadoutItemLibraryItem, 42))

	bus.Publish(Tx{Datoms: []Datom{{Attr: LibraryItemFileMetadata, Value: "1"}}})
	assert.False(t, signalled(w))

	bus.Publish(Tx{Datoms: []Datom{{Attr: LoadoutItemLibraryItem, Value: "42"}}})
	assert.True(t, signalled(w))
}

func TestWatcher_Close(t *testing.T) {
	bus := New()
	w := bus.Watch(KeyOf(EntryRevision, 1))
	require.Equal(t, 1, bus.WatcherCount())

	w.Close()
	w.Close()
	assert.Equal(t, 0, bus.WatcherCount())

	_, ok := <-w.C()
	assert.False(t, ok)
}

func TestBus_PublishEmptyTx(t *testing.T) {
	bus := New()
	defer bus.Close()

	w := bus.Watch(KeyOf(EntryRevision, 1))
	bus.Publish(Tx{})
	assert.False(t, signalled(w))
}
