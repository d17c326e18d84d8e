package collections_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/collections/mocks"
	"github.com/DonovanMods/lmm-collections/internal/core"
	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	downloadsDir = "/home/user/.local/share/lmm/Downloads"
	gameID       = "skyrimspecialedition"
)

type fixture struct {
	db      *db.DB
	fs      afero.Fs
	folder  *downloads.Folder
	library *library.Service
	catalog *mocks.MockCatalog
	opener  *mocks.MockOpener
	d       *collections.Downloader
}

// newFixture wires a Downloader over an in-memory store and filesystem. HTTP
// goes through the real downloader so tests can point entries at httptest
// servers.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	ctrl := gomock.NewController(t)
	fs := afero.NewMemMapFs()
	f := &fixture{
		db:      database,
		fs:      fs,
		folder:  downloads.New(fs, downloadsDir),
		library: library.New(database, fs),
		catalog: mocks.NewMockCatalog(ctrl),
		opener:  mocks.NewMockOpener(ctrl),
	}
	f.d = collections.New(database, f.library, f.folder, core.NewDownloader(nil, fs), f.catalog, f.opener,
		collections.WithTempDir("/tmp/lmm"), collections.WithMaxParallel(2))
	return f
}

// testContext returns a context cancelled before the store is closed
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// seed stores a revision with the given entries, in order
func seed(t *testing.T, database *db.DB, number int, entries ...domain.Entry) (domain.CollectionRevision, []domain.Entry) {
	t.Helper()
	ctx := context.Background()

	var rev domain.CollectionRevision
	err := database.Update(ctx, func(tx *db.Tx) error {
		c := domain.Collection{Slug: "tcoll1", Name: "Test Collection", GameID: gameID}
		if err := tx.UpsertCollection(ctx, &c); err != nil {
			return err
		}
		rev = domain.CollectionRevision{CollectionID: c.ID, RevisionNumber: number, Collection: c}
		if err := tx.CreateRevision(ctx, &rev); err != nil {
			return err
		}
		for i := range entries {
			entries[i].RevisionID = rev.ID
			if entries[i].Kind == domain.EntryRemote {
				if err := tx.UpsertFileMetadata(ctx, &entries[i].FileMetadata); err != nil {
					return err
				}
			}
			if err := tx.InsertEntry(ctx, &entries[i], i); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return rev, entries
}

func remoteEntry(name string, itemType domain.ItemType, modID, fileID int, fileName string) domain.Entry {
	return domain.Entry{
		Name: name,
		Kind: domain.EntryRemote,
		Type: itemType,
		FileMetadata: domain.FileMetadata{
			GameID: gameID, ModID: modID, FileID: fileID, Name: fileName,
		},
	}
}

func externalEntry(name string, itemType domain.ItemType, uri string, content []byte) domain.Entry {
	return domain.Entry{
		Name: name,
		Kind: domain.EntryExternal,
		Type: itemType,
		URI:  uri,
		MD5:  md5Hex(content),
		Size: int64(len(content)),
	}
}

func bundledEntry(name string) domain.Entry {
	return domain.Entry{Name: name, Kind: domain.EntryBundled, Type: domain.ItemRequired, BundleRef: "bundled/" + name}
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// archive returns n bytes starting with magic, filled with a marker so
// different archives hash differently
func archive(magic []byte, n int, marker byte) []byte {
	b := make([]byte, n)
	copy(b, magic)
	for i := len(magic); i < n; i++ {
		b[i] = marker
	}
	return b
}

var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

func addLibraryItem(t *testing.T, f *fixture, fileName string, content []byte, metadataID int64) *domain.LibraryItem {
	t.Helper()
	item, _, err := f.library.Add(context.Background(), library.Hashed{
		FileName:       fileName,
		MD5:            md5Hex(content),
		Size:           int64(len(content)),
		FileMetadataID: metadataID,
	})
	require.NoError(t, err)
	return item
}

func createGroup(t *testing.T, database *db.DB, revisionID int64) *domain.CollectionGroup {
	t.Helper()
	ctx := context.Background()
	var group domain.CollectionGroup
	err := database.Update(ctx, func(tx *db.Tx) error {
		loadout := domain.Loadout{Name: "Default", GameID: gameID}
		if err := tx.CreateLoadout(ctx, &loadout); err != nil {
			return err
		}
		group.LoadoutItem = domain.LoadoutItem{LoadoutID: loadout.ID, Name: "Test Collection", RevisionID: revisionID}
		return tx.InsertLoadoutItem(ctx, &group.LoadoutItem)
	})
	require.NoError(t, err)
	return &group
}

func install(t *testing.T, database *db.DB, group *domain.CollectionGroup, item domain.LoadoutItem) domain.LoadoutItem {
	t.Helper()
	ctx := context.Background()
	item.LoadoutID = group.LoadoutID
	item.ParentID = group.ID
	require.NoError(t, database.Update(ctx, func(tx *db.Tx) error {
		return tx.InsertLoadoutItem(ctx, &item)
	}))
	return item
}

// next waits for the next value on a stream
func next[T any](t *testing.T, s *collections.Stream[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.C():
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream value")
	}
	var zero T
	return zero
}

// quiet asserts nothing is emitted for a short while
func quiet[T any](t *testing.T, s *collections.Stream[T]) {
	t.Helper()
	select {
	case v, ok := <-s.C():
		if ok {
			t.Fatalf("unexpected stream value %v", v)
		}
	case <-time.After(100 * time.Millisecond):
	}
}
