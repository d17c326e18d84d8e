package collections_test

import (
	"context"
	"testing"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Bundled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rev, entries := seed(t, f.db, 1, bundledEntry("patch"))
	bundled := entries[0]

	status, err := collections.Resolve(ctx, f.db, bundled, nil)
	require.NoError(t, err)
	assert.True(t, status.IsBundled())

	group := createGroup(t, f.db, rev.ID)
	status, err = collections.Resolve(ctx, f.db, bundled, group)
	require.NoError(t, err)
	assert.True(t, status.IsBundled(), "not installed in the group yet")

	installed := install(t, f.db, group, domain.LoadoutItem{Name: "patch", BundleEntryID: bundled.ID})
	status, err = collections.Resolve(ctx, f.db, bundled, group)
	require.NoError(t, err)
	require.True(t, status.IsInstalled())
	assert.Equal(t, installed.ID, status.LoadoutItem.ID)
}

func TestResolve_Remote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rev, entries := seed(t, f.db, 1, remoteEntry("SkyUI", domain.ItemRequired, 12604, 35407, "SkyUI_5_2_SE"))
	entry := entries[0]

	status, err := collections.Resolve(ctx, f.db, entry, nil)
	require.NoError(t, err)
	assert.True(t, status.IsNotDownloaded())

	item := addLibraryItem(t, f, "SkyUI_5_2_SE.7z", []byte("skyui"), entry.FileMetadata.ID)
	status, err = collections.Resolve(ctx, f.db, entry, nil)
	require.NoError(t, err)
	require.True(t, status.IsInLibrary())
	assert.Equal(t, item.ID, status.LibraryItem.ID)

	group := createGroup(t, f.db, rev.ID)
	status, err = collections.Resolve(ctx, f.db, entry, group)
	require.NoError(t, err)
	assert.True(t, status.IsInLibrary())

	installed := install(t, f.db, group, domain.LoadoutItem{Name: "SkyUI", LibraryItemID: item.ID})
	status, err = collections.Resolve(ctx, f.db, entry, group)
	require.NoError(t, err)
	require.True(t, status.IsInstalled())
	assert.Equal(t, installed.ID, status.LoadoutItem.ID)

	// Without an install context the entry is never Installed
	status, err = collections.Resolve(ctx, f.db, entry, nil)
	require.NoError(t, err)
	assert.True(t, status.IsInLibrary())
}

func TestResolve_External(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("external archive")
	_, entries := seed(t, f.db, 1, externalEntry("Ext", domain.ItemRequired, "https://example.com/e.zip", content))

	status, err := collections.Resolve(ctx, f.db, entries[0], nil)
	require.NoError(t, err)
	assert.True(t, status.IsNotDownloaded())

	item := addLibraryItem(t, f, "e.zip", content, 0)
	status, err = collections.Resolve(ctx, f.db, entries[0], nil)
	require.NoError(t, err)
	require.True(t, status.IsInLibrary())
	assert.Equal(t, item.ID, status.LibraryItem.ID)
}

func TestResolve_InstalledElsewhereIsNotInstalled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("external archive")
	rev, entries := seed(t, f.db, 1, externalEntry("Ext", domain.ItemRequired, "https://example.com/e.zip", content))
	item := addLibraryItem(t, f, "e.zip", content, 0)

	groupA := createGroup(t, f.db, rev.ID)
	groupB := createGroup(t, f.db, rev.ID)
	install(t, f.db, groupA, domain.LoadoutItem{Name: "Ext", LibraryItemID: item.ID})

	status, err := collections.Resolve(ctx, f.db, entries[0], groupB)
	require.NoError(t, err)
	assert.True(t, status.IsInLibrary())
}

func TestResolve_FirstInstalledItemWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("external archive")
	rev, entries := seed(t, f.db, 1, externalEntry("Ext", domain.ItemRequired, "https://example.com/e.zip", content))
	item := addLibraryItem(t, f, "e.zip", content, 0)
	group := createGroup(t, f.db, rev.ID)

	first := install(t, f.db, group, domain.LoadoutItem{Name: "copy 1", LibraryItemID: item.ID})
	install(t, f.db, group, domain.LoadoutItem{Name: "copy 2", LibraryItemID: item.ID})

	for range 3 {
		status, err := collections.Resolve(ctx, f.db, entries[0], group)
		require.NoError(t, err)
		require.True(t, status.IsInstalled())
		assert.Equal(t, first.ID, status.LoadoutItem.ID)
	}
}

func TestResolve_AgreesWithSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	content := []byte("external archive")
	_, entries := seed(t, f.db, 1, externalEntry("Ext", domain.ItemRequired, "https://example.com/e.zip", content))
	addLibraryItem(t, f, "e.zip", content, 0)

	live, err := collections.Resolve(ctx, f.db, entries[0], nil)
	require.NoError(t, err)

	snap, err := f.db.Snapshot(ctx)
	require.NoError(t, err)
	fromSnap, err := collections.Resolve(ctx, snap, entries[0], nil)
	require.NoError(t, snap.Close())
	require.NoError(t, err)

	assert.True(t, live.Equal(fromSnap))
}

func TestResolve_Monotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, entries := seed(t, f.db, 1, remoteEntry("SkyUI", domain.ItemRequired, 1, 2, "SkyUI"))
	entry := entries[0]

	rank := func() int {
		status, err := collections.Resolve(ctx, f.db, entry, nil)
		require.NoError(t, err)
		return status.Rank()
	}

	prev := rank()
	for i, content := range [][]byte{[]byte("a"), []byte("b"), []byte("c")} {
		metadataID := int64(0)
		if i > 0 {
			metadataID = entry.FileMetadata.ID
		}
		addLibraryItem(t, f, "file", content, metadataID)
		got := rank()
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 1, prev)
}

func TestResolve_UnsupportedKind(t *testing.T) {
	f := newFixture(t)
	_, err := collections.Resolve(context.Background(), f.db, domain.Entry{ID: 9}, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedEntry)
}
