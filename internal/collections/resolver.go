package collections

import (
	"context"
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/feed"
)

// Resolve classifies an entry against the store. With a nil group the
// result is never Installed. When several library or loadout items qualify,
// the one the store enumerates first wins.
func Resolve(ctx context.Context, r Reader, entry domain.Entry, group *domain.CollectionGroup) (domain.Status, error) {
	switch entry.Kind {
	case domain.EntryBundled:
		if group == nil {
			return domain.Bundled(), nil
		}
		installed, err := r.InstalledBundle(ctx, entry.ID, group.ID, group.LoadoutID)
		if err != nil {
			return domain.NotDownloaded(), fmt.Errorf("resolving bundled entry %d: %w", entry.ID, err)
		}
		if installed != nil {
			return domain.Installed(*installed), nil
		}
		return domain.Bundled(), nil

	case domain.EntryRemote, domain.EntryExternal:
		item, err := libraryItemFor(ctx, r, entry)
		if err != nil {
			return domain.NotDownloaded(), err
		}
		if item == nil {
			return domain.NotDownloaded(), nil
		}
		return resolveLibraryItem(ctx, r, *item, group)

	default:
		return domain.NotDownloaded(), fmt.Errorf("entry %d: %w", entry.ID, domain.ErrUnsupportedEntry)
	}
}

func libraryItemFor(ctx context.Context, r Reader, entry domain.Entry) (*domain.LibraryItem, error) {
	var (
		item *domain.LibraryItem
		err  error
	)
	if entry.Kind == domain.EntryRemote {
		item, err = r.LibraryItemByFileMetadata(ctx, entry.FileMetadata.ID)
	} else {
		item, err = r.LibraryItemByMD5(ctx, entry.MD5)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s entry %d: %w", entry.Kind, entry.ID, err)
	}
	return item, nil
}

func resolveLibraryItem(ctx context.Context, r Reader, item domain.LibraryItem, group *domain.CollectionGroup) (domain.Status, error) {
	if group == nil {
		return domain.InLibrary(item), nil
	}
	installed, err := r.InstalledLibraryItem(ctx, item.ID, group.ID, group.LoadoutID)
	if err != nil {
		return domain.NotDownloaded(), fmt.Errorf("resolving library item %d: %w", item.ID, err)
	}
	if installed != nil {
		return domain.Installed(*installed), nil
	}
	return domain.InLibrary(item), nil
}

// watchKeys lists the store attributes whose changes can move entry away
// from status
func watchKeys(entry domain.Entry, status domain.Status) []feed.Key {
	var keys []feed.Key
	switch entry.Kind {
	case domain.EntryBundled:
		keys = append(keys, feed.KeyOf(feed.LoadoutItemBundleEntry, entry.ID))
	case domain.EntryRemote:
		keys = append(keys, feed.KeyOf(feed.LibraryItemFileMetadata, entry.FileMetadata.ID))
	case domain.EntryExternal:
		keys = append(keys, feed.KeyOf(feed.LibraryItemMD5, entry.MD5))
	}

	switch {
	case status.IsInLibrary():
		keys = append(keys, feed.KeyOf(feed.LoadoutItemLibraryItem, status.LibraryItem.ID))
	case status.IsInstalled() && status.LoadoutItem.LibraryItemID != 0:
		keys = append(keys, feed.KeyOf(feed.LoadoutItemLibraryItem, status.LoadoutItem.LibraryItemID))
	}
	return keys
}
