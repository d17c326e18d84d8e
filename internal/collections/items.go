package collections

import (
	"context"

	"github.com/DonovanMods/lmm-collections/internal/domain"
)

// FilterItems returns the entries belonging to itemType, in order
func FilterItems(entries []domain.Entry, itemType domain.ItemType) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.MatchesItemType(itemType) {
			out = append(out, e)
		}
	}
	return out
}

// GetItems returns the entries of a revision belonging to itemType
func (d *Downloader) GetItems(ctx context.Context, revisionID int64, itemType domain.ItemType) ([]domain.Entry, error) {
	entries, err := d.db.Entries(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	return FilterItems(entries, itemType), nil
}

// CountItems counts the entries of itemType that have to be downloaded.
// Bundled entries are not counted.
func CountItems(entries []domain.Entry, itemType domain.ItemType) int {
	n := 0
	for _, e := range FilterItems(entries, itemType) {
		if e.IsDownloadable() {
			n++
		}
	}
	return n
}

// IsFullyDownloaded reports whether every entry is at least downloaded
func (d *Downloader) IsFullyDownloaded(ctx context.Context, entries []domain.Entry) (bool, error) {
	return d.all(ctx, entries, nil, domain.Status.IsDownloaded)
}

// IsFullyInstalled reports whether every entry is installed in the group
func (d *Downloader) IsFullyInstalled(ctx context.Context, entries []domain.Entry, group *domain.CollectionGroup) (bool, error) {
	return d.all(ctx, entries, group, domain.Status.IsInstalled)
}

func (d *Downloader) all(ctx context.Context, entries []domain.Entry, group *domain.CollectionGroup, pred func(domain.Status) bool) (bool, error) {
	snap, err := d.db.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	defer snap.Close()

	for _, e := range entries {
		status, err := Resolve(ctx, snap, e, group)
		if err != nil {
			return false, err
		}
		if !pred(status) {
			return false, nil
		}
	}
	return true, nil
}

// MissingLink is where a user can fetch an entry by hand
type MissingLink struct {
	Entry domain.Entry
	URI   string
}

// GetMissingDownloadLinks lists, for every entry of itemType that is not
// downloaded, the page or URI it can be fetched from
func (d *Downloader) GetMissingDownloadLinks(ctx context.Context, revisionID int64, itemType domain.ItemType) ([]MissingLink, error) {
	snap, err := d.db.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	entries, err := snap.Entries(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	var links []MissingLink
	for _, e := range FilterItems(entries, itemType) {
		status, err := Resolve(ctx, snap, e, nil)
		if err != nil {
			return nil, err
		}
		if !status.IsNotDownloaded() {
			continue
		}
		switch e.Kind {
		case domain.EntryRemote:
			links = append(links, MissingLink{Entry: e, URI: d.catalog.FileDownloadPage(e.FileMetadata, false)})
		case domain.EntryExternal:
			links = append(links, MissingLink{Entry: e, URI: e.URI})
		}
	}
	return links, nil
}

// GetCollectionGroup returns the group the revision is installed as in the
// loadout, or nil. A zero loadoutID means no loadout.
func (d *Downloader) GetCollectionGroup(ctx context.Context, revisionID, loadoutID int64) (*domain.CollectionGroup, error) {
	if loadoutID == 0 {
		return nil, nil
	}
	return d.db.CollectionGroup(ctx, revisionID, loadoutID)
}
