package domain

import "time"

// LibraryItem is a locally held, content-addressed artifact
type LibraryItem struct {
	ID             int64
	Name           string
	FileName       string
	MD5            string
	Size           int64
	FileMetadataID int64 // 0 when not linked to remote metadata
	CreatedAt      time.Time
}

// Loadout is a named, game-specific installation target
type Loadout struct {
	ID     int64
	Name   string
	GameID string
}

// LoadoutItem is something materialized into a loadout. Items installed from
// the library carry LibraryItemID, items installed from a collection archive
// carry BundleEntryID, and collection groups carry RevisionID.
type LoadoutItem struct {
	ID            int64
	LoadoutID     int64
	ParentID      int64 // 0 for top-level items
	Name          string
	LibraryItemID int64
	BundleEntryID int64
	RevisionID    int64
}

// IsGroup reports whether the item is the installed form of a collection revision
func (i LoadoutItem) IsGroup() bool {
	return i.RevisionID != 0
}

// CollectionGroup is the installed representation of one revision inside one loadout
type CollectionGroup struct {
	LoadoutItem
}
