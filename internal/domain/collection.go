package domain

import (
	"fmt"
	"strings"
)

// Collection is a curated, versioned bundle of mod references
type Collection struct {
	ID     int64
	Slug   string
	Name   string
	GameID string // Source-specific game domain, e.g. "skyrimspecialedition"
}

// CollectionRevision is one immutable published version of a collection
type CollectionRevision struct {
	ID             int64
	CollectionID   int64
	RevisionNumber int
	Collection     Collection
}

func (r CollectionRevision) String() string {
	return fmt.Sprintf("%s@%d", r.Collection.Slug, r.RevisionNumber)
}

// ItemType classifies entries as required or optional. Values are flags so
// callers can ask for both with ItemRequired|ItemOptional.
type ItemType int

const (
	ItemRequired ItemType = 1 << iota
	ItemOptional

	ItemAll = ItemRequired | ItemOptional
)

// Has reports whether every flag in other is set on t
func (t ItemType) Has(other ItemType) bool {
	return other != 0 && t&other == other
}

func (t ItemType) String() string {
	switch t {
	case ItemRequired:
		return "required"
	case ItemOptional:
		return "optional"
	case ItemAll:
		return "all"
	default:
		return "none"
	}
}

// ParseItemType converts a string to ItemType
func ParseItemType(s string) (ItemType, error) {
	switch strings.ToLower(s) {
	case "required", "":
		return ItemRequired, nil
	case "optional":
		return ItemOptional, nil
	case "all", "both":
		return ItemAll, nil
	default:
		return 0, fmt.Errorf("unknown item type %q", s)
	}
}

// EntryKind tags the variant of a collection entry
type EntryKind int

const (
	EntryBundled  EntryKind = iota + 1 // Shipped inside the collection archive
	EntryRemote                        // Hosted on the remote catalog (game, mod, file)
	EntryExternal                      // Hosted at an arbitrary URI
)

func (k EntryKind) String() string {
	switch k {
	case EntryBundled:
		return "bundled"
	case EntryRemote:
		return "nexus"
	case EntryExternal:
		return "external"
	default:
		return "unknown"
	}
}

// FileMetadata is the remote catalog's record of a downloadable file
type FileMetadata struct {
	ID     int64
	GameID string
	ModID  int
	FileID int
	Name   string // File name as published, used for filename matching
	Size   int64
	MD5    string
}

// Entry is a declared dependency of a collection revision. Kind selects which
// of the variant fields are meaningful.
type Entry struct {
	ID         int64
	RevisionID int64
	Name       string
	Kind       EntryKind
	Type       ItemType // Exactly one of ItemRequired or ItemOptional

	// EntryBundled
	BundleRef string

	// EntryRemote
	FileMetadata FileMetadata

	// EntryExternal
	URI        string
	MD5        string
	Size       int64
	ManualOnly bool
}

// IsRequired reports whether the entry is required
func (e Entry) IsRequired() bool { return e.Type == ItemRequired }

// IsOptional reports whether the entry is optional
func (e Entry) IsOptional() bool { return e.Type == ItemOptional }

// MatchesItemType reports whether the entry belongs to the requested item types
func (e Entry) MatchesItemType(t ItemType) bool {
	if e.IsOptional() && t.Has(ItemOptional) {
		return true
	}
	if e.IsRequired() && t.Has(ItemRequired) {
		return true
	}
	return false
}

// IsDownloadable reports whether the entry needs to be fetched at all
func (e Entry) IsDownloadable() bool {
	return e.Kind == EntryRemote || e.Kind == EntryExternal
}
