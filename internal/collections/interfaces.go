//go:generate mockgen -destination=./mocks/collections.go -package=mocks . Catalog,Fetcher,Opener

package collections

import (
	"context"

	"github.com/DonovanMods/lmm-collections/internal/domain"
)

// Reader is the set of store lookups status resolution needs. Both *db.DB
// and *db.Snapshot implement it.
type Reader interface {
	LibraryItemByMD5(ctx context.Context, md5 string) (*domain.LibraryItem, error)
	LibraryItemByFileMetadata(ctx context.Context, metadataID int64) (*domain.LibraryItem, error)
	InstalledLibraryItem(ctx context.Context, libraryItemID, parentID, loadoutID int64) (*domain.LoadoutItem, error)
	InstalledBundle(ctx context.Context, entryID, parentID, loadoutID int64) (*domain.LoadoutItem, error)
}

// Catalog resolves remote files and tells who is signed in
type Catalog interface {
	// UserInfo returns nil when nobody is signed in
	UserInfo(ctx context.Context) (*domain.UserInfo, error)
	DownloadURL(ctx context.Context, meta domain.FileMetadata) (string, error)
	FileDownloadPage(meta domain.FileMetadata, nxm bool) string
	FileMetadata(ctx context.Context, gameID string, modID, fileID int) (*domain.FileMetadata, error)
}

// Fetcher performs HTTP transfers
type Fetcher interface {
	Probe(ctx context.Context, url string) (*domain.ProbeResult, error)
	Download(ctx context.Context, url, destPath string, progressFn domain.ProgressFunc) (*domain.DownloadResult, error)
}

// Opener hands a URI to the user's default handler
type Opener interface {
	OpenURI(ctx context.Context, uri string) error
}
