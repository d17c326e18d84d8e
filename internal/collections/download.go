package collections

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/metrics"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
)

// DirectDownload is the outcome of probing an external entry
type DirectDownload struct {
	CanDownload bool
	FileName    string // From Content-Disposition, empty when the server sent none
}

// CanDirectDownload probes an external entry's URI with a HEAD request. The
// entry can be fetched automatically only when the request succeeds, the
// content type is an application payload and the content length equals the
// declared size. Any failure means it cannot.
func (d *Downloader) CanDirectDownload(ctx context.Context, entry domain.Entry) DirectDownload {
	log := d.logger.With().Str("uri", entry.URI).Logger()
	log.Debug().Msg("probing for direct download")

	probe, err := d.fetcher.Probe(ctx, entry.URI)
	if err != nil {
		log.Error().Err(err).Msg("probe failed")
		return DirectDownload{}
	}
	if probe.StatusCode < 200 || probe.StatusCode > 299 {
		log.Info().Int("status", probe.StatusCode).Msg("probe was not successful")
		return DirectDownload{}
	}

	mediaType, _, err := mime.ParseMediaType(probe.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "application/") {
		log.Info().Str("content_type", probe.ContentType).Msg("content type is not a binary download")
		return DirectDownload{}
	}
	if probe.ContentLength < 0 {
		log.Info().Msg("response has no content length")
		return DirectDownload{}
	}
	if probe.ContentLength != entry.Size {
		log.Warn().Int64("content_length", probe.ContentLength).Int64("expected", entry.Size).Msg("content length does not match declared size")
		return DirectDownload{}
	}

	return DirectDownload{CanDownload: true, FileName: probe.FileName}
}

// Download fetches a single entry. External entries that cannot be fetched
// automatically are marked manual-only; remote entries are fetched directly
// for premium accounts and handed to the website otherwise. Bundled entries
// need nothing.
func (d *Downloader) Download(ctx context.Context, entry domain.Entry) error {
	switch entry.Kind {
	case domain.EntryExternal:
		return d.downloadExternal(ctx, entry)
	case domain.EntryRemote:
		return d.downloadRemote(ctx, entry)
	case domain.EntryBundled:
		return nil
	default:
		return fmt.Errorf("entry %d: %w", entry.ID, domain.ErrUnsupportedEntry)
	}
}

func (d *Downloader) downloadExternal(ctx context.Context, entry domain.Entry) error {
	check := d.CanDirectDownload(ctx, entry)
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := d.db.Entry(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("reloading entry %d: %w", entry.ID, err)
	}

	if !check.CanDownload {
		d.logger.Info().Str("uri", entry.URI).Str("md5", entry.MD5).Msg("unable to download directly")
		d.metrics.ObserveDownload(entry.Kind.String(), metrics.ResultManual, 0, 0)
		if current.ManualOnly {
			return nil
		}
		return d.setManualOnly(ctx, entry.ID, true)
	}

	if current.ManualOnly {
		if err := d.setManualOnly(ctx, entry.ID, false); err != nil {
			return err
		}
	}

	d.logger.Info().Str("uri", entry.URI).Str("md5", entry.MD5).Msg("downloading external file")
	_, err = d.fetch(ctx, fetchRequest{
		kind:     entry.Kind.String(),
		url:      entry.URI,
		name:     entry.Name,
		fileName: check.FileName,
		md5:      entry.MD5,
	})
	return err
}

func (d *Downloader) setManualOnly(ctx context.Context, entryID int64, manual bool) error {
	return d.db.Update(ctx, func(tx *db.Tx) error {
		return tx.SetManualOnly(ctx, entryID, manual)
	})
}

func (d *Downloader) downloadRemote(ctx context.Context, entry domain.Entry) error {
	meta := entry.FileMetadata
	log := d.logger.With().Str("game", meta.GameID).Int("mod", meta.ModID).Int("file", meta.FileID).Logger()

	user, err := d.catalog.UserInfo(ctx)
	if err != nil {
		return fmt.Errorf("getting user info: %w", err)
	}
	if user == nil {
		log.Warn().Msg("not signed in, skipping remote download")
		d.metrics.ObserveDownload(entry.Kind.String(), metrics.ResultSkipped, 0, 0)
		return nil
	}

	if !user.IsPremium {
		page := d.catalog.FileDownloadPage(meta, true)
		log.Info().Str("uri", page).Msg("opening download page")
		d.metrics.ObserveDownload(entry.Kind.String(), metrics.ResultBrowser, 0, 0)
		return d.opener.OpenURI(ctx, page)
	}

	url, err := d.catalog.DownloadURL(ctx, meta)
	if err != nil {
		d.metrics.ObserveDownload(entry.Kind.String(), metrics.ResultFailed, 0, 0)
		return fmt.Errorf("getting download link: %w", err)
	}

	log.Info().Msg("downloading remote file")
	_, err = d.fetch(ctx, fetchRequest{
		kind:       entry.Kind.String(),
		url:        url,
		name:       entry.Name,
		fileName:   meta.Name,
		md5:        meta.MD5,
		metadataID: meta.ID,
	})
	return err
}

type fetchRequest struct {
	kind       string
	url        string
	name       string // Logical name, used when nothing better is known
	fileName   string // Preferred file name
	md5        string // Expected content hash, empty to skip the check
	metadataID int64
}

// fetch streams a URL to a temp file, keeps a copy in the downloads folder
// and registers the content in the library. Nothing is written to the store
// unless the transfer completed and the hash checks out.
func (d *Downloader) fetch(ctx context.Context, req fetchRequest) (*domain.LibraryItem, error) {
	start := time.Now()
	fail := func(err error) (*domain.LibraryItem, error) {
		if !errors.Is(err, context.Canceled) {
			d.metrics.ObserveDownload(req.kind, metrics.ResultFailed, 0, time.Since(start))
		}
		return nil, err
	}

	tmp, err := d.folder.TempFile(d.tempDir)
	if err != nil {
		return fail(err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() { _ = d.folder.Fs().Remove(tmpPath) }()

	result, err := d.fetcher.Download(ctx, req.url, tmpPath, nil)
	if err != nil {
		return fail(fmt.Errorf("downloading %s: %w", req.name, err))
	}
	if req.md5 != "" && !strings.EqualFold(result.Checksum, req.md5) {
		return fail(fmt.Errorf("downloading %s: got %s, want %s: %w", req.name, result.Checksum, req.md5, domain.ErrHashMismatch))
	}

	fileName := firstNonEmpty(result.FileName, req.fileName, req.name)
	if needsExtension(fileName) {
		if ext := DetectExtension(d.folder.Fs(), tmpPath); ext != "" {
			fileName = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ext
		}
	}

	preserved, err := d.folder.Preserve(tmpPath, fileName)
	if err != nil {
		return fail(err)
	}

	item, created, err := d.library.Add(ctx, library.Hashed{
		FileName:       filepath.Base(preserved),
		MD5:            result.Checksum,
		Size:           result.Size,
		FileMetadataID: req.metadataID,
	})
	if err != nil {
		return fail(err)
	}
	// Known content still has to resolve for this entry's catalog record
	if !created && req.metadataID != 0 {
		if _, err := d.library.Link(ctx, item, req.metadataID); err != nil {
			return fail(err)
		}
	}

	d.metrics.ObserveDownload(req.kind, metrics.ResultDownloaded, result.Size, time.Since(start))
	d.logger.Info().Str("file", preserved).Int64("library_item", item.ID).Bool("new", created).Msg("download registered")
	return item, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DownloadItems starts a job fetching every entry of the revision that
// matches itemType and is not downloaded yet, at most maxParallel at a time
// (the configured default when maxParallel is not positive). A failing entry
// is logged and does not stop its siblings; the job itself fails only when
// cancelled or when the store cannot be read.
func (d *Downloader) DownloadItems(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType, maxParallel int) *jobs.Job {
	if maxParallel <= 0 {
		maxParallel = d.maxParallel
	}

	return d.runner.Start(ctx, "download "+revision.String(), func(ctx context.Context, job *jobs.Job) error {
		pending, err := d.pendingDownloads(ctx, revision.ID, itemType)
		if err != nil {
			return err
		}
		job.SetTotal(len(pending))
		d.logger.Info().Str("revision", revision.String()).Int("pending", len(pending)).Int("parallel", maxParallel).Msg("downloading collection items")

		var failed atomic.Int64
		err = jobs.ForEach(ctx, maxParallel, pending, func(ctx context.Context, entry domain.Entry) error {
			defer job.Step()
			err := d.Download(ctx, entry)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrInconsistentStore) {
				return err
			}
			failed.Add(1)
			d.logger.Warn().Err(err).Int64("entry", entry.ID).Str("name", entry.Name).Msg("failed to download item")
			return nil
		})
		if n := failed.Load(); n > 0 {
			d.logger.Warn().Int64("failed", n).Int("total", len(pending)).Msg("some items could not be downloaded")
		}
		return err
	})
}

// pendingDownloads lists downloadable entries of a revision whose status is
// NotDownloaded, all read from one snapshot
func (d *Downloader) pendingDownloads(ctx context.Context, revisionID int64, itemType domain.ItemType) ([]domain.Entry, error) {
	snap, err := d.db.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	entries, err := snap.Entries(ctx, revisionID)
	if err != nil {
		return nil, err
	}

	var pending []domain.Entry
	for _, e := range FilterItems(entries, itemType) {
		if !e.IsDownloadable() {
			continue
		}
		status, err := Resolve(ctx, snap, e, nil)
		if err != nil {
			return nil, err
		}
		if status.IsNotDownloaded() {
			pending = append(pending, e)
		}
	}
	return pending, nil
}
