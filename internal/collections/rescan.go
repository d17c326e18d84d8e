package collections

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/metrics"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"
)

// MinRescanSize is the smallest file a rescan considers. Anything smaller is
// unlikely to be a mod archive.
const MinRescanSize = 1024

// RescanReport summarizes one pass over the downloads folder
type RescanReport struct {
	Scanned int
	Matched int
	Skipped int
	Failed  int
}

// RescanDownloads links archives already in the downloads folder to the
// revision's entries. Each file is hashed and compared against the entries
// in order; the first match wins. External matches are registered when the
// library lacks their content. Remote matches get their extension repaired,
// are registered or looked up, renamed of record and linked to the entry's
// metadata even if they were linked elsewhere. A failing file is logged and
// skipped. Copies of content already handled in the same pass count like the
// first copy and write nothing, so running it again over an unchanged folder
// writes nothing.
func (d *Downloader) RescanDownloads(ctx context.Context, revision domain.CollectionRevision) (RescanReport, error) {
	var report RescanReport
	log := d.logger.With().Str("revision", revision.String()).Logger()
	log.Info().Str("folder", d.folder.Path()).Msg("rescanning downloads folder")

	if !d.folder.Exists(d.folder.Path()) {
		log.Warn().Str("folder", d.folder.Path()).Msg("downloads folder does not exist")
		return report, nil
	}

	entries, err := d.db.Entries(ctx, revision.ID)
	if err != nil {
		return report, fmt.Errorf("loading entries of %s: %w", revision, err)
	}
	files, err := d.folder.List()
	if err != nil {
		return report, err
	}
	log.Info().Int("files", len(files)).Msg("found files in downloads folder")

	// content hash -> whether its first copy matched an entry
	seen := make(map[string]bool)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		if file.Size < MinRescanSize {
			report.Skipped++
			d.metrics.ObserveRescan(metrics.RescanTooSmall)
			continue
		}

		matched, err := d.rescanFile(ctx, file, entries, seen)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			d.metrics.ObserveRescan(metrics.RescanError)
			log.Warn().Err(err).Str("file", file.Path).Msg("failed to process file during rescan")
		case matched:
			report.Matched++
			d.metrics.ObserveRescan(metrics.RescanMatched)
		default:
			d.metrics.ObserveRescan(metrics.RescanUnmatched)
		}
	}

	log.Info().Int("matched", report.Matched).Int("failed", report.Failed).Msg("rescan complete")
	return report, nil
}

func (d *Downloader) rescanFile(ctx context.Context, file downloads.File, entries []domain.Entry, seen map[string]bool) (bool, error) {
	sum, size, err := library.HashFile(d.folder.Fs(), file.Path)
	if err != nil {
		return false, err
	}
	if matched, ok := seen[sum]; ok {
		d.logger.Debug().Str("file", file.Path).Str("md5", sum).Msg("content already handled in this pass")
		return matched, nil
	}
	matched, err := d.matchFile(ctx, file, sum, size, entries)
	if err == nil {
		seen[sum] = matched
	}
	return matched, err
}

func (d *Downloader) matchFile(ctx context.Context, file downloads.File, sum string, size int64, entries []domain.Entry) (bool, error) {
	existing, err := d.library.Lookup(ctx, sum)
	if err != nil {
		return false, err
	}

	local := LocalFile{Path: file.Path, MD5: sum}
	for _, e := range entries {
		if !Matches(local, e) {
			continue
		}
		d.logger.Info().Str("entry", e.Name).Str("file", file.Path).Str("kind", e.Kind.String()).Msg("match found")

		switch e.Kind {
		case domain.EntryExternal:
			if existing == nil {
				_, _, err = d.library.Add(ctx, library.Hashed{
					FileName: filepath.Base(file.Path),
					MD5:      sum,
					Size:     size,
				})
			}
			return true, err
		case domain.EntryRemote:
			return true, d.relink(ctx, file.Path, sum, size, existing, e.FileMetadata.ID)
		}
	}

	d.logger.Debug().Str("file", file.Path).Str("md5", sum).Msg("no match in collection")
	return false, nil
}

// relink repairs the file's extension and forces its library item onto the
// given metadata, recording the current file name
func (d *Downloader) relink(ctx context.Context, path, sum string, size int64, item *domain.LibraryItem, metadataID int64) error {
	if repaired, ok := RepairExtension(d.folder, path); ok {
		d.logger.Info().Str("from", path).Str("to", repaired).Msg("repaired file extension")
		path = repaired
	}
	fileName := filepath.Base(path)

	if item == nil {
		_, _, err := d.library.Add(ctx, library.Hashed{
			FileName:       fileName,
			MD5:            sum,
			Size:           size,
			FileMetadataID: metadataID,
		})
		return err
	}

	if _, err := d.library.Rename(ctx, item, fileName); err != nil {
		return err
	}
	_, err := d.library.Link(ctx, item, metadataID)
	return err
}
