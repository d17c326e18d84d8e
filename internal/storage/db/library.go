package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/feed"
)

const libraryItemSelect = `
	SELECT id, name, file_name, md5, size, COALESCE(file_metadata_id, 0), created_at
	FROM library_items`

func scanLibraryItem(row rowScanner) (domain.LibraryItem, error) {
	var item domain.LibraryItem
	err := row.Scan(&item.ID, &item.Name, &item.FileName, &item.MD5, &item.Size, &item.FileMetadataID, &item.CreatedAt)
	return item, err
}

func (r reader) libraryItem(ctx context.Context, where string, args ...any) (*domain.LibraryItem, error) {
	item, err := scanLibraryItem(r.q.QueryRowContext(ctx, libraryItemSelect+` WHERE `+where+` ORDER BY id LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting library item: %w", err)
	}
	return &item, nil
}

// LibraryItem returns a library item by ID, or nil if it does not exist
func (r reader) LibraryItem(ctx context.Context, id int64) (*domain.LibraryItem, error) {
	return r.libraryItem(ctx, `id = ?`, id)
}

// LibraryItemByMD5 returns the library item with the given content hash, or nil
func (r reader) LibraryItemByMD5(ctx context.Context, md5 string) (*domain.LibraryItem, error) {
	return r.libraryItem(ctx, `md5 = ?`, md5)
}

// LibraryItemByFileMetadata returns the lowest-ID library item linked to the
// catalog record, or nil
func (r reader) LibraryItemByFileMetadata(ctx context.Context, metadataID int64) (*domain.LibraryItem, error) {
	return r.libraryItem(ctx, `id IN (
		SELECT library_item_id FROM library_item_file_metadata WHERE file_metadata_id = ?
	)`, metadataID)
}

// LibraryItemLinked reports whether the item is linked to the catalog record
func (r reader) LibraryItemLinked(ctx context.Context, id, metadataID int64) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM library_item_file_metadata
		WHERE library_item_id = ? AND file_metadata_id = ?
	`, id, metadataID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking link of library item %d: %w", id, err)
	}
	return n > 0, nil
}

// LibraryItemLinks lists the catalog records a library item is linked to
func (r reader) LibraryItemLinks(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT file_metadata_id FROM library_item_file_metadata
		WHERE library_item_id = ? ORDER BY file_metadata_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing links of library item %d: %w", id, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var metadataID int64
		if err := rows.Scan(&metadataID); err != nil {
			return nil, fmt.Errorf("scanning link of library item %d: %w", id, err)
		}
		out = append(out, metadataID)
	}
	return out, rows.Err()
}

// LibraryItems lists every library item
func (r reader) LibraryItems(ctx context.Context) ([]domain.LibraryItem, error) {
	rows, err := r.q.QueryContext(ctx, libraryItemSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing library items: %w", err)
	}
	defer rows.Close()

	var out []domain.LibraryItem
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning library item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// InsertLibraryItem adds a library item. MD5 is unique across the library.
func (t *Tx) InsertLibraryItem(ctx context.Context, item *domain.LibraryItem) error {
	res, err := t.exec(ctx, `
		INSERT INTO library_items (name, file_name, md5, size, file_metadata_id)
		VALUES (?, ?, ?, ?, ?)
	`, item.Name, item.FileName, item.MD5, item.Size, nullID(item.FileMetadataID))
	if err != nil {
		return fmt.Errorf("inserting library item %s: %w", item.FileName, err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("inserting library item %s: %w", item.FileName, err)
	}
	t.assert(item.ID, feed.LibraryItemMD5, item.MD5)
	t.assert(item.ID, feed.LibraryItemFileName, item.FileName)
	if item.FileMetadataID != 0 {
		if err := t.insertLink(ctx, item.ID, item.FileMetadataID); err != nil {
			return err
		}
		t.assert(item.ID, feed.LibraryItemFileMetadata, item.FileMetadataID)
	}
	return nil
}

// insertLink records a link row; an existing row is left alone
func (t *Tx) insertLink(ctx context.Context, id, metadataID int64) error {
	if _, err := t.exec(ctx, `
		INSERT OR IGNORE INTO library_item_file_metadata (library_item_id, file_metadata_id)
		VALUES (?, ?)
	`, id, metadataID); err != nil {
		return fmt.Errorf("linking library item %d to %d: %w", id, metadataID, err)
	}
	return nil
}

// RenameLibraryItem changes the recorded file name of a library item
func (t *Tx) RenameLibraryItem(ctx context.Context, id int64, fileName string) error {
	old, err := t.LibraryItem(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("library item %d: %w", id, domain.ErrInconsistentStore)
	}
	if _, err := t.exec(ctx, `UPDATE library_items SET file_name = ? WHERE id = ?`, fileName, id); err != nil {
		return fmt.Errorf("renaming library item %d: %w", id, err)
	}
	t.retract(id, feed.LibraryItemFileName, old.FileName)
	t.assert(id, feed.LibraryItemFileName, fileName)
	return nil
}

// LinkLibraryItem adds a link from a library item to a catalog record and
// makes it the item's current one. Earlier links keep resolving.
func (t *Tx) LinkLibraryItem(ctx context.Context, id, metadataID int64) error {
	if metadataID == 0 {
		return fmt.Errorf("linking library item %d: no catalog record", id)
	}
	old, err := t.LibraryItem(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("library item %d: %w", id, domain.ErrInconsistentStore)
	}
	linked, err := t.LibraryItemLinked(ctx, id, metadataID)
	if err != nil {
		return err
	}
	if !linked {
		if err := t.insertLink(ctx, id, metadataID); err != nil {
			return err
		}
		t.assert(id, feed.LibraryItemFileMetadata, metadataID)
	}
	if old.FileMetadataID != metadataID {
		if _, err := t.exec(ctx, `
			UPDATE library_items SET file_metadata_id = ? WHERE id = ?
		`, metadataID, id); err != nil {
			return fmt.Errorf("linking library item %d: %w", id, err)
		}
	}
	return nil
}
