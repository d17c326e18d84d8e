package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/feed"
)

const entryColumns = `
	e.id, e.revision_id, e.name, e.kind, e.item_type,
	COALESCE(e.bundle_ref, ''), COALESCE(e.uri, ''), COALESCE(e.md5, ''), COALESCE(e.size, 0), e.manual_only,
	COALESCE(m.id, 0), COALESCE(m.game_id, ''), COALESCE(m.mod_id, 0), COALESCE(m.file_id, 0),
	COALESCE(m.name, ''), COALESCE(m.size, 0), COALESCE(m.md5, '')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.RevisionID, &e.Name, &e.Kind, &e.Type,
		&e.BundleRef, &e.URI, &e.MD5, &e.Size, &e.ManualOnly,
		&e.FileMetadata.ID, &e.FileMetadata.GameID, &e.FileMetadata.ModID, &e.FileMetadata.FileID,
		&e.FileMetadata.Name, &e.FileMetadata.Size, &e.FileMetadata.MD5,
	)
	return e, err
}

// Collection returns a collection by ID
func (r reader) Collection(ctx context.Context, id int64) (*domain.Collection, error) {
	var c domain.Collection
	err := r.q.QueryRowContext(ctx, `
		SELECT id, slug, name, game_id FROM collections WHERE id = ?
	`, id).Scan(&c.ID, &c.Slug, &c.Name, &c.GameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}
	return &c, nil
}

// CollectionBySlug returns a collection by its slug
func (r reader) CollectionBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.q.QueryRowContext(ctx, `
		SELECT id, slug, name, game_id FROM collections WHERE slug = ?
	`, slug).Scan(&c.ID, &c.Slug, &c.Name, &c.GameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", slug, err)
	}
	return &c, nil
}

// Collections lists every known collection
func (r reader) Collections(ctx context.Context) ([]domain.Collection, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, slug, name, game_id FROM collections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var out []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.GameID); err != nil {
			return nil, fmt.Errorf("scanning collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const revisionSelect = `
	SELECT r.id, r.collection_id, r.revision_number, c.id, c.slug, c.name, c.game_id
	FROM collection_revisions r JOIN collections c ON c.id = r.collection_id`

func scanRevision(row rowScanner) (domain.CollectionRevision, error) {
	var rev domain.CollectionRevision
	err := row.Scan(&rev.ID, &rev.CollectionID, &rev.RevisionNumber,
		&rev.Collection.ID, &rev.Collection.Slug, &rev.Collection.Name, &rev.Collection.GameID)
	return rev, err
}

// Revision returns a revision with its collection
func (r reader) Revision(ctx context.Context, id int64) (*domain.CollectionRevision, error) {
	rev, err := scanRevision(r.q.QueryRowContext(ctx, revisionSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRevisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting revision %d: %w", id, err)
	}
	return &rev, nil
}

// RevisionByNumber returns the revision of a collection with the given number
func (r reader) RevisionByNumber(ctx context.Context, slug string, number int) (*domain.CollectionRevision, error) {
	rev, err := scanRevision(r.q.QueryRowContext(ctx,
		revisionSelect+` WHERE c.slug = ? AND r.revision_number = ?`, slug, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRevisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting revision %s@%d: %w", slug, number, err)
	}
	return &rev, nil
}

// Revisions lists the revisions of a collection, oldest first
func (r reader) Revisions(ctx context.Context, collectionID int64) ([]domain.CollectionRevision, error) {
	rows, err := r.q.QueryContext(ctx,
		revisionSelect+` WHERE r.collection_id = ? ORDER BY r.revision_number`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	defer rows.Close()

	var out []domain.CollectionRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Entries returns the entries of a revision in manifest order
func (r reader) Entries(ctx context.Context, revisionID int64) ([]domain.Entry, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+entryColumns+`
		FROM collection_entries e LEFT JOIN file_metadata m ON m.id = e.file_metadata_id
		WHERE e.revision_id = ?
		ORDER BY e.position, e.id
	`, revisionID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Entry returns a single entry by ID
func (r reader) Entry(ctx context.Context, id int64) (*domain.Entry, error) {
	e, err := scanEntry(r.q.QueryRowContext(ctx, `SELECT `+entryColumns+`
		FROM collection_entries e LEFT JOIN file_metadata m ON m.id = e.file_metadata_id
		WHERE e.id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry %d: %w", id, err)
	}
	return &e, nil
}

// FileMetadata returns a catalog record by ID
func (r reader) FileMetadata(ctx context.Context, id int64) (*domain.FileMetadata, error) {
	var m domain.FileMetadata
	err := r.q.QueryRowContext(ctx, `
		SELECT id, game_id, mod_id, file_id, name, size, md5 FROM file_metadata WHERE id = ?
	`, id).Scan(&m.ID, &m.GameID, &m.ModID, &m.FileID, &m.Name, &m.Size, &m.MD5)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMetadataNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting file metadata %d: %w", id, err)
	}
	return &m, nil
}

// AllFileMetadata lists every catalog record in ID order
func (r reader) AllFileMetadata(ctx context.Context) ([]domain.FileMetadata, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, game_id, mod_id, file_id, name, size, md5 FROM file_metadata ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing file metadata: %w", err)
	}
	defer rows.Close()

	var out []domain.FileMetadata
	for rows.Next() {
		var m domain.FileMetadata
		if err := rows.Scan(&m.ID, &m.GameID, &m.ModID, &m.FileID, &m.Name, &m.Size, &m.MD5); err != nil {
			return nil, fmt.Errorf("scanning file metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ExternalEntries lists every external entry across all revisions
func (r reader) ExternalEntries(ctx context.Context) ([]domain.Entry, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+entryColumns+`
		FROM collection_entries e LEFT JOIN file_metadata m ON m.id = e.file_metadata_id
		WHERE e.kind = ?
		ORDER BY e.id
	`, domain.EntryExternal)
	if err != nil {
		return nil, fmt.Errorf("listing external entries: %w", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertCollection inserts a collection or updates its name and game by slug
func (t *Tx) UpsertCollection(ctx context.Context, c *domain.Collection) error {
	_, err := t.exec(ctx, `
		INSERT INTO collections (slug, name, game_id) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			game_id = excluded.game_id
	`, c.Slug, c.Name, c.GameID)
	if err != nil {
		return fmt.Errorf("saving collection %s: %w", c.Slug, err)
	}
	return t.q.QueryRowContext(ctx, `SELECT id FROM collections WHERE slug = ?`, c.Slug).Scan(&c.ID)
}

// CreateRevision inserts a new revision of a collection
func (t *Tx) CreateRevision(ctx context.Context, rev *domain.CollectionRevision) error {
	res, err := t.exec(ctx, `
		INSERT INTO collection_revisions (collection_id, revision_number) VALUES (?, ?)
	`, rev.CollectionID, rev.RevisionNumber)
	if err != nil {
		return fmt.Errorf("creating revision %d: %w", rev.RevisionNumber, err)
	}
	if rev.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("creating revision %d: %w", rev.RevisionNumber, err)
	}
	t.assert(rev.ID, feed.RevisionCollection, rev.CollectionID)
	return nil
}

// UpsertFileMetadata inserts or refreshes a catalog record keyed by game, mod and file
func (t *Tx) UpsertFileMetadata(ctx context.Context, m *domain.FileMetadata) error {
	_, err := t.exec(ctx, `
		INSERT INTO file_metadata (game_id, mod_id, file_id, name, size, md5)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, mod_id, file_id) DO UPDATE SET
			name = excluded.name,
			size = excluded.size,
			md5 = excluded.md5
	`, m.GameID, m.ModID, m.FileID, m.Name, m.Size, m.MD5)
	if err != nil {
		return fmt.Errorf("saving file metadata %s/%d/%d: %w", m.GameID, m.ModID, m.FileID, err)
	}
	return t.q.QueryRowContext(ctx, `
		SELECT id FROM file_metadata WHERE game_id = ? AND mod_id = ? AND file_id = ?
	`, m.GameID, m.ModID, m.FileID).Scan(&m.ID)
}

// InsertEntry appends an entry to its revision at the given position.
// Remote entries must carry a saved FileMetadata.
func (t *Tx) InsertEntry(ctx context.Context, e *domain.Entry, position int) error {
	var bundleRef, uri, md5 any
	var size, metadataID any
	switch e.Kind {
	case domain.EntryBundled:
		bundleRef = e.BundleRef
	case domain.EntryRemote:
		if e.FileMetadata.ID == 0 {
			return fmt.Errorf("entry %q: %w", e.Name, domain.ErrMetadataNotFound)
		}
		metadataID = e.FileMetadata.ID
	case domain.EntryExternal:
		uri, md5, size = e.URI, e.MD5, e.Size
	default:
		return fmt.Errorf("entry %q: %w", e.Name, domain.ErrUnsupportedEntry)
	}

	res, err := t.exec(ctx, `
		INSERT INTO collection_entries
			(revision_id, position, name, kind, item_type, bundle_ref, file_metadata_id, uri, md5, size, manual_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RevisionID, position, e.Name, e.Kind, e.Type, bundleRef, metadataID, uri, md5, size, e.ManualOnly)
	if err != nil {
		return fmt.Errorf("inserting entry %q: %w", e.Name, err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("inserting entry %q: %w", e.Name, err)
	}
	t.assert(e.ID, feed.EntryRevision, e.RevisionID)
	if e.ManualOnly {
		t.assert(e.ID, feed.EntryManualOnly, true)
	}
	return nil
}

// SetManualOnly sets or clears the manual-only marker on an external entry
func (t *Tx) SetManualOnly(ctx context.Context, entryID int64, manual bool) error {
	res, err := t.exec(ctx, `
		UPDATE collection_entries SET manual_only = ? WHERE id = ? AND kind = ?
	`, manual, entryID, domain.EntryExternal)
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEntryNotFound
	}
	if manual {
		t.assert(entryID, feed.EntryManualOnly, true)
	} else {
		t.retract(entryID, feed.EntryManualOnly, true)
	}
	return nil
}

// DeleteRevision removes a revision and all of its entries. Library items and
// installed loadout items are left untouched.
func (t *Tx) DeleteRevision(ctx context.Context, revisionID int64) error {
	rev, err := t.Revision(ctx, revisionID)
	if err != nil {
		return err
	}
	entries, err := t.Entries(ctx, revisionID)
	if err != nil {
		return err
	}

	orphaned, err := t.loadoutItems(ctx, `bundle_entry_id IN (SELECT id FROM collection_entries WHERE revision_id = ?)`, revisionID)
	if err != nil {
		return err
	}
	if _, err := t.exec(ctx, `
		UPDATE loadout_items SET bundle_entry_id = NULL
		WHERE bundle_entry_id IN (SELECT id FROM collection_entries WHERE revision_id = ?)
	`, revisionID); err != nil {
		return fmt.Errorf("clearing bundle references of revision %d: %w", revisionID, err)
	}
	for _, item := range orphaned {
		t.retract(item.ID, feed.LoadoutItemBundleEntry, item.BundleEntryID)
	}

	if _, err := t.exec(ctx, `DELETE FROM collection_entries WHERE revision_id = ?`, revisionID); err != nil {
		return fmt.Errorf("deleting entries of revision %d: %w", revisionID, err)
	}
	if _, err := t.exec(ctx, `DELETE FROM collection_revisions WHERE id = ?`, revisionID); err != nil {
		return fmt.Errorf("deleting revision %d: %w", revisionID, err)
	}

	for _, e := range entries {
		t.retract(e.ID, feed.EntryRevision, revisionID)
		if e.ManualOnly {
			t.retract(e.ID, feed.EntryManualOnly, true)
		}
	}
	t.retract(revisionID, feed.RevisionCollection, rev.CollectionID)
	return nil
}

// DeleteCollection removes a collection with every revision and entry
func (t *Tx) DeleteCollection(ctx context.Context, collectionID int64) error {
	revisions, err := t.Revisions(ctx, collectionID)
	if err != nil {
		return err
	}
	for _, rev := range revisions {
		if err := t.DeleteRevision(ctx, rev.ID); err != nil {
			return err
		}
	}
	res, err := t.exec(ctx, `DELETE FROM collections WHERE id = ?`, collectionID)
	if err != nil {
		return fmt.Errorf("deleting collection %d: %w", collectionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCollectionNotFound
	}
	return nil
}
