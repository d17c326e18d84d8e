package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/feed"
)

const loadoutItemSelect = `
	SELECT id, loadout_id, COALESCE(parent_id, 0), name,
		COALESCE(library_item_id, 0), COALESCE(bundle_entry_id, 0), COALESCE(revision_id, 0)
	FROM loadout_items`

func scanLoadoutItem(row rowScanner) (domain.LoadoutItem, error) {
	var item domain.LoadoutItem
	err := row.Scan(&item.ID, &item.LoadoutID, &item.ParentID, &item.Name,
		&item.LibraryItemID, &item.BundleEntryID, &item.RevisionID)
	return item, err
}

func (r reader) loadoutItems(ctx context.Context, where string, args ...any) ([]domain.LoadoutItem, error) {
	rows, err := r.q.QueryContext(ctx, loadoutItemSelect+` WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loadout items: %w", err)
	}
	defer rows.Close()

	var out []domain.LoadoutItem
	for rows.Next() {
		item, err := scanLoadoutItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loadout item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r reader) firstLoadoutItem(ctx context.Context, where string, args ...any) (*domain.LoadoutItem, error) {
	item, err := scanLoadoutItem(r.q.QueryRowContext(ctx, loadoutItemSelect+` WHERE `+where+` ORDER BY id LIMIT 1`, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loadout item: %w", err)
	}
	return &item, nil
}

// Loadout returns a loadout by ID
func (r reader) Loadout(ctx context.Context, id int64) (*domain.Loadout, error) {
	var l domain.Loadout
	err := r.q.QueryRowContext(ctx, `SELECT id, name, game_id FROM loadouts WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.GameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLoadoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting loadout %d: %w", id, err)
	}
	return &l, nil
}

// Loadouts lists every loadout
func (r reader) Loadouts(ctx context.Context) ([]domain.Loadout, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, game_id FROM loadouts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing loadouts: %w", err)
	}
	defer rows.Close()

	var out []domain.Loadout
	for rows.Next() {
		var l domain.Loadout
		if err := rows.Scan(&l.ID, &l.Name, &l.GameID); err != nil {
			return nil, fmt.Errorf("scanning loadout: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// LoadoutItem returns a loadout item by ID, or nil
func (r reader) LoadoutItem(ctx context.Context, id int64) (*domain.LoadoutItem, error) {
	return r.firstLoadoutItem(ctx, `id = ?`, id)
}

// LoadoutItems lists the items of a loadout
func (r reader) LoadoutItems(ctx context.Context, loadoutID int64) ([]domain.LoadoutItem, error) {
	return r.loadoutItems(ctx, `loadout_id = ?`, loadoutID)
}

// InstalledLibraryItem returns the lowest-ID loadout item installed from the
// library item under the given parent in the given loadout, or nil
func (r reader) InstalledLibraryItem(ctx context.Context, libraryItemID, parentID, loadoutID int64) (*domain.LoadoutItem, error) {
	return r.firstLoadoutItem(ctx, `library_item_id = ? AND parent_id = ? AND loadout_id = ?`,
		libraryItemID, parentID, loadoutID)
}

// InstalledBundle returns the lowest-ID loadout item installed from the
// bundled entry under the given parent in the given loadout, or nil
func (r reader) InstalledBundle(ctx context.Context, entryID, parentID, loadoutID int64) (*domain.LoadoutItem, error) {
	return r.firstLoadoutItem(ctx, `bundle_entry_id = ? AND parent_id = ? AND loadout_id = ?`,
		entryID, parentID, loadoutID)
}

// CollectionGroups lists every group installed from a revision, across loadouts
func (r reader) CollectionGroups(ctx context.Context, revisionID int64) ([]domain.CollectionGroup, error) {
	items, err := r.loadoutItems(ctx, `revision_id = ?`, revisionID)
	if err != nil {
		return nil, err
	}
	groups := make([]domain.CollectionGroup, len(items))
	for i, item := range items {
		groups[i] = domain.CollectionGroup{LoadoutItem: item}
	}
	return groups, nil
}

// CollectionGroup returns the lowest-ID group of a revision in a loadout, or nil
func (r reader) CollectionGroup(ctx context.Context, revisionID, loadoutID int64) (*domain.CollectionGroup, error) {
	item, err := r.firstLoadoutItem(ctx, `revision_id = ? AND loadout_id = ?`, revisionID, loadoutID)
	if err != nil || item == nil {
		return nil, err
	}
	return &domain.CollectionGroup{LoadoutItem: *item}, nil
}

// CreateLoadout inserts a loadout
func (t *Tx) CreateLoadout(ctx context.Context, l *domain.Loadout) error {
	res, err := t.exec(ctx, `INSERT INTO loadouts (name, game_id) VALUES (?, ?)`, l.Name, l.GameID)
	if err != nil {
		return fmt.Errorf("creating loadout %s: %w", l.Name, err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("creating loadout %s: %w", l.Name, err)
	}
	return nil
}

// InsertLoadoutItem adds an item, or a group when RevisionID is set, to a loadout
func (t *Tx) InsertLoadoutItem(ctx context.Context, item *domain.LoadoutItem) error {
	res, err := t.exec(ctx, `
		INSERT INTO loadout_items (loadout_id, parent_id, name, library_item_id, bundle_entry_id, revision_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.LoadoutID, nullID(item.ParentID), item.Name,
		nullID(item.LibraryItemID), nullID(item.BundleEntryID), nullID(item.RevisionID))
	if err != nil {
		return fmt.Errorf("inserting loadout item %s: %w", item.Name, err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("inserting loadout item %s: %w", item.Name, err)
	}
	t.recordLoadoutItem(*item, true)
	return nil
}

func (t *Tx) recordLoadoutItem(item domain.LoadoutItem, added bool) {
	record := t.assert
	if !added {
		record = t.retract
	}
	if item.ParentID != 0 {
		record(item.ID, feed.LoadoutItemParent, item.ParentID)
	}
	if item.LibraryItemID != 0 {
		record(item.ID, feed.LoadoutItemLibraryItem, item.LibraryItemID)
	}
	if item.BundleEntryID != 0 {
		record(item.ID, feed.LoadoutItemBundleEntry, item.BundleEntryID)
	}
	if item.RevisionID != 0 {
		record(item.ID, feed.CollectionGroupRevision, item.RevisionID)
	}
}

// DeleteLoadoutItem removes a loadout item and everything parented under it
func (t *Tx) DeleteLoadoutItem(ctx context.Context, id int64) error {
	items, err := t.loadoutItems(ctx, `id IN (
		WITH RECURSIVE tree(id) AS (
			SELECT ?
			UNION ALL
			SELECT li.id FROM loadout_items li JOIN tree ON li.parent_id = tree.id
		)
		SELECT id FROM tree
	)`, id)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	if _, err := t.exec(ctx, `DELETE FROM loadout_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting loadout item %d: %w", id, err)
	}
	for _, item := range items {
		t.recordLoadoutItem(item, false)
	}
	return nil
}
