package collections

import (
	"context"
	"fmt"

	"github.com/DonovanMods/lmm-collections/internal/storage/db"
)

// DeleteRevision removes a revision and its entries. Library items created
// from those entries stay in the library.
func (d *Downloader) DeleteRevision(ctx context.Context, revisionID int64) error {
	if err := d.db.Update(ctx, func(tx *db.Tx) error {
		return tx.DeleteRevision(ctx, revisionID)
	}); err != nil {
		return fmt.Errorf("deleting revision %d: %w", revisionID, err)
	}
	d.logger.Info().Int64("revision", revisionID).Msg("deleted revision")
	return nil
}

// DeleteCollection removes a collection with all revisions and entries
func (d *Downloader) DeleteCollection(ctx context.Context, collectionID int64) error {
	if err := d.db.Update(ctx, func(tx *db.Tx) error {
		return tx.DeleteCollection(ctx, collectionID)
	}); err != nil {
		return fmt.Errorf("deleting collection %d: %w", collectionID, err)
	}
	d.logger.Info().Int64("collection", collectionID).Msg("deleted collection")
	return nil
}

// DeleteCollectionLoadoutGroup removes every group installed from the
// revision, in any loadout, together with the items under it
func (d *Downloader) DeleteCollectionLoadoutGroup(ctx context.Context, revisionID int64) error {
	return d.db.Update(ctx, func(tx *db.Tx) error {
		groups, err := tx.CollectionGroups(ctx, revisionID)
		if err != nil {
			return err
		}
		for _, g := range groups {
			if err := tx.DeleteLoadoutItem(ctx, g.ID); err != nil {
				return fmt.Errorf("deleting group %d: %w", g.ID, err)
			}
		}
		return nil
	})
}
