package db

import "fmt"

func (d *DB) migrate() error {
	// Create migrations table if it doesn't exist
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
		migrateV3,
		migrateV4,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

func execAll(d *DB, statements []string) error {
	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	if len(stmt) > 50 {
		return stmt[:50]
	}
	return stmt
}

// migrateV1 creates the collection manifest tables
func migrateV1(d *DB) error {
	return execAll(d, []string{
		`CREATE TABLE collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			game_id TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE collection_revisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection_id INTEGER NOT NULL REFERENCES collections(id),
			revision_number INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(collection_id, revision_number)
		)`,
		`CREATE TABLE file_metadata (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			mod_id INTEGER NOT NULL,
			file_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			md5 TEXT NOT NULL DEFAULT '',
			UNIQUE(game_id, mod_id, file_id)
		)`,
		`CREATE TABLE collection_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			revision_id INTEGER NOT NULL REFERENCES collection_revisions(id),
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind INTEGER NOT NULL,
			item_type INTEGER NOT NULL,
			bundle_ref TEXT,
			file_metadata_id INTEGER REFERENCES file_metadata(id),
			uri TEXT,
			md5 TEXT,
			size INTEGER,
			manual_only INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_collection_entries_revision ON collection_entries(revision_id, position)`,
	})
}

// migrateV2 creates the library and loadout tables. Loadout items keep plain
// references to entries and revisions so deleting a revision leaves installed
// items alone.
func migrateV2(d *DB) error {
	return execAll(d, []string{
		`CREATE TABLE library_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			file_name TEXT NOT NULL,
			md5 TEXT NOT NULL UNIQUE,
			size INTEGER NOT NULL,
			file_metadata_id INTEGER REFERENCES file_metadata(id),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX idx_library_items_metadata ON library_items(file_metadata_id)`,
		`CREATE TABLE loadouts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			game_id TEXT NOT NULL
		)`,
		`CREATE TABLE loadout_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			loadout_id INTEGER NOT NULL REFERENCES loadouts(id) ON DELETE CASCADE,
			parent_id INTEGER REFERENCES loadout_items(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			library_item_id INTEGER REFERENCES library_items(id),
			bundle_entry_id INTEGER,
			revision_id INTEGER
		)`,
		`CREATE INDEX idx_loadout_items_library ON loadout_items(library_item_id)`,
		`CREATE INDEX idx_loadout_items_bundle ON loadout_items(bundle_entry_id)`,
		`CREATE INDEX idx_loadout_items_revision ON loadout_items(revision_id)`,
	})
}

func migrateV3(d *DB) error {
	_, err := d.Exec(`
		CREATE TABLE auth_tokens (
			source_id TEXT PRIMARY KEY,
			token_data BLOB,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// migrateV4 lets one library item stand for several catalog records. The
// column on library_items keeps the most recent link.
func migrateV4(d *DB) error {
	return execAll(d, []string{
		`CREATE TABLE library_item_file_metadata (
			library_item_id INTEGER NOT NULL REFERENCES library_items(id),
			file_metadata_id INTEGER NOT NULL REFERENCES file_metadata(id),
			PRIMARY KEY(library_item_id, file_metadata_id)
		)`,
		`CREATE INDEX idx_library_item_file_metadata_metadata ON library_item_file_metadata(file_metadata_id)`,
		`INSERT INTO library_item_file_metadata (library_item_id, file_metadata_id)
			SELECT id, file_metadata_id FROM library_items WHERE file_metadata_id IS NOT NULL`,
	})
}
