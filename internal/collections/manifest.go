package collections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
)

// Manifest is the collection.json shipped inside a collection archive
type Manifest struct {
	Info ManifestInfo  `json:"info"`
	Mods []ManifestMod `json:"mods"`
}

// ManifestInfo describes the collection as a whole
type ManifestInfo struct {
	Author      string `json:"author"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DomainName  string `json:"domainName"`
}

// ManifestMod is one declared mod
type ManifestMod struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Optional   bool           `json:"optional"`
	DomainName string         `json:"domainName"`
	Source     ManifestSource `json:"source"`
}

// Source types
const (
	SourceNexus  = "nexus"
	SourceDirect = "direct"
	SourceBrowse = "browse"
	SourceBundle = "bundle"
)

// ManifestSource says where a mod comes from
type ManifestSource struct {
	Type            string `json:"type"`
	ModID           int    `json:"modId"`
	FileID          int    `json:"fileId"`
	MD5             string `json:"md5"`
	FileSize        int64  `json:"fileSize"`
	LogicalFilename string `json:"logicalFilename"`
	URL             string `json:"url"`
	FileExpression  string `json:"fileExpression"`
}

// ParseManifest decodes and validates a collection.json
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding collection manifest: %w", err)
	}
	if m.Info.Name == "" {
		return nil, errors.New("collection manifest has no name")
	}
	for i, mod := range m.Mods {
		switch strings.ToLower(mod.Source.Type) {
		case SourceNexus:
			if mod.Source.ModID == 0 || mod.Source.FileID == 0 {
				return nil, fmt.Errorf("mod %d (%s): nexus source needs modId and fileId", i, mod.Name)
			}
		case SourceDirect, SourceBrowse:
			if mod.Source.URL == "" {
				return nil, fmt.Errorf("mod %d (%s): %s source needs a url", i, mod.Name, mod.Source.Type)
			}
		case SourceBundle:
		default:
			return nil, fmt.Errorf("mod %d (%s) has source %q: %w", i, mod.Name, mod.Source.Type, domain.ErrUnsupportedEntry)
		}
	}
	return &m, nil
}

// entry converts a manifest mod into an unsaved collection entry
func (mod ManifestMod) entry(gameID string) domain.Entry {
	e := domain.Entry{Name: mod.Name, Type: domain.ItemRequired}
	if mod.Optional {
		e.Type = domain.ItemOptional
	}
	if mod.DomainName != "" {
		gameID = mod.DomainName
	}

	src := mod.Source
	switch strings.ToLower(src.Type) {
	case SourceNexus:
		e.Kind = domain.EntryRemote
		e.FileMetadata = domain.FileMetadata{
			GameID: gameID,
			ModID:  src.ModID,
			FileID: src.FileID,
			Name:   firstNonEmpty(src.LogicalFilename, mod.Name),
			Size:   src.FileSize,
			MD5:    src.MD5,
		}
	case SourceDirect, SourceBrowse:
		e.Kind = domain.EntryExternal
		e.URI = src.URL
		e.MD5 = src.MD5
		e.Size = src.FileSize
		e.ManualOnly = strings.EqualFold(src.Type, SourceBrowse)
	case SourceBundle:
		e.Kind = domain.EntryBundled
		e.BundleRef = firstNonEmpty(src.FileExpression, mod.Name)
	}
	return e
}

// GetOrAddRevision stores a revision of the collection with its entries, in
// one transaction. If the revision is already stored it is returned as is.
// Remote entries are enriched with the catalog's published name and size
// when a catalog is available; lookup failures keep the manifest's values.
func (d *Downloader) GetOrAddRevision(ctx context.Context, slug string, number int, m *Manifest) (*domain.CollectionRevision, error) {
	rev, err := d.db.RevisionByNumber(ctx, slug, number)
	if err == nil {
		return rev, nil
	}
	if !errors.Is(err, domain.ErrRevisionNotFound) {
		return nil, err
	}

	entries := make([]domain.Entry, len(m.Mods))
	for i, mod := range m.Mods {
		entries[i] = mod.entry(m.Info.DomainName)
		if entries[i].Kind == domain.EntryRemote {
			d.enrich(ctx, &entries[i].FileMetadata)
		}
	}

	rev = &domain.CollectionRevision{
		RevisionNumber: number,
		Collection:     domain.Collection{Slug: slug, Name: m.Info.Name, GameID: m.Info.DomainName},
	}
	err = d.db.Update(ctx, func(tx *db.Tx) error {
		if err := tx.UpsertCollection(ctx, &rev.Collection); err != nil {
			return err
		}
		rev.CollectionID = rev.Collection.ID
		if err := tx.CreateRevision(ctx, rev); err != nil {
			return err
		}

		for i := range entries {
			e := &entries[i]
			e.RevisionID = rev.ID
			if e.Kind == domain.EntryRemote {
				if err := tx.UpsertFileMetadata(ctx, &e.FileMetadata); err != nil {
					return err
				}
			}
			if err := tx.InsertEntry(ctx, e, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing %s@%d: %w", slug, number, err)
	}

	d.logger.Info().Str("revision", rev.String()).Int("entries", len(entries)).Msg("imported collection revision")
	return rev, nil
}

func (d *Downloader) enrich(ctx context.Context, meta *domain.FileMetadata) {
	if d.catalog == nil {
		return
	}
	remote, err := d.catalog.FileMetadata(ctx, meta.GameID, meta.ModID, meta.FileID)
	if err != nil {
		d.logger.Debug().Err(err).Str("game", meta.GameID).Int("mod", meta.ModID).Int("file", meta.FileID).Msg("catalog lookup failed, using manifest values")
		return
	}
	if remote.Name != "" {
		meta.Name = remote.Name
	}
	if remote.Size > 0 {
		meta.Size = remote.Size
	}
}
