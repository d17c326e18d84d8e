// Package library registers locally held archives as content-addressed
// library items.
package library

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Service adds files to the library and maintains their links
type Service struct {
	db     *db.DB
	fs     afero.Fs
	logger zerolog.Logger
}

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a library service
func New(database *db.DB, fsys afero.Fs, opts ...Option) *Service {
	s := &Service{
		db:     database,
		fs:     fsys,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashFile returns the hex MD5 and size of a file
func HashFile(fsys afero.Fs, path string) (string, int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	hasher := md5.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// Hashed describes a file whose content hash is already known
type Hashed struct {
	FileName       string
	MD5            string
	Size           int64
	FileMetadataID int64
}

// Add registers a hashed file. When an item with the same MD5 exists it is
// returned unchanged and created is false.
func (s *Service) Add(ctx context.Context, h Hashed) (item *domain.LibraryItem, created bool, err error) {
	err = s.db.Update(ctx, func(tx *db.Tx) error {
		existing, err := tx.LibraryItemByMD5(ctx, h.MD5)
		if err != nil {
			return err
		}
		if existing != nil {
			item = existing
			return nil
		}

		item = &domain.LibraryItem{
			Name:           h.FileName,
			FileName:       h.FileName,
			MD5:            h.MD5,
			Size:           h.Size,
			FileMetadataID: h.FileMetadataID,
		}
		created = true
		return tx.InsertLibraryItem(ctx, item)
	})
	if err != nil {
		return nil, false, fmt.Errorf("adding %s to library: %w", h.FileName, err)
	}

	if created {
		s.logger.Info().Str("file", h.FileName).Str("md5", h.MD5).Int64("id", item.ID).Msg("added to library")
	}
	return item, created, nil
}

// AddLocalFile hashes the file at path and registers it
func (s *Service) AddLocalFile(ctx context.Context, path string, metadataID int64) (*domain.LibraryItem, bool, error) {
	sum, size, err := HashFile(s.fs, path)
	if err != nil {
		return nil, false, err
	}
	return s.Add(ctx, Hashed{
		FileName:       filepath.Base(path),
		MD5:            sum,
		Size:           size,
		FileMetadataID: metadataID,
	})
}

// Lookup returns the item with the given MD5, or nil
func (s *Service) Lookup(ctx context.Context, md5 string) (*domain.LibraryItem, error) {
	return s.db.LibraryItemByMD5(ctx, md5)
}

// Rename updates the recorded file name when it differs. It reports whether
// anything was written.
func (s *Service) Rename(ctx context.Context, item *domain.LibraryItem, fileName string) (bool, error) {
	if item.FileName == fileName {
		return false, nil
	}
	if err := s.db.Update(ctx, func(tx *db.Tx) error {
		return tx.RenameLibraryItem(ctx, item.ID, fileName)
	}); err != nil {
		return false, fmt.Errorf("renaming library item %d: %w", item.ID, err)
	}
	s.logger.Debug().Int64("id", item.ID).Str("from", item.FileName).Str("to", fileName).Msg("renamed library item")
	item.FileName = fileName
	return true, nil
}

// Link adds a link from the item to a catalog record when it is not linked to
// it yet. Links to other records stay, so content shared by several files
// resolves for each of them. It reports whether anything was written.
func (s *Service) Link(ctx context.Context, item *domain.LibraryItem, metadataID int64) (bool, error) {
	linked := item.FileMetadataID == metadataID
	if !linked {
		var err error
		if linked, err = s.db.LibraryItemLinked(ctx, item.ID, metadataID); err != nil {
			return false, err
		}
	}
	if linked {
		return false, nil
	}
	if err := s.db.Update(ctx, func(tx *db.Tx) error {
		return tx.LinkLibraryItem(ctx, item.ID, metadataID)
	}); err != nil {
		return false, fmt.Errorf("linking library item %d: %w", item.ID, err)
	}
	s.logger.Debug().Int64("id", item.ID).Int64("file_metadata", metadataID).Msg("linked library item")
	item.FileMetadataID = metadataID
	return true, nil
}
