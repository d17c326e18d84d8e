package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/spf13/afero"
)

// ManifestName is the file a collection archive describes itself with
const ManifestName = "collection.json"

// maxManifestSize caps how much of an archived manifest is read
const maxManifestSize = 16 << 20

// ErrNotInArchive is returned when the archive has no file of the requested name
var ErrNotInArchive = errors.New("file not found in archive")

// Extractor reads single files out of collection archives (.zip, .7z, .rar)
type Extractor struct {
	fs afero.Fs
}

// NewExtractor creates an Extractor reading archives from fsys
func NewExtractor(fsys afero.Fs) *Extractor {
	return &Extractor{fs: fsys}
}

// CanExtract returns true if the extractor can handle the given filename
func (e *Extractor) CanExtract(filename string) bool {
	return e.DetectFormat(filename) != ""
}

// DetectFormat returns the archive format based on filename extension
func (e *Extractor) DetectFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return "zip"
	case ".7z":
		return "7z"
	case ".rar":
		return "rar"
	default:
		return ""
	}
}

// ReadFile returns the contents of the first file called name anywhere in
// the archive. Names compare case-insensitively on their base name.
func (e *Extractor) ReadFile(ctx context.Context, archivePath, name string) ([]byte, error) {
	if !e.CanExtract(archivePath) {
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}

	f, err := e.fs.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return nil, fmt.Errorf("identifying %s: %w", filepath.Base(archivePath), err)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("unsupported archive format: %s", filepath.Ext(archivePath))
	}
	// Identify may have consumed the header; the extractors need the whole file
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding archive: %w", err)
	}

	var data []byte
	found := false
	err = ex.Extract(ctx, f, func(ctx context.Context, info archives.FileInfo) error {
		if info.IsDir() || !strings.EqualFold(path.Base(info.NameInArchive), name) {
			return nil
		}
		rc, err := info.Open()
		if err != nil {
			return fmt.Errorf("opening %s in archive: %w", info.NameInArchive, err)
		}
		defer rc.Close()

		data, err = io.ReadAll(io.LimitReader(rc, maxManifestSize))
		if err != nil {
			return fmt.Errorf("reading %s in archive: %w", info.NameInArchive, err)
		}
		found = true
		return fs.SkipAll
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return nil, fmt.Errorf("reading archive %s: %w", filepath.Base(archivePath), err)
	}
	if !found {
		return nil, fmt.Errorf("%s in %s: %w", name, filepath.Base(archivePath), ErrNotInArchive)
	}
	return data, nil
}
