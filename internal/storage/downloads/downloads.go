// Package downloads manages the folder fetched archives are preserved in.
package downloads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// File is one entry found in the downloads folder
type File struct {
	Path string
	Size int64
}

// Folder is the downloads folder on a filesystem
type Folder struct {
	fs       afero.Fs
	basePath string
}

// New creates a downloads folder rooted at basePath
func New(fsys afero.Fs, basePath string) *Folder {
	return &Folder{fs: fsys, basePath: basePath}
}

// Path returns the folder's root
func (f *Folder) Path() string {
	return f.basePath
}

// Fs returns the filesystem the folder lives on
func (f *Folder) Fs() afero.Fs {
	return f.fs
}

// Exists reports whether a path exists
func (f *Folder) Exists(path string) bool {
	ok, err := afero.Exists(f.fs, path)
	return err == nil && ok
}

// UniquePath returns a path in the folder for fileName that does not exist
// yet, appending _1, _2, ... to the stem on collision. Two concurrent callers
// may be handed the same path.
func (f *Folder) UniquePath(fileName string) string {
	fileName = filepath.Base(fileName)
	candidate := filepath.Join(f.basePath, fileName)
	if !f.Exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(fileName)
	stem := strings.TrimSuffix(fileName, ext)
	for i := 1; ; i++ {
		candidate = filepath.Join(f.basePath, stem+"_"+strconv.Itoa(i)+ext)
		if !f.Exists(candidate) {
			return candidate
		}
	}
}

// Preserve copies src into the folder under fileName, suffixed if needed,
// and returns the path written.
func (f *Folder) Preserve(src, fileName string) (string, error) {
	if err := f.fs.MkdirAll(f.basePath, 0755); err != nil {
		return "", fmt.Errorf("creating downloads dir: %w", err)
	}

	in, err := f.fs.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	dest := f.UniquePath(fileName)
	out, err := f.fs.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = f.fs.Remove(dest)
		return "", fmt.Errorf("copying to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		_ = f.fs.Remove(dest)
		return "", fmt.Errorf("closing %s: %w", dest, err)
	}

	return dest, nil
}

// Rename moves a file within the folder. It refuses to overwrite.
func (f *Folder) Rename(oldPath, newPath string) error {
	if f.Exists(newPath) {
		return fmt.Errorf("renaming %s: %w", oldPath, fs.ErrExist)
	}
	if err := f.fs.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("renaming %s: %w", oldPath, err)
	}
	return nil
}

// List returns every regular file below the folder in lexical order. A
// missing folder is empty.
func (f *Folder) List() ([]File, error) {
	if _, err := f.fs.Stat(f.basePath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var files []File
	err := afero.Walk(f.fs, f.basePath, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, File{Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing downloads: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// TempFile creates an empty file for an in-flight download inside dir
func (f *Folder) TempFile(dir string) (afero.File, error) {
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	file, err := afero.TempFile(f.fs, dir, "lmm-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return file, nil
}
