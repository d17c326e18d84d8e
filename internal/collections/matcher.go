package collections

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"

	"github.com/spf13/afero"
)

// LocalFile is a candidate file from the downloads folder
type LocalFile struct {
	Path string
	MD5  string
}

// Matches reports whether a local file is the artifact an entry declares.
// External entries match on MD5 only. Remote entries match on MD5 when the
// catalog published one, otherwise on the file name compared case-insensitively
// to the published name, with or without the local extension.
func Matches(file LocalFile, entry domain.Entry) bool {
	switch entry.Kind {
	case domain.EntryExternal:
		return entry.MD5 != "" && strings.EqualFold(file.MD5, entry.MD5)
	case domain.EntryRemote:
		meta := entry.FileMetadata
		if meta.MD5 != "" && strings.EqualFold(file.MD5, meta.MD5) {
			return true
		}
		return nameMatches(filepath.Base(file.Path), meta.Name)
	default:
		return false
	}
}

func nameMatches(fileName, published string) bool {
	if published == "" {
		return false
	}
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return strings.EqualFold(fileName, published) || strings.EqualFold(stem, published)
}

var signatures = []struct {
	magic []byte
	ext   string
}{
	{[]byte{0x37, 0x7A, 0xBC, 0xAF}, ".7z"},
	{[]byte{0x50, 0x4B, 0x03, 0x04}, ".zip"},
	{[]byte{0x52, 0x61, 0x72, 0x21}, ".rar"},
}

// DetectExtension sniffs the archive type from the first bytes of a file.
// It returns "" when the file is unreadable, shorter than four bytes, or not
// a known archive.
func DetectExtension(fsys afero.Fs, path string) string {
	f, err := fsys.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return ""
	}
	if n < 4 {
		return ""
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(header[:n], sig.magic) {
			return sig.ext
		}
	}
	return ""
}

// needsExtension reports whether a file name carries no usable extension
func needsExtension(fileName string) bool {
	ext := filepath.Ext(fileName)
	return ext == "" || strings.EqualFold(ext, ".tmp")
}

// RepairExtension gives a file with no extension, or a ".tmp" one, the
// extension its content sniffs as. The file is left alone when sniffing is
// inconclusive or the new name is taken. It returns the file's current path.
func RepairExtension(folder *downloads.Folder, path string) (string, bool) {
	name := filepath.Base(path)
	if !needsExtension(name) {
		return path, false
	}

	ext := DetectExtension(folder.Fs(), path)
	if ext == "" {
		return path, false
	}

	target := filepath.Join(filepath.Dir(path), strings.TrimSuffix(name, filepath.Ext(name))+ext)
	if err := folder.Rename(path, target); err != nil {
		return path, false
	}
	return target, true
}
