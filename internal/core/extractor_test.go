package core_test

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/DonovanMods/lmm-collections/internal/core"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZip(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

func TestExtractor_ReadFile_Zip(t *testing.T) {
	fs := afero.NewMemMapFs()
	createTestZip(t, fs, "/collections/tcoll1.zip", map[string]string{
		"readme.txt":             "not this one",
		"tcoll1/Collection.JSON": `{"info": {"name": "x"}}`,
		"bundled/patch.esp":      "patch",
	})

	data, err := core.NewExtractor(fs).ReadFile(context.Background(), "/collections/tcoll1.zip", core.ManifestName)
	require.NoError(t, err)
	assert.Equal(t, `{"info": {"name": "x"}}`, string(data))
}

func TestExtractor_ReadFile_Missing(t *testing.T) {
	fs := afero.NewMemMapFs()
	createTestZip(t, fs, "/collections/empty.zip", map[string]string{"readme.txt": "hi"})

	_, err := core.NewExtractor(fs).ReadFile(context.Background(), "/collections/empty.zip", core.ManifestName)
	assert.ErrorIs(t, err, core.ErrNotInArchive)
}

func TestExtractor_ReadFile_MissingArchive(t *testing.T) {
	_, err := core.NewExtractor(afero.NewMemMapFs()).ReadFile(context.Background(), "/collections/nope.7z", core.ManifestName)
	assert.ErrorContains(t, err, "opening archive")
}

func TestExtractor_ReadFile_Unsupported(t *testing.T) {
	_, err := core.NewExtractor(afero.NewMemMapFs()).ReadFile(context.Background(), "/collections/x.tar.gz", core.ManifestName)
	assert.ErrorContains(t, err, "unsupported archive format")
}

func TestExtractor_ReadFile_NotAZip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/collections/bad.zip", []byte("garbage"), 0644))

	_, err := core.NewExtractor(fs).ReadFile(context.Background(), "/collections/bad.zip", core.ManifestName)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotInArchive)
	assert.Contains(t, err.Error(), "bad.zip")
}

func TestExtractor_DetectFormat(t *testing.T) {
	e := core.NewExtractor(afero.NewMemMapFs())
	tests := []struct {
		name string
		want string
	}{
		{"collection.zip", "zip"},
		{"collection.ZIP", "zip"},
		{"collection.7z", "7z"},
		{"collection.rar", "rar"},
		{"collection.json", ""},
		{"collection", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.DetectFormat(tt.name))
			assert.Equal(t, tt.want != "", e.CanExtract(tt.name))
		})
	}
}
