package tui_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/core"
	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"
	"github.com/DonovanMods/lmm-collections/internal/library"
	"github.com/DonovanMods/lmm-collections/internal/storage/db"
	"github.com/DonovanMods/lmm-collections/internal/storage/downloads"
	"github.com/DonovanMods/lmm-collections/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const downloadsDir = "/home/user/.local/share/lmm/Downloads"

type harness struct {
	db      *db.DB
	fs      afero.Fs
	library *library.Service
	d       *collections.Downloader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	fs := afero.NewMemMapFs()
	lib := library.New(database, fs)
	d := collections.New(database, lib, downloads.New(fs, downloadsDir), core.NewDownloader(nil, fs), nil, nil,
		collections.WithTempDir("/tmp/lmm"))
	return &harness{db: database, fs: fs, library: lib, d: d}
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (h *harness) seed(t *testing.T, entries ...domain.Entry) (domain.CollectionRevision, []domain.Entry) {
	t.Helper()
	ctx := context.Background()
	var rev domain.CollectionRevision
	require.NoError(t, h.db.Update(ctx, func(tx *db.Tx) error {
		c := domain.Collection{Slug: "tcoll1", Name: "Test Collection", GameID: "skyrimspecialedition"}
		if err := tx.UpsertCollection(ctx, &c); err != nil {
			return err
		}
		rev = domain.CollectionRevision{CollectionID: c.ID, RevisionNumber: 1, Collection: c}
		if err := tx.CreateRevision(ctx, &rev); err != nil {
			return err
		}
		for i := range entries {
			entries[i].RevisionID = rev.ID
			if err := tx.InsertEntry(ctx, &entries[i], i); err != nil {
				return err
			}
		}
		return nil
	}))
	return rev, entries
}

func external(name, uri string, content []byte) domain.Entry {
	return domain.Entry{
		Name: name, Kind: domain.EntryExternal, Type: domain.ItemRequired,
		URI: uri, MD5: md5Hex(content), Size: int64(len(content)),
	}
}

func newApp(t *testing.T, h *harness, rev domain.CollectionRevision, entries []domain.Entry) tui.App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	app, err := tui.NewApp(ctx, h.d, rev, entries, tui.Options{})
	require.NoError(t, err)
	return app
}

// run executes a command with a timeout
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func update(t *testing.T, app tui.App, msg tea.Msg) (tui.App, tea.Cmd) {
	t.Helper()
	model, cmd := app.Update(msg)
	return model.(tui.App), cmd
}

func TestApp_InitialView(t *testing.T) {
	h := newHarness(t)
	rev, entries := h.seed(t,
		external("Alpha", "https://example.com/a.zip", []byte("a")),
		domain.Entry{Name: "Patch", Kind: domain.EntryBundled, Type: domain.ItemRequired, BundleRef: "patch"},
		domain.Entry{Name: "Optional", Kind: domain.EntryExternal, Type: domain.ItemOptional, URI: "https://example.com/o.zip", MD5: "x"},
	)

	app := newApp(t, h, rev, entries)
	view := app.View()
	assert.Contains(t, view, "Test Collection (revision 1)")
	assert.Contains(t, view, "0/1 downloaded")
	assert.Contains(t, view, "Alpha")
	assert.Contains(t, view, "Patch")
	assert.NotContains(t, view, "Optional")
	assert.True(t, app.Status(entries[0].ID).IsNotDownloaded())
	assert.True(t, app.Status(entries[1].ID).IsBundled())
}

func TestApp_FollowsStreams(t *testing.T) {
	h := newHarness(t)
	content := []byte("alpha archive")
	rev, entries := h.seed(t, external("Alpha", "https://example.com/a.zip", content))
	app := newApp(t, h, rev, entries)

	batch, ok := run(t, app.Init()).(tea.BatchMsg)
	require.True(t, ok)

	var statusNext, countNext tea.Cmd
	for _, cmd := range batch {
		msg := run(t, cmd)
		var next tea.Cmd
		app, next = update(t, app, msg)
		switch msg.(type) {
		case tui.StatusMsg:
			statusNext = next
		case tui.CountMsg:
			countNext = next
		}
	}
	require.NotNil(t, statusNext)
	require.NotNil(t, countNext)

	_, _, err := h.library.Add(context.Background(), library.Hashed{FileName: "a.zip", MD5: md5Hex(content), Size: int64(len(content))})
	require.NoError(t, err)

	app, _ = update(t, app, run(t, statusNext))
	app, _ = update(t, app, run(t, countNext))

	assert.True(t, app.Status(entries[0].ID).IsInLibrary())
	assert.Equal(t, 1, app.Downloaded())
	assert.Contains(t, app.View(), "1/1 downloaded")
	assert.Contains(t, app.View(), "in library")
}

func TestApp_Navigate(t *testing.T) {
	h := newHarness(t)
	rev, entries := h.seed(t,
		external("A", "https://example.com/a.zip", []byte("a")),
		external("B", "https://example.com/b.zip", []byte("b")),
		external("C", "https://example.com/c.zip", []byte("c")),
	)
	app := newApp(t, h, rev, entries)

	app, _ = update(t, app, runes("j"))
	assert.Equal(t, 1, app.Selected())
	app, _ = update(t, app, runes("G"))
	assert.Equal(t, 2, app.Selected())
	app, _ = update(t, app, runes("j"))
	assert.Equal(t, 0, app.Selected(), "wraps around")
	app, _ = update(t, app, runes("k"))
	assert.Equal(t, 2, app.Selected())
	app, _ = update(t, app, runes("g"))
	assert.Equal(t, 0, app.Selected())
}

func TestApp_Download(t *testing.T) {
	h := newHarness(t)
	content := []byte("PK\x03\x04 alpha archive")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		if r.Method == http.MethodGet {
			w.Write(content)
		}
	}))
	t.Cleanup(server.Close)

	rev, entries := h.seed(t, external("Alpha", server.URL+"/alpha.zip", content))
	app := newApp(t, h, rev, entries)

	app, cmd := update(t, app, runes("d"))
	require.NotNil(t, cmd)
	require.NotNil(t, app.Job())
	require.NoError(t, app.Job().Wait(context.Background()))
	assert.Equal(t, jobs.StateCompleted, app.Job().State())

	app, _ = update(t, app, tui.JobDoneMsg{State: app.Job().State()})
	assert.Contains(t, app.View(), "Download finished (1/1)")

	status, err := h.d.GetStatus(context.Background(), entries[0], nil)
	require.NoError(t, err)
	assert.True(t, status.IsInLibrary())
}

func TestApp_Rescan(t *testing.T) {
	h := newHarness(t)
	content := make([]byte, 2048)
	copy(content, "PK\x03\x04")
	require.NoError(t, afero.WriteFile(h.fs, downloadsDir+"/alpha.zip", content, 0644))
	rev, entries := h.seed(t, external("Alpha", "https://example.com/a.zip", content))
	app := newApp(t, h, rev, entries)

	app, cmd := update(t, app, runes("r"))
	assert.Contains(t, app.View(), "Rescanning")

	app, _ = update(t, app, run(t, cmd))
	assert.Contains(t, app.View(), "Rescan matched 1 of 1 files")
}

func TestApp_Quit(t *testing.T) {
	h := newHarness(t)
	rev, entries := h.seed(t)
	app := newApp(t, h, rev, entries)

	_, cmd := update(t, app, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, app.View(), "No entries of this type.")
}
