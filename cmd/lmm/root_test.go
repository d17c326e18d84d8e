package main

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv points the CLI at temp directories and resets flag state between runs
type cliEnv struct {
	configDir    string
	dataDir      string
	downloadsDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{configDir: t.TempDir(), dataDir: t.TempDir(), downloadsDir: t.TempDir()}
	t.Setenv("LMM_NEXUS_API_KEY", "")
	t.Setenv("LMM_DEFAULT_LOADOUT", "")
	t.Setenv("LMM_DOWNLOADS_PATH", env.downloadsDir)
	t.Setenv("NO_COLOR", "1")
	return env
}

func resetFlags() {
	configDir, dataDir = "", ""
	verbose, jsonOutput, noColor = false, false, false
	metricsAddr = ""
	authKey = ""
	collRevision, collItemType, collLoadout = 0, "required", ""
	importSlug, importRevision = "", 1
	downloadParallel = 0
	deleteGroups, deleteYes = false, false
	watchKeys = "vim"
}

// run executes the root command with args and returns stdout
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", e.configDir, "--data", e.dataDir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func archiveContent() []byte {
	content := make([]byte, 2048)
	copy(content, "PK\x03\x04 tweaks")
	return content
}

// writeManifest writes a collection.json with a direct, a bundled and an optional browse entry
func (e *cliEnv) writeManifest(t *testing.T) string {
	t.Helper()
	sum := md5.Sum(archiveContent())
	manifest := fmt.Sprintf(`{
  "info": {"name": "CLI Collection", "domainName": "skyrimspecialedition"},
  "mods": [
    {"name": "Tweaks", "source": {"type": "direct", "url": "https://example.com/tweaks.zip", "md5": %q, "fileSize": 2048}},
    {"name": "Patch", "source": {"type": "bundle", "fileExpression": "patch"}},
    {"name": "Extras", "optional": true, "source": {"type": "browse", "url": "https://example.com/extras"}}
  ]
}`, hex.EncodeToString(sum[:]))

	path := filepath.Join(t.TempDir(), "collection.json")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))
	return path
}

func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "lmm", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"auth", "collection"} {
		assert.NotNil(t, findCommand(rootCmd, name), name)
	}
	for _, name := range []string{"import", "list", "status", "download", "rescan", "missing", "delete", "watch"} {
		c := findCommand(collectionCmd, name)
		require.NotNil(t, c, name)
		assert.NotEmpty(t, c.Short, name)
		assert.NotNil(t, c.RunE, name)
	}
	for _, name := range []string{"login", "logout", "status"} {
		assert.NotNil(t, findCommand(authCmd, name), name)
	}
}

func TestGetServiceConfig_UsesFlags(t *testing.T) {
	resetFlags()
	configDir = "/tmp/lmm-config"
	dataDir = "/tmp/lmm-data"
	t.Cleanup(resetFlags)

	cfg, err := getServiceConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lmm-config", cfg.ConfigDir)
	assert.Equal(t, "/tmp/lmm-data", cfg.DataDir)
}

func TestInitService_LoadsDotEnv(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.Unsetenv("LMM_DEFAULT_LOADOUT"))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, ".env"), []byte("LMM_DEFAULT_LOADOUT=Main\n"), 0600))

	resetFlags()
	configDir, dataDir = env.configDir, env.dataDir
	t.Cleanup(resetFlags)
	t.Cleanup(func() { os.Unsetenv("LMM_DEFAULT_LOADOUT") })

	svc, err := initService()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, svc.Close()) })

	assert.Equal(t, "Main", svc.Config().DefaultLoadout)
	assert.Equal(t, env.dataDir, svc.DataDir())
}

func TestColorize_RespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	resetFlags()
	assert.Equal(t, ansiGreen+"ok"+ansiReset, colorGreen("ok"))

	noColor = true
	t.Cleanup(resetFlags)
	assert.Equal(t, "ok", colorGreen("ok"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestCollectionList_Empty(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "collection", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No collections stored.")

	out, err = env.run(t, "", "collection", "list", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestCollection_ImportStatusRescan(t *testing.T) {
	env := newCLIEnv(t)
	manifest := env.writeManifest(t)

	out, err := env.run(t, "", "collection", "import", manifest, "--revision", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported CLI Collection (cli-collection, revision 2)")
	assert.Contains(t, out, "Required: 1 to download")
	assert.Contains(t, out, "Optional: 1 to download")

	out, err = env.run(t, "", "collection", "list", "--json")
	require.NoError(t, err)
	var list []listCollectionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "cli-collection", list[0].Slug)
	assert.Equal(t, []int{2}, list[0].Revisions)

	out, err = env.run(t, "", "collection", "status", "cli-collection", "--json")
	require.NoError(t, err)
	var status statusJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 2, status.Revision)
	assert.Equal(t, 0, status.Downloaded)
	assert.Equal(t, 1, status.Total)
	assert.False(t, status.FullyDownloaded)
	assert.Nil(t, status.FullyInstalled, "no loadout configured")
	require.Len(t, status.Entries, 2)
	assert.Equal(t, "not downloaded", status.Entries[0].Status)
	assert.Equal(t, "bundled", status.Entries[1].Status)

	out, err = env.run(t, "", "collection", "missing", "cli-collection", "--type", "all", "--json")
	require.NoError(t, err)
	var missing []missingJSON
	require.NoError(t, json.Unmarshal([]byte(out), &missing))
	require.Len(t, missing, 2)
	assert.Equal(t, "https://example.com/tweaks.zip", missing[0].URI)
	assert.True(t, missing[1].ManualOnly)

	require.NoError(t, os.WriteFile(filepath.Join(env.downloadsDir, "tweaks-renamed.zip"), archiveContent(), 0644))
	out, err = env.run(t, "", "collection", "rescan", "cli-collection")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 1 file(s)")
	assert.Contains(t, out, "Matched: 1")

	out, err = env.run(t, "", "collection", "status", "cli-collection")
	require.NoError(t, err)
	assert.Contains(t, out, "required items: 1/1 downloaded")
	assert.Contains(t, out, "in library")
	assert.Contains(t, out, "All items downloaded")
}

func TestCollectionStatus_UnknownSlug(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "collection", "status", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lmm collection list")
}

func TestCollectionStatus_InvalidType(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "collection", "status", "x", "--type", "sometimes")
	assert.ErrorContains(t, err, "unknown item type")
}

func TestCollectionDelete(t *testing.T) {
	env := newCLIEnv(t)
	manifest := env.writeManifest(t)
	_, err := env.run(t, "", "collection", "import", manifest, "--slug", "tcoll1")
	require.NoError(t, err)
	_, err = env.run(t, "", "collection", "import", manifest, "--slug", "tcoll1", "--revision", "2")
	require.NoError(t, err)

	_, err = env.run(t, "n\n", "collection", "delete", "tcoll1")
	assert.ErrorIs(t, err, ErrCancelled)

	out, err := env.run(t, "", "collection", "delete", "tcoll1", "--revision", "2", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted tcoll1@2")

	out, err = env.run(t, "", "collection", "list", "--json")
	require.NoError(t, err)
	var list []listCollectionJSON
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []int{1}, list[0].Revisions)

	out, err = env.run(t, "y\n", "collection", "delete", "tcoll1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted tcoll1")

	out, err = env.run(t, "", "collection", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No collections stored.")
}

func TestAuthStatus_NotLoggedIn(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "not logged in")
}

func TestAuthLogin_EmptyKey(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "\n", "auth", "login")
	assert.ErrorContains(t, err, "empty API key")
}

func TestReadAPIKey_PipedInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader("  abc123 \n"))

	key, err := readAPIKey(cmd)
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
}

func TestReadAPIKey_NonTerminalFile(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	_, err = w.WriteString("from-pipe\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	prompt := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetErr(prompt)
	cmd.SetIn(r)

	key, err := readAPIKey(cmd)
	require.NoError(t, err)
	assert.Equal(t, "from-pipe", key)
	assert.Equal(t, "NexusMods API key: ", prompt.String())
}

func TestReadAPIKey_NoInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetIn(strings.NewReader(""))

	_, err := readAPIKey(cmd)
	assert.ErrorContains(t, err, "reading API key")
}
