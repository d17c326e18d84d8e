package nexusmods

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newClient(nil, "testapikey", server.URL, server.URL+"/v2/graphql")
}

func TestClient_ValidateAPIKey_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/users/validate.json", r.URL.Path)
		assert.Equal(t, "testapikey", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ValidateResponse{UserID: 7, Name: "modder", IsPremium: true})
	})

	resp, err := client.ValidateAPIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, resp.UserID)
	assert.True(t, resp.IsPremium)
}

func TestClient_ReturnsAuthRequired_On401(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ValidateAPIKey(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestClient_IsAuthenticated(t *testing.T) {
	client := NewClient(nil, "")
	assert.False(t, client.IsAuthenticated())

	client.SetAPIKey("key")
	assert.True(t, client.IsAuthenticated())
}

func TestClient_SetAPIKeyDuringRequests(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("apikey")] = true
		mu.Unlock()
		json.NewEncoder(w).Encode(ValidateResponse{UserID: 7, Name: "modder"})
	})

	valid := map[string]bool{"testapikey": true}
	for i := range 20 {
		valid["key-"+strconv.Itoa(i)] = true
	}

	var g errgroup.Group
	g.Go(func() error {
		for i := range 20 {
			client.SetAPIKey("key-" + strconv.Itoa(i))
			client.IsAuthenticated()
		}
		return nil
	})
	for range 4 {
		g.Go(func() error {
			for range 10 {
				if _, err := client.ValidateAPIKey(context.Background()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	mu.Lock()
	defer mu.Unlock()
	for key := range seen {
		assert.True(t, valid[key], "unexpected key %q", key)
	}
	assert.True(t, client.IsAuthenticated())
}

func TestClient_GetDownloadLinks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/games/skyrimspecialedition/mods/12345/files/100/download_link.json", r.URL.Path)
		json.NewEncoder(w).Encode([]DownloadLink{
			{Name: "Nexus CDN", ShortName: "Nexus", URI: "https://cf-files.nexusmods.com/cdn/123/file.zip?key=abc"},
			{Name: "Chicago", ShortName: "Chicago", URI: "https://chicago.nexusmods.com/cdn/123/file.zip?key=abc"},
		})
	})

	links, err := client.GetDownloadLinks(context.Background(), "skyrimspecialedition", 12345, 100)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Contains(t, links[0].URI, "cf-files.nexusmods.com")
}

func TestClient_GetModFiles_UsesGraphQL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/graphql", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "modFiles")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"modFiles":[
			{"fileId":100,"name":"Main","uri":"SkyUI_5_2_SE-12604-5-2SE.7z","version":"5.2","sizeInBytes":"2621440","primary":1},
			{"fileId":101,"name":"Patch","uri":"patch.zip","version":"1","sizeInBytes":"10","primary":0}
		]}}`))
	})

	files, err := client.GetModFiles(context.Background(), "1704", 12604)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 100, files[0].FileID)
	assert.Equal(t, "SkyUI_5_2_SE-12604-5-2SE.7z", files[0].URI)
	assert.Equal(t, int64(2621440), files[0].Size())
}

func TestCatalog_UserInfo(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ValidateResponse{UserID: 1, Name: "free", IsPremium: false})
	})
	catalog := NewCatalog(client)

	user, err := catalog.UserInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.False(t, user.IsPremium)

	_, err = catalog.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "user info is cached")
}

func TestCatalog_UserInfo_NotLoggedIn(t *testing.T) {
	catalog := NewCatalog(NewClient(nil, ""))
	user, err := catalog.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCatalog_DownloadURL_NoLinks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := NewCatalog(client).DownloadURL(context.Background(), domain.FileMetadata{GameID: "g", ModID: 1, FileID: 2})
	assert.ErrorIs(t, err, domain.ErrDownloadFailed)
}

func TestFileDownloadURL(t *testing.T) {
	raw := FileDownloadURL("skyrimspecialedition", 12604, 100, true, CampaignCollections)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "www.nexusmods.com", u.Host)
	assert.Equal(t, "/skyrimspecialedition/mods/12604", u.Path)
	assert.Equal(t, "100", u.Query().Get("file_id"))
	assert.Equal(t, "1", u.Query().Get("nmm"))
	assert.Equal(t, "collections", u.Query().Get("utm_campaign"))

	plain, err := url.Parse(FileDownloadURL("skyrimspecialedition", 12604, 100, false, ""))
	require.NoError(t, err)
	assert.Empty(t, plain.Query().Get("nmm"))
	assert.Empty(t, plain.Query().Get("utm_campaign"))
}

func TestCatalog_FileMetadata(t *testing.T) {
	gameLookups := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/games/skyrimspecialedition.json":
			gameLookups++
			json.NewEncoder(w).Encode(GameData{ID: 1704, DomainName: "skyrimspecialedition"})
		case "/v2/graphql":
			var req struct {
				Variables map[string]any `json:"variables"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "1704", req.Variables["gameId"])
			w.Write([]byte(`{"data":{"modFiles":[{"fileId":100,"name":"Main","uri":"SkyUI.7z","version":"5.2","sizeInBytes":"2048","primary":1}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	catalog := NewCatalog(client)

	meta, err := catalog.FileMetadata(context.Background(), "skyrimspecialedition", 12604, 100)
	require.NoError(t, err)
	assert.Equal(t, "SkyUI.7z", meta.Name)
	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, "skyrimspecialedition", meta.GameID)

	_, err = catalog.FileMetadata(context.Background(), "skyrimspecialedition", 12604, 999)
	assert.ErrorIs(t, err, domain.ErrMetadataNotFound)
	assert.Equal(t, 1, gameLookups, "game IDs are cached")
}

func TestCatalog_SetAPIKeyForgetsUser(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("apikey"))
		json.NewEncoder(w).Encode(ValidateResponse{UserID: len(seen), Name: "user", IsPremium: len(seen) > 1})
	})
	catalog := NewCatalog(client)

	user, err := catalog.UserInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, user.IsPremium)

	catalog.SetAPIKey("premium-key")
	user, err = catalog.UserInfo(context.Background())
	require.NoError(t, err)
	assert.True(t, user.IsPremium)
	assert.Equal(t, "premium-key", seen[len(seen)-1])

	catalog.SetAPIKey("")
	user, err = catalog.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}
