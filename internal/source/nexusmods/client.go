package nexusmods

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/DonovanMods/lmm-collections/internal/domain"

	"github.com/hasura/go-graphql-client"
)

const (
	defaultBaseURL  = "https://api.nexusmods.com"
	graphqlEndpoint = "https://api.nexusmods.com/v2/graphql"
)

// Client wraps the NexusMods REST and GraphQL APIs
type Client struct {
	gql        *graphql.Client
	httpClient *http.Client
	transport  *apiKeyTransport
	baseURL    string
}

// NewClient creates a new NexusMods API client
func NewClient(httpClient *http.Client, apiKey string) *Client {
	return newClient(httpClient, apiKey, defaultBaseURL, graphqlEndpoint)
}

func newClient(httpClient *http.Client, apiKey, baseURL, gqlURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// Create transport that adds API key header
	transport := &apiKeyTransport{
		base:   httpClient.Transport,
		apiKey: apiKey,
	}
	authedClient := &http.Client{Transport: transport, Timeout: httpClient.Timeout}

	return &Client{
		gql:        graphql.NewClient(gqlURL, authedClient),
		httpClient: authedClient,
		transport:  transport,
		baseURL:    baseURL,
	}
}

// apiKeyTransport adds the key header. The key may change while requests
// are in flight.
type apiKeyTransport struct {
	base http.RoundTripper

	mu     sync.RWMutex
	apiKey string
}

func (t *apiKeyTransport) key() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.apiKey
}

func (t *apiKeyTransport) setKey(key string) {
	t.mu.Lock()
	t.apiKey = key
	t.mu.Unlock()
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if key := t.key(); key != "" {
		req = req.Clone(req.Context())
		req.Header.Set("apikey", key)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// SetAPIKey replaces the API key sent with every request
func (c *Client) SetAPIKey(key string) {
	c.transport.setKey(key)
}

// IsAuthenticated returns true if an API key is configured
func (c *Client) IsAuthenticated() bool {
	return c.transport.key() != ""
}

// ValidateAPIKey checks the configured key and returns the account it belongs to
func (c *Client) ValidateAPIKey(ctx context.Context) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.getJSON(ctx, "/v1/users/validate.json", &resp); err != nil {
		return nil, fmt.Errorf("validating API key: %w", err)
	}
	return &resp, nil
}

// GetDownloadLinks returns the CDN links for a file. Only premium accounts
// may request links without a key from the website.
func (c *Client) GetDownloadLinks(ctx context.Context, gameDomain string, modID, fileID int) ([]DownloadLink, error) {
	path := fmt.Sprintf("/v1/games/%s/mods/%d/files/%d/download_link.json", gameDomain, modID, fileID)
	var links []DownloadLink
	if err := c.getJSON(ctx, path, &links); err != nil {
		return nil, fmt.Errorf("getting download links: %w", err)
	}
	return links, nil
}

// GetGame returns the catalog record of a game by its domain name
func (c *Client) GetGame(ctx context.Context, gameDomain string) (*GameData, error) {
	var game GameData
	if err := c.getJSON(ctx, "/v1/games/"+gameDomain+".json", &game); err != nil {
		return nil, fmt.Errorf("getting game %s: %w", gameDomain, err)
	}
	return &game, nil
}

const modFilesQuery = `query ModFiles($modId: ID!, $gameId: ID!) {
	modFiles(modId: $modId, gameId: $gameId) { fileId name uri version sizeInBytes primary }
}`

// GetModFiles fetches the files of a mod. gameID is the numeric game ID.
func (c *Client) GetModFiles(ctx context.Context, gameID string, modID int) ([]ModFile, error) {
	var resp struct {
		ModFiles []ModFile
	}

	variables := map[string]any{
		"gameId": gameID,
		"modId":  strconv.Itoa(modID),
	}

	if err := c.gql.Exec(ctx, modFilesQuery, &resp, variables); err != nil {
		return nil, fmt.Errorf("querying mod files: %w", err)
	}

	return resp.ModFiles, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrAuthRequired
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
