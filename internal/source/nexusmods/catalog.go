package nexusmods

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/DonovanMods/lmm-collections/internal/domain"
)

// Catalog adapts the client to what collection downloads need: who is
// signed in, where a file can be fetched from, and what a file is called.
type Catalog struct {
	client *Client

	mu      sync.Mutex
	user    *domain.UserInfo
	gameIDs map[string]int
}

// NewCatalog creates a catalog backed by the client
func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client, gameIDs: make(map[string]int)}
}

// UserInfo returns the signed-in account, or nil when no valid key is set.
// A successful lookup is cached for the life of the catalog.
func (c *Catalog) UserInfo(ctx context.Context) (*domain.UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.user != nil {
		return c.user, nil
	}
	if !c.client.IsAuthenticated() {
		return nil, nil
	}

	resp, err := c.client.ValidateAPIKey(ctx)
	if errors.Is(err, domain.ErrAuthRequired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.user = &domain.UserInfo{UserID: resp.UserID, Name: resp.Name, IsPremium: resp.IsPremium}
	return c.user, nil
}

// SetAPIKey switches the account and forgets the cached user
func (c *Catalog) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client.SetAPIKey(key)
	c.user = nil
}

// DownloadURL returns a direct CDN link for the file
func (c *Catalog) DownloadURL(ctx context.Context, meta domain.FileMetadata) (string, error) {
	links, err := c.client.GetDownloadLinks(ctx, meta.GameID, meta.ModID, meta.FileID)
	if err != nil {
		return "", err
	}
	if len(links) == 0 {
		return "", fmt.Errorf("no download links for %s/%d/%d: %w", meta.GameID, meta.ModID, meta.FileID, domain.ErrDownloadFailed)
	}
	return links[0].URI, nil
}

// FileDownloadPage returns the website page for a file, as an nxm hand-off
// link when nxm is set
func (c *Catalog) FileDownloadPage(meta domain.FileMetadata, nxm bool) string {
	campaign := ""
	if nxm {
		campaign = CampaignCollections
	}
	return FileDownloadURL(meta.GameID, meta.ModID, meta.FileID, nxm, campaign)
}

func (c *Catalog) numericGameID(ctx context.Context, gameDomain string) (int, error) {
	c.mu.Lock()
	id, ok := c.gameIDs[gameDomain]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	game, err := c.client.GetGame(ctx, gameDomain)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.gameIDs[gameDomain] = game.ID
	c.mu.Unlock()
	return game.ID, nil
}

// FileMetadata fills in the published name and size of a file. gameID is
// the game's domain name.
func (c *Catalog) FileMetadata(ctx context.Context, gameID string, modID, fileID int) (*domain.FileMetadata, error) {
	numericID, err := c.numericGameID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	files, err := c.client.GetModFiles(ctx, strconv.Itoa(numericID), modID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.FileID == fileID {
			return &domain.FileMetadata{
				GameID: gameID,
				ModID:  modID,
				FileID: fileID,
				Name:   f.URI,
				Size:   f.Size(),
			}, nil
		}
	}
	return nil, fmt.Errorf("%s/%d/%d: %w", gameID, modID, fileID, domain.ErrMetadataNotFound)
}
