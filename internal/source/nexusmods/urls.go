package nexusmods

import (
	"fmt"
	"net/url"
)

const siteURL = "https://www.nexusmods.com"

// CampaignCollections tags links opened on behalf of collection downloads
const CampaignCollections = "collections"

// ModPageURL returns the website page of a mod
func ModPageURL(gameDomain string, modID int) string {
	return fmt.Sprintf("%s/%s/mods/%d", siteURL, gameDomain, modID)
}

// FileDownloadURL returns the website page that starts a file download.
// With nxm set the page hands the download to the registered nxm:// handler;
// campaign, when non-empty, is attached as utm parameters.
func FileDownloadURL(gameDomain string, modID, fileID int, nxm bool, campaign string) string {
	q := url.Values{}
	q.Set("tab", "files")
	q.Set("file_id", fmt.Sprint(fileID))
	if nxm {
		q.Set("nmm", "1")
	}
	if campaign != "" {
		q.Set("utm_source", "lmm")
		q.Set("utm_medium", "app")
		q.Set("utm_campaign", campaign)
	}
	return ModPageURL(gameDomain, modID) + "?" + q.Encode()
}
