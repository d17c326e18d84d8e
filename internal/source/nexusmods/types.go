package nexusmods

import "strconv"

// ValidateResponse is the account behind an API key
type ValidateResponse struct {
	UserID      int    `json:"user_id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsPremium   bool   `json:"is_premium"`
	IsSupporter bool   `json:"is_supporter"`
}

// GameData is a game as returned by the REST API
type GameData struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	DomainName string `json:"domain_name"`
}

// DownloadLink represents a download URL response
type DownloadLink struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	URI       string `json:"URI"`
}

// ModFile is a file of a mod as returned by the GraphQL API
type ModFile struct {
	FileID      int    `graphql:"fileId"`
	Name        string `graphql:"name"`
	URI         string `graphql:"uri"` // The published file name
	Version     string `graphql:"version"`
	SizeInBytes string `graphql:"sizeInBytes"`
	Primary     int    `graphql:"primary"`
}

// Size parses SizeInBytes, which the API sends as a BigInt string
func (f ModFile) Size() int64 {
	n, err := strconv.ParseInt(f.SizeInBytes, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
