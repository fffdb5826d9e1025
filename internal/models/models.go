package models

import (
	"encoding/json"
	"strings"
)

// Author is the profile that submitted a revision. The API normally returns
// an object, but older payloads carry a bare profile name string; both decode.
type Author struct {
	ProfileName string `json:"profileName"`
}

// UnmarshalJSON implements json.Unmarshaler for Author
func (a *Author) UnmarshalJSON(data []byte) error {
	// First try to unmarshal as a string
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.ProfileName = name
		return nil
	}

	// If that fails, try the object form
	type plain Author
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*a = Author(obj)
	return nil
}

// DisplayName returns the profile name, or "?" when the API omitted it.
func (a Author) DisplayName() string {
	if strings.TrimSpace(a.ProfileName) == "" {
		return "?"
	}
	return a.ProfileName
}

type (
	// Config holds the application's configuration settings.
	Config struct {
		OutputDir      string         `toml:"OutputDir" json:"OutputDir"`
		LogLevel       string         `toml:"LogLevel" json:"LogLevel"`
		LogFormat      string         `toml:"LogFormat" json:"LogFormat"`
		LogApiRequests bool           `toml:"LogApiRequests" json:"LogApiRequests"`
		API            APIConfig      `toml:"API" json:"API"`
		Download       DownloadConfig `toml:"Download" json:"Download"`
	}

	// APIConfig holds settings for the lookup/search service.
	APIConfig struct {
		BaseURL    string `toml:"BaseURL" json:"BaseURL"`
		TimeoutSec int    `toml:"TimeoutSec" json:"TimeoutSec"`
		MaxResults int    `toml:"MaxResults" json:"MaxResults"`
	}

	// DownloadConfig holds settings for resolving and fetching tabs.
	DownloadConfig struct {
		// Strings first
		OnError     string `toml:"OnError" json:"OnError"`
		OnCollision string `toml:"OnCollision" json:"OnCollision"`
		// Integers
		TimeoutSec int `toml:"TimeoutSec" json:"TimeoutSec"`
		// Bools
		Interactive bool `toml:"Interactive" json:"Interactive"`
	}
)

type (
	// Song is one search hit from the catalog.
	Song struct {
		SongID int    `json:"songId"`
		Artist string `json:"artist"`
		Title  string `json:"title"`
	}

	// Revision is one submitted version of a song's tab. Which song it belongs
	// to comes from the request context, not the payload.
	Revision struct {
		RevisionID int    `json:"revisionId"`
		CreatedAt  string `json:"createdAt"`
		Author     Author `json:"author"`
	}

	// RevisionDetail is the subset of the revision lookup needed to fetch the
	// Guitar Pro export.
	RevisionDetail struct {
		RevisionID int    `json:"revisionId"`
		SongID     int    `json:"songId"`
		Source     string `json:"source"`
		Artist     string `json:"artist"`
		Title      string `json:"title"`
	}
)
