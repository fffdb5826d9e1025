package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-songsterr-download/internal/models"

	log "github.com/sirupsen/logrus"
)

// Custom Error Types
var (
	ErrRateLimited = errors.New("API rate limit exceeded")
	ErrNotFound    = errors.New("API resource not found")
	ErrServerError = errors.New("API server error")
	ErrHttpStatus  = errors.New("unexpected HTTP status code")

	ErrNoRevisions  = errors.New("no revisions returned")
	ErrNoResults    = errors.New("no songs found for search")
	ErrMissingAsset = errors.New("no GP export URL found in revision data")
)

const (
	DefaultBaseURL = "https://www.songsterr.com/api"
	DefaultTimeout = 15 * time.Second
)

// FetchError reports a network-level failure: the request could not be made,
// the server answered with a non-200 status, or the body was unusable.
type FetchError struct {
	Op         string // "revisions", "search", "revision", "download"
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError maps an unexpected HTTP status to the matching sentinel.
func StatusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return ErrServerError
	default:
		return ErrHttpStatus
	}
}

// Client talks to the Songsterr lookup/search API.
type Client struct {
	BaseURL    string
	HttpClient *http.Client
}

// NewClient creates a new API client. A nil httpClient gets the short
// metadata timeout.
func NewClient(httpClient *http.Client, cfg models.Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	baseURL := strings.TrimRight(cfg.API.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log.Debugf("NewClient using base URL %s (API logging handled by transport if enabled)", baseURL)

	return &Client{
		BaseURL:    baseURL,
		HttpClient: httpClient,
	}
}

// getJSON performs one GET and decodes the JSON body into out. There is no
// retry: every failure surfaces as a *FetchError.
func (c *Client) getJSON(ctx context.Context, op, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Op: op, URL: reqURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s", reqURL)
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return &FetchError{Op: op, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &FetchError{Op: op, URL: reqURL, StatusCode: resp.StatusCode, Err: StatusError(resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Op: op, URL: reqURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Debugf("Response body causing unmarshal error: %s", string(body))
		return &FetchError{Op: op, URL: reqURL, Err: fmt.Errorf("decoding response JSON: %w", err)}
	}
	return nil
}

// ListRevisions returns every revision of songID. An empty list is an error.
func (c *Client) ListRevisions(ctx context.Context, songID int) ([]models.Revision, error) {
	reqURL := fmt.Sprintf("%s/meta/%d/revisions", c.BaseURL, songID)

	var revisions []models.Revision
	if err := c.getJSON(ctx, "revisions", reqURL, &revisions); err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, fmt.Errorf("song %d: %w", songID, ErrNoRevisions)
	}
	log.Debugf("Song %d has %d revisions", songID, len(revisions))
	return revisions, nil
}

// SearchSongs runs a free-text search capped at maxResults hits. No hits is an error.
func (c *Client) SearchSongs(ctx context.Context, query string, maxResults int) ([]models.Song, error) {
	values := url.Values{}
	values.Set("size", fmt.Sprintf("%d", maxResults))
	values.Set("pattern", query)
	reqURL := fmt.Sprintf("%s/songs?%s", c.BaseURL, values.Encode())

	var songs []models.Song
	if err := c.getJSON(ctx, "search", reqURL, &songs); err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrNoResults)
	}
	log.Debugf("Search %q returned %d songs", query, len(songs))
	return songs, nil
}

// GetRevisionDetail fetches the download source and naming data of a revision.
func (c *Client) GetRevisionDetail(ctx context.Context, revisionID int) (models.RevisionDetail, error) {
	reqURL := fmt.Sprintf("%s/revision/%d", c.BaseURL, revisionID)

	var detail models.RevisionDetail
	if err := c.getJSON(ctx, "revision", reqURL, &detail); err != nil {
		return models.RevisionDetail{}, err
	}
	if strings.TrimSpace(detail.Source) == "" {
		return models.RevisionDetail{}, fmt.Errorf("revision %d: %w", revisionID, ErrMissingAsset)
	}
	return detail, nil
}
