// Package catalog wraps the Google Books volumes API.
//
// The client does plain passthrough: no retry, no backoff, no caching.
// Local caching of volume metadata is the book cache's responsibility.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnavailable is returned when the upstream catalog cannot be reached
// or answers with something other than a well-formed volume payload.
var ErrUnavailable = errors.New("catalog unavailable")

// Volume is a normalized catalog record.
type Volume struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors,omitempty"`
	Description string   `json:"description,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// Author returns the first author, or an empty string.
func (v Volume) Author() string {
	if len(v.Authors) == 0 {
		return ""
	}
	return v.Authors[0]
}

// Client issues search and fetch requests against the catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a catalog client. The timeout bounds every outbound
// call so a slow upstream cannot stall request workers indefinitely.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Search runs a relevance-ordered volume search. A response without an
// items field means zero matches and yields an empty slice, not an error.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Volume, error) {
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("orderBy", "relevance")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	searchURL := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: search volumes: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrUnavailable, err)
	}

	volumes := make([]Volume, 0, len(result.Items))
	for _, item := range result.Items {
		if item.VolumeInfo == nil {
			continue
		}
		volumes = append(volumes, item.toVolume())
	}
	return volumes, nil
}

// SearchOne returns the best match for a query, or nil when nothing matches.
func (c *Client) SearchOne(ctx context.Context, query string) (*Volume, error) {
	volumes, err := c.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(volumes) == 0 {
		return nil, nil
	}
	return &volumes[0], nil
}

// FetchByID fetches exact metadata for one volume by its catalog id.
// Any upstream failure, including a payload missing volumeInfo, maps to
// ErrUnavailable.
func (c *Client) FetchByID(ctx context.Context, externalID string) (*Volume, error) {
	if externalID == "" {
		return nil, fmt.Errorf("volume id is required")
	}

	fetchURL := fmt.Sprintf("%s/volumes/%s", c.baseURL, url.PathEscape(externalID))
	if c.apiKey != "" {
		fetchURL += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch volume %s: %v", ErrUnavailable, externalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d for volume %s", ErrUnavailable, resp.StatusCode, externalID)
	}

	var item searchItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: decode volume response: %v", ErrUnavailable, err)
	}
	if item.VolumeInfo == nil {
		return nil, fmt.Errorf("%w: volume %s has no volumeInfo", ErrUnavailable, externalID)
	}

	volume := item.toVolume()
	return &volume, nil
}

// Google Books API response types (internal)

type searchResult struct {
	TotalItems int          `json:"totalItems"`
	Items      []searchItem `json:"items"`
}

type searchItem struct {
	ID         string      `json:"id"`
	VolumeInfo *volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title       string      `json:"title"`
	Authors     []string    `json:"authors"`
	Description string      `json:"description"`
	ImageLinks  *imageLinks `json:"imageLinks"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

func (i searchItem) toVolume() Volume {
	v := Volume{
		ID:          i.ID,
		Title:       i.VolumeInfo.Title,
		Authors:     i.VolumeInfo.Authors,
		Description: i.VolumeInfo.Description,
	}
	if i.VolumeInfo.ImageLinks != nil {
		v.Thumbnail = i.VolumeInfo.ImageLinks.Thumbnail
		if v.Thumbnail == "" {
			v.Thumbnail = i.VolumeInfo.ImageLinks.SmallThumbnail
		}
	}
	return v
}
