package qbittorrent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Search job states reported by search/status
const (
	SearchRunning = "Running"
	SearchStopped = "Stopped"
)

// SearchStatus is the state of one search job
type SearchStatus struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// SearchResult is one release found by a search plugin
type SearchResult struct {
	FileName   string `json:"fileName"`
	FileURL    string `json:"fileUrl"`
	FileSize   int64  `json:"fileSize"`
	NbSeeders  int    `json:"nbSeeders"`
	NbLeechers int    `json:"nbLeechers"`
	SiteURL    string `json:"siteUrl"`
	DescrLink  string `json:"descrLink"`
}

// SearchResults is the response of search/results
type SearchResults struct {
	Results []SearchResult `json:"results"`
	Status  string         `json:"status"`
	Total   int            `json:"total"`
}

// StartSearch starts an asynchronous search job and returns its id
func (c *Client) StartSearch(ctx context.Context, pattern, plugins, category string) (int, error) {
	params := url.Values{}
	params.Set("pattern", pattern)
	params.Set("plugins", plugins)
	params.Set("category", category)

	var result struct {
		ID int `json:"id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/search/start", params, &result); err != nil {
		return 0, fmt.Errorf("failed to start search: %w", err)
	}
	return result.ID, nil
}

// GetSearchStatus returns the state and result total of a search job
func (c *Client) GetSearchStatus(ctx context.Context, id int) (*SearchStatus, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))

	var statuses []SearchStatus
	if err := c.doRequest(ctx, http.MethodGet, "/search/status", params, &statuses); err != nil {
		return nil, fmt.Errorf("failed to get search status: %w", err)
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("search job %d: %w", id, ErrNotFound)
	}
	return &statuses[0], nil
}

// GetSearchResults returns up to limit results of a search job, in arrival order
func (c *Client) GetSearchResults(ctx context.Context, id, limit int) (*SearchResults, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))
	params.Set("limit", strconv.Itoa(limit))

	var results SearchResults
	if err := c.doRequest(ctx, http.MethodGet, "/search/results", params, &results); err != nil {
		return nil, fmt.Errorf("failed to get search results: %w", err)
	}
	return &results, nil
}

// StopSearch stops a running job and deletes it from qBittorrent
func (c *Client) StopSearch(ctx context.Context, id int) error {
	params := url.Values{}
	params.Set("id", strconv.Itoa(id))

	if err := c.doRequest(ctx, http.MethodPost, "/search/stop", params, nil); err != nil {
		return fmt.Errorf("failed to stop search: %w", err)
	}
	if err := c.doRequest(ctx, http.MethodPost, "/search/delete", params, nil); err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}
