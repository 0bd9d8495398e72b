// Package tvmaze is the catalog service: show lookup and episode air dates.
package tvmaze

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

	"github.com/agnivade/levenshtein"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/tvarr/internal/config"
)

const (
	cacheTTL         = 6 * time.Hour
	notFoundCacheTTL = time.Hour
)

// ErrNotFound is returned when the catalog has no such show or episode
var ErrNotFound = errors.New("not found in catalog")

// Show is a catalog show
type Show struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Premiered string `json:"premiered"`
}

// Episode is a catalog episode. Airdate is empty when not yet scheduled.
type Episode struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Airdate string `json:"airdate"`
}

type searchHit struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}

type showWithPrevious struct {
	Show
	Embedded struct {
		PreviousEpisode *Episode `json:"previousepisode"`
	} `json:"_embedded"`
}

// Client handles communication with the TVmaze API
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *logrus.Logger
}

// NewClient creates a new TVmaze client with a response cache
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.TVMazeURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  cache.New(cacheTTL, time.Hour),
		logger: logger,
	}
}

// LookupShow searches the catalog and returns the show whose name is closest to name
func (c *Client) LookupShow(ctx context.Context, name string) (*Show, error) {
	params := url.Values{}
	params.Set("q", name)

	var hits []searchHit
	if err := c.doRequest(ctx, "/search/shows", params, &hits); err != nil {
		return nil, fmt.Errorf("failed to search shows: %w", err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("show %q: %w", name, ErrNotFound)
	}

	// Hits arrive ordered by relevance; keep the first on equal distance
	wanted := strings.ToLower(strings.TrimSpace(name))
	best := hits[0].Show
	bestDistance := levenshtein.ComputeDistance(wanted, strings.ToLower(best.Name))
	for _, hit := range hits[1:] {
		distance := levenshtein.ComputeDistance(wanted, strings.ToLower(hit.Show.Name))
		if distance < bestDistance {
			best = hit.Show
			bestDistance = distance
		}
	}

	c.logger.WithFields(logrus.Fields{
		"query":      name,
		"catalog_id": best.ID,
		"match":      best.Name,
		"distance":   bestDistance,
	}).Debug("Resolved show in catalog")

	return &best, nil
}

// GetEpisode returns one episode by season and number
func (c *Client) GetEpisode(ctx context.Context, showID, season, number int) (*Episode, error) {
	key := fmt.Sprintf("episode:%d:%d:%d", showID, season, number)
	if cached, found := c.cache.Get(key); found {
		if cached == nil {
			return nil, fmt.Errorf("S%02dE%02d: %w", season, number, ErrNotFound)
		}
		episode := cached.(Episode)
		return &episode, nil
	}

	params := url.Values{}
	params.Set("season", fmt.Sprintf("%d", season))
	params.Set("number", fmt.Sprintf("%d", number))

	var episode Episode
	err := c.doRequest(ctx, fmt.Sprintf("/shows/%d/episodebynumber", showID), params, &episode)
	if errors.Is(err, ErrNotFound) {
		c.cache.Set(key, nil, notFoundCacheTTL)
		return nil, fmt.Errorf("S%02dE%02d: %w", season, number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}

	c.cache.Set(key, episode, cache.DefaultExpiration)
	return &episode, nil
}

// GetLatestAiredEpisode returns the most recently aired episode of a show
func (c *Client) GetLatestAiredEpisode(ctx context.Context, showID int) (*Episode, error) {
	params := url.Values{}
	params.Set("embed", "previousepisode")

	var show showWithPrevious
	if err := c.doRequest(ctx, fmt.Sprintf("/shows/%d", showID), params, &show); err != nil {
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	if show.Embedded.PreviousEpisode == nil {
		return nil, fmt.Errorf("previous episode of show %d: %w", showID, ErrNotFound)
	}
	return show.Embedded.PreviousEpisode, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	c.logger.WithField("url", fullURL).Debug("Making TVmaze API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
