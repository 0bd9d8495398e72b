package qbittorrent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amaumene/tvarr/internal/priority"
)

var (
	// ErrNotFound is returned when qBittorrent does not know the torrent or job
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned when qBittorrent refuses to add a torrent. It also
	// answers this way for a torrent it already has.
	ErrRejected = errors.New("rejected by qBittorrent")
)

// AddOptions controls how a release is registered with the download client
type AddOptions struct {
	SavePath           string
	Category           string
	Sequential         bool
	FirstLastPiecePrio bool
}

// TorrentFile is one file of a torrent's content listing
type TorrentFile struct {
	Index    int     `json:"index"`
	Name     string  `json:"name"`
	Size     int64   `json:"size"`
	Progress float64 `json:"progress"`
	Priority int     `json:"priority"`
}

// AddTorrent registers a magnet or torrent URL with the download client
func (c *Client) AddTorrent(ctx context.Context, fetchURL string, opts AddOptions) error {
	params := url.Values{}
	params.Set("urls", fetchURL)
	if opts.SavePath != "" {
		params.Set("savepath", opts.SavePath)
	}
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	params.Set("sequentialDownload", strconv.FormatBool(opts.Sequential))
	params.Set("firstLastPiecePrio", strconv.FormatBool(opts.FirstLastPiecePrio))

	body, err := c.call(ctx, http.MethodPost, "/torrents/add", params)
	if err != nil {
		return fmt.Errorf("failed to add torrent: %w", err)
	}
	if strings.TrimSpace(string(body)) == "Fails." {
		return fmt.Errorf("failed to add torrent: %w", ErrRejected)
	}
	return nil
}

// HasTorrent reports whether the download client already holds the torrent
func (c *Client) HasTorrent(ctx context.Context, hash string) (bool, error) {
	params := url.Values{}
	params.Set("hashes", strings.ToLower(hash))

	var torrents []struct {
		Hash string `json:"hash"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/torrents/info", params, &torrents); err != nil {
		return false, fmt.Errorf("failed to get torrent info: %w", err)
	}
	return len(torrents) > 0, nil
}

// TorrentFiles returns the content listing of a torrent. The list is empty until
// the client has fetched the metadata.
func (c *Client) TorrentFiles(ctx context.Context, hash string) ([]TorrentFile, error) {
	params := url.Values{}
	params.Set("hash", hash)

	var files []TorrentFile
	if err := c.doRequest(ctx, http.MethodGet, "/torrents/files", params, &files); err != nil {
		return nil, fmt.Errorf("failed to get torrent files: %w", err)
	}
	return files, nil
}

// SetFilePriority sets the download priority of the given file indexes
func (c *Client) SetFilePriority(ctx context.Context, hash string, ids []int, tier priority.Tier) error {
	if len(ids) == 0 {
		return nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	params := url.Values{}
	params.Set("hash", hash)
	params.Set("id", strings.Join(parts, "|"))
	params.Set("priority", strconv.Itoa(WebUIPriority(tier)))

	if _, err := c.call(ctx, http.MethodPost, "/torrents/filePrio", params); err != nil {
		return fmt.Errorf("failed to set file priority: %w", err)
	}
	return nil
}

// WebUIPriority maps a tier onto the values the WebUI accepts (0, 1, 6, 7)
func WebUIPriority(tier priority.Tier) int {
	switch {
	case tier >= priority.TierMax:
		return 7
	case tier >= priority.TierMedium:
		return 6
	case tier >= priority.TierNormal:
		return 1
	default:
		return 0
	}
}
