package controllers

import (
	"context"

	"github.com/amaumene/tvarr/internal/priority"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
	"github.com/amaumene/tvarr/internal/services/tvmaze"
)

// SearchService runs asynchronous release searches
type SearchService interface {
	StartSearch(ctx context.Context, pattern, plugins, category string) (int, error)
	GetSearchStatus(ctx context.Context, id int) (*qbittorrent.SearchStatus, error)
	GetSearchResults(ctx context.Context, id, limit int) (*qbittorrent.SearchResults, error)
	StopSearch(ctx context.Context, id int) error
}

// DownloadClient accepts releases and exposes their file listings
type DownloadClient interface {
	AddTorrent(ctx context.Context, fetchURL string, opts qbittorrent.AddOptions) error
	HasTorrent(ctx context.Context, hash string) (bool, error)
	TorrentFiles(ctx context.Context, hash string) ([]qbittorrent.TorrentFile, error)
	SetFilePriority(ctx context.Context, hash string, ids []int, tier priority.Tier) error
}

// CatalogService resolves shows and episode air dates
type CatalogService interface {
	LookupShow(ctx context.Context, name string) (*tvmaze.Show, error)
	GetEpisode(ctx context.Context, showID, season, number int) (*tvmaze.Episode, error)
	GetLatestAiredEpisode(ctx context.Context, showID int) (*tvmaze.Episode, error)
}

// DiskStater reports free space on a storage volume
type DiskStater interface {
	FreeBytes(path string) (uint64, error)
}

var (
	_ SearchService  = (*qbittorrent.Client)(nil)
	_ DownloadClient = (*qbittorrent.Client)(nil)
	_ CatalogService = (*tvmaze.Client)(nil)
)
