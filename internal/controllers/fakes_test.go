package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tvarr/internal/config"
	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/priority"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
	"github.com/amaumene/tvarr/internal/services/tvmaze"
	"github.com/amaumene/tvarr/internal/utils"
)

func magnet(n int) string {
	return fmt.Sprintf("magnet:?xt=urn:btih:%040x", n)
}

// fakeSearch answers each query with a fixed result list
type fakeSearch struct {
	mu          sync.Mutex
	results     map[string][]qbittorrent.SearchResult
	failQueries map[string]bool
	running     bool // report jobs as still running
	queries     []string
	jobs        map[int]string
	nextID      int
	statusCalls int
	stopped     []int

	started chan string   // receives each query when set
	block   chan struct{} // StartSearch waits on it when set
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{
		results:     map[string][]qbittorrent.SearchResult{},
		failQueries: map[string]bool{},
		jobs:        map[int]string{},
	}
}

func (f *fakeSearch) StartSearch(ctx context.Context, pattern, plugins, category string) (int, error) {
	if f.started != nil {
		f.started <- pattern
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, pattern)
	if f.failQueries[pattern] {
		return 0, errors.New("search plugin crashed")
	}
	f.nextID++
	f.jobs[f.nextID] = pattern
	return f.nextID, nil
}

func (f *fakeSearch) GetSearchStatus(ctx context.Context, id int) (*qbittorrent.SearchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	status := qbittorrent.SearchStopped
	if f.running {
		status = qbittorrent.SearchRunning
	}
	return &qbittorrent.SearchStatus{ID: id, Status: status, Total: len(f.results[f.jobs[id]])}, nil
}

func (f *fakeSearch) GetSearchResults(ctx context.Context, id, limit int) (*qbittorrent.SearchResults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := f.results[f.jobs[id]]
	if len(results) > limit {
		results = results[:limit]
	}
	return &qbittorrent.SearchResults{Results: results, Total: len(results)}, nil
}

func (f *fakeSearch) StopSearch(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeSearch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type prioCall struct {
	hash string
	ids  []int
	tier priority.Tier
}

// fakeDownloadClient records submissions and serves file listings
type fakeDownloadClient struct {
	mu         sync.Mutex
	fail       bool
	reject     bool
	present    map[string]bool
	added      []string
	options    []qbittorrent.AddOptions
	files      map[string][]qbittorrent.TorrentFile
	priorities []prioCall
}

func (f *fakeDownloadClient) AddTorrent(ctx context.Context, fetchURL string, opts qbittorrent.AddOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("download client unreachable")
	}
	if hash, _ := utils.InfoHash(fetchURL); f.reject || f.present[hash] {
		return fmt.Errorf("failed to add torrent: %w", qbittorrent.ErrRejected)
	}
	f.added = append(f.added, fetchURL)
	f.options = append(f.options, opts)
	return nil
}

func (f *fakeDownloadClient) HasTorrent(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[hash], nil
}

func (f *fakeDownloadClient) TorrentFiles(ctx context.Context, hash string) ([]qbittorrent.TorrentFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	files, ok := f.files[hash]
	if !ok {
		return nil, fmt.Errorf("torrent %s: %w", hash, qbittorrent.ErrNotFound)
	}
	return files, nil
}

func (f *fakeDownloadClient) SetFilePriority(ctx context.Context, hash string, ids []int, tier priority.Tier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priorities = append(f.priorities, prioCall{hash: hash, ids: ids, tier: tier})
	return nil
}

type episodeKey struct {
	show, season, number int
}

// fakeCatalog serves episodes from a map
type fakeCatalog struct {
	mu       sync.Mutex
	shows    map[string]tvmaze.Show
	episodes map[episodeKey]tvmaze.Episode
	latest   map[int]tvmaze.Episode
	failAll  bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		shows:    map[string]tvmaze.Show{},
		episodes: map[episodeKey]tvmaze.Episode{},
		latest:   map[int]tvmaze.Episode{},
	}
}

func (f *fakeCatalog) addEpisode(show, season, number int, airdate string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.episodes[episodeKey{show, season, number}] = tvmaze.Episode{Season: season, Number: number, Airdate: airdate}
}

func (f *fakeCatalog) LookupShow(ctx context.Context, name string) (*tvmaze.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("catalog unavailable")
	}
	show, ok := f.shows[name]
	if !ok {
		return nil, tvmaze.ErrNotFound
	}
	return &show, nil
}

func (f *fakeCatalog) GetEpisode(ctx context.Context, showID, season, number int) (*tvmaze.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("catalog unavailable")
	}
	ep, ok := f.episodes[episodeKey{showID, season, number}]
	if !ok {
		return nil, tvmaze.ErrNotFound
	}
	return &ep, nil
}

func (f *fakeCatalog) GetLatestAiredEpisode(ctx context.Context, showID int) (*tvmaze.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("catalog unavailable")
	}
	ep, ok := f.latest[showID]
	if !ok {
		return nil, tvmaze.ErrNotFound
	}
	return &ep, nil
}

type fakeDisk struct {
	mu   sync.Mutex
	free uint64
	err  error
}

func (f *fakeDisk) FreeBytes(path string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.free, f.err
}

func (f *fakeDisk) set(free uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.free = free
}

// testEnv wires the controllers against fakes and a temporary bolthold database
type testEnv struct {
	db        *models.Database
	search    *fakeSearch
	client    *fakeDownloadClient
	catalog   *fakeCatalog
	disk      *fakeDisk
	showStore *ShowCatalog
	searcher  *SearchController
	downloads *DownloadController
	shows     *ShowController
	tracker   *Tracker
	now       time.Time
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		SearchPlugins:      "all",
		SearchCategory:     "tv",
		SearchResultLimit:  50,
		SearchMaxPolls:     3,
		SearchStablePolls:  2,
		DownloadPath:       "/downloads",
		DownloadCategory:   "tvarr",
		MinFreeBytes:       5 << 30,
		SeasonRangeTimeout: time.Minute,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig()
	logger := testLogger()

	env := &testEnv{
		db:      db,
		search:  newFakeSearch(),
		client:  &fakeDownloadClient{files: map[string][]qbittorrent.TorrentFile{}},
		catalog: newFakeCatalog(),
		disk:    &fakeDisk{free: 100 << 30},
		now:     time.Date(2013, 9, 23, 12, 0, 0, 0, time.UTC),
	}

	env.showStore = NewShowCatalog(db)
	admission := NewAdmissionController(env.disk, cfg.DownloadPath, cfg.MinFreeBytes, logger)
	env.searcher = NewSearchController(env.search, utils.NewBlacklist("CAM"), cfg, logger)
	env.downloads = NewDownloadController(db, env.client, cfg, logger)
	env.downloads.now = func() time.Time { return env.now }
	airDates := NewAirDateController(env.catalog, logger)
	env.shows = NewShowController(env.showStore, env.catalog, airDates, logger)
	env.tracker = NewTracker(env.showStore, admission, env.searcher, env.downloads, airDates, cfg, logger)
	env.tracker.now = func() time.Time { return env.now }

	return env
}

func (e *testEnv) addShow(t *testing.T, show *models.TrackedShow) *models.TrackedShow {
	t.Helper()
	if show.Status == "" {
		show.Status = models.ShowStatusActive
	}
	require.NoError(t, e.db.CreateShow(show))
	return show
}

func (e *testEnv) reload(t *testing.T, id uint64) *models.TrackedShow {
	t.Helper()
	show, err := e.db.GetShowByID(id)
	require.NoError(t, err)
	return show
}
