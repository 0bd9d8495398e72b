package controllers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tvarr/internal/models"
	"github.com/amaumene/tvarr/internal/services/qbittorrent"
)

func breakingBad(env *testEnv, t *testing.T) *models.TrackedShow {
	return env.addShow(t, &models.TrackedShow{
		Name:               "Breaking Bad",
		CatalogID:          169,
		CurrentSeason:      5,
		CurrentEpisode:     16,
		NextEpisodeAirDate: "2013-09-22", // yesterday
	})
}

func TestCheckAllAdvancesWatermark(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.catalog.addEpisode(169, 5, 18, "2013-09-29")
	env.search.results["Breaking Bad S05E17 1080p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S05E17.1080p.WEB", FileURL: magnet(17), FileSize: 2 << 30, NbSeeders: 42},
	}

	result, err := env.tracker.CheckAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Downloads, 1)
	assert.Equal(t, DownloadSummary{Show: "Breaking Bad", Episode: "S05E17", Title: "Breaking.Bad.S05E17.1080p.WEB"}, result.Downloads[0])

	assert.Equal(t, []string{
		"Breaking Bad S05E17 2160p",
		"Breaking Bad S05E17 4K",
		"Breaking Bad S05E17 1080p",
	}, env.search.Queries())
	require.Equal(t, []string{magnet(17)}, env.client.added)
	assert.True(t, env.client.options[0].Sequential)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 5, stored.CurrentSeason)
	assert.Equal(t, 17, stored.CurrentEpisode)
	require.Len(t, stored.DownloadHistory, 1)
	record := stored.DownloadHistory[0]
	assert.Equal(t, 5, record.Season)
	assert.Equal(t, 17, record.Episode)
	assert.Equal(t, "Breaking.Bad.S05E17.1080p.WEB", record.ReleaseTitle)
	assert.Equal(t, "2013-09-22", record.AirDate)
	assert.True(t, env.now.Equal(record.DownloadedAt))
	assert.Equal(t, "2013-09-29", stored.NextEpisodeAirDate)
	require.NotNil(t, stored.LastCheckedAt)
	assert.True(t, env.now.Equal(*stored.LastCheckedAt))

	grabs, err := env.db.GetGrabsByShowID(show.ID)
	require.NoError(t, err)
	require.Len(t, grabs, 1)
	assert.Equal(t, models.GrabSourceCheck, grabs[0].Source)
	assert.Equal(t, models.GrabStatusSubmitted, grabs[0].Status)
	assert.Equal(t, models.Quality1080p, grabs[0].Quality)
	assert.Equal(t, 42, grabs[0].Seeders)
}

func TestCheckAllFutureAirDateSkipsSearch(t *testing.T) {
	env := newTestEnv(t)
	show := env.addShow(t, &models.TrackedShow{
		Name:               "Show",
		CurrentSeason:      1,
		CurrentEpisode:     3,
		NextEpisodeAirDate: "2013-09-24",
	})

	result, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Downloads)
	assert.Empty(t, env.search.Queries())

	stored := env.reload(t, show.ID)
	assert.Equal(t, 3, stored.CurrentEpisode)
	require.NotNil(t, stored.LastCheckedAt)
	assert.Equal(t, "2013-09-24", stored.NextEpisodeAirDate)
}

func TestCheckAllAirDateGraceHour(t *testing.T) {
	env := newTestEnv(t)
	show := env.addShow(t, &models.TrackedShow{
		Name:               "Show",
		CurrentSeason:      1,
		CurrentEpisode:     3,
		NextEpisodeAirDate: "2013-09-23",
	})

	env.now = time.Date(2013, 9, 23, 0, 59, 0, 0, time.UTC)
	_, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	assert.Empty(t, env.search.Queries())

	env.now = time.Date(2013, 9, 23, 1, 0, 0, 0, time.UTC)
	_, err = env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	assert.Len(t, env.search.Queries(), 4)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 3, stored.CurrentEpisode)
	assert.True(t, env.now.Equal(*stored.LastCheckedAt))
}

func TestCheckAllAdmissionDenied(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.disk.set(5 << 30) // exactly the floor is not enough

	result, err := env.tracker.CheckAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "insufficient storage space")
	assert.Empty(t, env.search.Queries())

	stored := env.reload(t, show.ID)
	assert.Nil(t, stored.LastCheckedAt)
	assert.Equal(t, 16, stored.CurrentEpisode)
}

func TestCheckAllFreeSpaceQueryFailure(t *testing.T) {
	env := newTestEnv(t)
	breakingBad(env, t)
	env.disk.err = assert.AnError

	result, err := env.tracker.CheckAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, env.search.Queries())
}

func TestCheckAllSubmissionFailureKeepsWatermark(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.client.fail = true
	env.search.results["Breaking Bad S05E17 2160p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S05E17.2160p", FileURL: magnet(1), NbSeeders: 9},
	}

	result, err := env.tracker.CheckAll(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Downloads)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 16, stored.CurrentEpisode)
	assert.Empty(t, stored.DownloadHistory)
	require.NotNil(t, stored.LastCheckedAt)

	grabs, err := env.db.GetAllGrabs()
	require.NoError(t, err)
	assert.Empty(t, grabs)
}

func TestCheckAllDuplicateAlreadyInClientAdvancesWatermark(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.client.present = map[string]bool{hashOf(17): true}
	env.search.results["Breaking Bad S05E17 2160p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S05E17.2160p", FileURL: magnet(17), NbSeeders: 9},
	}

	result, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	require.Len(t, result.Downloads, 1)
	assert.Empty(t, env.client.added)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 17, stored.CurrentEpisode)
	require.Len(t, stored.DownloadHistory, 1)

	grabs, err := env.db.GetGrabsByShowID(show.ID)
	require.NoError(t, err)
	require.Len(t, grabs, 1)
	assert.Equal(t, hashOf(17), grabs[0].InfoHash)
}

func TestCheckAllNothingFoundRecordsCheck(t *testing.T) {
	env := newTestEnv(t)
	show := env.addShow(t, &models.TrackedShow{Name: "Show", CurrentSeason: 2, CurrentEpisode: 4})

	result, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 4, stored.CurrentEpisode)
	assert.NotNil(t, stored.LastCheckedAt)
	assert.Equal(t, []string{"Show S02E05 2160p", "Show S02E05 4K", "Show S02E05 1080p", "Show S02E05"}, env.search.Queries())
}

func TestCheckAllSkipsPausedShowsAndKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	env.addShow(t, &models.TrackedShow{Name: "Alpha", CurrentSeason: 1})
	paused := env.addShow(t, &models.TrackedShow{Name: "Paused", CurrentSeason: 1, Status: models.ShowStatusPaused})
	env.addShow(t, &models.TrackedShow{Name: "Beta", CurrentSeason: 1})

	_, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)

	queries := env.search.Queries()
	require.Len(t, queries, 8)
	assert.Equal(t, "Alpha S01E01 2160p", queries[0])
	assert.Equal(t, "Beta S01E01 2160p", queries[4])

	assert.Nil(t, env.reload(t, paused.ID).LastCheckedAt)
}

func TestCheckAllOneShowFailureDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv(t)
	env.addShow(t, &models.TrackedShow{Name: "Alpha", CurrentSeason: 1})
	beta := env.addShow(t, &models.TrackedShow{Name: "Beta", CurrentSeason: 1})
	for _, q := range []string{"Alpha S01E01 2160p", "Alpha S01E01 4K", "Alpha S01E01 1080p", "Alpha S01E01"} {
		env.search.failQueries[q] = true
	}
	env.search.results["Beta S01E01 4K"] = []qbittorrent.SearchResult{
		{FileName: "Beta.S01E01.4K", FileURL: magnet(2), NbSeeders: 1},
	}

	result, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	require.Len(t, result.Downloads, 1)
	assert.Equal(t, 1, env.reload(t, beta.ID).CurrentEpisode)
}

func TestCheckAllRollsOverToNextSeason(t *testing.T) {
	env := newTestEnv(t)
	show := env.addShow(t, &models.TrackedShow{Name: "Show", CatalogID: 7, CurrentSeason: 1, CurrentEpisode: 9})
	env.catalog.addEpisode(7, 2, 1, "2014-01-05")
	env.search.results["Show S01E10 1080p"] = []qbittorrent.SearchResult{
		{FileName: "Show.S01E10.1080p", FileURL: magnet(10), NbSeeders: 3},
	}

	result, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)
	require.Len(t, result.Downloads, 1)
	assert.Equal(t, "S01E10", result.Downloads[0].Episode)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 2, stored.CurrentSeason)
	assert.Equal(t, 0, stored.CurrentEpisode)
	assert.Equal(t, "2014-01-05", stored.NextEpisodeAirDate)
	require.Len(t, stored.DownloadHistory, 1)
	assert.Equal(t, 1, stored.DownloadHistory[0].Season)
	assert.Equal(t, 10, stored.DownloadHistory[0].Episode)
}

func TestCheckAllCatalogFailureLeavesAirDateUnset(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.catalog.failAll = true
	env.search.results["Breaking Bad S05E17 2160p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S05E17.2160p", FileURL: magnet(1), NbSeeders: 9},
	}

	_, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)

	stored := env.reload(t, show.ID)
	assert.Equal(t, 17, stored.CurrentEpisode)
	assert.Empty(t, stored.NextEpisodeAirDate)
}

func TestCheckAllRejectsConcurrentCycle(t *testing.T) {
	env := newTestEnv(t)
	breakingBad(env, t)
	env.search.started = make(chan string, 16)
	env.search.block = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
		assert.NoError(t, err)
	}()

	<-env.search.started

	result, err := env.tracker.CheckAll(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrCycleInProgress)
	require.NotNil(t, result)
	assert.False(t, result.Success)

	close(env.search.block)
	wg.Wait()

	// The lock is released once the first cycle ends
	_, err = env.tracker.CheckAll(context.Background(), TriggerManual)
	assert.NoError(t, err)
}

func TestCheckAllCancelledWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.search.started = make(chan string, 16)
	env.search.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-env.search.started
		cancel()
	}()

	_, err := env.tracker.CheckAll(ctx, TriggerTimer)
	assert.ErrorIs(t, err, context.Canceled)

	stored := env.reload(t, show.ID)
	assert.Nil(t, stored.LastCheckedAt)
	assert.Equal(t, 16, stored.CurrentEpisode)
	assert.Empty(t, stored.DownloadHistory)
}

func TestCommitKeepsStatusChangedDuringCheck(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.catalog.addEpisode(169, 5, 18, "2013-09-29")
	env.search.started = make(chan string, 16)
	env.search.block = make(chan struct{})
	env.search.results["Breaking Bad S05E17 2160p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S05E17.2160p", FileURL: magnet(1), NbSeeders: 9},
	}

	go func() {
		<-env.search.started
		_, err := env.shows.SetShowStatus(show.ID, models.ShowStatusPaused)
		assert.NoError(t, err)
		close(env.search.block)
	}()

	_, err := env.tracker.CheckAll(context.Background(), TriggerTimer)
	require.NoError(t, err)

	stored := env.reload(t, show.ID)
	assert.Equal(t, models.ShowStatusPaused, stored.Status)
	assert.Equal(t, 17, stored.CurrentEpisode)
}

func TestDownloadSeasonRange(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.search.results["Breaking Bad S02E01 1080p"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S02E01.1080p", FileURL: magnet(201), NbSeeders: 10},
	}
	env.search.results["Breaking Bad S02E03"] = []qbittorrent.SearchResult{
		{FileName: "Breaking.Bad.S02E03.HDTV", FileURL: magnet(203), NbSeeders: 2},
	}

	result, err := env.tracker.DownloadSeasonRange(context.Background(), show.ID, 2, 1, 3)
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Downloads, 2)
	assert.Equal(t, "S02E01", result.Downloads[0].Episode)
	assert.Equal(t, "S02E03", result.Downloads[1].Episode)
	assert.Contains(t, result.Message, "downloaded 2 of 3 episodes")
	assert.Contains(t, result.Message, "S02E02")

	stored := env.reload(t, show.ID)
	assert.Equal(t, 5, stored.CurrentSeason)
	assert.Equal(t, 16, stored.CurrentEpisode)
	assert.Empty(t, stored.DownloadHistory)
	assert.Nil(t, stored.LastCheckedAt)

	grabs, err := env.db.GetGrabsByShowID(show.ID)
	require.NoError(t, err)
	require.Len(t, grabs, 2)
	for _, g := range grabs {
		assert.Equal(t, models.GrabSourceRange, g.Source)
	}
}

func TestDownloadSeasonRangeStopsWithoutCapacity(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.disk.set(1 << 30)

	result, err := env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 1, 5)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Downloads)
	assert.Contains(t, result.Message, "insufficient storage space")
	assert.Empty(t, env.search.Queries())
}

func TestDownloadSeasonRangeValidation(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)

	_, err := env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 5, 4)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = env.tracker.DownloadSeasonRange(context.Background(), 999, 1, 1, 4)
	assert.ErrorIs(t, err, models.ErrShowNotFound)
}

func TestDownloadSeasonRangeTimeoutReturnsPartialResult(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.tracker.rangeTimeout = 50 * time.Millisecond
	env.search.block = make(chan struct{})

	result, err := env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 1, 3)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "timed out")
}

func TestDownloadSeasonRangeRejectsConcurrentRange(t *testing.T) {
	env := newTestEnv(t)
	show := breakingBad(env, t)
	env.search.started = make(chan string, 16)
	env.search.block = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 1, 1)
	}()
	<-env.search.started

	_, err := env.tracker.DownloadSeasonRange(context.Background(), show.ID, 1, 2, 2)
	assert.ErrorIs(t, err, ErrRangeInProgress)

	close(env.search.block)
	<-done
}

func TestGetTrackedShows(t *testing.T) {
	env := newTestEnv(t)
	env.addShow(t, &models.TrackedShow{Name: "A", CurrentSeason: 1})
	env.addShow(t, &models.TrackedShow{Name: "B", CurrentSeason: 1, Status: models.ShowStatusPaused})

	shows, err := env.tracker.GetTrackedShows()
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "A", shows[0].Name)
}
