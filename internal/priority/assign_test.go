package priority

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonPack(episodes int) []ReleaseFile {
	files := make([]ReleaseFile, 0, episodes)
	// Listed in reverse so ranking has to sort them
	for ep := episodes; ep >= 1; ep-- {
		files = append(files, ReleaseFile{
			Name:          fmt.Sprintf("Show.S01.1080p/Show.S01E%02d.1080p.mkv", ep),
			Size:          1 << 30,
			OriginalIndex: len(files),
		})
	}
	return files
}

func tierOfEpisode(t *testing.T, files []ReleaseFile, ep int) Tier {
	t.Helper()
	for _, f := range files {
		if f.Coordinate != nil && f.Coordinate.Episode == ep {
			return f.Tier
		}
	}
	t.Fatalf("episode %d not found", ep)
	return 0
}

func TestAssignTenEpisodePack(t *testing.T) {
	files := Assign(seasonPack(10))
	require.Len(t, files, 10)

	assert.Equal(t, TierMax, tierOfEpisode(t, files, 1))
	assert.Equal(t, TierHigh, tierOfEpisode(t, files, 2))
	assert.Equal(t, TierHigh, tierOfEpisode(t, files, 3))
	assert.Equal(t, TierMediumHigh, tierOfEpisode(t, files, 4))
	assert.Equal(t, TierMediumHigh, tierOfEpisode(t, files, 5))
	for ep := 6; ep <= 10; ep++ {
		assert.Equal(t, TierNormal, tierOfEpisode(t, files, ep), "episode %d", ep)
	}

	// Input order is preserved: index 0 is still episode 10
	assert.Equal(t, 10, files[0].Coordinate.Episode)
	assert.Equal(t, 10, files[0].EpisodeOrder)
	assert.Equal(t, 1, files[9].EpisodeOrder)
}

func TestAssignLargePackHasMediumBand(t *testing.T) {
	files := Assign(seasonPack(30))

	// ceil(0.2*30)=6 -> ranks 3..5 medium-high, ceil(0.4*30)=12 -> ranks 6..11 medium
	assert.Equal(t, TierMediumHigh, tierOfEpisode(t, files, 6))
	assert.Equal(t, TierMedium, tierOfEpisode(t, files, 7))
	assert.Equal(t, TierMedium, tierOfEpisode(t, files, 12))
	assert.Equal(t, TierNormal, tierOfEpisode(t, files, 13))
	assert.Equal(t, TierNormal, tierOfEpisode(t, files, 30))
}

func TestAssignIsIdempotent(t *testing.T) {
	first := Assign(seasonPack(12))
	second := Assign(first)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Tier, second[i].Tier)
		assert.Equal(t, first[i].EpisodeOrder, second[i].EpisodeOrder)
		assert.Equal(t, first[i].Coordinate, second[i].Coordinate)
	}
}

func TestAssignNonEpisodicFilesGetFloorTier(t *testing.T) {
	files := Assign([]ReleaseFile{
		{Name: "Show.S01/Sample/sample.mkv", OriginalIndex: 0},
		{Name: "Show.S01/Show.S01E02.mkv", OriginalIndex: 1},
		{Name: "Show.S01/Show.S01E01.mkv", OriginalIndex: 2},
		{Name: "Show.S01/Show.S01E01.srt", OriginalIndex: 3},
		{Name: "Show.S01/info.nfo", OriginalIndex: 4},
	})

	assert.Nil(t, files[0].Coordinate)
	assert.Equal(t, TierNormal, files[0].Tier)
	assert.Equal(t, TierHigh, files[1].Tier)
	assert.Equal(t, TierMax, files[2].Tier)
	assert.Equal(t, TierNormal, files[3].Tier)
	assert.Equal(t, 0, files[3].EpisodeOrder)
	assert.Equal(t, TierNormal, files[4].Tier)
}

func TestAssignDoesNotMutateInput(t *testing.T) {
	input := seasonPack(3)
	_ = Assign(input)
	for _, f := range input {
		assert.Nil(t, f.Coordinate)
		assert.Equal(t, Tier(0), f.Tier)
	}
}

func TestIsTVShowTorrent(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{"season pack", []string{"S/Show.S01E01.mkv", "S/Show.S01E02.mkv", "S/Show.S01E03.mkv"}, true},
		{"movie with subtitle", []string{"Movie.2019.1080p.mkv", "Movie.2019.1080p.srt"}, false},
		{"single episode", []string{"Show.S01E01.mkv"}, false},
		{"movie with one misread extra", []string{"Movie.2019.1080p.mkv", "Featurette 01.mkv", "Trailer.mkv"}, false},
		{"half recognized", []string{"Show.S01E01.mkv", "Bonus.mkv"}, false},
		{"no files", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := make([]ReleaseFile, len(tt.files))
			for i, name := range tt.files {
				files[i] = ReleaseFile{Name: name, OriginalIndex: i}
			}
			assert.Equal(t, tt.want, IsTVShowTorrent(files))
		})
	}
}

func TestGroupByTier(t *testing.T) {
	files := Assign(seasonPack(4))
	groups := GroupByTier(files)

	// Episode 1 is listed last (index 3)
	assert.Equal(t, []int{3}, groups[TierMax])
	assert.ElementsMatch(t, []int{1, 2}, groups[TierHigh])
	assert.Equal(t, []int{0}, groups[TierMediumHigh])
}
