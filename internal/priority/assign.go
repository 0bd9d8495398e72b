// Package priority ranks the files of a multi-episode release so the earliest
// episodes download first.
package priority

import (
	"math"
	"sort"

	"github.com/amaumene/tvarr/internal/episode"
)

// Tier is a file download priority on libtorrent's 0-7 scale
type Tier int

const (
	TierNormal     Tier = 1
	TierMedium     Tier = 4
	TierMediumHigh Tier = 5
	TierHigh       Tier = 6
	TierMax        Tier = 7
)

// ReleaseFile is one file of a release listing
type ReleaseFile struct {
	Name          string
	Size          int64
	OriginalIndex int

	// Derived by Assign
	Coordinate   *episode.Coordinate
	Tier         Tier
	EpisodeOrder int // 1-based rank among detected episodes, 0 when not an episode
}

// Assign returns a copy of files with coordinates, episode order and tiers filled in.
// Input order is preserved. Non-video files and videos without a coordinate get TierNormal.
func Assign(files []ReleaseFile) []ReleaseFile {
	result := make([]ReleaseFile, len(files))
	copy(result, files)

	var ranked []int
	for i := range result {
		result[i].Coordinate = nil
		result[i].EpisodeOrder = 0
		result[i].Tier = TierNormal

		if !episode.IsVideo(result[i].Name) {
			continue
		}
		coord, ok := episode.Locate(result[i].Name)
		if !ok {
			continue
		}
		result[i].Coordinate = &coord
		ranked = append(ranked, i)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return result[ranked[a]].Coordinate.SortKey() < result[ranked[b]].Coordinate.SortKey()
	})

	n := len(ranked)
	for rank, idx := range ranked {
		result[idx].EpisodeOrder = rank + 1
		result[idx].Tier = tierForRank(rank, n)
	}

	return result
}

// tierForRank front-loads priority: first episode max, next two high, then a
// medium-high band of at least five, a medium band up to 40%, the rest normal.
func tierForRank(rank, n int) Tier {
	switch {
	case rank == 0:
		return TierMax
	case rank <= 2:
		return TierHigh
	case rank < max(5, ceilFraction(n, 0.2)):
		return TierMediumHigh
	case rank < ceilFraction(n, 0.4):
		return TierMedium
	default:
		return TierNormal
	}
}

func ceilFraction(n int, fraction float64) int {
	return int(math.Ceil(float64(n) * fraction))
}

// IsTVShowTorrent reports whether a release looks like a multi-episode pack:
// at least two video files, and more than half of them carry an episode coordinate.
func IsTVShowTorrent(files []ReleaseFile) bool {
	videos := 0
	recognized := 0
	for _, f := range files {
		if !episode.IsVideo(f.Name) {
			continue
		}
		videos++
		if _, ok := episode.Locate(f.Name); ok {
			recognized++
		}
	}
	return videos >= 2 && recognized*2 > videos
}

// GroupByTier returns the original file indexes for each tier present
func GroupByTier(files []ReleaseFile) map[Tier][]int {
	groups := make(map[Tier][]int)
	for _, f := range files {
		groups[f.Tier] = append(groups[f.Tier], f.OriginalIndex)
	}
	return groups
}
