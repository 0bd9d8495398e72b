// Package episode locates the season/episode coordinate encoded in a release filename.
package episode

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// Coordinate identifies an episode within a show
type Coordinate struct {
	Season  int
	Episode int
}

// SortKey orders coordinates by season then episode
func (c Coordinate) SortKey() int {
	return c.Season*1000 + c.Episode
}

func (c Coordinate) String() string {
	return fmt.Sprintf("S%02dE%02d", c.Season, c.Episode)
}

var videoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".wmv":  true,
	".ts":   true,
	".m2ts": true,
	".webm": true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
}

// IsVideo reports whether the filename carries a known video extension
func IsVideo(filename string) bool {
	return videoExtensions[strings.ToLower(path.Ext(filename))]
}

func stripVideoExtension(name string) string {
	if IsVideo(name) {
		return strings.TrimSuffix(name, path.Ext(name))
	}
	return name
}

// matcher is one entry of the pattern cascade. A pair matcher captures season and
// episode; an episode-only matcher captures the episode and resolves the season from
// the full path, defaulting to 1. A condensed matcher reads a three digit number as
// season digit plus two episode digits when the leading digit equals the season found
// in the path ("Show.S03/Show.307" is S03E07).
type matcher struct {
	name        string
	pattern     *regexp.Regexp
	episodeOnly bool
	condensed   bool
}

// Ordered by decreasing specificity: explicit season+episode forms come first so
// "S01E01" is never read as a trailing "01".
var matchers = []matcher{
	{name: "sxxeyy", pattern: regexp.MustCompile(`(?i)(?:^|[^0-9])s(\d{1,4})[ ._-]?e(\d{1,4})`)},
	{name: "nxnn", pattern: regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(\d{1,2})x(\d{1,3})(?:[^0-9]|$)`)},
	{name: "season-episode-words", pattern: regexp.MustCompile(`(?i)season[ ._-]*(\d{1,3})[ ._-]*(?:episode|ep)[ ._-]*(\d{1,4})`)},
	{name: "episode-word", pattern: regexp.MustCompile(`(?i)(?:^|[^a-z])(?:episode|ep)[ ._-]*(\d{1,4})(?:[^0-9]|$)`), episodeOnly: true},
	{name: "eyy", pattern: regexp.MustCompile(`(?i)(?:^|[ ._\[-])e(\d{2,4})(?:[^0-9a-z]|$)`), episodeOnly: true},
	{name: "dash-number", pattern: regexp.MustCompile(`(?:^|\s)-\s+(\d{1,4})(?:v\d)?(?:\s|$|[\[(])`), episodeOnly: true},
	{name: "trailing-number", pattern: regexp.MustCompile(`(?:^|[ ._-])(\d{2,3})$`), episodeOnly: true, condensed: true},
}

var seasonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)season[ ._-]*(\d{1,3})`),
	regexp.MustCompile(`(?i)(?:^|[^a-z0-9])s(\d{1,2})(?:[^0-9e]|$)`),
}

func (m matcher) match(base, full string) (Coordinate, bool) {
	groups := m.pattern.FindStringSubmatch(base)
	if groups == nil {
		return Coordinate{}, false
	}

	if m.episodeOnly {
		episode, err := strconv.Atoi(groups[1])
		if err != nil {
			return Coordinate{}, false
		}
		season, known := seasonFromContext(full)
		if m.condensed && known && len(groups[1]) == 3 && episode/100 == season {
			episode %= 100
		}
		return Coordinate{Season: season, Episode: episode}, true
	}

	season, err := strconv.Atoi(groups[1])
	if err != nil {
		return Coordinate{}, false
	}
	episode, err := strconv.Atoi(groups[2])
	if err != nil {
		return Coordinate{}, false
	}
	return Coordinate{Season: season, Episode: episode}, true
}

// seasonFromContext finds a season tag anywhere in the path. known is false when
// the season fell back to 1.
func seasonFromContext(full string) (season int, known bool) {
	for _, pattern := range seasonPatterns {
		if groups := pattern.FindStringSubmatch(full); groups != nil {
			if n, err := strconv.Atoi(groups[1]); err == nil {
				return n, true
			}
		}
	}
	return 1, false
}

// Locate extracts the episode coordinate from a filename, which may include
// directories. ok is false for non-episodic files.
func Locate(filename string) (Coordinate, bool) {
	full := strings.ReplaceAll(filename, `\`, "/")
	base := stripVideoExtension(path.Base(full))

	for _, m := range matchers {
		if c, ok := m.match(base, full); ok {
			return c, true
		}
	}
	return Coordinate{}, false
}
