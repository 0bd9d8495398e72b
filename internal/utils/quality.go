package utils

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amaumene/tvarr/internal/models"
)

// QualityLadder lists the query qualifiers from most to least preferred.
// The empty qualifier is the bare coordinate query.
var QualityLadder = []string{"2160p", "4K", "1080p", ""}

// TierLabel names a ladder qualifier for logs and metrics
func TierLabel(qualifier string) string {
	if qualifier == "" {
		return "any"
	}
	return qualifier
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle folds a show name into the form release names use:
// accents removed, apostrophes dropped, other punctuation turned into spaces.
func NormalizeTitle(name string) string {
	folded, _, err := transform.String(accentStripper, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == '\'' || r == '’':
			continue
		case r == '&':
			b.WriteString(" and ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// BuildQuery formats the search pattern for one ladder tier, e.g. "Breaking Bad S05E17 1080p"
func BuildQuery(showName string, season, episode int, qualifier string) string {
	query := fmt.Sprintf("%s %s", NormalizeTitle(showName), models.FormatEpisode(season, episode))
	if qualifier != "" {
		query += " " + qualifier
	}
	return query
}

// DetermineQuality parses a release title and determines its resolution
func DetermineQuality(title string) models.Quality {
	titleLower := strings.ToLower(title)

	switch {
	case strings.Contains(titleLower, "2160p") ||
		strings.Contains(titleLower, "4k") ||
		strings.Contains(titleLower, "uhd"):
		return models.Quality2160p
	case strings.Contains(titleLower, "1080p"):
		return models.Quality1080p
	case strings.Contains(titleLower, "720p"):
		return models.Quality720p
	}

	return models.QualityOther
}
