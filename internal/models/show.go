package models

import (
	"fmt"
	"time"
)

// AirDateLayout is the ISO date layout used for air dates
const AirDateLayout = "2006-01-02"

// TrackedShow represents a TV show whose next episode is acquired automatically
type TrackedShow struct {
	ID        uint64 `boltholdKey:"ID" json:"id"`
	Name      string `boltholdIndex:"Name" json:"name"`
	CatalogID int    `json:"catalog_id"` // TVmaze show id, 0 when unknown

	// Watermark: the last episode known to be satisfied
	CurrentSeason  int `json:"current_season"`
	CurrentEpisode int `json:"current_episode"`

	Status             ShowStatus `boltholdIndex:"Status" json:"status"`
	NextEpisodeAirDate string     `json:"next_episode_air_date"` // YYYY-MM-DD, empty when unknown
	LastCheckedAt      *time.Time `json:"last_checked_at,omitempty"`

	DownloadHistory []DownloadRecord `json:"download_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DownloadRecord is one entry of a show's append-only download log
type DownloadRecord struct {
	Season       int       `json:"season"`
	Episode      int       `json:"episode"`
	ReleaseTitle string    `json:"release_title"`
	DownloadedAt time.Time `json:"downloaded_at"`
	AirDate      string    `json:"air_date"`
}

// Watermark returns the watermark formatted as SxxEyy
func (s *TrackedShow) Watermark() string {
	return FormatEpisode(s.CurrentSeason, s.CurrentEpisode)
}

// AirDate parses NextEpisodeAirDate. ok is false when the date is unset or malformed.
func (s *TrackedShow) AirDate() (time.Time, bool) {
	if s.NextEpisodeAirDate == "" {
		return time.Time{}, false
	}
	date, err := time.Parse(AirDateLayout, s.NextEpisodeAirDate)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// Clone returns a deep copy, so a show can be mutated in memory and persisted in one write
func (s *TrackedShow) Clone() *TrackedShow {
	clone := *s
	if s.LastCheckedAt != nil {
		checked := *s.LastCheckedAt
		clone.LastCheckedAt = &checked
	}
	clone.DownloadHistory = make([]DownloadRecord, len(s.DownloadHistory))
	copy(clone.DownloadHistory, s.DownloadHistory)
	return &clone
}

// FormatEpisode formats a season/episode pair as S01E02
func FormatEpisode(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}
