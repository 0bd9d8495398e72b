package models

import "time"

// Grab represents a release confirmed as submitted to the download client
type Grab struct {
	ID     uint64 `boltholdKey:"ID" json:"id"`
	ShowID uint64 `boltholdIndex:"ShowID" json:"show_id"`

	ShowName string `json:"show_name"`
	Season   int    `json:"season"`
	Episode  int    `json:"episode"`

	// Release details
	Title    string  `json:"title"`
	FetchURL string  `json:"fetch_url"`
	InfoHash string  `boltholdIndex:"InfoHash" json:"info_hash"` // Lowercase hex, parsed from the magnet link
	Seeders  int     `json:"seeders"`
	Size     int64   `json:"size"` // bytes
	Quality  Quality `json:"quality"`

	Source GrabSource `json:"source"`
	Status GrabStatus `boltholdIndex:"Status" json:"status"`

	// Metadata
	SubmittedAt   time.Time  `json:"submitted_at"`
	PrioritizedAt *time.Time `json:"prioritized_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Candidate is a release returned by the search service.
// Only candidates with a well-formed magnet FetchURL are eligible for selection.
type Candidate struct {
	Title    string `json:"title"`
	Size     int64  `json:"size"`
	Seeders  int    `json:"seeders"`
	FetchURL string `json:"fetch_url"`
	SiteURL  string `json:"site_url"`
}
