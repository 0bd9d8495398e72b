package models

// ShowStatus is the externally-set orchestration mode of a tracked show
type ShowStatus string

const (
	ShowStatusActive ShowStatus = "active"
	ShowStatusPaused ShowStatus = "paused"
)

// Valid reports whether the status is a known value
func (s ShowStatus) Valid() bool {
	return s == ShowStatusActive || s == ShowStatusPaused
}

// Quality is the resolution detected in a release title
type Quality string

const (
	Quality2160p Quality = "2160p"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	QualityOther Quality = "OTHER"
)

// GrabSource tells which operation submitted a release
type GrabSource string

const (
	GrabSourceCheck GrabSource = "check" // Watermark progression
	GrabSourceRange GrabSource = "range" // Season range acquisition
)

// GrabStatus represents the post-submission state of a grab
type GrabStatus string

const (
	GrabStatusSubmitted   GrabStatus = "submitted"   // Sent to the download client, priorities pending
	GrabStatusPrioritized GrabStatus = "prioritized" // Season pack, file priorities applied
	GrabStatusSingle      GrabStatus = "single"      // Not a multi-episode release, nothing to prioritize
	GrabStatusExpired     GrabStatus = "expired"     // Metadata never became available
)
