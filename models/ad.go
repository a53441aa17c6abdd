package models

import (
	"encoding/json"
	"time"
)

// RawAd is one item as returned by the scraping provider, before normalization.
// Field availability varies between actor versions, so everything is optional
// except what the normalizer needs to build an identity key.
type RawAd struct {
	PageID      string          `json:"page_id"`
	AdArchiveID string          `json:"ad_archive_id"`
	PageName    string          `json:"page_name"`
	StartDate   string          `json:"start_date"`
	BodyText    string          `json:"body_text"`
	Cards       []RawCard       `json:"cards,omitempty"`
	Reach       int64           `json:"reach"`
	Likes       int64           `json:"likes"`
	Comments    int64           `json:"comments"`
	Shares      int64           `json:"shares"`
	MediaURL    string          `json:"media_url"`
	SourceURL   string          `json:"source_url"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// RawCard is a carousel card attached to an ad creative.
type RawCard struct {
	Body     string `json:"body"`
	MediaURL string `json:"media_url"`
}

// AdRecord is one row of the historical dataset, keyed by brand page and
// ad archive ID. Descriptive fields are fixed at first sighting; metrics are
// refreshed on every re-scrape; AI fields are written once by the labeler.
type AdRecord struct {
	PageID      string `json:"page_id" db:"page_id"`
	AdArchiveID string `json:"ad_archive_id" db:"ad_archive_id"`

	Brand     string    `json:"brand" db:"brand"`
	PageName  string    `json:"page_name" db:"page_name"`
	BodyText  string    `json:"body_text" db:"body_text"`
	MediaURL  string    `json:"media_url" db:"media_url"`
	SourceURL string    `json:"source_url" db:"source_url"`
	StartDate time.Time `json:"start_date" db:"start_date"`

	Reach      int64 `json:"reach" db:"reach"`
	Likes      int64 `json:"likes" db:"likes"`
	Comments   int64 `json:"comments" db:"comments"`
	Shares     int64 `json:"shares" db:"shares"`
	Engagement int64 `json:"engagement" db:"engagement"`

	Summary  string `json:"ad_summary" db:"ad_summary"`
	Cluster1 string `json:"cluster_1" db:"cluster_1"`
	Cluster2 string `json:"cluster_2" db:"cluster_2"`
	Cluster3 string `json:"cluster_3" db:"cluster_3"`

	FirstSeenAt time.Time `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// Key returns the dedup identity for the ad, stable across re-scrapes.
func (a *AdRecord) Key() string {
	return a.PageID + "/" + a.AdArchiveID
}

// Labeled reports whether the AI-derived fields have been populated. Summary
// and the top-level cluster are written together, so checking both guards
// against a partially written row from an interrupted run.
func (a *AdRecord) Labeled() bool {
	return a.Summary != "" && a.Cluster1 != ""
}

// ClearLabels resets the AI-derived fields so the next labeling pass
// picks the row up again.
func (a *AdRecord) ClearLabels() {
	a.Summary = ""
	a.Cluster1 = ""
	a.Cluster2 = ""
	a.Cluster3 = ""
}
