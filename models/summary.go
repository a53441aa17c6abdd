package models

import "time"

// BrandSummary is one row of the summaries dataset: per-brand figures for a
// date window compared against the immediately preceding window of equal
// length. At most one row exists per (brand, window_start, window_end);
// re-running a window overwrites it.
type BrandSummary struct {
	ID          int64     `json:"id" db:"id"`
	Brand       string    `json:"brand" db:"brand"`
	WindowStart time.Time `json:"window_start" db:"window_start"`
	WindowEnd   time.Time `json:"window_end" db:"window_end"`

	AdCount    int   `json:"ad_count" db:"ad_count"`
	Reach      int64 `json:"reach" db:"reach"`
	Engagement int64 `json:"engagement" db:"engagement"`

	PrevAdCount    int   `json:"prev_ad_count" db:"prev_ad_count"`
	PrevReach      int64 `json:"prev_reach" db:"prev_reach"`
	PrevEngagement int64 `json:"prev_engagement" db:"prev_engagement"`

	AdCountDelta    int     `json:"ad_count_delta" db:"ad_count_delta"`
	ReachDelta      int64   `json:"reach_delta" db:"reach_delta"`
	EngagementDelta int64   `json:"engagement_delta" db:"engagement_delta"`
	AdCountPct      float64 `json:"ad_count_pct" db:"ad_count_pct"`
	ReachPct        float64 `json:"reach_pct" db:"reach_pct"`
	EngagementPct   float64 `json:"engagement_pct" db:"engagement_pct"`

	Narrative   string    `json:"narrative" db:"narrative"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}

// NoActivityNarrative is the fixed text used when a brand has no qualifying
// ads in the current window. It is written without calling the AI service.
const NoActivityNarrative = "No new posts this period."
