package ai

import (
	"context"
	"time"
)

// LabelRequest asks for a classification of a single ad creative.
type LabelRequest struct {
	Brand    string
	BodyText string
}

// LabelResult carries one free-text summary and a hierarchical cluster label
// of up to three levels, most appropriate first.
type LabelResult struct {
	Summary  string
	Clusters [3]string
}

// NarrativeRequest asks for a factual period-over-period performance
// narrative for one brand.
type NarrativeRequest struct {
	Brand       string
	WindowStart time.Time
	WindowEnd   time.Time

	CurrentAds        int
	CurrentReach      int64
	CurrentEngagement int64
	PreviousAds       int
	PreviousReach     int64
	PrevEngagement    int64
	AdsChangePct      float64
	ReachChangePct    float64

	CurrentCaptions  []string
	PreviousCaptions []string
	CurrentClusters  []string
	PreviousClusters []string
}

// Client is the language-model service boundary. Responses are validated
// against the expected schema by the implementation; malformed responses
// come back as errors so callers retry rather than trust them.
type Client interface {
	LabelAd(ctx context.Context, req LabelRequest) (LabelResult, error)
	Narrate(ctx context.Context, req NarrativeRequest) (string, error)
}
