package summary

import (
	"context"
	"log"
	"time"

	"adwatch/ai"
	"adwatch/config"
	"adwatch/models"
	"adwatch/retry"
	"adwatch/workers"
)

// WindowStats aggregates one brand's ads over one date window.
type WindowStats struct {
	AdCount    int
	Reach      int64
	Engagement int64
	Captions   []string
	Clusters   []string
}

// Failure is one brand whose narrative could not be generated. The summary
// row is still written with its figures; only the narrative is missing.
type Failure struct {
	Brand  string
	Reason string
}

// Summarizer computes period-over-period figures per brand and asks the AI
// service for one narrative per brand with activity. Brands with no ads in
// the current window get a fixed placeholder narrative and no AI call.
type Summarizer struct {
	client  ai.Client
	retry   retry.Config
	workers int
}

func New(client ai.Client, cfg config.PipelineConfig) *Summarizer {
	return &Summarizer{
		client: client,
		retry: retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
		},
		workers: cfg.SummaryWorkers,
	}
}

// SummarizeAll produces one BrandSummary per configured brand for the window
// [start, end], comparing against the immediately preceding window of equal
// length. Narratives are generated concurrently, one slot per brand.
func (s *Summarizer) SummarizeAll(ctx context.Context, ads []models.AdRecord, brands []config.Brand, start, end time.Time) ([]models.BrandSummary, []Failure) {
	prevStart, prevEnd := PreviousWindow(start, end)
	now := time.Now()

	summaries := make([]models.BrandSummary, len(brands))
	errs := make([]error, len(brands))
	pool := workers.NewPool(s.workers, 0)

	for i, brand := range brands {
		cur := Aggregate(ads, brand.Name, start, end)
		prev := Aggregate(ads, brand.Name, prevStart, prevEnd)
		summaries[i] = buildSummary(brand.Name, start, end, cur, prev, now)

		if cur.AdCount == 0 {
			// Cost-saving short-circuit: no activity, no AI call.
			summaries[i].Narrative = models.NoActivityNarrative
			continue
		}

		s.submitNarrative(ctx, pool, &summaries[i], &errs[i], cur, prev)
	}
	pool.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Brand: brands[i].Name, Reason: err.Error()})
		}
	}

	log.Printf("Summarizer: %d brands, %d narrative failures", len(brands), len(failures))
	return summaries, failures
}

// SummarizeGroups produces one combined summary per brand group with at least
// two members, aggregated across all of the group's brands and stored under
// the group name. Single-member groups are skipped; their per-brand summary
// already says everything a roll-up would.
func (s *Summarizer) SummarizeGroups(ctx context.Context, ads []models.AdRecord, brands []config.Brand, start, end time.Time) ([]models.BrandSummary, []Failure) {
	members := make(map[string][]string)
	var names []string
	for _, b := range brands {
		if b.Group == "" {
			continue
		}
		if _, ok := members[b.Group]; !ok {
			names = append(names, b.Group)
		}
		members[b.Group] = append(members[b.Group], b.Name)
	}

	var groups []string
	for _, g := range names {
		if len(members[g]) >= 2 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil, nil
	}

	prevStart, prevEnd := PreviousWindow(start, end)
	now := time.Now()

	summaries := make([]models.BrandSummary, len(groups))
	errs := make([]error, len(groups))
	pool := workers.NewPool(s.workers, 0)

	for i, g := range groups {
		cur := aggregateGroup(ads, members[g], start, end)
		prev := aggregateGroup(ads, members[g], prevStart, prevEnd)
		summaries[i] = buildSummary(g, start, end, cur, prev, now)

		if cur.AdCount == 0 {
			summaries[i].Narrative = models.NoActivityNarrative
			continue
		}

		s.submitNarrative(ctx, pool, &summaries[i], &errs[i], cur, prev)
	}
	pool.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Brand: groups[i], Reason: err.Error()})
		}
	}

	log.Printf("Summarizer: %d group roll-ups, %d narrative failures", len(groups), len(failures))
	return summaries, failures
}

// submitNarrative queues one Narrate call for a prepared summary row. The
// task writes only into its own summary and error slot.
func (s *Summarizer) submitNarrative(ctx context.Context, pool *workers.Pool, m *models.BrandSummary, slot *error, cur, prev WindowStats) {
	req := ai.NarrativeRequest{
		Brand:             m.Brand,
		WindowStart:       m.WindowStart,
		WindowEnd:         m.WindowEnd,
		CurrentAds:        cur.AdCount,
		CurrentReach:      cur.Reach,
		CurrentEngagement: cur.Engagement,
		PreviousAds:       prev.AdCount,
		PreviousReach:     prev.Reach,
		PrevEngagement:    prev.Engagement,
		AdsChangePct:      m.AdCountPct,
		ReachChangePct:    m.ReachPct,
		CurrentCaptions:   cur.Captions,
		PreviousCaptions:  prev.Captions,
		CurrentClusters:   cur.Clusters,
		PreviousClusters:  prev.Clusters,
	}

	pool.Submit(func() {
		*slot = s.retry.Do(ctx, "narrative for "+req.Brand, func() error {
			text, err := s.client.Narrate(ctx, req)
			if err != nil {
				return err
			}
			m.Narrative = text
			return nil
		})
	})
}

// PreviousWindow returns the window of equal length immediately before
// [start, end].
func PreviousWindow(start, end time.Time) (time.Time, time.Time) {
	days := int(end.Sub(start).Hours()/24) + 1
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))
	return prevStart, prevEnd
}

// Aggregate selects the brand's ads whose start date falls inside the window
// and totals their figures. Identity keys are distinct by construction of
// the historical dataset.
func Aggregate(ads []models.AdRecord, brand string, start, end time.Time) WindowStats {
	var stats WindowStats
	for i := range ads {
		ad := &ads[i]
		if ad.Brand != brand {
			continue
		}
		if ad.StartDate.Before(start) || ad.StartDate.After(end) {
			continue
		}
		stats.AdCount++
		stats.Reach += ad.Reach
		stats.Engagement += ad.Engagement
		if ad.BodyText != "" {
			stats.Captions = append(stats.Captions, ad.BodyText)
		}
		if ad.Cluster1 != "" {
			stats.Clusters = append(stats.Clusters, ad.Cluster1)
		}
	}
	return stats
}

func aggregateGroup(ads []models.AdRecord, brandNames []string, start, end time.Time) WindowStats {
	var stats WindowStats
	for _, name := range brandNames {
		b := Aggregate(ads, name, start, end)
		stats.AdCount += b.AdCount
		stats.Reach += b.Reach
		stats.Engagement += b.Engagement
		stats.Captions = append(stats.Captions, b.Captions...)
		stats.Clusters = append(stats.Clusters, b.Clusters...)
	}
	return stats
}

func buildSummary(brand string, start, end time.Time, cur, prev WindowStats, now time.Time) models.BrandSummary {
	return models.BrandSummary{
		Brand:           brand,
		WindowStart:     start,
		WindowEnd:       end,
		AdCount:         cur.AdCount,
		Reach:           cur.Reach,
		Engagement:      cur.Engagement,
		PrevAdCount:     prev.AdCount,
		PrevReach:       prev.Reach,
		PrevEngagement:  prev.Engagement,
		AdCountDelta:    cur.AdCount - prev.AdCount,
		ReachDelta:      cur.Reach - prev.Reach,
		EngagementDelta: cur.Engagement - prev.Engagement,
		AdCountPct:      pctChange(float64(cur.AdCount), float64(prev.AdCount)),
		ReachPct:        pctChange(float64(cur.Reach), float64(prev.Reach)),
		EngagementPct:   pctChange(float64(cur.Engagement), float64(prev.Engagement)),
		GeneratedAt:     now,
	}
}

// pctChange is defined as zero when the prior value is zero, so a brand that
// was silent last period never produces a division error or an infinity.
func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
