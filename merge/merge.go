package merge

import (
	"fmt"
	"time"

	"adwatch/models"
)

// Stats reports what one merge did. Conflicts and regressions carry enough
// detail for the post-run report.
type Stats struct {
	Inserted    int
	Updated     int
	Conflicts   []Conflict
	Regressions []Regression
}

// Conflict is an incoming row whose immutable fields disagree with the
// existing row for the same identity key. The incoming unit is skipped,
// never silently merged.
type Conflict struct {
	Key    string
	Reason string
}

// Regression is a metric refresh that lowered engagement. The scraped value
// still wins (replace-on-rescrape), but the event is surfaced because the
// upstream should not normally report shrinking cumulative counts.
type Regression struct {
	Key  string
	From int64
	To   int64
}

// Ads reconciles a batch of newly normalized rows into the historical
// dataset and returns the updated dataset. Existing rows keep their position;
// new rows are appended in batch order. The result never contains fewer rows
// than existing, and every pre-existing identity key survives.
//
// For keys present on both sides, mutable metrics are replaced by the newer
// values while AI-derived fields and descriptive fields are preserved from
// the existing row. When a key occurs twice within the batch, the
// later-ordered occurrence wins.
func Ads(existing, incoming []models.AdRecord, now time.Time) ([]models.AdRecord, Stats) {
	var stats Stats

	merged := make([]models.AdRecord, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i := range merged {
		index[merged[i].Key()] = i
	}

	// Within-batch dedup: keep only the last occurrence of each key.
	appended := make(map[string]int)
	updated := make(map[string]bool)

	for _, in := range incoming {
		key := in.Key()

		if i, ok := index[key]; ok {
			old := merged[i]

			if reason := immutableConflict(&old, &in); reason != "" {
				stats.Conflicts = append(stats.Conflicts, Conflict{Key: key, Reason: reason})
				continue
			}
			if in.Engagement < old.Engagement {
				stats.Regressions = append(stats.Regressions, Regression{Key: key, From: old.Engagement, To: in.Engagement})
			}

			merged[i] = refreshMetrics(old, in, now)
			if !updated[key] {
				updated[key] = true
				stats.Updated++
			}
			continue
		}

		if j, ok := appended[key]; ok {
			// Same key twice in one batch: later occurrence wins.
			row := in
			row.FirstSeenAt = now
			row.LastSeenAt = now
			merged[j] = row
			continue
		}

		row := in
		row.FirstSeenAt = now
		row.LastSeenAt = now
		merged = append(merged, row)
		appended[key] = len(merged) - 1
		stats.Inserted++
	}

	return merged, stats
}

// refreshMetrics replaces the mutable metric fields of old with the values
// from in, leaving descriptive and AI-derived fields untouched.
func refreshMetrics(old, in models.AdRecord, now time.Time) models.AdRecord {
	out := old
	out.Reach = in.Reach
	out.Likes = in.Likes
	out.Comments = in.Comments
	out.Shares = in.Shares
	out.Engagement = in.Engagement
	out.LastSeenAt = now

	// Fill descriptive fields the first sighting was missing.
	if out.PageName == "" {
		out.PageName = in.PageName
	}
	if out.BodyText == "" {
		out.BodyText = in.BodyText
	}
	if out.MediaURL == "" {
		out.MediaURL = in.MediaURL
	}
	return out
}

func immutableConflict(old, in *models.AdRecord) string {
	if in.Brand != "" && old.Brand != "" && in.Brand != old.Brand {
		return fmt.Sprintf("brand mismatch: %q vs %q", old.Brand, in.Brand)
	}
	if !in.StartDate.IsZero() && !old.StartDate.IsZero() && !in.StartDate.Equal(old.StartDate) {
		return fmt.Sprintf("start date mismatch: %s vs %s",
			old.StartDate.Format("2006-01-02"), in.StartDate.Format("2006-01-02"))
	}
	return ""
}
