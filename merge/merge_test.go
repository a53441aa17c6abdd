package merge

import (
	"testing"
	"time"

	"adwatch/models"
)

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func ad(pageID, archiveID string, engagement int64) models.AdRecord {
	return models.AdRecord{
		PageID:      pageID,
		AdArchiveID: archiveID,
		Brand:       "Maxima",
		BodyText:    "Savaitės pasiūlymai",
		StartDate:   day,
		Likes:       engagement,
		Engagement:  engagement,
	}
}

func TestMergeNeverShrinks(t *testing.T) {
	existing := []models.AdRecord{
		ad("100", "a1", 10),
		ad("100", "a2", 20),
		ad("200", "b1", 30),
	}

	merged, stats := Ads(existing, []models.AdRecord{ad("100", "a1", 15)}, day)

	if len(merged) < len(existing) {
		t.Fatalf("merge shrank dataset: %d -> %d", len(existing), len(merged))
	}
	if stats.Updated != 1 || stats.Inserted != 0 {
		t.Fatalf("expected 1 update, 0 inserts, got %+v", stats)
	}

	keys := make(map[string]bool)
	for i := range merged {
		keys[merged[i].Key()] = true
	}
	for i := range existing {
		if !keys[existing[i].Key()] {
			t.Fatalf("pre-existing key %s lost", existing[i].Key())
		}
	}
}

func TestMergeRefreshesMetricsPreservesLabels(t *testing.T) {
	// An existing labeled ad re-scraped with higher engagement: metrics move,
	// labels and first-seen stay.
	old := ad("100", "akropolis-1", 10)
	old.Summary = "Mall-wide spring discount event."
	old.Cluster1 = "DISCOUNT"
	old.Cluster2 = "EVENT"
	old.FirstSeenAt = day.AddDate(0, 0, -7)
	old.LastSeenAt = day.AddDate(0, 0, -7)

	in := ad("100", "akropolis-1", 55)
	in.Reach = 9000

	merged, stats := Ads([]models.AdRecord{old}, []models.AdRecord{in}, day)

	if stats.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", stats)
	}
	got := merged[0]
	if got.Engagement != 55 || got.Reach != 9000 {
		t.Errorf("metrics not refreshed: engagement=%d reach=%d", got.Engagement, got.Reach)
	}
	if got.Summary != old.Summary || got.Cluster1 != "DISCOUNT" || got.Cluster2 != "EVENT" {
		t.Errorf("labels not preserved: %q %q %q", got.Summary, got.Cluster1, got.Cluster2)
	}
	if !got.FirstSeenAt.Equal(old.FirstSeenAt) {
		t.Errorf("first seen moved: %s", got.FirstSeenAt)
	}
	if !got.LastSeenAt.Equal(day) {
		t.Errorf("last seen not refreshed: %s", got.LastSeenAt)
	}
}

func TestMergeSameBatchTwiceIsIdempotent(t *testing.T) {
	batch := []models.AdRecord{
		ad("100", "a1", 10),
		ad("100", "a2", 20),
	}

	first, stats1 := Ads(nil, batch, day)
	if stats1.Inserted != 2 {
		t.Fatalf("first merge: expected 2 inserts, got %+v", stats1)
	}

	second, stats2 := Ads(first, batch, day)
	if len(second) != len(first) {
		t.Fatalf("re-merging the same batch changed row count: %d -> %d", len(first), len(second))
	}
	if stats2.Inserted != 0 {
		t.Fatalf("re-merge inserted rows: %+v", stats2)
	}
}

func TestMergeDuplicateKeyInBatchLaterWins(t *testing.T) {
	early := ad("100", "dup", 10)
	early.BodyText = "early"
	late := ad("100", "dup", 40)
	late.BodyText = "late"

	merged, stats := Ads(nil, []models.AdRecord{early, late}, day)

	if len(merged) != 1 {
		t.Fatalf("expected 1 row, got %d", len(merged))
	}
	if stats.Inserted != 1 {
		t.Fatalf("expected 1 insert, got %+v", stats)
	}
	if merged[0].BodyText != "late" || merged[0].Engagement != 40 {
		t.Errorf("later occurrence did not win: %q engagement=%d", merged[0].BodyText, merged[0].Engagement)
	}
}

func TestMergeDuplicateExistingKeyCountsOneUpdate(t *testing.T) {
	existing := []models.AdRecord{ad("100", "dup", 10)}
	batch := []models.AdRecord{
		ad("100", "dup", 20),
		ad("100", "dup", 30),
	}

	merged, stats := Ads(existing, batch, day)

	if stats.Updated != 1 {
		t.Fatalf("updated = %d, want 1 distinct row", stats.Updated)
	}
	if merged[0].Engagement != 30 {
		t.Errorf("later occurrence did not win: %d", merged[0].Engagement)
	}
}

func TestMergeImmutableConflictSkipsRow(t *testing.T) {
	old := ad("100", "a1", 10)
	in := ad("100", "a1", 50)
	in.Brand = "IKI"

	merged, stats := Ads([]models.AdRecord{old}, []models.AdRecord{in}, day)

	if len(stats.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", stats)
	}
	if stats.Updated != 0 {
		t.Fatalf("conflicting row was merged: %+v", stats)
	}
	if merged[0].Brand != "Maxima" || merged[0].Engagement != 10 {
		t.Errorf("existing row mutated by conflicting input: %+v", merged[0])
	}
}

func TestMergeStartDateConflict(t *testing.T) {
	old := ad("100", "a1", 10)
	in := ad("100", "a1", 10)
	in.StartDate = day.AddDate(0, 0, 3)

	_, stats := Ads([]models.AdRecord{old}, []models.AdRecord{in}, day)

	if len(stats.Conflicts) != 1 {
		t.Fatalf("expected start date conflict, got %+v", stats)
	}
}

func TestMergeEngagementRegressionFlaggedAndApplied(t *testing.T) {
	old := ad("100", "a1", 100)
	in := ad("100", "a1", 60)

	merged, stats := Ads([]models.AdRecord{old}, []models.AdRecord{in}, day)

	if len(stats.Regressions) != 1 {
		t.Fatalf("expected 1 regression, got %+v", stats)
	}
	r := stats.Regressions[0]
	if r.From != 100 || r.To != 60 {
		t.Errorf("regression detail wrong: %+v", r)
	}
	// Replace-on-rescrape: the newer value still wins.
	if merged[0].Engagement != 60 {
		t.Errorf("scraped value not applied: %d", merged[0].Engagement)
	}
}

func TestMergeFillsMissingDescriptiveFields(t *testing.T) {
	old := ad("100", "a1", 10)
	old.BodyText = ""
	old.PageName = ""

	in := ad("100", "a1", 12)
	in.BodyText = "Nauja kolekcija jau čia"
	in.PageName = "Maxima LT"

	merged, _ := Ads([]models.AdRecord{old}, []models.AdRecord{in}, day)

	if merged[0].BodyText != in.BodyText {
		t.Errorf("empty body not backfilled: %q", merged[0].BodyText)
	}
	if merged[0].PageName != "Maxima LT" {
		t.Errorf("empty page name not backfilled: %q", merged[0].PageName)
	}
}

func TestMergeNewRowsGetSeenTimestamps(t *testing.T) {
	merged, _ := Ads(nil, []models.AdRecord{ad("100", "a1", 5)}, day)

	if !merged[0].FirstSeenAt.Equal(day) || !merged[0].LastSeenAt.Equal(day) {
		t.Fatalf("seen timestamps not set: first=%s last=%s", merged[0].FirstSeenAt, merged[0].LastSeenAt)
	}
}
