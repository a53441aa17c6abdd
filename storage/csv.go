package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"adwatch/models"
)

// Exporter writes dashboard-readable CSV copies of both datasets. The
// dashboard collaborator reads these files between runs; it never writes
// them.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

const dateLayout = "2006-01-02"

// ExportAds writes the full historical dataset to ads.csv and returns the
// file path.
func (e *Exporter) ExportAds(ads []models.AdRecord) (string, error) {
	path := filepath.Join(e.dir, "ads.csv")
	f, w, err := e.create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := []string{
		"page_id", "ad_archive_id", "brand", "page_name", "body_text", "media_url", "source_url",
		"start_date", "reach", "likes", "comments", "shares", "engagement",
		"ad_summary", "cluster_1", "cluster_2", "cluster_3", "first_seen_at", "last_seen_at",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("csv: write header: %w", err)
	}

	for i := range ads {
		a := &ads[i]
		row := []string{
			a.PageID, a.AdArchiveID, a.Brand, a.PageName, a.BodyText, a.MediaURL, a.SourceURL,
			a.StartDate.Format(dateLayout),
			strconv.FormatInt(a.Reach, 10),
			strconv.FormatInt(a.Likes, 10),
			strconv.FormatInt(a.Comments, 10),
			strconv.FormatInt(a.Shares, 10),
			strconv.FormatInt(a.Engagement, 10),
			a.Summary, a.Cluster1, a.Cluster2, a.Cluster3,
			a.FirstSeenAt.Format(dateLayout),
			a.LastSeenAt.Format(dateLayout),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return path, w.Error()
}

// ExportSummaries writes the summaries dataset to summaries.csv and returns
// the file path.
func (e *Exporter) ExportSummaries(summaries []models.BrandSummary) (string, error) {
	path := filepath.Join(e.dir, "summaries.csv")
	f, w, err := e.create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := []string{
		"brand", "window_start", "window_end", "ad_count", "reach", "engagement",
		"prev_ad_count", "prev_reach", "prev_engagement",
		"ad_count_pct", "reach_pct", "engagement_pct", "narrative", "generated_at",
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("csv: write header: %w", err)
	}

	for i := range summaries {
		m := &summaries[i]
		row := []string{
			m.Brand,
			m.WindowStart.Format(dateLayout),
			m.WindowEnd.Format(dateLayout),
			strconv.Itoa(m.AdCount),
			strconv.FormatInt(m.Reach, 10),
			strconv.FormatInt(m.Engagement, 10),
			strconv.Itoa(m.PrevAdCount),
			strconv.FormatInt(m.PrevReach, 10),
			strconv.FormatInt(m.PrevEngagement, 10),
			strconv.FormatFloat(m.AdCountPct, 'f', 1, 64),
			strconv.FormatFloat(m.ReachPct, 'f', 1, 64),
			strconv.FormatFloat(m.EngagementPct, 'f', 1, 64),
			m.Narrative,
			m.GeneratedAt.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	return path, w.Error()
}

func (e *Exporter) create(path string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return f, csv.NewWriter(f), nil
}
