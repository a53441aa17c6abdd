package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"adwatch/models"
)

// placeholderRe matches templated creative bodies like "{{product.brand}}"
// that the ad platform substitutes per viewer. The real copy then lives on
// the first carousel card.
var placeholderRe = regexp.MustCompile(`\{\{product\.brand\}\}`)

var whitespaceRe = regexp.MustCompile(`[ \t]+`)
var newlineRe = regexp.MustCompile(`\n+`)

// dateLayouts are tried in order against whichever date field the provider
// populated.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// Ad maps one raw record to one canonical AdRecord. It is pure and
// idempotent: the same input always yields byte-identical output. Records
// without both identity fields are rejected.
func Ad(raw models.RawAd, brand string) (models.AdRecord, error) {
	if raw.PageID == "" || raw.AdArchiveID == "" {
		return models.AdRecord{}, fmt.Errorf("missing identity fields (page_id=%q, ad_archive_id=%q)", raw.PageID, raw.AdArchiveID)
	}

	startDate, err := parseDate(raw.StartDate)
	if err != nil {
		return models.AdRecord{}, fmt.Errorf("ad %s: %w", raw.AdArchiveID, err)
	}

	body := raw.BodyText
	if placeholderRe.MatchString(body) {
		if cardBody := firstCardBody(raw.Cards); cardBody != "" {
			body = cardBody
		}
	}
	body = CleanText(body)

	rec := models.AdRecord{
		PageID:      raw.PageID,
		AdArchiveID: raw.AdArchiveID,
		Brand:       brand,
		PageName:    raw.PageName,
		BodyText:    body,
		MediaURL:    raw.MediaURL,
		SourceURL:   raw.SourceURL,
		StartDate:   startDate,
		Reach:       raw.Reach,
		Likes:       raw.Likes,
		Comments:    raw.Comments,
		Shares:      raw.Shares,
	}
	// Absent sub-metrics arrive as zero, so the sum is always defined.
	rec.Engagement = rec.Likes + rec.Comments + rec.Shares

	return rec, nil
}

// CleanText strips HTML fragments that some creatives carry and collapses
// whitespace. Plain text passes through unchanged apart from trimming.
func CleanText(s string) string {
	if strings.ContainsAny(s, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = strings.ReplaceAll(s, "\r", "\n")
	s = newlineRe.ReplaceAllString(s, "\n")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// InWindow reports whether the ad's start date falls inside [start, end],
// inclusive on both ends.
func InWindow(rec models.AdRecord, start, end time.Time) bool {
	d := rec.StartDate
	return !d.Before(start) && !d.After(end)
}

func firstCardBody(cards []models.RawCard) string {
	for _, card := range cards {
		if strings.TrimSpace(card.Body) != "" {
			return card.Body
		}
	}
	return ""
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing start date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start date %q", s)
}
