package labeler

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"adwatch/ai"
	"adwatch/config"
	"adwatch/models"
	"adwatch/normalize"
	"adwatch/retry"
	"adwatch/workers"
)

// maxCharsPerAd caps the creative text sent per classification request.
const maxCharsPerAd = 1400

// Failure is one ad that stayed unlabeled after exhausting attempts. The row
// is left untouched so the next run picks it up again.
type Failure struct {
	Key    string
	Reason string
}

// Result is the outcome of one labeling pass.
type Result struct {
	Labeled      int
	Reused       int
	Skipped      int
	Failures     []Failure
	ClusterStats map[string]int
}

// Labeler populates the AI-derived fields on rows that lack them. Requests
// fan out over a bounded pool; results are written back serially after the
// join so no row is touched concurrently.
type Labeler struct {
	client  ai.Client
	retry   retry.Config
	workers int
}

func New(client ai.Client, cfg config.PipelineConfig) *Labeler {
	return &Labeler{
		client: client,
		retry: retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
		},
		workers: cfg.LabelWorkers,
	}
}

// group is one set of rows sharing the same normalized creative text. One
// classification request serves the whole group.
type group struct {
	rows   []int // indices into ads
	text   string
	brand  string
	result ai.LabelResult
	err    error
}

// LabelAll labels every unlabeled row in ads in place and reports what
// happened. Rows that already carry labels are never re-sent; rows whose
// text matches an already-labeled row reuse those labels without an AI call.
func (l *Labeler) LabelAll(ctx context.Context, ads []models.AdRecord) Result {
	res := Result{ClusterStats: make(map[string]int)}

	// Keyed the same way the groups below are, so a long creative matches
	// its already-labeled twin even past the compaction cap.
	known := make(map[string]ai.LabelResult)
	for i := range ads {
		if ads[i].Labeled() {
			key := normKey(compactText(ads[i].BodyText))
			if _, ok := known[key]; !ok && key != "" {
				known[key] = labelsOf(&ads[i])
			}
		}
	}

	groups := make(map[string]*group)
	var order []string
	for i := range ads {
		if ads[i].Labeled() {
			continue
		}
		text := compactText(ads[i].BodyText)
		if text == "" {
			res.Skipped++
			continue
		}

		key := normKey(text)
		if existing, ok := known[key]; ok {
			applyLabels(&ads[i], existing)
			countClusters(res.ClusterStats, existing)
			res.Reused++
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{text: text, brand: ads[i].Brand}
			groups[key] = g
			order = append(order, key)
		}
		g.rows = append(g.rows, i)
	}

	if len(order) == 0 {
		log.Printf("Labeler: nothing to do (%d reused, %d skipped)", res.Reused, res.Skipped)
		return res
	}

	log.Printf("Labeler: %d unique creatives to classify (%d workers)", len(order), l.workers)

	pool := workers.NewPool(l.workers, 0)
	for _, key := range order {
		g := groups[key]
		pool.Submit(func() {
			g.err = l.retry.Do(ctx, "label ad", func() error {
				result, err := l.client.LabelAd(ctx, ai.LabelRequest{Brand: g.brand, BodyText: g.text})
				if err != nil {
					return err
				}
				g.result = result
				return nil
			})
		})
	}
	pool.Wait()

	// Serial write-back after the join barrier.
	for _, key := range order {
		g := groups[key]
		if g.err != nil {
			for _, i := range g.rows {
				res.Failures = append(res.Failures, Failure{Key: ads[i].Key(), Reason: g.err.Error()})
			}
			continue
		}
		for _, i := range g.rows {
			applyLabels(&ads[i], g.result)
			countClusters(res.ClusterStats, g.result)
			res.Labeled++
		}
	}

	log.Printf("Labeler: %d labeled, %d reused, %d skipped, %d failed",
		res.Labeled, res.Reused, res.Skipped, len(res.Failures))
	return res
}

func applyLabels(ad *models.AdRecord, r ai.LabelResult) {
	ad.Summary = r.Summary
	ad.Cluster1 = r.Clusters[0]
	ad.Cluster2 = r.Clusters[1]
	ad.Cluster3 = r.Clusters[2]
}

func labelsOf(ad *models.AdRecord) ai.LabelResult {
	return ai.LabelResult{
		Summary:  ad.Summary,
		Clusters: [3]string{ad.Cluster1, ad.Cluster2, ad.Cluster3},
	}
}

func countClusters(stats map[string]int, r ai.LabelResult) {
	for _, c := range r.Clusters {
		if c != "" && c != "OTHER" {
			stats[c]++
		}
	}
}

func compactText(s string) string {
	s = normalize.CleanText(s)
	if len(s) <= maxCharsPerAd {
		return s
	}
	// Cut on a rune boundary; creatives are rarely ASCII-only.
	cut := maxCharsPerAd
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func normKey(s string) string {
	return strings.ToLower(normalize.CleanText(s))
}
