package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"adwatch/config"
	"adwatch/labeler"
	"adwatch/logging"
	"adwatch/merge"
	"adwatch/models"
	"adwatch/normalize"
	"adwatch/scraper"
	"adwatch/storage"
	"adwatch/summary"
)

// Pipeline drives one invocation through its stages: fetch, normalize, merge,
// label, summarize. Each stage can be switched off independently; a disabled
// stage is skipped and the next one picks up from the persisted dataset.
// Unit-level failures degrade to report entries; only infrastructure failures
// halt the run.
type Pipeline struct {
	cfg        *config.Config
	store      storage.Store
	fetcher    *scraper.Fetcher
	labeler    *labeler.Labeler
	summarizer *summary.Summarizer
	exporter   *storage.Exporter
	uploader   *storage.S3Uploader
}

func New(cfg *config.Config, store storage.Store, fetcher *scraper.Fetcher,
	lab *labeler.Labeler, sum *summary.Summarizer,
	exporter *storage.Exporter, uploader *storage.S3Uploader) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		fetcher:    fetcher,
		labeler:    lab,
		summarizer: sum,
		exporter:   exporter,
		uploader:   uploader,
	}
}

// Run executes one full pipeline invocation and persists its run record. The
// returned error is the infrastructure failure that halted the run, if any.
func (p *Pipeline) Run(ctx context.Context) error {
	run := &models.PipelineRun{
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
		LastStage: models.StageIdle,
	}

	id, err := p.store.CreateRun(ctx, run)
	if err != nil {
		return fmt.Errorf("create run record: %w", err)
	}
	run.ID = id

	report := &models.RunReport{}
	runErr := p.execute(ctx, run, report)

	now := time.Now()
	run.FinishedAt = &now
	run.ErrorsCount = len(report.Failures)
	run.Report = report.ToJSON()
	if runErr != nil {
		run.Status = models.RunStatusFailed
		p.logRun(ctx, run, models.LogLevelError, run.LastStage, fmt.Sprintf("Run failed: %v", runErr))
	} else {
		run.Status = models.RunStatusCompleted
		run.LastStage = models.StageDone
	}

	if err := p.store.UpdateRun(ctx, run); err != nil {
		log.Printf("Failed to persist run record: %v", err)
	}

	log.Printf("Run %d %s: fetched=%d new=%d updated=%d labeled=%d summaries=%d errors=%d",
		run.ID, run.Status, run.AdsFetched, run.AdsNew, run.AdsUpdated,
		run.AdsLabeled, run.Summaries, run.ErrorsCount)
	return runErr
}

func (p *Pipeline) execute(ctx context.Context, run *models.PipelineRun, report *models.RunReport) error {
	if p.cfg.Pipeline.EnableScraping {
		if err := p.runScrape(ctx, run, report); err != nil {
			return err
		}
	} else {
		p.logRun(ctx, run, models.LogLevelInfo, models.StageFetching, "Scraping disabled, using persisted dataset")
	}

	if p.cfg.Pipeline.EnableLabeling {
		if err := p.runLabeling(ctx, run, report); err != nil {
			return err
		}
	} else {
		p.logRun(ctx, run, models.LogLevelInfo, models.StageLabeling, "Labeling disabled, skipping")
	}

	if p.cfg.Pipeline.EnableSummaries {
		if err := p.runSummaries(ctx, run, report); err != nil {
			return err
		}
	} else {
		p.logRun(ctx, run, models.LogLevelInfo, models.StageSummarizing, "Summaries disabled, skipping")
	}

	return p.runExport(ctx, run)
}

// runScrape covers the fetch, normalize and merge stages. One brand's failure
// is recorded and the remaining brands proceed; only a store failure or a
// total fetch wipeout halts the run.
func (p *Pipeline) runScrape(ctx context.Context, run *models.PipelineRun, report *models.RunReport) error {
	run.LastStage = models.StageFetching
	p.logRun(ctx, run, models.LogLevelInfo, models.StageFetching,
		fmt.Sprintf("Fetching ads for %d brands", len(p.cfg.Brands)))

	results := p.fetcher.FetchAll(ctx, p.cfg.Brands)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			report.Add(models.StageFetching, models.FailureFetch, r.Brand.Name, r.Err.Error())
			p.logRun(ctx, run, models.LogLevelWarn, models.StageFetching,
				fmt.Sprintf("Fetch failed for %s: %v", r.Brand.Name, r.Err))
			continue
		}
		run.AdsFetched += len(r.Ads)
	}
	if failed == len(results) && len(results) > 0 {
		return fmt.Errorf("all %d brand fetches failed", failed)
	}

	run.LastStage = models.StageNormalizing
	start, end := p.cfg.Pipeline.WindowStart, p.cfg.Pipeline.WindowEnd

	var incoming []models.AdRecord
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, raw := range r.Ads {
			rec, err := normalize.Ad(raw, r.Brand.Name)
			if err != nil {
				report.Add(models.StageNormalizing, models.FailureNormalizeSkip, r.Brand.Name, err.Error())
				continue
			}
			if !normalize.InWindow(rec, start, end) {
				continue
			}
			incoming = append(incoming, rec)
		}
	}
	p.logRun(ctx, run, models.LogLevelInfo, models.StageNormalizing,
		fmt.Sprintf("Normalized %d ads inside window %s..%s",
			len(incoming), start.Format("2006-01-02"), end.Format("2006-01-02")))

	run.LastStage = models.StageMerging
	existing, err := p.store.LoadAds(ctx)
	if err != nil {
		return fmt.Errorf("load ads: %w", err)
	}

	merged, stats := merge.Ads(existing, incoming, time.Now())
	run.AdsNew = stats.Inserted
	run.AdsUpdated = stats.Updated
	for _, c := range stats.Conflicts {
		report.Add(models.StageMerging, models.FailureMergeConflict, c.Key, c.Reason)
	}
	for _, reg := range stats.Regressions {
		report.Add(models.StageMerging, models.FailureMetricRegression, reg.Key,
			fmt.Sprintf("engagement dropped %d -> %d", reg.From, reg.To))
	}

	if err := p.store.UpsertAds(ctx, merged); err != nil {
		return fmt.Errorf("upsert ads: %w", err)
	}
	p.logRun(ctx, run, models.LogLevelInfo, models.StageMerging,
		fmt.Sprintf("Merged: %d new, %d updated, %d conflicts", stats.Inserted, stats.Updated, len(stats.Conflicts)))
	return nil
}

func (p *Pipeline) runLabeling(ctx context.Context, run *models.PipelineRun, report *models.RunReport) error {
	run.LastStage = models.StageLabeling

	ads, err := p.store.LoadAds(ctx)
	if err != nil {
		return fmt.Errorf("load ads: %w", err)
	}

	res := p.labeler.LabelAll(ctx, ads)
	run.AdsLabeled = res.Labeled + res.Reused
	for _, f := range res.Failures {
		report.Add(models.StageLabeling, models.FailureLabelExhausted, f.Key, f.Reason)
	}
	for cluster, n := range res.ClusterStats {
		if report.ClusterStats == nil {
			report.ClusterStats = make(map[string]int)
		}
		report.ClusterStats[cluster] += n
	}

	if err := p.store.UpsertAds(ctx, ads); err != nil {
		return fmt.Errorf("upsert labeled ads: %w", err)
	}
	p.logRun(ctx, run, models.LogLevelInfo, models.StageLabeling,
		fmt.Sprintf("Labeled %d ads (%d reused, %d failed)", res.Labeled, res.Reused, len(res.Failures)))
	return nil
}

func (p *Pipeline) runSummaries(ctx context.Context, run *models.PipelineRun, report *models.RunReport) error {
	run.LastStage = models.StageSummarizing

	ads, err := p.store.LoadAds(ctx)
	if err != nil {
		return fmt.Errorf("load ads: %w", err)
	}

	start, end := p.cfg.Pipeline.WindowStart, p.cfg.Pipeline.WindowEnd
	summaries, failures := p.summarizer.SummarizeAll(ctx, ads, p.cfg.Brands, start, end)

	groupSummaries, groupFailures := p.summarizer.SummarizeGroups(ctx, ads, p.cfg.Brands, start, end)
	summaries = append(summaries, groupSummaries...)
	failures = append(failures, groupFailures...)

	for _, f := range failures {
		report.Add(models.StageSummarizing, models.FailureNarrative, f.Brand, f.Reason)
	}

	// A failed narrative leaves the row's narrative empty. Re-running the
	// same window must not clobber a previously stored good narrative with
	// that empty string.
	if len(failures) > 0 {
		stored, err := p.store.LoadSummaries(ctx)
		if err != nil {
			return fmt.Errorf("load stored summaries: %w", err)
		}
		prior := make(map[string]string, len(stored))
		for i := range stored {
			s := &stored[i]
			prior[summaryKey(s.Brand, s.WindowStart, s.WindowEnd)] = s.Narrative
		}
		for i := range summaries {
			s := &summaries[i]
			if s.Narrative == "" {
				s.Narrative = prior[summaryKey(s.Brand, s.WindowStart, s.WindowEnd)]
			}
		}
	}

	for i := range summaries {
		if err := p.store.UpsertSummary(ctx, &summaries[i]); err != nil {
			return fmt.Errorf("upsert summary for %s: %w", summaries[i].Brand, err)
		}
		run.Summaries++
	}
	p.logRun(ctx, run, models.LogLevelInfo, models.StageSummarizing,
		fmt.Sprintf("Wrote %d brand summaries (%d narrative failures)", run.Summaries, len(failures)))
	return nil
}

// runExport refreshes the CSV copies the dashboard reads and, when enabled,
// pushes dated snapshots to S3. Snapshot upload failures are logged, not
// fatal; the local exports already landed.
func (p *Pipeline) runExport(ctx context.Context, run *models.PipelineRun) error {
	if p.exporter == nil {
		return nil
	}

	ads, err := p.store.LoadAds(ctx)
	if err != nil {
		return fmt.Errorf("load ads for export: %w", err)
	}
	summaries, err := p.store.LoadSummaries(ctx)
	if err != nil {
		return fmt.Errorf("load summaries for export: %w", err)
	}

	adsPath, err := p.exporter.ExportAds(ads)
	if err != nil {
		return fmt.Errorf("export ads: %w", err)
	}
	sumPath, err := p.exporter.ExportSummaries(summaries)
	if err != nil {
		return fmt.Errorf("export summaries: %w", err)
	}
	p.logRun(ctx, run, models.LogLevelInfo, models.StageDone,
		fmt.Sprintf("Exported %d ads and %d summaries", len(ads), len(summaries)))

	if p.uploader != nil {
		for _, path := range []string{adsPath, sumPath} {
			key, err := p.uploader.SnapshotFile(ctx, path)
			if err != nil {
				p.logRun(ctx, run, models.LogLevelWarn, models.StageDone,
					fmt.Sprintf("Snapshot upload failed for %s: %v", path, err))
				continue
			}
			log.Printf("Uploaded snapshot %s", key)
		}
	}
	return nil
}

func summaryKey(brand string, start, end time.Time) string {
	return brand + "|" + start.Format("2006-01-02") + "|" + end.Format("2006-01-02")
}

// logRun writes one line to both the process log and the persisted run log.
func (p *Pipeline) logRun(ctx context.Context, run *models.PipelineRun, level models.LogLevel, stage models.Stage, msg string) {
	logging.Stagef(string(stage), "%s", msg)
	if err := p.store.Log(ctx, &run.ID, level, stage, msg); err != nil {
		log.Printf("Failed to persist log line: %v", err)
	}
}
