package scraper

import (
	"context"
	"log"

	"adwatch/config"
	"adwatch/models"
	"adwatch/retry"
	"adwatch/workers"
)

// BrandResult is one brand's fetch outcome. A failed brand carries its error
// and an empty ad list; zero ads with a nil error is a valid result.
type BrandResult struct {
	Brand config.Brand
	Ads   []models.RawAd
	Err   error
}

// Fetcher runs one scrape per tracked brand, fanned out over a bounded
// worker pool. Each task writes only into its own result slot; one brand's
// failure never cancels the others.
type Fetcher struct {
	client  *ApifyClient
	adapter ActorAdapter
	retry   retry.Config
	workers int
	maxAds  int
}

func NewFetcher(client *ApifyClient, adapter ActorAdapter, cfg config.PipelineConfig) *Fetcher {
	return &Fetcher{
		client:  client,
		adapter: adapter,
		retry: retry.Config{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
		},
		workers: cfg.FetchWorkers,
		maxAds:  cfg.MaxAdsPerPage,
	}
}

// FetchAll scrapes every brand and returns one result slot per brand, in the
// input order.
func (f *Fetcher) FetchAll(ctx context.Context, brands []config.Brand) []BrandResult {
	results := make([]BrandResult, len(brands))
	pool := workers.NewPool(f.workers, 0)

	log.Printf("Fetching ads for %d brands (%d workers)", len(brands), f.workers)

	for i, brand := range brands {
		i, brand := i, brand
		pool.Submit(func() {
			ads, err := f.fetchBrand(ctx, brand)
			results[i] = BrandResult{Brand: brand, Ads: ads, Err: err}
			if err != nil {
				log.Printf("Fetch failed for %s: %v", brand.Name, err)
				return
			}
			log.Printf("Fetched %d ads for %s", len(ads), brand.Name)
		})
	}

	pool.Wait()
	return results
}

func (f *Fetcher) fetchBrand(ctx context.Context, brand config.Brand) ([]models.RawAd, error) {
	var ads []models.RawAd

	err := f.retry.Do(ctx, "scrape "+brand.Name, func() error {
		runID, err := f.client.StartRun(ctx, f.adapter.ActorID(), f.adapter.BuildInput(brand, f.maxAds))
		if err != nil {
			return err
		}

		datasetID, err := f.client.WaitForRun(ctx, runID)
		if err != nil {
			return err
		}

		items, err := f.client.FetchItems(ctx, datasetID)
		if err != nil {
			return err
		}

		ads = ads[:0]
		for _, item := range items {
			raw, err := f.adapter.ParseAd(item)
			if err != nil {
				log.Printf("Skipping unparseable item for %s: %v", brand.Name, err)
				continue
			}
			raw.SourceURL = brand.PageURL
			ads = append(ads, raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ads, nil
}
