package storage

import (
	"context"

	"adwatch/models"
)

// Store is the repository boundary for the two datasets and the run
// bookkeeping. The pipeline reads the full historical set at run start and
// writes back through keyed upserts at the end of each mutating stage, so
// the backing format stays swappable.
type Store interface {
	LoadAds(ctx context.Context) ([]models.AdRecord, error)
	UpsertAds(ctx context.Context, ads []models.AdRecord) error

	LoadSummaries(ctx context.Context) ([]models.BrandSummary, error)
	UpsertSummary(ctx context.Context, s *models.BrandSummary) error

	CreateRun(ctx context.Context, run *models.PipelineRun) (int64, error)
	UpdateRun(ctx context.Context, run *models.PipelineRun) error
	Log(ctx context.Context, runID *int64, level models.LogLevel, stage models.Stage, message string) error

	Close() error
}
