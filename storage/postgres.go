package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"adwatch/models"
)

// PostgresStore implements Store for shared deployments where the dashboard
// reads the same database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ads (
		page_id TEXT NOT NULL,
		ad_archive_id TEXT NOT NULL,
		brand TEXT DEFAULT '',
		page_name TEXT DEFAULT '',
		body_text TEXT DEFAULT '',
		media_url TEXT DEFAULT '',
		source_url TEXT DEFAULT '',
		start_date TIMESTAMPTZ,
		reach BIGINT DEFAULT 0,
		likes BIGINT DEFAULT 0,
		comments BIGINT DEFAULT 0,
		shares BIGINT DEFAULT 0,
		engagement BIGINT DEFAULT 0,
		ad_summary TEXT DEFAULT '',
		cluster_1 TEXT DEFAULT '',
		cluster_2 TEXT DEFAULT '',
		cluster_3 TEXT DEFAULT '',
		first_seen_at TIMESTAMPTZ,
		last_seen_at TIMESTAMPTZ,
		PRIMARY KEY (page_id, ad_archive_id)
	);

	CREATE TABLE IF NOT EXISTS brand_summaries (
		id BIGSERIAL PRIMARY KEY,
		brand TEXT NOT NULL,
		window_start TIMESTAMPTZ NOT NULL,
		window_end TIMESTAMPTZ NOT NULL,
		ad_count INT DEFAULT 0,
		reach BIGINT DEFAULT 0,
		engagement BIGINT DEFAULT 0,
		prev_ad_count INT DEFAULT 0,
		prev_reach BIGINT DEFAULT 0,
		prev_engagement BIGINT DEFAULT 0,
		ad_count_delta INT DEFAULT 0,
		reach_delta BIGINT DEFAULT 0,
		engagement_delta BIGINT DEFAULT 0,
		ad_count_pct DOUBLE PRECISION DEFAULT 0,
		reach_pct DOUBLE PRECISION DEFAULT 0,
		engagement_pct DOUBLE PRECISION DEFAULT 0,
		narrative TEXT DEFAULT '',
		generated_at TIMESTAMPTZ,
		UNIQUE (brand, window_start, window_end)
	);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id BIGSERIAL PRIMARY KEY,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		last_stage TEXT,
		ads_fetched INT DEFAULT 0,
		ads_new INT DEFAULT 0,
		ads_updated INT DEFAULT 0,
		ads_labeled INT DEFAULT 0,
		summaries INT DEFAULT 0,
		errors_count INT DEFAULT 0,
		report JSONB
	);

	CREATE TABLE IF NOT EXISTS pipeline_logs (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT,
		timestamp TIMESTAMPTZ,
		level TEXT,
		stage TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ads_brand_date ON ads(brand, start_date);
	CREATE INDEX IF NOT EXISTS idx_summaries_window ON brand_summaries(window_start, window_end);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON pipeline_logs(run_id, timestamp);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) LoadAds(ctx context.Context) ([]models.AdRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT page_id, ad_archive_id, brand, page_name, body_text, media_url, source_url,
			start_date, reach, likes, comments, shares, engagement,
			ad_summary, cluster_1, cluster_2, cluster_3, first_seen_at, last_seen_at
		FROM ads ORDER BY first_seen_at, page_id, ad_archive_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []models.AdRecord
	for rows.Next() {
		var a models.AdRecord
		if err := rows.Scan(
			&a.PageID, &a.AdArchiveID, &a.Brand, &a.PageName, &a.BodyText, &a.MediaURL, &a.SourceURL,
			&a.StartDate, &a.Reach, &a.Likes, &a.Comments, &a.Shares, &a.Engagement,
			&a.Summary, &a.Cluster1, &a.Cluster2, &a.Cluster3, &a.FirstSeenAt, &a.LastSeenAt,
		); err != nil {
			return nil, err
		}
		ads = append(ads, a)
	}
	return ads, rows.Err()
}

func (s *PostgresStore) UpsertAds(ctx context.Context, ads []models.AdRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ads (page_id, ad_archive_id, brand, page_name, body_text, media_url, source_url,
			start_date, reach, likes, comments, shares, engagement,
			ad_summary, cluster_1, cluster_2, cluster_3, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (page_id, ad_archive_id) DO UPDATE SET
			brand = EXCLUDED.brand,
			page_name = EXCLUDED.page_name,
			body_text = EXCLUDED.body_text,
			media_url = EXCLUDED.media_url,
			source_url = EXCLUDED.source_url,
			start_date = EXCLUDED.start_date,
			reach = EXCLUDED.reach,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			engagement = EXCLUDED.engagement,
			ad_summary = EXCLUDED.ad_summary,
			cluster_1 = EXCLUDED.cluster_1,
			cluster_2 = EXCLUDED.cluster_2,
			cluster_3 = EXCLUDED.cluster_3,
			last_seen_at = EXCLUDED.last_seen_at`

	for i := range ads {
		a := &ads[i]
		if _, err := tx.Exec(ctx, query,
			a.PageID, a.AdArchiveID, a.Brand, a.PageName, a.BodyText, a.MediaURL, a.SourceURL,
			a.StartDate, a.Reach, a.Likes, a.Comments, a.Shares, a.Engagement,
			a.Summary, a.Cluster1, a.Cluster2, a.Cluster3, a.FirstSeenAt, a.LastSeenAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LoadSummaries(ctx context.Context) ([]models.BrandSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, brand, window_start, window_end, ad_count, reach, engagement,
			prev_ad_count, prev_reach, prev_engagement,
			ad_count_delta, reach_delta, engagement_delta,
			ad_count_pct, reach_pct, engagement_pct, narrative, generated_at
		FROM brand_summaries ORDER BY window_start, brand`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.BrandSummary
	for rows.Next() {
		var m models.BrandSummary
		if err := rows.Scan(
			&m.ID, &m.Brand, &m.WindowStart, &m.WindowEnd, &m.AdCount, &m.Reach, &m.Engagement,
			&m.PrevAdCount, &m.PrevReach, &m.PrevEngagement,
			&m.AdCountDelta, &m.ReachDelta, &m.EngagementDelta,
			&m.AdCountPct, &m.ReachPct, &m.EngagementPct, &m.Narrative, &m.GeneratedAt,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, m)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) UpsertSummary(ctx context.Context, m *models.BrandSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO brand_summaries (brand, window_start, window_end, ad_count, reach, engagement,
			prev_ad_count, prev_reach, prev_engagement,
			ad_count_delta, reach_delta, engagement_delta,
			ad_count_pct, reach_pct, engagement_pct, narrative, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (brand, window_start, window_end) DO UPDATE SET
			ad_count = EXCLUDED.ad_count,
			reach = EXCLUDED.reach,
			engagement = EXCLUDED.engagement,
			prev_ad_count = EXCLUDED.prev_ad_count,
			prev_reach = EXCLUDED.prev_reach,
			prev_engagement = EXCLUDED.prev_engagement,
			ad_count_delta = EXCLUDED.ad_count_delta,
			reach_delta = EXCLUDED.reach_delta,
			engagement_delta = EXCLUDED.engagement_delta,
			ad_count_pct = EXCLUDED.ad_count_pct,
			reach_pct = EXCLUDED.reach_pct,
			engagement_pct = EXCLUDED.engagement_pct,
			narrative = EXCLUDED.narrative,
			generated_at = EXCLUDED.generated_at`,
		m.Brand, m.WindowStart, m.WindowEnd, m.AdCount, m.Reach, m.Engagement,
		m.PrevAdCount, m.PrevReach, m.PrevEngagement,
		m.AdCountDelta, m.ReachDelta, m.EngagementDelta,
		m.AdCountPct, m.ReachPct, m.EngagementPct, m.Narrative, m.GeneratedAt,
	)
	return err
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.PipelineRun) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pipeline_runs (started_at, status, last_stage)
		VALUES ($1, $2, $3) RETURNING id`,
		run.StartedAt, run.Status, run.LastStage).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.PipelineRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE pipeline_runs SET
			finished_at = $2, status = $3, last_stage = $4,
			ads_fetched = $5, ads_new = $6, ads_updated = $7, ads_labeled = $8,
			summaries = $9, errors_count = $10, report = $11
		WHERE id = $1`,
		run.ID, run.FinishedAt, run.Status, run.LastStage,
		run.AdsFetched, run.AdsNew, run.AdsUpdated, run.AdsLabeled,
		run.Summaries, run.ErrorsCount, []byte(run.Report))
	return err
}

func (s *PostgresStore) Log(ctx context.Context, runID *int64, level models.LogLevel, stage models.Stage, message string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_logs (run_id, timestamp, level, stage, message)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, time.Now(), level, stage, message)
	return err
}
