package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"adwatch/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ads (
		page_id TEXT NOT NULL,
		ad_archive_id TEXT NOT NULL,
		brand TEXT,
		page_name TEXT,
		body_text TEXT,
		media_url TEXT,
		source_url TEXT,
		start_date DATETIME,
		reach INTEGER DEFAULT 0,
		likes INTEGER DEFAULT 0,
		comments INTEGER DEFAULT 0,
		shares INTEGER DEFAULT 0,
		engagement INTEGER DEFAULT 0,
		ad_summary TEXT DEFAULT '',
		cluster_1 TEXT DEFAULT '',
		cluster_2 TEXT DEFAULT '',
		cluster_3 TEXT DEFAULT '',
		first_seen_at DATETIME,
		last_seen_at DATETIME,
		PRIMARY KEY (page_id, ad_archive_id)
	);

	CREATE TABLE IF NOT EXISTS brand_summaries (
		id INTEGER PRIMARY KEY,
		brand TEXT NOT NULL,
		window_start DATETIME NOT NULL,
		window_end DATETIME NOT NULL,
		ad_count INTEGER DEFAULT 0,
		reach INTEGER DEFAULT 0,
		engagement INTEGER DEFAULT 0,
		prev_ad_count INTEGER DEFAULT 0,
		prev_reach INTEGER DEFAULT 0,
		prev_engagement INTEGER DEFAULT 0,
		ad_count_delta INTEGER DEFAULT 0,
		reach_delta INTEGER DEFAULT 0,
		engagement_delta INTEGER DEFAULT 0,
		ad_count_pct REAL DEFAULT 0,
		reach_pct REAL DEFAULT 0,
		engagement_pct REAL DEFAULT 0,
		narrative TEXT DEFAULT '',
		generated_at DATETIME,
		UNIQUE (brand, window_start, window_end)
	);

	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		last_stage TEXT,
		ads_fetched INTEGER DEFAULT 0,
		ads_new INTEGER DEFAULT 0,
		ads_updated INTEGER DEFAULT 0,
		ads_labeled INTEGER DEFAULT 0,
		summaries INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		report JSON
	);

	CREATE TABLE IF NOT EXISTS pipeline_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		stage TEXT,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ads_brand_date ON ads(brand, start_date);
	CREATE INDEX IF NOT EXISTS idx_ads_unlabeled ON ads(ad_summary) WHERE ad_summary = '';
	CREATE INDEX IF NOT EXISTS idx_summaries_window ON brand_summaries(window_start, window_end);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON pipeline_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON pipeline_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

const adColumns = `page_id, ad_archive_id, brand, page_name, body_text, media_url, source_url,
	start_date, reach, likes, comments, shares, engagement,
	ad_summary, cluster_1, cluster_2, cluster_3, first_seen_at, last_seen_at`

func (s *SQLiteStore) LoadAds(ctx context.Context) ([]models.AdRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+adColumns+` FROM ads ORDER BY first_seen_at, page_id, ad_archive_id`)
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

func (s *SQLiteStore) UpsertAds(ctx context.Context, ads []models.AdRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ads (`+adColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (page_id, ad_archive_id) DO UPDATE SET
			brand = excluded.brand,
			page_name = excluded.page_name,
			body_text = excluded.body_text,
			media_url = excluded.media_url,
			source_url = excluded.source_url,
			start_date = excluded.start_date,
			reach = excluded.reach,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares,
			engagement = excluded.engagement,
			ad_summary = excluded.ad_summary,
			cluster_1 = excluded.cluster_1,
			cluster_2 = excluded.cluster_2,
			cluster_3 = excluded.cluster_3,
			last_seen_at = excluded.last_seen_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range ads {
		a := &ads[i]
		if _, err := stmt.ExecContext(ctx,
			a.PageID, a.AdArchiveID, a.Brand, a.PageName, a.BodyText, a.MediaURL, a.SourceURL,
			a.StartDate, a.Reach, a.Likes, a.Comments, a.Shares, a.Engagement,
			a.Summary, a.Cluster1, a.Cluster2, a.Cluster3, a.FirstSeenAt, a.LastSeenAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const summaryColumns = `brand, window_start, window_end, ad_count, reach, engagement,
	prev_ad_count, prev_reach, prev_engagement,
	ad_count_delta, reach_delta, engagement_delta,
	ad_count_pct, reach_pct, engagement_pct, narrative, generated_at`

func (s *SQLiteStore) LoadSummaries(ctx context.Context) ([]models.BrandSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, `+summaryColumns+` FROM brand_summaries ORDER BY window_start, brand`)
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

func (s *SQLiteStore) UpsertSummary(ctx context.Context, m *models.BrandSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO brand_summaries (`+summaryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (brand, window_start, window_end) DO UPDATE SET
			ad_count = excluded.ad_count,
			reach = excluded.reach,
			engagement = excluded.engagement,
			prev_ad_count = excluded.prev_ad_count,
			prev_reach = excluded.prev_reach,
			prev_engagement = excluded.prev_engagement,
			ad_count_delta = excluded.ad_count_delta,
			reach_delta = excluded.reach_delta,
			engagement_delta = excluded.engagement_delta,
			ad_count_pct = excluded.ad_count_pct,
			reach_pct = excluded.reach_pct,
			engagement_pct = excluded.engagement_pct,
			narrative = excluded.narrative,
			generated_at = excluded.generated_at`,
		m.Brand, m.WindowStart, m.WindowEnd, m.AdCount, m.Reach, m.Engagement,
		m.PrevAdCount, m.PrevReach, m.PrevEngagement,
		m.AdCountDelta, m.ReachDelta, m.EngagementDelta,
		m.AdCountPct, m.ReachPct, m.EngagementPct, m.Narrative, m.GeneratedAt,
	)
	return err
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.PipelineRun) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (started_at, status, last_stage)
		VALUES (?, ?, ?)`,
		run.StartedAt, run.Status, run.LastStage)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.PipelineRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET
			finished_at = ?, status = ?, last_stage = ?,
			ads_fetched = ?, ads_new = ?, ads_updated = ?, ads_labeled = ?,
			summaries = ?, errors_count = ?, report = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.LastStage,
		run.AdsFetched, run.AdsNew, run.AdsUpdated, run.AdsLabeled,
		run.Summaries, run.ErrorsCount, []byte(run.Report), run.ID)
	return err
}

func (s *SQLiteStore) Log(ctx context.Context, runID *int64, level models.LogLevel, stage models.Stage, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_logs (run_id, timestamp, level, stage, message)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, stage, message)
	return err
}
