package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			WindowStart:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			WindowEnd:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			EnableScraping: true,
			FetchWorkers:   3,
			LabelWorkers:   10,
			SummaryWorkers: 4,
			MaxAdsPerPage:  200,
			MaxAttempts:    3,
		},
		Storage: StorageConfig{Driver: "sqlite"},
		Brands:  []Brand{{Name: "Maxima", PageURL: "https://facebook.com/maxima"}},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsInvertedWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.WindowStart = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	cfg.Pipeline.WindowEnd = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := cfg.Validate(); err == nil {
		t.Fatal("window ending before it starts was accepted")
	}
}

func TestValidateSingleDayWindowAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.WindowEnd = cfg.Pipeline.WindowStart

	if err := cfg.Validate(); err != nil {
		t.Fatalf("single-day window rejected: %v", err)
	}
}

func TestValidateScrapingNeedsBrands(t *testing.T) {
	cfg := validConfig()
	cfg.Brands = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("scraping without brands was accepted")
	}

	// With scraping off, an empty brand list is fine (labeling-only runs).
	cfg.Pipeline.EnableScraping = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("labeling-only config rejected: %v", err)
	}
}

func TestValidateWorkerCounts(t *testing.T) {
	cfg := validConfig()
	cfg.Pipeline.LabelWorkers = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("zero workers accepted")
	}
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "oracle"

	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestLoadBrands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brands.yaml")
	data := `brands:
  - name: Maxima
    page_url: https://www.facebook.com/Maxima.LT
    group: grocery
  - name: Akropolis
    page_url: https://www.facebook.com/akropolis.vilnius
    group: malls
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	var cfg Config
	if err := cfg.loadBrands(path); err != nil {
		t.Fatalf("load brands: %v", err)
	}
	if len(cfg.Brands) != 2 {
		t.Fatalf("brands = %d, want 2", len(cfg.Brands))
	}
	if cfg.Brands[1].Name != "Akropolis" || cfg.Brands[1].Group != "malls" {
		t.Errorf("brand fields wrong: %+v", cfg.Brands[1])
	}
}

func TestLoadBrandsMissingFileIsNotFatal(t *testing.T) {
	var cfg Config
	if err := cfg.loadBrands(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing brands file should not error: %v", err)
	}
}

func TestLoadWindowExplicitDates(t *testing.T) {
	t.Setenv("WINDOW_START", "2025-03-01")
	t.Setenv("WINDOW_END", "2025-03-14")

	var cfg Config
	if err := cfg.loadWindow(); err != nil {
		t.Fatalf("load window: %v", err)
	}
	if cfg.Pipeline.WindowStart.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("start = %s", cfg.Pipeline.WindowStart)
	}
	if cfg.Pipeline.WindowEnd.Format("2006-01-02") != "2025-03-14" {
		t.Errorf("end = %s", cfg.Pipeline.WindowEnd)
	}
}

func TestLoadWindowDefaultSpan(t *testing.T) {
	t.Setenv("WINDOW_START", "")
	t.Setenv("WINDOW_END", "")
	t.Setenv("WINDOW_DAYS", "7")

	var cfg Config
	if err := cfg.loadWindow(); err != nil {
		t.Fatalf("load window: %v", err)
	}
	span := cfg.Pipeline.WindowEnd.Sub(cfg.Pipeline.WindowStart)
	if span != 6*24*time.Hour {
		t.Errorf("7-day window spans %v", span)
	}
}

func TestLoadWindowBadDate(t *testing.T) {
	t.Setenv("WINDOW_START", "March 1st")

	var cfg Config
	if err := cfg.loadWindow(); err == nil {
		t.Fatal("malformed WINDOW_START accepted")
	}
}
