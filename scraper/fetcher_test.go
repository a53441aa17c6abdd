package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adwatch/config"
)

// fakeApify serves the three actor-run endpoints the client uses. Runs for a
// page URL containing "broken" end FAILED; everything else succeeds with one
// dataset item.
func fakeApify(t *testing.T) *httptest.Server {
	t.Helper()

	item := func(pageID string) map[string]interface{} {
		return map[string]interface{}{
			"pageID":             pageID,
			"adArchiveID":        "ad-" + pageID,
			"pageName":           "Page " + pageID,
			"startDateFormatted": "2025-03-10",
			"likes":              10,
			"snapshot":           map[string]interface{}{"body": map[string]string{"text": "creative"}},
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/acts/", func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			StartUrls []map[string]string `json:"startUrls"`
		}
		json.NewDecoder(r.Body).Decode(&input)

		runID := "run-ok-" + fmt.Sprint(len(input.StartUrls))
		if len(input.StartUrls) > 0 {
			url := input.StartUrls[0]["url"]
			if strings.Contains(url, "broken") {
				runID = "run-broken"
			} else {
				runID = "run-" + url[strings.LastIndex(url, "/")+1:]
			}
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": runID},
		})
	})
	mux.HandleFunc("/actor-runs/", func(w http.ResponseWriter, r *http.Request) {
		runID := strings.TrimPrefix(r.URL.Path, "/actor-runs/")
		status := "SUCCEEDED"
		if runID == "run-broken" {
			status = "FAILED"
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{
				"status":           status,
				"defaultDatasetId": "ds-" + runID,
			},
		})
	})
	mux.HandleFunc("/datasets/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/datasets/")
		dsID := strings.TrimSuffix(path, "/items")
		pageID := strings.TrimPrefix(dsID, "ds-run-")
		json.NewEncoder(w).Encode([]interface{}{
			item(pageID),
			"not an object", // unparseable item, skipped
		})
	})

	return httptest.NewServer(mux)
}

func testFetcher(srv *httptest.Server) *Fetcher {
	client := NewApifyClient(srv.Client(), "test-key", time.Minute)
	client.baseURL = srv.URL

	return NewFetcher(client, &FacebookAdsAdapter{}, config.PipelineConfig{
		FetchWorkers:   2,
		MaxAdsPerPage:  10,
		MaxAttempts:    2,
		RetryBaseDelay: time.Millisecond,
	})
}

func TestFetchAllIsolatesBrandFailure(t *testing.T) {
	srv := fakeApify(t)
	defer srv.Close()

	brands := []config.Brand{
		{Name: "Maxima", PageURL: "https://facebook.com/maxima"},
		{Name: "Broken", PageURL: "https://facebook.com/broken"},
		{Name: "IKI", PageURL: "https://facebook.com/iki"},
	}

	results := testFetcher(srv).FetchAll(context.Background(), brands)

	if len(results) != 3 {
		t.Fatalf("results = %d, want one slot per brand", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy brands failed: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Fatal("broken brand reported success")
	}
	if len(results[0].Ads) != 1 || len(results[2].Ads) != 1 {
		t.Errorf("ad counts: %d / %d, want 1 each", len(results[0].Ads), len(results[2].Ads))
	}
	if results[0].Brand.Name != "Maxima" || results[2].Brand.Name != "IKI" {
		t.Errorf("result order does not match input order")
	}
}

func TestFetchAllStampsSourceURL(t *testing.T) {
	srv := fakeApify(t)
	defer srv.Close()

	brands := []config.Brand{{Name: "Maxima", PageURL: "https://facebook.com/maxima"}}
	results := testFetcher(srv).FetchAll(context.Background(), brands)

	if results[0].Err != nil {
		t.Fatalf("fetch failed: %v", results[0].Err)
	}
	for _, ad := range results[0].Ads {
		if ad.SourceURL != brands[0].PageURL {
			t.Errorf("source url = %q", ad.SourceURL)
		}
	}
}

func TestStartRunRejectsMissingKey(t *testing.T) {
	client := NewApifyClient(http.DefaultClient, "", time.Minute)

	_, err := client.StartRun(context.Background(), "apify~facebook-ads-scraper", nil)
	if err == nil {
		t.Fatal("expected error without API key")
	}
}
