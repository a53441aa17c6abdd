package scraper

import (
	"encoding/json"
	"os"
	"testing"

	"adwatch/config"
)

func TestGetAdapter(t *testing.T) {
	for _, id := range []string{"", "apify~facebook-ads-scraper", "apify/facebook-ads-scraper"} {
		if _, err := GetAdapter(id); err != nil {
			t.Errorf("GetAdapter(%q): %v", id, err)
		}
	}
	if _, err := GetAdapter("apify~instagram-scraper"); err == nil {
		t.Error("unknown actor accepted")
	}
}

func TestFacebookAdsAdapterParseAd(t *testing.T) {
	data, err := os.ReadFile("testdata/fb_ad_item.json")
	if err != nil {
		t.Fatal(err)
	}

	a := &FacebookAdsAdapter{}
	raw, err := a.ParseAd(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if raw.PageID != "111222333" || raw.AdArchiveID != "1234567890" {
		t.Errorf("identity fields: page=%q archive=%q", raw.PageID, raw.AdArchiveID)
	}
	if raw.PageName != "Maxima LT" {
		t.Errorf("page name = %q", raw.PageName)
	}
	if raw.StartDate != "2025-03-10" {
		t.Errorf("start date = %q", raw.StartDate)
	}
	if raw.BodyText != "Savaitės pasiūlymai jau čia! Atraskite geriausias kainas." {
		t.Errorf("body = %q", raw.BodyText)
	}
	if raw.Reach != 45210 {
		t.Errorf("reach = %d", raw.Reach)
	}
	if raw.Likes != 120 || raw.Comments != 14 || raw.Shares != 9 {
		t.Errorf("metrics: %d/%d/%d", raw.Likes, raw.Comments, raw.Shares)
	}
	if raw.MediaURL != "https://scontent.example.com/images/main.jpg" {
		t.Errorf("media url = %q", raw.MediaURL)
	}
	if len(raw.Cards) != 1 || raw.Cards[0].Body != "Šviežios braškės -40%" {
		t.Errorf("cards: %+v", raw.Cards)
	}
}

func TestFacebookAdsAdapterFieldFallbacks(t *testing.T) {
	// Older actor versions only carry identity in the snapshot.
	item := map[string]interface{}{
		"snapshot": map[string]interface{}{
			"page_id":       "999",
			"ad_archive_id": "888",
			"page_name":     "IKI",
			"created_at":    "2025-03-01",
		},
	}
	data, _ := json.Marshal(item)

	a := &FacebookAdsAdapter{}
	raw, err := a.ParseAd(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw.PageID != "999" || raw.AdArchiveID != "888" {
		t.Errorf("snapshot fallback not applied: %+v", raw)
	}
	if raw.StartDate != "2025-03-01" {
		t.Errorf("created_at fallback not applied: %q", raw.StartDate)
	}
}

func TestFacebookAdsAdapterMediaFallsBackToCard(t *testing.T) {
	item := map[string]interface{}{
		"pageID":      "1",
		"adArchiveID": "2",
		"snapshot": map[string]interface{}{
			"cards": []map[string]interface{}{
				{"body": "card", "original_image_url": "https://img.example.com/card.jpg"},
			},
		},
	}
	data, _ := json.Marshal(item)

	a := &FacebookAdsAdapter{}
	raw, err := a.ParseAd(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if raw.MediaURL != "https://img.example.com/card.jpg" {
		t.Errorf("media url = %q", raw.MediaURL)
	}
}

func TestBuildInput(t *testing.T) {
	a := &FacebookAdsAdapter{}
	brand := config.Brand{Name: "Rimi", PageURL: "https://www.facebook.com/rimilietuva"}

	input := a.BuildInput(brand, 150)

	if input["resultsLimit"] != 150 {
		t.Errorf("resultsLimit = %v", input["resultsLimit"])
	}
	urls, ok := input["startUrls"].([]map[string]string)
	if !ok || len(urls) != 1 || urls[0]["url"] != brand.PageURL {
		t.Errorf("startUrls = %v", input["startUrls"])
	}
	if input["isDetailsPerAd"] != true {
		t.Error("isDetailsPerAd not set")
	}
}
