package scraper

import (
	"encoding/json"
	"fmt"

	"adwatch/config"
	"adwatch/models"
)

// ActorAdapter defines the interface for actor-specific input building and
// item parsing, so swapping the scraping actor does not touch the fetcher.
type ActorAdapter interface {
	ActorID() string
	BuildInput(brand config.Brand, maxAds int) map[string]interface{}
	ParseAd(data json.RawMessage) (models.RawAd, error)
}

// GetAdapter returns the adapter for the configured actor.
func GetAdapter(actorID string) (ActorAdapter, error) {
	switch actorID {
	case "", "apify~facebook-ads-scraper", "apify/facebook-ads-scraper":
		return &FacebookAdsAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown apify actor: %s", actorID)
	}
}

// FacebookAdsAdapter maps the apify/facebook-ads-scraper actor's items.
// The actor has shipped several field layouts over time; identity fields are
// read from the first non-empty candidate, same as the dataset columns the
// dashboard already depends on.
type FacebookAdsAdapter struct{}

func (a *FacebookAdsAdapter) ActorID() string {
	return "apify~facebook-ads-scraper"
}

func (a *FacebookAdsAdapter) BuildInput(brand config.Brand, maxAds int) map[string]interface{} {
	return map[string]interface{}{
		"isDetailsPerAd": true,
		"onlyTotal":      false,
		"startUrls":      []map[string]string{{"url": brand.PageURL}},
		"resultsLimit":   maxAds,
		"activeStatus":   "",
	}
}

type fbAdItem struct {
	PageID             string `json:"pageID"`
	PageIDAlt          string `json:"pageId"`
	AdArchiveID        string `json:"adArchiveID"`
	AdArchiveIDAlt     string `json:"adArchiveId"`
	PageName           string `json:"pageName"`
	StartDateFormatted string `json:"startDateFormatted"`
	StartDate          string `json:"startDate"`
	AdDeliveryStart    string `json:"adDeliveryStartTime"`
	Likes              int64  `json:"likes"`
	Comments           int64  `json:"comments"`
	Shares             int64  `json:"shares"`

	Snapshot struct {
		PageID      string `json:"page_id"`
		AdArchiveID string `json:"ad_archive_id"`
		PageName    string `json:"page_name"`
		PublishDate string `json:"publish_date"`
		CreatedAt   string `json:"created_at"`
		Body        struct {
			Text string `json:"text"`
		} `json:"body"`
		Cards []struct {
			Body             string `json:"body"`
			OriginalImageURL string `json:"original_image_url"`
		} `json:"cards"`
		Images []struct {
			OriginalImageURL string `json:"original_image_url"`
		} `json:"images"`
	} `json:"snapshot"`

	AdDetails struct {
		AAAInfo struct {
			EUTotalReach int64 `json:"eu_total_reach"`
		} `json:"aaa_info"`
		Advertiser struct {
			AdLibraryPageInfo struct {
				PageInfo struct {
					PageName string `json:"page_name"`
				} `json:"page_info"`
			} `json:"ad_library_page_info"`
		} `json:"advertiser"`
	} `json:"ad_details"`
}

func (a *FacebookAdsAdapter) ParseAd(data json.RawMessage) (models.RawAd, error) {
	var item fbAdItem
	if err := json.Unmarshal(data, &item); err != nil {
		return models.RawAd{}, fmt.Errorf("decode ad item: %w", err)
	}

	raw := models.RawAd{
		PageID:      firstNonEmpty(item.PageID, item.PageIDAlt, item.Snapshot.PageID),
		AdArchiveID: firstNonEmpty(item.AdArchiveID, item.AdArchiveIDAlt, item.Snapshot.AdArchiveID),
		PageName:    firstNonEmpty(item.PageName, item.Snapshot.PageName, item.AdDetails.Advertiser.AdLibraryPageInfo.PageInfo.PageName),
		StartDate:   firstNonEmpty(item.StartDateFormatted, item.StartDate, item.AdDeliveryStart, item.Snapshot.PublishDate, item.Snapshot.CreatedAt),
		BodyText:    item.Snapshot.Body.Text,
		Reach:       item.AdDetails.AAAInfo.EUTotalReach,
		Likes:       item.Likes,
		Comments:    item.Comments,
		Shares:      item.Shares,
		Data:        data,
	}

	for _, card := range item.Snapshot.Cards {
		raw.Cards = append(raw.Cards, models.RawCard{
			Body:     card.Body,
			MediaURL: card.OriginalImageURL,
		})
	}

	if len(item.Snapshot.Images) > 0 {
		raw.MediaURL = item.Snapshot.Images[0].OriginalImageURL
	} else if len(raw.Cards) > 0 {
		raw.MediaURL = raw.Cards[0].MediaURL
	}

	return raw, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
