package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"adwatch/retry"
)

const (
	apifyAPIBase   = "https://api.apify.com/v2"
	apifyPollDelay = 10 * time.Second
)

// ApifyClient talks to the Apify actor-run API: start a run, poll it to
// completion, then download the default dataset.
type ApifyClient struct {
	client      *http.Client
	apiKey      string
	baseURL     string
	pollTimeout time.Duration
}

func NewApifyClient(client *http.Client, apiKey string, pollTimeout time.Duration) *ApifyClient {
	if pollTimeout <= 0 {
		pollTimeout = 15 * time.Minute
	}
	return &ApifyClient{
		client:      client,
		apiKey:      apiKey,
		baseURL:     apifyAPIBase,
		pollTimeout: pollTimeout,
	}
}

// StartRun launches an actor run and returns its run ID.
func (c *ApifyClient) StartRun(ctx context.Context, actorID string, input map[string]interface{}) (string, error) {
	if c.apiKey == "" {
		return "", retry.Permanent(fmt.Errorf("APIFY_API_KEY not set"))
	}

	body, _ := json.Marshal(input)
	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, actorID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("apify start run failed %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", retry.Permanent(err)
		}
		return "", err
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.ID, nil
}

// WaitForRun polls the run until it succeeds, returning its dataset ID.
func (c *ApifyClient) WaitForRun(ctx context.Context, runID string) (string, error) {
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.apiKey)
	deadline := time.Now().Add(c.pollTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return "", err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			time.Sleep(apifyPollDelay)
			continue
		}

		var result struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()

		switch result.Data.Status {
		case "SUCCEEDED":
			return result.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("run %s: %s", runID, result.Data.Status)
		}

		log.Printf("Apify run %s status: %s", runID, result.Data.Status)
		time.Sleep(apifyPollDelay)
	}

	return "", fmt.Errorf("timeout waiting for run %s", runID)
}

// FetchItems downloads the dataset items as raw JSON for adapter parsing.
func (c *ApifyClient) FetchItems(ctx context.Context, datasetID string) ([]json.RawMessage, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s&format=json", c.baseURL, datasetID, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dataset fetch failed %d: %s", resp.StatusCode, string(respBody))
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}

	return items, nil
}
