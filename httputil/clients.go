package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Scraping *http.Client // Apify API calls, single request/poll
	Default  *http.Client // everything else
}

func NewClients(scrapeTimeout time.Duration) *Clients {
	if scrapeTimeout <= 0 {
		scrapeTimeout = 60 * time.Second
	}

	return &Clients{
		Scraping: &http.Client{Timeout: scrapeTimeout},
		Default:  &http.Client{Timeout: 30 * time.Second},
	}
}
