package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
)

// AppleClient searches the App Store through the iTunes Search API.
type AppleClient struct {
	HTTPClient *http.Client

	baseURL    string
	country    string
	maxResults int
	userAgent  string
}

// NewAppleClient builds a client configured from cfg.
func NewAppleClient(cfg *config.Config) (*AppleClient, error) {
	parsed, err := url.Parse(cfg.AppStoreURL)
	if err != nil {
		return nil, fmt.Errorf("parse app store url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("app store url must include a host")
	}

	return &AppleClient{
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		baseURL:    cfg.AppStoreURL,
		country:    cfg.Country,
		maxResults: cfg.MaxResults,
		userAgent:  cfg.UserAgent,
	}, nil
}

// Name identifies the client in logs and metrics.
func (c *AppleClient) Name() string { return string(models.SourceAppStore) }

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID           int64   `json:"trackId"`
		TrackName         string  `json:"trackName"`
		ArtistName        string  `json:"artistName"`
		PrimaryGenreName  string  `json:"primaryGenreName"`
		AverageUserRating float64 `json:"averageUserRating"`
		TrackViewURL      string  `json:"trackViewUrl"`
		ArtworkURL100     string  `json:"artworkUrl100"`
		Description       string  `json:"description"`
	} `json:"results"`
}

// Search queries the /search endpoint for software entries matching term and
// maps each hit to an AppRecord tagged with the App Store source.
func (c *AppleClient) Search(ctx context.Context, term string) ([]models.AppRecord, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("itunes: build search url: %w", err)
	}
	q := u.Query()
	q.Set("term", term)
	q.Set("country", c.country)
	q.Set("media", "software")
	q.Set("entity", "software")
	q.Set("limit", strconv.Itoa(c.maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("itunes: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("itunes: request: %w", classifyError(err, 0))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("itunes: search %q: %w", term, classifyError(nil, resp.StatusCode))
	}

	var decoded itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("itunes: decode response: %w", err)
	}

	now := time.Now()
	records := make([]models.AppRecord, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		records = append(records, models.AppRecord{
			Source:      models.SourceAppStore,
			Title:       r.TrackName,
			SearchTerm:  term,
			AppID:       strconv.FormatInt(r.TrackID, 10),
			Developer:   r.ArtistName,
			Genre:       r.PrimaryGenreName,
			Rating:      r.AverageUserRating,
			URL:         r.TrackViewURL,
			IconURL:     r.ArtworkURL100,
			Description: r.Description,
			RetrievedAt: now,
		})
	}
	return records, nil
}
