package catalog

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
	"github.com/gocolly/colly/v2"
)

// GoogleClient searches Google Play by scraping the store's search results
// page. Play has no public search API, so the client parses the server-side
// rendered markup.
type GoogleClient struct {
	// Transport overrides the collector transport; used by tests.
	Transport http.RoundTripper

	baseURL    string
	host       string
	country    string
	maxResults int
	userAgent  string
	timeout    time.Duration
}

// NewGoogleClient builds a client configured from cfg.
func NewGoogleClient(cfg *config.Config) (*GoogleClient, error) {
	parsed, err := url.Parse(cfg.GooglePlayURL)
	if err != nil {
		return nil, fmt.Errorf("parse google play url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("google play url must include a host")
	}

	return &GoogleClient{
		baseURL:    cfg.GooglePlayURL,
		host:       parsed.Host,
		country:    cfg.Country,
		maxResults: cfg.MaxResults,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
	}, nil
}

// Name identifies the client in logs and metrics.
func (c *GoogleClient) Name() string { return string(models.SourceGooglePlay) }

// Search scrapes the search results page for term and maps each app card to
// an AppRecord tagged with the Google Play source. A fresh collector is used
// per call so searches stay independent and retry-safe.
//
// Selectors target the markup Play serves to non-JS user agents; they need a
// follow-up whenever Play reshuffles its generated class names.
func (c *GoogleClient) Search(ctx context.Context, term string) ([]models.AppRecord, error) {
	collector := colly.NewCollector(
		colly.AllowedDomains(c.host),
		colly.UserAgent(c.userAgent),
	)
	collector.SetRequestTimeout(c.timeout)
	collector.IgnoreRobotsTxt = true
	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   c.timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	collector.WithTransport(transport)

	now := time.Now()
	var records []models.AppRecord
	var scrapeErr error

	collector.OnHTML(`div[role="listitem"]`, func(e *colly.HTMLElement) {
		if len(records) >= c.maxResults {
			return
		}
		rec := extractApp(e, term, now)
		if rec == nil {
			return
		}
		records = append(records, *rec)
	})

	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		scrapeErr = classifyError(err, statusCode)
	})

	u, err := url.Parse(c.baseURL + "/store/search")
	if err != nil {
		return nil, fmt.Errorf("google play: build search url: %w", err)
	}
	q := u.Query()
	q.Set("q", term)
	q.Set("c", "apps")
	q.Set("gl", c.country)
	u.RawQuery = q.Encode()

	visitErr := collector.Visit(u.String())
	collector.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("google play: search %q: %w", term, ctx.Err())
	}
	// OnError sees the response status code, Visit's return value does not;
	// prefer the classified error.
	if scrapeErr != nil {
		return nil, fmt.Errorf("google play: search %q: %w", term, scrapeErr)
	}
	if visitErr != nil {
		return nil, fmt.Errorf("google play: search %q: %w", term, classifyError(visitErr, 0))
	}
	return records, nil
}

// extractApp maps one search result card to an AppRecord. Cards without a
// details link or a title are navigation chrome and are skipped.
func extractApp(e *colly.HTMLElement, term string, now time.Time) *models.AppRecord {
	href := e.ChildAttr(`a[href^="/store/apps/details"]`, "href")
	if href == "" {
		return nil
	}

	title := strings.TrimSpace(e.ChildText("span.DdYX5"))
	if title == "" {
		return nil
	}

	appURL := e.Request.AbsoluteURL(href)
	appID := ""
	if parsed, err := url.Parse(appURL); err == nil {
		appID = parsed.Query().Get("id")
	}

	rating := 0.0
	if text := strings.TrimSpace(e.ChildText("span.w2kbF")); text != "" {
		if value, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64); err == nil {
			rating = value
		}
	}

	return &models.AppRecord{
		Source:      models.SourceGooglePlay,
		Title:       title,
		SearchTerm:  term,
		AppID:       appID,
		Developer:   strings.TrimSpace(e.ChildText("span.wMUdtb")),
		Genre:       strings.TrimSpace(e.ChildText("span.WR9vL")),
		Rating:      rating,
		URL:         appURL,
		IconURL:     e.Request.AbsoluteURL(e.ChildAttr("img.T75of", "src")),
		Summary:     strings.TrimSpace(e.ChildText("div.SgDHo")),
		RetrievedAt: now,
	}
}
