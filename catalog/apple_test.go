package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
	"github.com/jarcoal/httpmock"
)

const itunesFixture = `{
	"resultCount": 2,
	"results": [
		{
			"trackId": 1234,
			"trackName": "Calm",
			"artistName": "Calm.com",
			"primaryGenreName": "Health & Fitness",
			"averageUserRating": 4.7,
			"trackViewUrl": "https://apps.apple.com/us/app/calm/id1234",
			"artworkUrl100": "https://example.test/calm.png",
			"description": "Sleep more, stress less."
		},
		{
			"trackId": 5678,
			"trackName": "Headspace",
			"artistName": "Headspace Inc.",
			"primaryGenreName": "Health & Fitness",
			"averageUserRating": 4.6,
			"trackViewUrl": "https://apps.apple.com/us/app/headspace/id5678",
			"artworkUrl100": "https://example.test/headspace.png",
			"description": "Meditation made simple."
		}
	]
}`

func newAppleTestClient(t *testing.T) (*AppleClient, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.AppStoreURL = "http://itunes.test"
	cfg.MaxResults = 10

	client, err := NewAppleClient(cfg)
	if err != nil {
		t.Fatalf("new apple client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.HTTPClient.Transport = transport
	return client, transport
}

func TestAppleClientSearch(t *testing.T) {
	client, transport := newAppleTestClient(t)
	transport.RegisterResponder("GET", `=~^http://itunes\.test/search`,
		httpmock.NewStringResponder(200, itunesFixture))

	records, err := client.Search(context.Background(), "meditation")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	rec := records[0]
	if rec.Source != models.SourceAppStore {
		t.Fatalf("source = %q, want %q", rec.Source, models.SourceAppStore)
	}
	if rec.Title != "Calm" || rec.AppID != "1234" || rec.Developer != "Calm.com" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.SearchTerm != "meditation" {
		t.Fatalf("search term = %q, want the stamped term", rec.SearchTerm)
	}
	if rec.Description == "" || rec.Summary != "" {
		t.Fatalf("apple records carry Description, not Summary: %+v", rec)
	}
}

func TestAppleClientSearchRateLimited(t *testing.T) {
	client, transport := newAppleTestClient(t)
	transport.RegisterResponder("GET", `=~^http://itunes\.test/search`,
		httpmock.NewStringResponder(429, ""))

	_, err := client.Search(context.Background(), "meditation")
	var rateLimited ErrRateLimited
	if !errors.As(err, &rateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAppleClientSearchBadJSON(t *testing.T) {
	client, transport := newAppleTestClient(t)
	transport.RegisterResponder("GET", `=~^http://itunes\.test/search`,
		httpmock.NewStringResponder(200, "{not json"))

	if _, err := client.Search(context.Background(), "meditation"); err == nil {
		t.Fatalf("expected decode error")
	}
}
