package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoAigner/prisma-review-app-scraper/config"
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
	"github.com/jarcoal/httpmock"
)

const playFixture = `<!DOCTYPE html>
<html><body>
<div role="list">
  <div role="listitem">
    <a href="/store/apps/details?id=com.calm.android">
      <img class="T75of" src="/images/calm.png">
      <span class="DdYX5">Calm</span>
      <span class="wMUdtb">Calm.com</span>
      <span class="WR9vL">Health &amp; Fitness</span>
      <span class="w2kbF">4.5</span>
    </a>
    <div class="SgDHo">Meditation and sleep stories.</div>
  </div>
  <div role="listitem">
    <a href="/store/apps/details?id=com.headspace.app">
      <img class="T75of" src="/images/headspace.png">
      <span class="DdYX5">Headspace</span>
      <span class="wMUdtb">Headspace Inc.</span>
      <span class="WR9vL">Health &amp; Fitness</span>
      <span class="w2kbF">4,3</span>
    </a>
    <div class="SgDHo">Mindfulness for every day.</div>
  </div>
  <div role="listitem">
    <a href="/store/books/details?id=not-an-app"><span class="DdYX5">A Book</span></a>
  </div>
</div>
</body></html>`

// htmlResponder serves body with a text/html content type; colly only runs
// OnHTML callbacks for HTML responses.
func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func newGoogleTestClient(t *testing.T) (*GoogleClient, *httpmock.MockTransport) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.GooglePlayURL = "http://play.test"
	cfg.MaxResults = 10

	client, err := NewGoogleClient(cfg)
	if err != nil {
		t.Fatalf("new google client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.Transport = transport
	return client, transport
}

func TestGoogleClientSearch(t *testing.T) {
	client, transport := newGoogleTestClient(t)
	transport.RegisterResponder("GET", `=~^http://play\.test/store/search`,
		htmlResponder(playFixture))

	records, err := client.Search(context.Background(), "meditation")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (book card skipped)", len(records))
	}

	rec := records[0]
	if rec.Source != models.SourceGooglePlay {
		t.Fatalf("source = %q, want %q", rec.Source, models.SourceGooglePlay)
	}
	if rec.Title != "Calm" || rec.AppID != "com.calm.android" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Summary == "" || rec.Description != "" {
		t.Fatalf("google records carry Summary, not Description: %+v", rec)
	}
	if rec.Rating != 4.5 {
		t.Fatalf("rating = %v, want 4.5", rec.Rating)
	}

	// Decimal commas are normalized.
	if records[1].Rating != 4.3 {
		t.Fatalf("rating = %v, want 4.3", records[1].Rating)
	}
}

func TestGoogleClientSearchMaxResults(t *testing.T) {
	client, transport := newGoogleTestClient(t)
	client.maxResults = 1
	transport.RegisterResponder("GET", `=~^http://play\.test/store/search`,
		htmlResponder(playFixture))

	records, err := client.Search(context.Background(), "meditation")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want the configured maximum of 1", len(records))
	}
}

func TestGoogleClientSearchNotFound(t *testing.T) {
	client, transport := newGoogleTestClient(t)
	transport.RegisterResponder("GET", `=~^http://play\.test/store/search`,
		httpmock.NewStringResponder(404, ""))

	_, err := client.Search(context.Background(), "meditation")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
