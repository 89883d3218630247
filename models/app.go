// Package models defines data structures for the app store scraper.
package models

import "time"

// Source identifies the catalog an AppRecord was retrieved from.
type Source string

const (
	SourceGooglePlay Source = "google"
	SourceAppStore   Source = "apple"
)

// AppRecord is one raw search hit from a single catalog source. The Source
// tag is set by the catalog client at creation time; records are immutable
// once handed to the merge step.
//
// Google Play carries the short synopsis as Summary, the App Store carries
// it as Description. Exactly one of the two is populated per record.
type AppRecord struct {
	Source      Source    `json:"source"`
	Title       string    `json:"title"`
	SearchTerm  string    `json:"search_term"`
	AppID       string    `json:"app_id"`
	Developer   string    `json:"developer"`
	Genre       string    `json:"genre"`
	Rating      float64   `json:"rating"`
	URL         string    `json:"url"`
	IconURL     string    `json:"icon_url"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// CombinedApp is the unified per-title output entity. TitleGoogle and
// TitleApple double as provenance markers: each is non-empty iff that store
// contributed a record for this title. BothAppStores is computed once after
// the merge pass completes, not maintained incrementally.
type CombinedApp struct {
	TitleGoogle      string  `csv:"title_google" json:"title_google"`
	TitleApple       string  `csv:"title_apple" json:"title_apple"`
	BothAppStores    bool    `csv:"both_app_stores" json:"both_app_stores"`
	SearchTermGoogle string  `csv:"search_term_google" json:"search_term_google"`
	SearchTermApple  string  `csv:"search_term_apple" json:"search_term_apple"`
	AppIDGoogle      string  `csv:"app_id_google" json:"app_id_google"`
	AppIDApple       string  `csv:"app_id_apple" json:"app_id_apple"`
	DeveloperGoogle  string  `csv:"developer_google" json:"developer_google"`
	DeveloperApple   string  `csv:"developer_apple" json:"developer_apple"`
	GenreGoogle      string  `csv:"genre_google" json:"genre_google"`
	GenreApple       string  `csv:"genre_apple" json:"genre_apple"`
	RatingGoogle     float64 `csv:"rating_google" json:"rating_google"`
	RatingApple      float64 `csv:"rating_apple" json:"rating_apple"`
	URLGoogle        string  `csv:"url_google" json:"url_google"`
	URLApple         string  `csv:"url_apple" json:"url_apple"`
	IconURLGoogle    string  `csv:"icon_url_google" json:"icon_url_google"`
	IconURLApple     string  `csv:"icon_url_apple" json:"icon_url_apple"`
	Summary          string  `csv:"summary" json:"summary"`
	Description      string  `csv:"description" json:"description"`
}

// Title returns the identity key the app was merged under. Either marker
// works; they are equal whenever both are set.
func (c *CombinedApp) Title() string {
	if c.TitleGoogle != "" {
		return c.TitleGoogle
	}
	return c.TitleApple
}

// FetchResult holds the overall result of a retrieval run.
type FetchResult struct {
	Google       []AppRecord
	Apple        []AppRecord
	StartTime    time.Time
	EndTime      time.Time
	RequestCount int
	ErrorCount   int
	RetryCount   int
	FailedTerms  []string
	ErrorsByType map[string]int
}
