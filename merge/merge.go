// Package merge reconciles raw app records from both stores into one
// combined record per title.
package merge

import (
	"github.com/MarcoAigner/prisma-review-app-scraper/models"
)

// SameApp reports whether two titles denote the same app. Comparison is
// exact: no case folding, no whitespace trimming. Apps listed under slightly
// different names in the two stores are kept as separate records.
func SameApp(a, b string) bool {
	return identityKey(a) == identityKey(b)
}

// identityKey maps a title to the key records merge under. Deduplicate and
// Merge group by this key, so two records land in the same combined entry
// exactly when SameApp holds for their titles. Any relaxation of the
// identity rule (case folding, trimming) belongs here.
func identityKey(title string) string {
	return title
}

// DedupStats reports the reduction achieved by a single-source dedup pass.
type DedupStats struct {
	Input      int
	Distinct   int
	Duplicates int
}

// Deduplicate collapses one source's record sequence into a single combined
// record per distinct title. Later records with the same title overwrite
// earlier ones field by field (last write wins). Records with an empty title
// collapse into one degenerate entry rather than being dropped.
func Deduplicate(recs []models.AppRecord) (map[string]*models.CombinedApp, DedupStats) {
	byTitle := make(map[string]*models.CombinedApp, len(recs))
	for _, rec := range recs {
		key := identityKey(rec.Title)
		app, ok := byTitle[key]
		if !ok {
			app = &models.CombinedApp{}
			byTitle[key] = app
		}
		apply(app, rec)
	}
	return byTitle, DedupStats{
		Input:      len(recs),
		Distinct:   len(byTitle),
		Duplicates: len(recs) - len(byTitle),
	}
}

// Merge folds the raw record sequences of both stores into the final set of
// combined apps. It consumes the original raw streams, not per-source dedup
// output, so it is self-contained: find-or-create by title, populate the
// contributing store's fields, then compute BothAppStores once at the end.
//
// The fold is commutative across sources; within one source the last record
// for a title wins, so callers must supply each slice in a reproducible
// order (the fetcher emits term-then-result order).
func Merge(google, apple []models.AppRecord) []*models.CombinedApp {
	byTitle := make(map[string]*models.CombinedApp, len(google)+len(apple))
	order := make([]string, 0, len(google)+len(apple))

	fold := func(recs []models.AppRecord) {
		for _, rec := range recs {
			key := identityKey(rec.Title)
			app, ok := byTitle[key]
			if !ok {
				app = &models.CombinedApp{}
				byTitle[key] = app
				order = append(order, key)
			}
			apply(app, rec)
		}
	}
	fold(google)
	fold(apple)

	apps := make([]*models.CombinedApp, 0, len(order))
	for _, title := range order {
		app := byTitle[title]
		app.BothAppStores = app.TitleGoogle != "" && app.TitleApple != ""
		apps = append(apps, app)
	}
	return apps
}

// apply copies rec's fields into the slots of its originating store and sets
// that store's provenance marker. Which store a record belongs to is read
// from its tag; sourceOf falls back to synopsis-field presence for untagged
// records.
func apply(app *models.CombinedApp, rec models.AppRecord) {
	switch sourceOf(rec) {
	case models.SourceGooglePlay:
		app.TitleGoogle = rec.Title
		app.SearchTermGoogle = rec.SearchTerm
		app.AppIDGoogle = rec.AppID
		app.DeveloperGoogle = rec.Developer
		app.GenreGoogle = rec.Genre
		app.RatingGoogle = rec.Rating
		app.URLGoogle = rec.URL
		app.IconURLGoogle = rec.IconURL
		app.Summary = rec.Summary
	case models.SourceAppStore:
		app.TitleApple = rec.Title
		app.SearchTermApple = rec.SearchTerm
		app.AppIDApple = rec.AppID
		app.DeveloperApple = rec.Developer
		app.GenreApple = rec.Genre
		app.RatingApple = rec.Rating
		app.URLApple = rec.URL
		app.IconURLApple = rec.IconURL
		app.Description = rec.Description
	}
}

// sourceOf returns the record's originating store. Records built by the
// catalog clients always carry the tag; untagged records (hand-built input,
// older serialized data) are discriminated by which synopsis field is set,
// since Google Play uses Summary and the App Store uses Description.
func sourceOf(rec models.AppRecord) models.Source {
	if rec.Source != "" {
		return rec.Source
	}
	if rec.Summary != "" {
		return models.SourceGooglePlay
	}
	return models.SourceAppStore
}
