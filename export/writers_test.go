package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcoAigner/prisma-review-app-scraper/models"
)

func sampleApps() []*models.CombinedApp {
	return []*models.CombinedApp{
		{
			TitleGoogle:      "Calm",
			TitleApple:       "Calm",
			BothAppStores:    true,
			SearchTermGoogle: "meditation",
			SearchTermApple:  "meditation",
			AppIDGoogle:      "com.calm.android",
			AppIDApple:       "1234",
			DeveloperGoogle:  "Calm.com",
			DeveloperApple:   "Calm.com",
			RatingGoogle:     4.5,
			RatingApple:      4.7,
			Summary:          "Meditation and sleep stories.",
			Description:      "Sleep more, stress less.",
		},
		{
			TitleGoogle:      "Sleep Cycle",
			SearchTermGoogle: "sleep",
			AppIDGoogle:      "com.northcube.sleepcycle",
			RatingGoogle:     4.1,
			Summary:          "Smart alarm clock.",
		},
	}
}

func TestCSVWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	apps := sampleApps()
	if err := writer.Write(apps); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if got := writer.RowCount(); got != len(apps) {
		t.Fatalf("row count = %d, want %d", got, len(apps))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != len(apps)+1 {
		t.Fatalf("rows = %d, want header plus %d", len(records), len(apps))
	}

	header := records[0]
	if len(header) != len(Header) || header[0] != "title_google" || header[1] != "title_apple" {
		t.Fatalf("unexpected header: %v", header)
	}

	for i, app := range apps {
		want := Row(app)
		got := records[i+1]
		if len(got) != len(want) {
			t.Fatalf("row %d has %d columns, want %d", i, len(got), len(want))
		}
		for col := range want {
			if got[col] != want[col] {
				t.Fatalf("row %d column %s = %q, want %q", i, Header[col], got[col], want[col])
			}
		}
	}
}

func TestRowAbsentFieldsEmpty(t *testing.T) {
	app := &models.CombinedApp{
		TitleGoogle:  "Solo",
		RatingGoogle: 3.5,
	}

	row := Row(app)
	cols := make(map[string]string, len(Header))
	for i, name := range Header {
		cols[name] = row[i]
	}

	if cols["title_apple"] != "" || cols["rating_apple"] != "" || cols["description"] != "" {
		t.Fatalf("apple columns should be empty for a google-only app: %v", cols)
	}
	if cols["rating_google"] != "3.5" {
		t.Fatalf("rating_google = %q, want 3.5", cols["rating_google"])
	}
	if cols["both_app_stores"] != "false" {
		t.Fatalf("both_app_stores = %q, want false", cols["both_app_stores"])
	}
}

func TestCSVWriterZeroRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(nil); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if got := writer.RowCount(); got != 0 {
		t.Fatalf("row count = %d, want 0", got)
	}
	// Header alone still counts as valid output for an empty run.
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
}

func TestCSVWriterCreatesMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "apps.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleApps()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.CombinedApp
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines = %d, want 2", count)
	}
}

func TestJSONWriterZeroRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(nil); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if got := writer.RowCount(); got != 0 {
		t.Fatalf("row count = %d, want 0", got)
	}
	// An empty JSONL file is a successful zero-row export.
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "apps.csv")
	jsonPath := filepath.Join(dir, "apps.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleApps()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}
