// Package export serializes combined app records to tabular output files.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/MarcoAigner/prisma-review-app-scraper/models"
)

// Writer is the interface for exported output.
type Writer interface {
	Write(apps []*models.CombinedApp) error
	Close() error
	Validate() error
}

// Header is the CSV column layout, one column per CombinedApp field.
var Header = []string{
	"title_google", "title_apple", "both_app_stores",
	"search_term_google", "search_term_apple",
	"app_id_google", "app_id_apple",
	"developer_google", "developer_apple",
	"genre_google", "genre_apple",
	"rating_google", "rating_apple",
	"url_google", "url_apple",
	"icon_url_google", "icon_url_apple",
	"summary", "description",
}

// Row flattens a combined app into CSV column values in Header order.
// Fields a store did not contribute are rendered as empty strings, including
// that store's rating.
func Row(app *models.CombinedApp) []string {
	ratingGoogle := ""
	if app.TitleGoogle != "" {
		ratingGoogle = strconv.FormatFloat(app.RatingGoogle, 'f', -1, 64)
	}
	ratingApple := ""
	if app.TitleApple != "" {
		ratingApple = strconv.FormatFloat(app.RatingApple, 'f', -1, 64)
	}

	return []string{
		app.TitleGoogle, app.TitleApple, strconv.FormatBool(app.BothAppStores),
		app.SearchTermGoogle, app.SearchTermApple,
		app.AppIDGoogle, app.AppIDApple,
		app.DeveloperGoogle, app.DeveloperApple,
		app.GenreGoogle, app.GenreApple,
		ratingGoogle, ratingApple,
		app.URLGoogle, app.URLApple,
		app.IconURLGoogle, app.IconURLApple,
		app.Summary, app.Description,
	}
}

// CSVWriter writes combined apps to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	rows   int
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends apps to the CSV output.
func (cw *CSVWriter) Write(apps []*models.CombinedApp) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, app := range apps {
		if err := cw.writer.Write(Row(app)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.rows++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// RowCount reports the number of data rows written so far.
func (cw *CSVWriter) RowCount() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.rows
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
	rows    int
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends apps in JSONL format.
func (jw *JSONWriter) Write(apps []*models.CombinedApp) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, app := range apps {
		if err := jw.encoder.Encode(app); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.rows++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// RowCount reports the number of records written so far.
func (jw *JSONWriter) RowCount() int {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.rows
}

// Validate ensures written records reached the file. A zero-result run
// legitimately leaves the JSONL file empty.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	rows := jw.rows
	jw.mu.Unlock()

	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if rows > 0 && info.Size() <= 0 {
		return fmt.Errorf("json file is empty after %d records", rows)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
