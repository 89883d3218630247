// Package terms collects the search terms driving a scrape run.
package terms

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// FromFile reads search terms from path, one per line. Lines are trimmed,
// blank lines and lines starting with '#' are skipped, and duplicates are
// dropped while preserving first-seen order.
func FromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terms file: %w", err)
	}
	defer f.Close()

	ts, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("read terms file %q: %w", path, err)
	}
	return ts, nil
}

// FromReader reads terms interactively: one term per line until EOF or a
// blank line. The prompt is written to w before each line.
func FromReader(r io.Reader, w io.Writer) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	var ts []string

	for {
		fmt.Fprint(w, "search term (empty line to finish): ")
		if !scanner.Scan() {
			break
		}
		term := strings.TrimSpace(scanner.Text())
		if term == "" {
			break
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		ts = append(ts, term)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read terms: %w", err)
	}
	return ts, nil
}

// Combine merges term lists in order, dropping duplicates across lists.
func Combine(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, term := range list {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			out = append(out, term)
		}
	}
	return out
}

func read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	var ts []string

	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term == "" || strings.HasPrefix(term, "#") {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		ts = append(ts, term)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ts, nil
}
