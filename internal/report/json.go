package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tildaslashalef/semdiff/internal/failure"
	"github.com/tildaslashalef/semdiff/internal/git"
	"github.com/tildaslashalef/semdiff/internal/review"
)

// rangeEntry is the JSON form of a RangeResult
type rangeEntry struct {
	Commit    git.CommitInfo `json:"commit"`
	Report    *review.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorKind failure.Kind   `json:"error_kind,omitempty"`
	Skipped   bool           `json:"skipped,omitempty"`
}

// WriteJSON writes a report as indented JSON
func WriteJSON(w io.Writer, r *review.Report) error {
	return encode(w, r)
}

// WriteRangeJSON writes range results as an indented JSON array
func WriteRangeJSON(w io.Writer, results []review.RangeResult) error {
	entries := make([]rangeEntry, 0, len(results))
	for _, res := range results {
		entry := rangeEntry{Commit: res.Commit, Report: res.Report, Skipped: res.Skipped}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			entry.ErrorKind = failure.KindOf(res.Err)
		}
		entries = append(entries, entry)
	}
	return encode(w, entries)
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
