// Package seed provides bulk event import from JSON files. Each record runs
// through the normal lifecycle upsert, so imports schedule notifications and
// detect changes exactly like interactive additions.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/kanamidev/gachatimer/internal/event"
)

// Lifecycle is the slice of the event service the importer drives.
type Lifecycle interface {
	AddOrUpdate(ctx context.Context, e *event.Event) error
}

// Record is one event in an import file.
type Record struct {
	Profile     string `json:"profile"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`

	StartUnix int64 `json:"start_unix,omitempty"`
	EndUnix   int64 `json:"end_unix,omitempty"`

	AsiaStart    int64 `json:"asia_start,omitempty"`
	AsiaEnd      int64 `json:"asia_end,omitempty"`
	AmericaStart int64 `json:"america_start,omitempty"`
	AmericaEnd   int64 `json:"america_end,omitempty"`
	EuropeStart  int64 `json:"europe_start,omitempty"`
	EuropeEnd    int64 `json:"europe_end,omitempty"`
}

func (r Record) toEvent() *event.Event {
	return &event.Event{
		Profile:      r.Profile,
		Category:     r.Category,
		Title:        r.Title,
		Description:  r.Description,
		Image:        r.Image,
		StartUnix:    r.StartUnix,
		EndUnix:      r.EndUnix,
		AsiaStart:    r.AsiaStart,
		AsiaEnd:      r.AsiaEnd,
		AmericaStart: r.AmericaStart,
		AmericaEnd:   r.AmericaEnd,
		EuropeStart:  r.EuropeStart,
		EuropeEnd:    r.EuropeEnd,
	}
}

// Result tracks counts and errors from one import run.
type Result struct {
	Imported int
	Errors   []string
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the import.
func (r *Result) Summary() string {
	return fmt.Sprintf("imported=%d errors=%d", r.Imported, len(r.Errors))
}

// Importer feeds event records into the lifecycle service.
type Importer struct {
	svc    Lifecycle
	logger *slog.Logger
}

// NewImporter creates an importer over the given lifecycle service.
func NewImporter(svc Lifecycle, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, logger: logger}
}

// ImportFile reads a JSON array of records from path and upserts each one.
// defaultProfile fills records that omit their profile; empty means records
// must carry their own. Per-record failures are collected, not fatal.
func (i *Importer) ImportFile(ctx context.Context, path, defaultProfile string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read import file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return Result{}, fmt.Errorf("parse import file: %w", err)
	}

	return i.Import(ctx, records, defaultProfile), nil
}

// Import upserts a batch of records.
func (i *Importer) Import(ctx context.Context, records []Record, defaultProfile string) Result {
	var res Result
	for n, rec := range records {
		if rec.Profile == "" {
			rec.Profile = defaultProfile
		}
		if rec.Profile == "" || rec.Title == "" || rec.Category == "" {
			res.AddErrorf("record %d: profile, title and category are required", n)
			continue
		}

		if err := i.svc.AddOrUpdate(ctx, rec.toEvent()); err != nil {
			res.AddErrorf("record %d (%s/%s): %v", n, rec.Profile, rec.Title, err)
			i.logger.Warn("import record failed",
				"profile", rec.Profile, "title", rec.Title, "error", err)
			continue
		}
		res.Imported++
	}
	return res
}
