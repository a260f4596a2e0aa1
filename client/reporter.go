package client

import (
	"fmt"
	"log"
)

// ErrorDisplayCap bounds how many row errors the final summary renders; the
// remainder is collapsed into a "+N more" line.
const ErrorDisplayCap = 50

// Reporter receives progress as the import advances. Implementations must be
// cheap; they are called from the driving loop between step calls.
type Reporter interface {
	Info(msg string)
	Batch(res *StepResponse)
	Summary(s Summary)
}

// NopReporter discards all progress output.
type NopReporter struct{}

func (NopReporter) Info(string)         {}
func (NopReporter) Batch(*StepResponse) {}
func (NopReporter) Summary(Summary)     {}

// LogReporter writes timestamped batch log lines through the standard
// logger, with dry-run wording distinguished from live-run wording.
type LogReporter struct {
	Logger *log.Logger
}

func (r *LogReporter) logf(format string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (r *LogReporter) Info(msg string) {
	r.logf("%s", msg)
}

func (r *LogReporter) Batch(res *StepResponse) {
	verb := "imported"
	if res.DryRun {
		verb = "would import"
	}
	r.logf("[%3d%%] %d/%d rows: %s %d, updated %d, skipped %d, errors %d",
		res.Percentage, res.Processed, res.Total,
		verb, res.Batch.Imported, res.Batch.Updated, res.Batch.Skipped, len(res.Batch.Errors))
	for _, msg := range res.Batch.Errors {
		r.logf("  %s", msg)
	}
}

func (r *LogReporter) Summary(s Summary) {
	if s.Cancelled {
		r.logf("Import cancelled after %d of %d rows", s.Imported+s.Updated+s.Skipped+len(s.Errors), s.TotalRows)
		return
	}

	if s.DryRun {
		r.logf("Dry run finished for %d rows", s.TotalRows)
		r.logf("Would import: %d, would update: %d, would skip: %d, errors: %d",
			s.Imported, s.Updated, s.Skipped, len(s.Errors))
	} else {
		r.logf("Import finished for %d rows", s.TotalRows)
		r.logf("Imported: %d, updated: %d, skipped: %d, errors: %d",
			s.Imported, s.Updated, s.Skipped, len(s.Errors))
	}

	for i, msg := range s.Errors {
		if i >= ErrorDisplayCap {
			r.logf("  +%d more", len(s.Errors)-i)
			break
		}
		r.logf("  %s", msg)
	}
}

var _ Reporter = (*LogReporter)(nil)
var _ Reporter = NopReporter{}

func formatRetryNotice(err error, delay string, attempt, max int) string {
	return fmt.Sprintf("Step failed (%v), retrying in %s (attempt %d/%d)", err, delay, attempt, max)
}
