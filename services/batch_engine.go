package services

import (
	"context"
	"fmt"
	"log"
)

// Tallies are per-row outcome counters. Imported + Updated + Skipped plus
// the number of error strings always equals the number of rows consumed.
type Tallies struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

func (t *Tallies) merge(o Tallies) {
	t.Imported += o.Imported
	t.Updated += o.Updated
	t.Skipped += o.Skipped
	t.Errors = append(t.Errors, o.Errors...)
}

func (t Tallies) clone() Tallies {
	out := t
	out.Errors = append([]string(nil), t.Errors...)
	return out
}

// BatchResult is the value returned by one step call. Batch holds only this
// call's contribution; the cumulative totals live on the session.
type BatchResult struct {
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
	Batch      Tallies `json:"batch"`
	Complete   bool    `json:"complete"`
}

// BatchEngine advances one session by one batch per call. It holds the
// session lock for the whole step, so a retried or duplicate request can
// never interleave with the original.
type BatchEngine struct {
	store ListingStore
}

func NewBatchEngine(store ListingStore) *BatchEngine {
	return &BatchEngine{store: store}
}

// Step reads the next batch of rows from the session source, applies each
// row, advances the cursor by the rows actually consumed and merges the
// batch tallies into the session. Calling Step on an already complete
// session is an idempotent no-op returning complete=true with zero batch
// tallies.
func (e *BatchEngine) Step(ctx context.Context, sess *ImportSession, requestedBatchSize int) (*BatchResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Cursor >= sess.TotalRows {
		return e.result(sess, Tallies{Errors: []string{}}), nil
	}

	// The session's own batch size keeps behavior deterministic across
	// client retries; a client override only applies when the session has
	// no recorded size.
	size := sess.BatchSize
	if size <= 0 {
		size = requestedBatchSize
	}
	if size <= 0 {
		size = DefaultBatchSize
	}

	headers, rows, err := ReadCSVBatch(sess.SourcePath, sess.Cursor, size)
	if err != nil {
		return nil, fmt.Errorf("read batch at row %d: %w", sess.Cursor+1, err)
	}

	// Once a batch starts applying, finish it even if the caller's request
	// is cancelled mid-flight, or the cursor and the store would disagree.
	ctx = persistentContext(ctx)

	batch := Tallies{Errors: []string{}}
	for i, row := range rows {
		rowNum := sess.Cursor + i + 1
		e.processRow(ctx, sess, headers, row, rowNum, &batch)
	}

	sess.Cursor += len(rows)
	sess.Tallies.merge(batch)
	return e.result(sess, batch), nil
}

func (e *BatchEngine) processRow(ctx context.Context, sess *ImportSession, headers map[string]int, row []string, rowNum int, batch *Tallies) {
	rec, validationErr := ParseListingRow(headers, row, rowNum)
	if validationErr != "" {
		batch.Errors = append(batch.Errors, validationErr)
		return
	}

	key := ListingKey(rec)
	if _, dup := sess.seenKeys[key]; dup {
		batch.Skipped++
		return
	}
	sess.seenKeys[key] = struct{}{}

	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		if sess.DryRun {
			// Dry runs classify optimistically; a lookup failure must not
			// surface as a row error when nothing was going to be written.
			log.Printf("dry-run key lookup failed for row %d: %v", rowNum, err)
			batch.Imported++
			return
		}
		batch.Errors = append(batch.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return
	}

	if sess.DryRun {
		if exists {
			batch.Updated++
		} else {
			batch.Imported++
		}
		return
	}

	if sess.CreateMissingTerms && rec.Category != "" {
		if err := e.store.EnsureCategory(ctx, rec.Category); err != nil {
			log.Printf("failed to ensure category %q for row %d: %v", rec.Category, rowNum, err)
		}
	}

	if err := e.store.Upsert(ctx, rec.ToListing(key)); err != nil {
		batch.Errors = append(batch.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		return
	}
	if exists {
		batch.Updated++
	} else {
		batch.Imported++
	}
}

func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

func (e *BatchEngine) result(sess *ImportSession, batch Tallies) *BatchResult {
	percentage := 100
	if sess.TotalRows > 0 {
		percentage = sess.Cursor * 100 / sess.TotalRows
	}
	return &BatchResult{
		Processed:  sess.Cursor,
		Total:      sess.TotalRows,
		Percentage: percentage,
		Batch:      batch,
		Complete:   sess.Cursor == sess.TotalRows,
	}
}
