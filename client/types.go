package client

// Tallies mirrors the per-batch outcome counters returned by the server.
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

// StartResponse is the payload of a successful start call.
type StartResponse struct {
	ImportID  string `json:"import_id"`
	TotalRows int    `json:"total_rows"`
	BatchSize int    `json:"batch_size"`
	Message   string `json:"message"`
}

// StepResponse is the payload of a successful step call. DryRun is filled in
// client-side for display wording; the server does not echo it.
type StepResponse struct {
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
	Batch      Tallies `json:"batch"`
	Complete   bool    `json:"complete"`
	DryRun     bool    `json:"-"`
}

// Summary is the final cumulative result handed to the reporter.
type Summary struct {
	Tallies
	TotalRows int
	DryRun    bool
	Cancelled bool
}

// Options are the operator-chosen import options sent with start.
type Options struct {
	DryRun             bool
	CreateMissingTerms bool
}
