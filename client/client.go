// Package client drives a resumable listing import against the API: one
// start call, then repeated step calls until completion, with pause, resume,
// cancel and retry-with-backoff on transient failures. The server-side
// cursor makes resuming safe; a failed step never advances it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultMaxRetries bounds automatic retries of one step call.
	DefaultMaxRetries = 3
	// DefaultBackoffBase scales linearly with the retry count: 2s, 4s, 6s.
	DefaultBackoffBase = 2 * time.Second
	// DefaultStepTimeout bounds a single request, distinct from the backoff.
	DefaultStepTimeout = 60 * time.Second
)

// ErrCancelled reports that the operator cancelled the import; it is not a
// failure.
var ErrCancelled = errors.New("import cancelled")

type Config struct {
	BaseURL     string
	Token       string
	Reporter    Reporter
	MaxRetries  int
	BackoffBase time.Duration
	StepTimeout time.Duration
}

// Client is a single-use import driver. Construct a fresh Client per import
// attempt; Run can only be called once.
type Client struct {
	baseURL     string
	token       string
	httpc       *http.Client
	reporter    Reporter
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)

	mu          sync.Mutex
	cond        *sync.Cond
	state       State
	importID    string
	totalRows   int
	batchSize   int
	dryRun      bool
	cum         Tallies
	finalErr    error
	cleanupOnce sync.Once
}

func New(cfg Config) *Client {
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	c := &Client{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		httpc:       &http.Client{Timeout: cfg.StepTimeout},
		reporter:    cfg.Reporter,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		sleep:       time.Sleep,
		state:       StateIdle,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run uploads the file, then steps through the import until it completes, is
// cancelled, or fails. Cleanup is always attempted once a session exists,
// including on failure paths.
func (c *Client) Run(ctx context.Context, filePath string, opts Options) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errors.New("client already used, construct a fresh client per import attempt")
	}
	c.state = StateUploading
	c.dryRun = opts.DryRun
	c.mu.Unlock()

	start, err := c.start(ctx, filePath, opts)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.importID = start.ImportID
	c.totalRows = start.TotalRows
	c.batchSize = start.BatchSize
	c.state = StateProcessing
	c.mu.Unlock()
	c.reporter.Info(start.Message)

	for c.awaitProcessing() {
		res, err := c.stepWithRetry(ctx)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				break
			}
			c.fail(err)
			break
		}

		c.mu.Lock()
		if c.state.terminal() {
			// Cancelled while the call was in flight: the server applied
			// the batch but the result is discarded.
			c.mu.Unlock()
			break
		}
		res.DryRun = c.dryRun
		c.cum.merge(res.Batch)
		complete := res.Complete
		if complete {
			c.state = StateCompleted
		}
		c.mu.Unlock()

		c.reporter.Batch(res)
		if complete {
			break
		}
	}

	c.mu.Lock()
	st := c.state
	cum := c.cum
	finalErr := c.finalErr
	hasSession := c.importID != ""
	c.mu.Unlock()

	switch st {
	case StateCompleted:
		c.reporter.Summary(Summary{Tallies: cum, TotalRows: c.totalRows, DryRun: c.dryRun})
		c.doCleanup()
	case StateCancelled:
		c.reporter.Summary(Summary{Tallies: cum, TotalRows: c.totalRows, DryRun: c.dryRun, Cancelled: true})
	case StateFailed:
		if hasSession {
			c.doCleanup()
		}
		return finalErr
	}
	return nil
}

// Pause stops issuing new step calls; a call already in flight finishes and
// its result is still applied.
func (c *Client) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateProcessing {
		c.state = StatePaused
	}
}

// Resume continues from exactly where the server-side cursor left off.
func (c *Client) Resume() {
	c.mu.Lock()
	if c.state == StatePaused {
		c.state = StateProcessing
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// Cancel stops the import immediately and fires cleanup. A step call already
// in flight is not awaited; its result is discarded when it arrives.
func (c *Client) Cancel() {
	c.mu.Lock()
	if c.state != StateProcessing && c.state != StatePaused {
		c.mu.Unlock()
		return
	}
	c.state = StateCancelled
	hasSession := c.importID != ""
	c.cond.Broadcast()
	c.mu.Unlock()

	c.reporter.Info("Cancelling import")
	if hasSession {
		c.doCleanup()
	}
}

// awaitProcessing blocks through pauses and reports whether another step
// call should be issued.
func (c *Client) awaitProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == StatePaused {
		c.cond.Wait()
	}
	return c.state == StateProcessing
}

func (c *Client) fail(err error) error {
	c.mu.Lock()
	if !c.state.terminal() {
		c.state = StateFailed
		c.finalErr = err
	}
	err = c.finalErr
	c.mu.Unlock()
	if err != nil {
		c.reporter.Info("Import failed: " + err.Error())
	}
	return err
}

// stepWithRetry issues the same step call until it succeeds, retrying
// transient failures (timeouts, 5xx) up to maxRetries with linear backoff.
// The server never advances the cursor on a failed call, so retrying the
// identical request is safe.
func (c *Client) stepWithRetry(ctx context.Context) (*StepResponse, error) {
	retries := 0
	for {
		if c.State() == StateCancelled {
			return nil, ErrCancelled
		}

		res, transient, err := c.step(ctx)
		if err == nil {
			return res, nil
		}
		if !transient {
			return nil, err
		}

		retries++
		if retries > c.maxRetries {
			return nil, fmt.Errorf("max retries exceeded: %w", err)
		}
		delay := c.backoffBase * time.Duration(retries)
		c.reporter.Info(formatRetryNotice(err, delay.String(), retries, c.maxRetries))
		c.sleep(delay)
	}
}

func (c *Client) start(ctx context.Context, filePath string, opts Options) (*StartResponse, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := w.WriteField("dry_run", strconv.FormatBool(opts.DryRun)); err != nil {
		return nil, err
	}
	if err := w.WriteField("create_missing_terms", strconv.FormatBool(opts.CreateMissingTerms)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/admin/import/listings", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: %s", readAPIError(resp))
	}

	var out StartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid start response: %w", err)
	}
	if out.ImportID == "" {
		return nil, errors.New("invalid start response: missing import_id")
	}
	return &out, nil
}

// step issues one step call. The second return value reports whether the
// failure is transient and eligible for retry.
func (c *Client) step(ctx context.Context) (*StepResponse, bool, error) {
	c.mu.Lock()
	payload := map[string]interface{}{
		"import_id":  c.importID,
		"batch_size": c.batchSize,
	}
	c.mu.Unlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/admin/import/listings/step", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Timeouts and connection failures are transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("server error (%d): %s", resp.StatusCode, readAPIError(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("step rejected (%d): %s", resp.StatusCode, readAPIError(resp))
	}

	var out StepResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("invalid step response: %w", err)
	}
	return &out, false, nil
}

// doCleanup tells the server to drop the session. Best effort: failures are
// reported but never override the import outcome, and the server's idle
// expiry is the backstop.
func (c *Client) doCleanup() {
	c.cleanupOnce.Do(func() {
		c.mu.Lock()
		id := c.importID
		c.mu.Unlock()
		if id == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		body, _ := json.Marshal(map[string]string{"import_id": id})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/admin/import/listings/cleanup", bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		resp, err := c.httpc.Do(req)
		if err != nil {
			c.reporter.Info("Cleanup request failed: " + err.Error())
			return
		}
		resp.Body.Close()
	})
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readAPIError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(data) == 0 {
		return resp.Status
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(data)
}
