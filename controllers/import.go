package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"directory-import-api/services"
	"directory-import-api/utils"
)

const maxImportFileSize = 20 * 1024 * 1024

var allowedListingImportMimeTypes = map[string]string{
	"text/csv":                 ".csv",
	"application/csv":          ".csv",
	"application/vnd.ms-excel": ".csv",
	"text/plain":               ".csv",
	"application/octet-stream": ".csv",
}

var listingImportExtensionToMime = map[string]string{
	".csv": "text/csv",
}

// ImportController exposes the resumable listing import pipeline: start
// creates a session from an uploaded CSV, step advances it one batch at a
// time, cleanup releases it. Runs may be nil (no run recording) and notifier
// may be nil (no completion mail); both are optional collaborators.
type ImportController struct {
	Sessions  *services.SessionStore
	Engine    *services.BatchEngine
	Runs      *services.ImportRunService
	Notifier  *services.Notifier
	UploadDir string
}

func NewImportController(sessions *services.SessionStore, engine *services.BatchEngine, runs *services.ImportRunService, notifier *services.Notifier) *ImportController {
	return &ImportController{
		Sessions:  sessions,
		Engine:    engine,
		Runs:      runs,
		Notifier:  notifier,
		UploadDir: filepath.Join("uploads", "import_runs", "listings"),
	}
}

type stepRequest struct {
	ImportID  string `json:"import_id" binding:"required"`
	BatchSize int    `json:"batch_size"`
}

type cleanupRequest struct {
	ImportID string `json:"import_id" binding:"required"`
}

// Start accepts the uploaded CSV, validates its header, counts data rows and
// creates the import session. The suggested batch size is echoed back and
// honored by every subsequent step call.
func (ic *ImportController) Start(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Import file is required"})
		return
	}
	defer file.Close()

	if _, ok := canonicalMime(header.Header.Get("Content-Type"), header.Filename, allowedListingImportMimeTypes, listingImportExtensionToMime); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type, please upload a .csv file"})
		return
	}
	if header.Size > maxImportFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Import file exceeds the 20MB limit"})
		return
	}

	if err := os.MkdirAll(ic.UploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload directory"})
		return
	}

	safeName := utils.GenerateUniqueFilename(ic.UploadDir, header.Filename)
	dstPath := filepath.Join(ic.UploadDir, safeName)
	if err := c.SaveUploadedFile(header, dstPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store import file"})
		return
	}

	headers, total, err := services.InspectCSV(dstPath)
	if err != nil {
		removeSource(dstPath)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read the import file, is it valid CSV?"})
		return
	}
	if !services.HasRequiredColumns(headers) {
		removeSource(dstPath)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required columns (title, lat, lng)"})
		return
	}

	dryRun := c.PostForm("dry_run") == "true"
	createMissingTerms := c.PostForm("create_missing_terms") == "true"

	sess := ic.Sessions.Create(dstPath, total, services.DefaultBatchSize, dryRun, createMissingTerms)

	if ic.Runs != nil {
		run, err := ic.Runs.Start(sess.ID, safeName, "admin_api", dryRun, total)
		if err != nil {
			log.Printf("failed to record import run for session %s: %v", sess.ID, err)
		} else {
			sess.RunID = run.ID
		}
	}

	message := fmt.Sprintf("Ready to import %d rows", total)
	if dryRun {
		message = fmt.Sprintf("Ready to preview %d rows (dry run)", total)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"import_id":  sess.ID,
		"total_rows": total,
		"batch_size": sess.BatchSize,
		"message":    message,
	})
}

// Step advances one session by one batch. A step against a finished session
// is an idempotent no-op so a retried request landing late stays harmless.
func (ic *ImportController) Step(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id is required"})
		return
	}

	sess, ok := ic.Sessions.Get(req.ImportID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import session not found or expired"})
		return
	}

	res, err := ic.Engine.Step(c.Request.Context(), sess, req.BatchSize)
	if err != nil {
		log.Printf("batch step failed for session %s: %v", sess.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Batch processing failed"})
		return
	}

	if res.Complete {
		ic.finishSession(sess)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"processed":  res.Processed,
		"total":      res.Total,
		"percentage": res.Percentage,
		"batch":      res.Batch,
		"complete":   res.Complete,
	})
}

// Cleanup deletes a session and its temporary source file. It is a
// best-effort courtesy call: repeating it, or calling it with an unknown id,
// always succeeds.
func (ic *ImportController) Cleanup(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if sess, ok := ic.Sessions.Get(req.ImportID); ok {
		cursor, tallies := sess.Snapshot()
		if cursor < sess.TotalRows && ic.Runs != nil && sess.RunID != 0 && sess.CloseRun() {
			err := ic.Runs.MarkFailure(sess.RunID, tallies,
				errors.New("cancelled before completion"), time.Since(sess.CreatedAt).Seconds())
			if err != nil {
				log.Printf("failed to mark import run %d cancelled: %v", sess.RunID, err)
			}
		}
		ic.Sessions.Delete(sess.ID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListRuns returns recent import runs, newest first.
func (ic *ImportController) ListRuns(c *gin.Context) {
	if ic.Runs == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []any{}, "total": 0})
		return
	}
	limit := parseIntQuery(c, "limit", 20)
	offset := parseIntQuery(c, "offset", 0)
	runs, total, err := ic.Runs.List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch import runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": runs, "total": total})
}

// ExpireSession finalizes the run record of a session reclaimed by the idle
// janitor; wired as the janitor's onExpire callback.
func (ic *ImportController) ExpireSession(sess *services.ImportSession) {
	if ic.Runs == nil || sess.RunID == 0 || !sess.CloseRun() {
		return
	}
	_, tallies := sess.Snapshot()
	err := ic.Runs.MarkFailure(sess.RunID, tallies,
		errors.New("session expired before completion"), time.Since(sess.CreatedAt).Seconds())
	if err != nil {
		log.Printf("failed to mark import run %d expired: %v", sess.RunID, err)
	}
}

func (ic *ImportController) finishSession(sess *services.ImportSession) {
	if !sess.CloseRun() {
		return
	}
	_, tallies := sess.Snapshot()
	if ic.Runs != nil && sess.RunID != 0 {
		if err := ic.Runs.MarkSuccess(sess.RunID, tallies, time.Since(sess.CreatedAt).Seconds()); err != nil {
			log.Printf("failed to mark import run %d success: %v", sess.RunID, err)
		}
	}
	if ic.Notifier != nil {
		if err := ic.Notifier.ImportCompleted(filepath.Base(sess.SourcePath), sess.DryRun, sess.TotalRows, tallies); err != nil {
			log.Printf("failed to send import completion mail: %v", err)
		}
	}
}

func removeSource(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove rejected import file %s: %v", path, err)
	}
}

func canonicalMime(contentType, filename string, allowed map[string]string, extToMime map[string]string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if _, ok := allowed[ct]; ok {
		return ct, true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if mime, ok := extToMime[ext]; ok {
		return mime, true
	}
	return "", false
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return fallback
	}
	return v
}
