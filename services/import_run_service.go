package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"directory-import-api/config"
	"directory-import-api/models"
)

var ErrImportRunNotFound = errors.New("import run not found")

// ImportRunService records the durable outcome of each import session in the
// import_runs table.
type ImportRunService struct {
	db *gorm.DB
}

func NewImportRunService(db *gorm.DB) *ImportRunService {
	if db == nil {
		db = config.DB
	}
	return &ImportRunService{db: db}
}

func (s *ImportRunService) Start(sessionID, sourceFile, trigger string, dryRun bool, totalRows int) (*models.ImportRun, error) {
	if trigger == "" {
		trigger = "admin_api"
	}
	run := &models.ImportRun{
		SessionID:     sessionID,
		SourceFile:    sourceFile,
		TriggerSource: trigger,
		DryRun:        dryRun,
		Status:        models.ImportRunStatusRunning,
		TotalRows:     uint(totalRows),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (s *ImportRunService) MarkSuccess(runID uint, tallies Tallies, duration float64) error {
	return s.finish(runID, models.ImportRunStatusSuccess, tallies, nil, duration)
}

func (s *ImportRunService) MarkFailure(runID uint, tallies Tallies, err error, duration float64) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return s.finish(runID, models.ImportRunStatusFailed, tallies, &msg, duration)
}

func (s *ImportRunService) finish(runID uint, status string, tallies Tallies, errMsg *string, duration float64) error {
	updates := map[string]interface{}{
		"status":           status,
		"finished_at":      time.Now(),
		"duration_seconds": duration,
		"imported_count":   tallies.Imported,
		"updated_count":    tallies.Updated,
		"skipped_count":    tallies.Skipped,
		"error_count":      len(tallies.Errors),
	}
	if errMsg != nil {
		if len(*errMsg) > 2000 {
			updates["error_message"] = fmt.Sprintf("%s...", (*errMsg)[:1997])
		} else {
			updates["error_message"] = *errMsg
		}
	}
	res := s.db.Model(&models.ImportRun{}).Where("id = ?", runID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImportRunNotFound
	}
	return nil
}

func (s *ImportRunService) GetByID(id uint) (*models.ImportRun, error) {
	var run models.ImportRun
	if err := s.db.Where("id = ?", id).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (s *ImportRunService) List(limit, offset int) ([]models.ImportRun, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.Model(&models.ImportRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.ImportRun
	err := s.db.Order("started_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
