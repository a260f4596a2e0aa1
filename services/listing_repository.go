package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"directory-import-api/config"
	"directory-import-api/models"
)

// ListingStore is the persistence boundary the batch engine writes through.
// Exists is the shared key lookup used both for dry-run classification and
// for deciding imported-vs-updated on live runs.
type ListingStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upsert(ctx context.Context, listing *models.Listing) error
	EnsureCategory(ctx context.Context, name string) error
}

type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	if db == nil {
		db = config.DB
	}
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("import_key = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ListingRepository) Upsert(ctx context.Context, listing *models.Listing) error {
	if listing == nil {
		return errors.New("listing is nil")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "import_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "lat", "lng", "external_id", "category", "area",
			"address", "phone", "website", "description", "updated_at",
		}),
	}).Create(listing).Error
}

func (r *ListingRepository) EnsureCategory(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	return r.db.WithContext(ctx).
		Where(&models.ListingCategory{Name: name}).
		FirstOrCreate(&models.ListingCategory{Name: name}).Error
}
