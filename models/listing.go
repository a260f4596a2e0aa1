package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing is one imported business record. ImportKey is the idempotency key
// computed from the source row (external id, or normalized title + location)
// and is the conflict target for upserts.
type Listing struct {
	ID        uint    `json:"listing_id" gorm:"primaryKey;autoIncrement"`
	ImportKey string  `json:"-" gorm:"column:import_key;type:varchar(255);uniqueIndex;not null"`
	Title     string  `json:"title" gorm:"type:varchar(255);not null"`
	Lat       float64 `json:"lat" gorm:"column:lat;not null"`
	Lng       float64 `json:"lng" gorm:"column:lng;not null"`

	ExternalID  *string `json:"external_id,omitempty" gorm:"column:external_id;type:varchar(128)"`
	Category    *string `json:"category,omitempty" gorm:"type:varchar(128)"`
	Area        *string `json:"area,omitempty" gorm:"type:varchar(128)"`
	Address     *string `json:"address,omitempty" gorm:"type:varchar(255)"`
	Phone       *string `json:"phone,omitempty" gorm:"type:varchar(64)"`
	Website     *string `json:"website,omitempty" gorm:"type:varchar(255)"`
	Description *string `json:"description,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"column:deleted_at;index"`
}

func (Listing) TableName() string { return "listings" }

// ListingCategory holds taxonomy terms created on demand when an import runs
// with create_missing_terms enabled.
type ListingCategory struct {
	ID        uint      `json:"category_id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:varchar(128);uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (ListingCategory) TableName() string { return "listing_categories" }
