package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"directory-import-api/config"
	"directory-import-api/models"
)

// GetListings lists imported listings with optional category/area filters.
func GetListings(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	query := config.DB.Model(&models.Listing{})
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if area := strings.TrimSpace(c.Query("area")); area != "" {
		query = query.Where("area = ?", area)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}

	var listings []models.Listing
	if err := query.Order("title ASC").Offset(offset).Limit(limit).Find(&listings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listings,
		"total":   total,
		"count":   len(listings),
	})
}

// GetListing returns one listing by id.
func GetListing(c *gin.Context) {
	var listing models.Listing
	if err := config.DB.Where("id = ?", c.Param("id")).First(&listing).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": listing})
}
