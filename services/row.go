package services

import (
	"fmt"
	"strconv"
	"strings"

	"directory-import-api/models"
)

// Column aliases accepted in the CSV header. The first matching header wins.
var (
	titleColumns = []string{"title", "name"}
	latColumns   = []string{"lat", "latitude"}
	lngColumns   = []string{"lng", "lon", "longitude"}
)

// ListingRecord is one parsed and validated source row.
type ListingRecord struct {
	ExternalID  string
	Title       string
	Lat         float64
	Lng         float64
	Category    string
	Area        string
	Address     string
	Phone       string
	Website     string
	Description string
}

// NormalizeHeaders maps lowercased, trimmed header names to column indexes.
// Unknown columns stay in the map and are simply never read.
func NormalizeHeaders(row []string) map[string]int {
	headers := make(map[string]int)
	for idx, h := range row {
		key := strings.TrimSpace(strings.ToLower(h))
		if key != "" {
			headers[key] = idx
		}
	}
	return headers
}

// HasRequiredColumns reports whether the header carries a title column and a
// geocoordinate pair, under any accepted alias.
func HasRequiredColumns(headers map[string]int) bool {
	return hasAny(headers, titleColumns) && hasAny(headers, latColumns) && hasAny(headers, lngColumns)
}

func hasAny(headers map[string]int, names []string) bool {
	for _, n := range names {
		if _, ok := headers[n]; ok {
			return true
		}
	}
	return false
}

func readColumn(headers map[string]int, row []string, names ...string) string {
	for _, n := range names {
		if idx, ok := headers[n]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
	}
	return ""
}

// ParseListingRow validates one data row. rowNum is the 1-based data row
// number used in error strings. A non-empty error string means the row is a
// row-level failure; processing of the batch continues regardless.
func ParseListingRow(headers map[string]int, row []string, rowNum int) (*ListingRecord, string) {
	title := readColumn(headers, row, titleColumns...)
	latStr := readColumn(headers, row, latColumns...)
	lngStr := readColumn(headers, row, lngColumns...)

	if title == "" || latStr == "" || lngStr == "" {
		return nil, fmt.Sprintf("Row %d: Missing required fields (title, lat, lng)", rowNum)
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lng, lngErr := strconv.ParseFloat(lngStr, 64)
	if latErr != nil || lngErr != nil {
		return nil, fmt.Sprintf("Row %d: Invalid coordinates", rowNum)
	}

	return &ListingRecord{
		ExternalID:  readColumn(headers, row, "id", "external_id"),
		Title:       title,
		Lat:         lat,
		Lng:         lng,
		Category:    readColumn(headers, row, "category"),
		Area:        readColumn(headers, row, "area", "region"),
		Address:     readColumn(headers, row, "address"),
		Phone:       readColumn(headers, row, "phone"),
		Website:     readColumn(headers, row, "website", "url"),
		Description: readColumn(headers, row, "description"),
	}, ""
}

// ListingKey computes the idempotency key for a record. An explicit external
// id wins; otherwise the key is the normalized title plus address, falling
// back to the coordinates when no address is present. Dry-run classification
// and live upserts both go through this function so they cannot diverge.
func ListingKey(rec *ListingRecord) string {
	if rec.ExternalID != "" {
		return "id:" + normalizeKeyPart(rec.ExternalID)
	}
	title := normalizeKeyPart(rec.Title)
	if rec.Address != "" {
		return title + "|" + normalizeKeyPart(rec.Address)
	}
	return fmt.Sprintf("%s|%.6f,%.6f", title, rec.Lat, rec.Lng)
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ToListing converts a parsed record into the persistence model, with empty
// optional fields stored as NULL.
func (rec *ListingRecord) ToListing(key string) *models.Listing {
	return &models.Listing{
		ImportKey:   key,
		Title:       rec.Title,
		Lat:         rec.Lat,
		Lng:         rec.Lng,
		ExternalID:  optionalString(rec.ExternalID),
		Category:    optionalString(rec.Category),
		Area:        optionalString(rec.Area),
		Address:     optionalString(rec.Address),
		Phone:       optionalString(rec.Phone),
		Website:     optionalString(rec.Website),
		Description: optionalString(rec.Description),
	}
}

func optionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
