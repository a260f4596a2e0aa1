package services

import "testing"

func TestParseListingRow(t *testing.T) {
	headers := NormalizeHeaders([]string{"Title", "LAT", "lng", "Category", "Address", "notes"})

	tests := []struct {
		name    string
		row     []string
		rowNum  int
		wantErr string
	}{
		{
			name:   "valid row",
			row:    []string{"Alpha Cafe", "13.73", "100.52", "Cafe", "1 Main St", "ignored"},
			rowNum: 1,
		},
		{
			name:    "missing title",
			row:     []string{"", "13.73", "100.52", "Cafe", "", ""},
			rowNum:  5,
			wantErr: "Row 5: Missing required fields (title, lat, lng)",
		},
		{
			name:    "missing coordinates",
			row:     []string{"Alpha Cafe", "", "", "", "", ""},
			rowNum:  2,
			wantErr: "Row 2: Missing required fields (title, lat, lng)",
		},
		{
			name:    "non-numeric coordinates",
			row:     []string{"Alpha Cafe", "north", "east", "", "", ""},
			rowNum:  3,
			wantErr: "Row 3: Invalid coordinates",
		},
		{
			name:   "short row",
			row:    []string{"Alpha Cafe", "13.73", "100.52"},
			rowNum: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, errMsg := ParseListingRow(headers, tt.row, tt.rowNum)
			if errMsg != tt.wantErr {
				t.Fatalf("error = %q, want %q", errMsg, tt.wantErr)
			}
			if tt.wantErr == "" && rec == nil {
				t.Fatalf("valid row returned nil record")
			}
			if tt.wantErr != "" && rec != nil {
				t.Fatalf("invalid row returned a record")
			}
		})
	}
}

func TestParseListingRowAliases(t *testing.T) {
	headers := NormalizeHeaders([]string{"name", "latitude", "longitude", "region", "url"})
	rec, errMsg := ParseListingRow(headers, []string{"Beta Bistro", "13.7", "100.5", "Downtown", "https://beta.example"}, 1)
	if errMsg != "" {
		t.Fatalf("aliased headers rejected: %s", errMsg)
	}
	if rec.Title != "Beta Bistro" || rec.Lat != 13.7 || rec.Lng != 100.5 {
		t.Fatalf("aliased fields not mapped: %+v", rec)
	}
	if rec.Area != "Downtown" || rec.Website != "https://beta.example" {
		t.Fatalf("optional aliases not mapped: %+v", rec)
	}
}

func TestHasRequiredColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   bool
	}{
		{"canonical", []string{"title", "lat", "lng"}, true},
		{"aliased", []string{"Name", "Latitude", "Longitude"}, true},
		{"missing coordinates", []string{"title", "category"}, false},
		{"missing title", []string{"lat", "lng"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRequiredColumns(NormalizeHeaders(tt.header)); got != tt.want {
				t.Fatalf("HasRequiredColumns = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListingKey(t *testing.T) {
	withID := &ListingRecord{ExternalID: "EXT-9", Title: "Alpha", Lat: 1, Lng: 2}
	if got := ListingKey(withID); got != "id:ext-9" {
		t.Fatalf("external id key = %q", got)
	}

	withAddress := &ListingRecord{Title: "  Alpha   Cafe ", Address: "1  Main St", Lat: 1, Lng: 2}
	if got := ListingKey(withAddress); got != "alpha cafe|1 main st" {
		t.Fatalf("title+address key = %q", got)
	}

	coordsOnly := &ListingRecord{Title: "Alpha Cafe", Lat: 13.73, Lng: 100.52}
	if got := ListingKey(coordsOnly); got != "alpha cafe|13.730000,100.520000" {
		t.Fatalf("title+coords key = %q", got)
	}

	// The same row must always map to the same key regardless of spacing
	// and case, or dry-run and live classification would diverge.
	variant := &ListingRecord{Title: "ALPHA CAFE", Address: "1 MAIN ST", Lat: 1, Lng: 2}
	if ListingKey(withAddress) != ListingKey(variant) {
		t.Fatalf("normalization is not stable: %q vs %q", ListingKey(withAddress), ListingKey(variant))
	}
}
