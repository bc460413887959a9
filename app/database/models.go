package database

import (
	"time"
)

// Source represents a configured RSS feed origin
type Source struct {
	ID             string
	Name           string
	FeedURL        string
	Enabled        bool
	CountryDefault string
	CreatedAt      time.Time
}

// Listing represents a classified record, either ingested from a feed or
// submitted by a user
type Listing struct {
	ID          string
	Category    string // vehicle, part
	Status      string // pending, approved, rejected, archived
	SourceType  string // rss, user
	Title       string
	Description string
	Price       *float64
	Currency    string
	Country     string
	URL         string
	ImageURL    string
	PhoneNumber string
	SourceID    *string // rss_source_id, nil for user listings
	FeedGUID    string  // rss_guid, empty for user listings
	LLMOk       *bool
	LLMReason   string
	ModelTag    string
	VariantTag  string
	YearFrom    *int
	YearTo      *int
	UserID      *string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// NewListing is the insert payload for a listing row. Fields the database
// fills in (id, created_at) are absent.
type NewListing struct {
	Category    string
	Status      string
	SourceType  string
	Title       string
	Description string
	Price       *float64
	Currency    string
	Country     string
	URL         string
	ImageURL    string
	PhoneNumber string
	SourceID    *string
	FeedGUID    string
	LLMOk       *bool
	LLMReason   string
	ModelTag    string
	VariantTag  string
	YearFrom    *int
	YearTo      *int
	UserID      *string
	PublishedAt *time.Time
}

// ListingFilter narrows public listing queries
type ListingFilter struct {
	Status   string
	Category string
	Country  string
	Limit    int
	Offset   int
}
