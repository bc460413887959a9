package feed

import (
	"time"
)

// Item is one entry parsed from a feed document, normalized for ingestion.
// It only lives for the duration of one parse-classify-persist cycle.
type Item struct {
	GUID        string // feed-provided unique token, falls back to Link
	Title       string
	Link        string
	Description string // raw markup as delivered by the feed
	PublishedAt *time.Time
	ImageURL    string
}
