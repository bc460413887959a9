package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/feed"
)

const enrichBatchSize = 50

// EnrichContentTask backfills descriptions for approved listings whose feed
// item arrived without one, by extracting readable text from the listing page.
type EnrichContentTask struct {
	Task
	listingRepo      database.ListingRepository
	httpClient       *http.Client
	contentExtractor *feed.ContentExtractor
	userAgent        string
	fetchTimeout     time.Duration
	descriptionLimit int
}

func NewEnrichContentTask(listingRepo database.ListingRepository, httpClient *http.Client,
	contentExtractor *feed.ContentExtractor, userAgent string, fetchTimeout time.Duration,
	descriptionLimit int) *EnrichContentTask {
	return &EnrichContentTask{
		Task:             NewTask(TaskTypeEnrichContent),
		listingRepo:      listingRepo,
		httpClient:       httpClient,
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
		fetchTimeout:     fetchTimeout,
		descriptionLimit: descriptionLimit,
	}
}

func (t *EnrichContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	listings, err := t.listingRepo.GetListingsForEnrichment(enrichBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get listings for enrichment: %w", err)
	}

	if len(listings) == 0 {
		slog.Debug("No listings need content enrichment")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, listing := range listings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.enrichListing(ctx, listing); err != nil {
			slog.Error("Failed to enrich listing", "listing_id", listing.ID, "url", listing.URL, "error", err)
			errorCount++
		} else {
			successCount++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *EnrichContentTask) enrichListing(ctx context.Context, listing database.Listing) error {
	if listing.URL == "" {
		return fmt.Errorf("listing has no URL")
	}

	data, err := t.fetchPage(ctx, listing.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch listing page: %w", err)
	}

	text, err := t.contentExtractor.Run(data)
	if err != nil {
		return fmt.Errorf("failed to extract content: %w", err)
	}

	text = feed.Truncate(text, t.descriptionLimit)

	if err := t.listingRepo.UpdateListingDescription(listing.ID, text); err != nil {
		return fmt.Errorf("failed to update listing description: %w", err)
	}

	slog.Debug("Listing content enriched", "listing_id", listing.ID, "content_length", len(text))
	return nil
}

func (t *EnrichContentTask) fetchPage(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
