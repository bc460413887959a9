package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Autilos/r107-garage-hub/app/cfg"
	"github.com/Autilos/r107-garage-hub/app/classify"
	"github.com/Autilos/r107-garage-hub/app/database"
	"github.com/Autilos/r107-garage-hub/app/feed"
)

// Pipeline runs one ingestion pass: load enabled sources, fetch and parse
// each feed, then dedupe, classify and persist items strictly in order.
type Pipeline struct {
	sourceRepo  database.SourceRepository
	listingRepo database.ListingRepository
	parser      *feed.Parser
	classifier  Classifier
	httpClient  *http.Client

	userAgent        string
	feedTimeout      time.Duration
	descriptionLimit int
}

func NewPipeline(sourceRepo database.SourceRepository, listingRepo database.ListingRepository,
	parser *feed.Parser, classifier Classifier, httpClient *http.Client) *Pipeline {
	c := cfg.Get()

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: time.Duration(c.FeedTimeout) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 5,
			},
		}
	}

	return &Pipeline{
		sourceRepo:       sourceRepo,
		listingRepo:      listingRepo,
		parser:           parser,
		classifier:       classifier,
		httpClient:       httpClient,
		userAgent:        c.UserAgent,
		feedTimeout:      time.Duration(c.FeedTimeout) * time.Second,
		descriptionLimit: c.DescriptionLimit,
	}
}

// Run executes a single ingestion pass. Failure to load sources is fatal;
// per-source and per-item failures are absorbed into the error counter.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	sources, err := p.sourceRepo.GetEnabledSources()
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	slog.Info("Starting ingestion run", "sources", len(sources))
	startTime := time.Now()

	stats := &Stats{}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := p.processSource(ctx, source, stats); err != nil {
			slog.Error("Source processing failed", "source", source.Name, "error", err)
			stats.Errors++
		}
	}

	slog.Info("Ingestion run completed",
		"duration", time.Since(startTime),
		"processed", stats.Processed,
		"allowed", stats.Allowed,
		"rejected", stats.Rejected,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors)

	return stats, nil
}

// processSource fetches and parses one feed, then walks its items. A fetch
// or parse failure aborts only this source.
func (p *Pipeline) processSource(ctx context.Context, source database.Source, stats *Stats) error {
	if source.FeedURL == "" {
		return fmt.Errorf("missing feed URL")
	}

	slog.Info("Processing source", "source", source.Name, "url", source.FeedURL)

	data, err := p.fetchFeed(ctx, source.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	items, err := p.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	slog.Debug("Parsed feed", "source", source.Name, "items", len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.processItem(ctx, source, item, stats)
	}

	return nil
}

// processItem walks one item through dedupe, classification and persistence.
// Every outcome is terminal for the item; failures only bump counters.
func (p *Pipeline) processItem(ctx context.Context, source database.Source, item feed.Item, stats *Stats) {
	stats.Processed++

	isDup, err := p.listingRepo.CheckDuplicate(source.ID, item.GUID)
	if err != nil {
		slog.Error("Duplicate check failed", "source", source.Name, "guid", item.GUID, "error", err)
		stats.Errors++
		return
	}
	if !isDup && item.Link != "" {
		isDup, err = p.listingRepo.CheckDuplicateURL(item.Link)
		if err != nil {
			slog.Error("URL duplicate check failed", "source", source.Name, "url", item.Link, "error", err)
			stats.Errors++
			return
		}
	}
	if isDup {
		slog.Debug("Duplicate found", "source", source.Name, "guid", item.GUID)
		stats.Duplicates++
		return
	}

	result, err := p.classifier.Run(ctx, item.Title, feed.StripHTML(item.Description))
	if err != nil {
		slog.Error("Classification failed", "source", source.Name, "title", item.Title, "error", err)
		stats.Errors++
		return
	}

	if !result.Allow {
		slog.Info("Rejected", "source", source.Name, "title", item.Title, "reason", result.Reason)
		stats.Rejected++
		return
	}

	slog.Info("Allowed", "source", source.Name, "title", item.Title,
		"reason", result.Reason, "price", result.Price, "currency", result.Currency)
	stats.Allowed++

	if _, err := p.listingRepo.InsertListing(p.buildListing(source, item, result)); err != nil {
		if errors.Is(err, database.ErrDuplicateListing) {
			// lost the race to a concurrent run
			slog.Debug("Insert hit unique index", "source", source.Name, "guid", item.GUID)
			stats.Duplicates++
			return
		}
		slog.Error("Insert failed", "source", source.Name, "title", item.Title, "error", err)
		stats.Errors++
	}
}

func (p *Pipeline) buildListing(source database.Source, item feed.Item, result *classify.Result) database.NewListing {
	country := source.CountryDefault
	if country == "" {
		country = "US"
	}

	currency := ""
	if result.Currency != nil {
		currency = *result.Currency
	} else {
		currency = DefaultCurrency(country)
	}

	ok := true
	listing := database.NewListing{
		Category:    result.Category,
		Status:      "approved", // classification already gated admission
		SourceType:  "rss",
		Title:       item.Title,
		Description: feed.Truncate(feed.StripHTML(item.Description), p.descriptionLimit),
		Price:       result.Price,
		Currency:    currency,
		Country:     country,
		URL:         item.Link,
		ImageURL:    item.ImageURL,
		SourceID:    &source.ID,
		FeedGUID:    item.GUID,
		LLMOk:       &ok,
		LLMReason:   result.Reason,
		PublishedAt: item.PublishedAt,
		YearFrom:    result.YearFrom,
		YearTo:      result.YearTo,
	}

	if result.ModelTag != nil {
		listing.ModelTag = *result.ModelTag
	}
	if result.VariantTag != nil {
		listing.VariantTag = *result.VariantTag
	}

	return listing
}

func (p *Pipeline) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.feedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	// any 2xx counts as success, some feed hosts answer 203 behind caches
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}

// DefaultCurrency maps a source's default country to the currency assumed
// when the classifier could not extract one from the ad text
func DefaultCurrency(country string) string {
	switch country {
	case "US":
		return "USD"
	case "PL":
		return "PLN"
	default:
		return "EUR"
	}
}
