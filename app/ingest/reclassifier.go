package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Autilos/r107-garage-hub/app/database"
)

const reclassifyBatchSize = 200

// Reclassifier re-runs model extraction over already ingested listings,
// refreshing model/variant tags and year ranges. Admission decisions are
// not revisited.
type Reclassifier struct {
	listingRepo database.ListingRepository
	classifier  Classifier
}

func NewReclassifier(listingRepo database.ListingRepository, classifier Classifier) *Reclassifier {
	return &Reclassifier{
		listingRepo: listingRepo,
		classifier:  classifier,
	}
}

// ReclassifyStats summarizes one reclassification run
type ReclassifyStats struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

func (r *Reclassifier) Run(ctx context.Context) (*ReclassifyStats, error) {
	listings, err := r.listingRepo.GetListingsForReclassify(reclassifyBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}

	slog.Info("Starting reclassification run", "listings", len(listings))
	startTime := time.Now()

	stats := &ReclassifyStats{}

	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Processed++

		result, err := r.classifier.Run(ctx, listing.Title, listing.Description)
		if err != nil {
			slog.Error("Reclassification failed", "listing_id", listing.ID, "error", err)
			stats.Errors++
			continue
		}

		modelTag := ""
		if result.ModelTag != nil {
			modelTag = *result.ModelTag
		}
		variantTag := ""
		if result.VariantTag != nil {
			variantTag = *result.VariantTag
		}

		unchanged := modelTag == listing.ModelTag &&
			variantTag == listing.VariantTag &&
			intPtrEqual(result.YearFrom, listing.YearFrom) &&
			intPtrEqual(result.YearTo, listing.YearTo)
		if unchanged {
			continue
		}

		err = r.listingRepo.UpdateListingTags(listing.ID, modelTag, variantTag, result.YearFrom, result.YearTo)
		if err != nil {
			slog.Error("Tag update failed", "listing_id", listing.ID, "error", err)
			stats.Errors++
			continue
		}

		slog.Info("Listing tags updated", "listing_id", listing.ID,
			"old_model", listing.ModelTag, "new_model", modelTag)
		stats.Updated++
	}

	slog.Info("Reclassification run completed",
		"duration", time.Since(startTime),
		"processed", stats.Processed,
		"updated", stats.Updated,
		"errors", stats.Errors)

	return stats, nil
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
