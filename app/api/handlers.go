package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Autilos/r107-garage-hub/app/auth"
	"github.com/Autilos/r107-garage-hub/app/database"
)

func NewHandler(authorizer AuthorizerInterface, identity auth.IdentityClient,
	pipeline PipelineInterface, reclassifier ReclassifierInterface,
	sourceRepo database.SourceRepository, listingRepo database.ListingRepository) *Handler {
	return &Handler{
		authorizer:   authorizer,
		identity:     identity,
		pipeline:     pipeline,
		reclassifier: reclassifier,
		sourceRepo:   sourceRepo,
		listingRepo:  listingRepo,
	}
}

// RunIngest triggers one ingestion pass. Accessible to the scheduler via the
// shared secret header or to an administrator via bearer token.
func (h *Handler) RunIngest(c *gin.Context) {
	stats, err := h.pipeline.Run(c.Request.Context())
	if err != nil {
		slog.Error("Ingestion run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": stats,
	})
}

// RunReprocess re-runs model extraction over existing listings
func (h *Handler) RunReprocess(c *gin.Context) {
	stats, err := h.reclassifier.Run(c.Request.Context())
	if err != nil {
		slog.Error("Reclassification run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": stats,
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if count, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = count
	}
	if count, err := h.listingRepo.GetListingCount(); err == nil {
		health["listings"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, approved, pending, err := h.listingRepo.GetListingStats()
	if err != nil {
		slog.Error("Database error", "operation", "listing_stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sourceCount, err := h.sourceRepo.GetSourceCount()
	if err != nil {
		slog.Error("Database error", "operation", "source_count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sourceCount,
		"listings": gin.H{
			"total":    total,
			"approved": approved,
			"pending":  pending,
		},
	})
}

// ListListings serves the public listings page: approved records only
func (h *Handler) ListListings(c *gin.Context) {
	filter := database.ListingFilter{
		Status:   "approved",
		Category: c.Query("category"),
		Country:  c.Query("country"),
	}

	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	listings, err := h.listingRepo.GetListings(filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_listings", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": toListingResponses(listings)})
}

func (h *Handler) GetListing(c *gin.Context) {
	listing, err := h.listingRepo.GetListing(c.Param("id"))
	if err != nil {
		slog.Error("Database error", "operation", "get_listing", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if listing == nil || listing.Status != "approved" {
		c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		return
	}

	c.JSON(http.StatusOK, toListingResponse(*listing))
}

type submitListingRequest struct {
	Category    string   `json:"category" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Currency    string   `json:"currency"`
	Country     string   `json:"country"`
	URL         string   `json:"url"`
	ImageURL    string   `json:"image_url"`
	PhoneNumber string   `json:"phone_number"`
}

// SubmitListing accepts a user-submitted listing. It always enters the
// moderation queue as pending regardless of caller role.
func (h *Handler) SubmitListing(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	userID, err := h.identity.GetUserID(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var req submitListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Category != "vehicle" && req.Category != "part" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category must be 'vehicle' or 'part'"})
		return
	}
	switch req.Currency {
	case "", "PLN", "EUR", "USD":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency must be PLN, EUR or USD"})
		return
	}

	id, err := h.listingRepo.InsertListing(database.NewListing{
		Category:    req.Category,
		Status:      "pending",
		SourceType:  "user",
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Country:     req.Country,
		URL:         req.URL,
		ImageURL:    req.ImageURL,
		PhoneNumber: req.PhoneNumber,
		UserID:      &userID,
	})
	if err != nil {
		slog.Error("Database error", "operation", "insert_listing", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "status": "pending"})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateListingStatus is the moderation action: approve, reject or archive
func (h *Handler) UpdateListingStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Status {
	case "pending", "approved", "rejected", "archived":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	err := h.listingRepo.UpdateListingStatus(c.Param("id"), req.Status)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		slog.Error("Database error", "operation", "update_listing_status", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": req.Status})
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.GetSources()
	if err != nil {
		slog.Error("Database error", "operation", "get_sources", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]gin.H, 0, len(sources))
	for _, s := range sources {
		out = append(out, gin.H{
			"id":              s.ID,
			"name":            s.Name,
			"feed_url":        s.FeedURL,
			"enabled":         s.Enabled,
			"country_default": s.CountryDefault,
			"created_at":      s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"sources": out})
}

type sourceRequest struct {
	Name    string `json:"name" binding:"required"`
	FeedURL string `json:"feed_url" binding:"required"`
	Country string `json:"country"`
	Enabled *bool  `json:"enabled"`
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	id, err := h.sourceRepo.UpsertSource(req.Name, req.FeedURL, req.Country, enabled)
	if err != nil {
		slog.Error("Database error", "operation", "create_source", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) UpdateSource(c *gin.Context) {
	var req sourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	err := h.sourceRepo.UpdateSource(c.Param("id"), req.Name, req.FeedURL, req.Country, enabled)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source not found"})
			return
		}
		slog.Error("Database error", "operation", "update_source", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *Handler) DeleteSource(c *gin.Context) {
	if err := h.sourceRepo.DeleteSource(c.Param("id")); err != nil {
		slog.Error("Database error", "operation", "delete_source", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusNoContent)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type listingResponse struct {
	ID          string     `json:"id"`
	Category    string     `json:"category"`
	Status      string     `json:"status"`
	SourceType  string     `json:"source_type"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Country     string     `json:"country,omitempty"`
	URL         string     `json:"url,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	ModelTag    string     `json:"model_tag,omitempty"`
	VariantTag  string     `json:"variant_tag,omitempty"`
	YearFrom    *int       `json:"year_from,omitempty"`
	YearTo      *int       `json:"year_to,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toListingResponse(l database.Listing) listingResponse {
	return listingResponse{
		ID:          l.ID,
		Category:    l.Category,
		Status:      l.Status,
		SourceType:  l.SourceType,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Currency:    l.Currency,
		Country:     l.Country,
		URL:         l.URL,
		ImageURL:    l.ImageURL,
		ModelTag:    l.ModelTag,
		VariantTag:  l.VariantTag,
		YearFrom:    l.YearFrom,
		YearTo:      l.YearTo,
		PublishedAt: l.PublishedAt,
		CreatedAt:   l.CreatedAt,
	}
}

func toListingResponses(listings []database.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	return out
}
