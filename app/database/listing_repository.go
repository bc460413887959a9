package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicateListing is returned by InsertListing when the unique index on
// (rss_source_id, rss_guid) rejects the row. A concurrent run already
// inserted the same item.
var ErrDuplicateListing = fmt.Errorf("listing already exists")

// ListingRepo handles database operations for listings
type ListingRepo struct {
	db *DB
}

var _ ListingRepository = (*ListingRepo)(nil)

func NewListingRepository(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

const listingColumns = `id, category, status, source_type, title,
	COALESCE(description, ''), price, COALESCE(currency, ''),
	COALESCE(country, ''), COALESCE(url, ''), COALESCE(image_url, ''),
	COALESCE(phone_number, ''), rss_source_id, COALESCE(rss_guid, ''),
	llm_ok, COALESCE(llm_reason, ''), COALESCE(model_tag, ''),
	COALESCE(variant_tag, ''), year_from, year_to, user_id,
	published_at, created_at`

func scanListing(row interface{ Scan(dest ...any) error }) (*Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID, &l.Category, &l.Status, &l.SourceType, &l.Title,
		&l.Description, &l.Price, &l.Currency,
		&l.Country, &l.URL, &l.ImageURL,
		&l.PhoneNumber, &l.SourceID, &l.FeedGUID,
		&l.LLMOk, &l.LLMReason, &l.ModelTag,
		&l.VariantTag, &l.YearFrom, &l.YearTo, &l.UserID,
		&l.PublishedAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CheckDuplicate reports whether a listing ingested from the given source
// already carries the given feed GUID
func (r *ListingRepo) CheckDuplicate(sourceID, guid string) (bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM listings
		WHERE rss_source_id = $1 AND rss_guid = $2
		LIMIT 1
	`, sourceID, guid).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	return true, nil
}

// CheckDuplicateURL reports whether any listing already points at the URL
func (r *ListingRepo) CheckDuplicateURL(url string) (bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM listings
		WHERE url = $1
		LIMIT 1
	`, url).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate URL: %w", err)
	}

	return true, nil
}

func (r *ListingRepo) InsertListing(l NewListing) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO listings (
			category, status, source_type, title, description,
			price, currency, country, url, image_url, phone_number,
			rss_source_id, rss_guid, llm_ok, llm_reason,
			model_tag, variant_tag, year_from, year_to,
			user_id, published_at
		) VALUES (
			$1, $2, $3, $4, NULLIF($5, ''),
			$6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
			$12, NULLIF($13, ''), $14, NULLIF($15, ''),
			NULLIF($16, ''), NULLIF($17, ''), $18, $19,
			$20, $21
		)
		RETURNING id
	`, l.Category, l.Status, l.SourceType, l.Title, l.Description,
		l.Price, l.Currency, l.Country, l.URL, l.ImageURL, l.PhoneNumber,
		l.SourceID, l.FeedGUID, l.LLMOk, l.LLMReason,
		l.ModelTag, l.VariantTag, l.YearFrom, l.YearTo,
		l.UserID, l.PublishedAt).Scan(&id)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", ErrDuplicateListing
		}
		return "", fmt.Errorf("failed to insert listing: %w", err)
	}

	return id, nil
}

func (r *ListingRepo) GetListings(f ListingFilter) ([]Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		query += fmt.Sprintf(" AND country = $%d", len(args))
	}

	query += " ORDER BY COALESCE(published_at, created_at) DESC"

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]Listing, error) {
	var listings []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}
		listings = append(listings, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}

	return listings, nil
}

func (r *ListingRepo) GetListing(id string) (*Listing, error) {
	row := r.db.QueryRow(`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return l, nil
}

func (r *ListingRepo) GetListingCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM listings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get listing count: %w", err)
	}
	return count, nil
}

func (r *ListingRepo) GetListingStats() (total, approved, pending int, err error) {
	err = r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) as approved,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) as pending
		FROM listings
	`).Scan(&total, &approved, &pending)

	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get listing stats: %w", err)
	}

	return total, approved, pending, nil
}

func (r *ListingRepo) UpdateListingStatus(id, status string) error {
	result, err := r.db.Exec(`
		UPDATE listings
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update listing status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetListingsForReclassify returns feed-ingested listings ordered newest
// first, for re-running model extraction over existing rows
func (r *ListingRepo) GetListingsForReclassify(limit int) ([]Listing, error) {
	rows, err := r.db.Query(`
		SELECT `+listingColumns+`
		FROM listings
		WHERE source_type = 'rss'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings for reclassification: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

func (r *ListingRepo) UpdateListingTags(id, modelTag, variantTag string, yearFrom, yearTo *int) error {
	_, err := r.db.Exec(`
		UPDATE listings
		SET model_tag = NULLIF($2, ''), variant_tag = NULLIF($3, ''),
		    year_from = $4, year_to = $5
		WHERE id = $1
	`, id, modelTag, variantTag, yearFrom, yearTo)
	if err != nil {
		return fmt.Errorf("failed to update listing tags: %w", err)
	}
	return nil
}

// GetListingsForEnrichment returns feed-ingested listings with an URL but no
// stored description
func (r *ListingRepo) GetListingsForEnrichment(limit int) ([]Listing, error) {
	rows, err := r.db.Query(`
		SELECT `+listingColumns+`
		FROM listings
		WHERE source_type = 'rss'
		  AND url IS NOT NULL
		  AND (description IS NULL OR description = '')
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings for enrichment: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

func (r *ListingRepo) UpdateListingDescription(id, description string) error {
	_, err := r.db.Exec(`
		UPDATE listings
		SET description = NULLIF($2, '')
		WHERE id = $1
	`, id, description)
	if err != nil {
		return fmt.Errorf("failed to update listing description: %w", err)
	}
	return nil
}
