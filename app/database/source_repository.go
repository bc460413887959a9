package database

import (
	"database/sql"
	"fmt"
)

// SourceRepo handles database operations for RSS sources
type SourceRepo struct {
	db *DB
}

var _ SourceRepository = (*SourceRepo)(nil)

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

const sourceColumns = `id, name, feed_url, enabled, COALESCE(country_default, ''), created_at`

func (r *SourceRepo) scanSource(row interface{ Scan(dest ...any) error }) (*Source, error) {
	var s Source
	err := row.Scan(&s.ID, &s.Name, &s.FeedURL, &s.Enabled, &s.CountryDefault, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetEnabledSources returns all sources with enabled=true
func (r *SourceRepo) GetEnabledSources() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT ` + sourceColumns + `
		FROM rss_sources
		WHERE enabled = true
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled sources: %w", err)
	}
	defer rows.Close()

	return r.collectSources(rows)
}

// GetSources returns all sources regardless of enabled flag
func (r *SourceRepo) GetSources() ([]Source, error) {
	rows, err := r.db.Query(`
		SELECT ` + sourceColumns + `
		FROM rss_sources
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	return r.collectSources(rows)
}

func (r *SourceRepo) collectSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		s, err := r.scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepo) GetSource(id string) (*Source, error) {
	row := r.db.QueryRow(`
		SELECT `+sourceColumns+`
		FROM rss_sources
		WHERE id = $1
	`, id)

	s, err := r.scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return s, nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM rss_sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

// UpsertSource inserts a source or updates an existing one keyed by name.
// Used when registering sources from the seed file at startup.
func (r *SourceRepo) UpsertSource(name, feedURL, countryDefault string, enabled bool) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO rss_sources (name, feed_url, country_default, enabled)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = EXCLUDED.feed_url,
			country_default = EXCLUDED.country_default,
			enabled = EXCLUDED.enabled
		RETURNING id
	`, name, feedURL, countryDefault, enabled).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to upsert source: %w", err)
	}

	return id, nil
}

func (r *SourceRepo) UpdateSource(id, name, feedURL, countryDefault string, enabled bool) error {
	result, err := r.db.Exec(`
		UPDATE rss_sources
		SET name = $2, feed_url = $3, country_default = NULLIF($4, ''), enabled = $5
		WHERE id = $1
	`, id, name, feedURL, countryDefault, enabled)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
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

func (r *SourceRepo) DeleteSource(id string) error {
	_, err := r.db.Exec(`DELETE FROM rss_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}
