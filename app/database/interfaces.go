package database

type SourceRepository interface {
	GetEnabledSources() ([]Source, error)
	GetSources() ([]Source, error)
	GetSource(id string) (*Source, error)
	GetSourceCount() (int, error)

	UpsertSource(name, feedURL, countryDefault string, enabled bool) (string, error)
	UpdateSource(id, name, feedURL, countryDefault string, enabled bool) error
	DeleteSource(id string) error
}

type ListingRepository interface {
	CheckDuplicate(sourceID, guid string) (bool, error)
	CheckDuplicateURL(url string) (bool, error)

	InsertListing(l NewListing) (string, error)

	GetListings(f ListingFilter) ([]Listing, error)
	GetListing(id string) (*Listing, error)
	GetListingCount() (int, error)
	GetListingStats() (total, approved, pending int, err error)

	UpdateListingStatus(id, status string) error

	GetListingsForReclassify(limit int) ([]Listing, error)
	UpdateListingTags(id, modelTag, variantTag string, yearFrom, yearTo *int) error

	GetListingsForEnrichment(limit int) ([]Listing, error)
	UpdateListingDescription(id, description string) error
}

type RoleRepository interface {
	HasRole(userID, role string) (bool, error)
}
