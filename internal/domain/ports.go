package domain

import "context"

type ReviewRepository interface {
	// Write paths
	InsertReview(ctx context.Context, r Review) (Review, error)
	UpdateReviewStatus(ctx context.Context, id string, status Status, approverRef string) (Review, error)
	InsertListing(ctx context.Context, l Listing) (Listing, error)
	LogIngestRun(ctx context.Context, run IngestRun) error

	// Read paths
	FindReviewByExternalID(ctx context.Context, externalID string) (*Review, error)
	FindListingBySlug(ctx context.Context, slug string) (*Listing, error)
	FindListingByExternalID(ctx context.Context, externalID string) (*Listing, error)
	GetListing(ctx context.Context, id string) (Listing, error)
	ListReviewsByListing(ctx context.Context, listingID string) ([]Review, error)
	QueryListingsWithAggregates(ctx context.Context, q ListingQuery) ([]ListingWithStats, error)
	CountListings(ctx context.Context, q ListingQuery) (int, error)
}

// HostawayClient is the property-management API.
type HostawayClient interface {
	FetchReviews(ctx context.Context, listingID string) ([]HostawayReview, error)
}

// PlacesClient is the Google Places API. Details payloads carry at most five
// reviews; that cap is the provider's, not ours.
type PlacesClient interface {
	Search(ctx context.Context, query string, geo *GeoFilter) ([]RawPlace, error)
	FetchDetails(ctx context.Context, placeID string) (PlaceDetails, error)
}

// BusinessClient is the Google Business Profile API (paged reviews, bearer
// token with one-shot refresh on 401).
type BusinessClient interface {
	FetchReviews(ctx context.Context, locationRef string) ([]BusinessReview, error)
}

// GeoFilter optionally biases a place search.
type GeoFilter struct {
	Lat, Lng float64
	RadiusM  int
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}
