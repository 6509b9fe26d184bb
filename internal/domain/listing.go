package domain

import "time"

// Listing is a rental property reviews attach to. Slug is unique and
// URL-safe; collisions on creation are resolved by suffix probing.
type Listing struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AggregateStats is derived per listing, never persisted as source of truth.
// A listing with zero reviews still gets a stats object: average 0, empty
// maps, nil last date.
type AggregateStats struct {
	TotalReviews     int            `json:"totalReviews"`
	ApprovedReviews  int            `json:"approvedReviews"`
	AverageRating    float64        `json:"averageRating"`
	RatingBreakdown  map[int]int    `json:"ratingBreakdown"`
	ChannelBreakdown map[string]int `json:"channelBreakdown"`
	LastReviewDate   *time.Time     `json:"lastReviewDate"`
}

// ListingWithStats is one row of the push-down aggregation query.
type ListingWithStats struct {
	Listing Listing        `json:"listing"`
	Stats   AggregateStats `json:"stats"`
}

// SortDir for listing queries.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ListingQuery is the explicit push-down plan: filter predicates plus sort
// spec the persistence layer renders into parameterized SQL. Channels is an
// allow-list applied to the review join before aggregation, so excluded
// channels never count.
type ListingQuery struct {
	MinReviews int
	MinRating  *float64
	MaxRating  *float64
	Channels   []Source
	Sort       SortDir
	Limit      int
	Offset     int
}
