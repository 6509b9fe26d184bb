package domain

import (
	"encoding/json"
	"time"
)

// Source identifies the external provider a review came from.
type Source string

const (
	SourceHostaway       Source = "hostaway"
	SourceGooglePlaces   Source = "google_places"
	SourceGoogleBusiness Source = "google_business"
	SourceManual         Source = "manual"
)

func (s Source) Valid() bool {
	switch s {
	case SourceHostaway, SourceGooglePlaces, SourceGoogleBusiness, SourceManual:
		return true
	}
	return false
}

// Status is the moderation state of a review.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Review is the canonical record every provider payload normalizes into.
// Rating is on the 0-10 scale; Google star ratings are doubled at
// normalization so a single scale flows through aggregation.
// Metadata preserves source-specific fields verbatim for audit/display and
// is never used for business logic.
type Review struct {
	ID          string          `json:"id"`
	ExternalID  string          `json:"externalId"` // {source}-{providerKey}-{timestampOrReviewID}, unique
	Source      Source          `json:"source"`
	ListingID   *string         `json:"listingId"`
	GuestName   string          `json:"guestName"`
	Comment     string          `json:"comment"`
	Rating      *float64        `json:"rating"` // nil when the source gave no rating at all
	Status      Status          `json:"status"`
	ApprovedBy  *string         `json:"approvedBy,omitempty"`
	SubmittedAt time.Time       `json:"submittedAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Raw         json.RawMessage `json:"-"` // full provider payload, audit only
}
