package domain

import "encoding/json"

// Raw provider payload shapes. One tagged type per source, dispatched to the
// matching normalizer; Extra carries every field the typed columns do not so
// nothing the provider sent is lost.

// HostawayCategory is one category score on the 0-10 scale.
type HostawayCategory struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// HostawayReview is one review item from the property-management API.
type HostawayReview struct {
	ID          int64              `json:"id"`
	ListingID   int64              `json:"listingMapId"`
	ListingName string             `json:"listingName"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	Rating      *float64           `json:"rating"` // 0-10, may be absent
	Categories  []HostawayCategory `json:"reviewCategory"`
	GuestName   string             `json:"guestName"`
	PublicText  string             `json:"publicReview"`
	SubmittedAt string             `json:"submittedAt"` // "2006-01-02 15:04:05"
	Channel     string             `json:"channelName"`
	Extra       map[string]any     `json:"-"`
	Raw         json.RawMessage    `json:"-"`
}

// RawPlace is one result of a Places text search.
type RawPlace struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Address string  `json:"formatted_address"`
	Rating  float64 `json:"rating"`
	Total   int     `json:"user_ratings_total"`
}

// PlacesReview is one of the at-most-five reviews a Places details call
// returns. Time is unix epoch seconds; Rating is 1-5 stars.
type PlacesReview struct {
	AuthorName       string          `json:"author_name"`
	AuthorURL        string          `json:"author_url"`
	Language         string          `json:"language"`
	Rating           float64         `json:"rating"`
	Text             string          `json:"text"`
	Time             int64           `json:"time"`
	RelativeTimeDesc string          `json:"relative_time_description"`
	Extra            map[string]any  `json:"-"`
	Raw              json.RawMessage `json:"-"`
}

// PlaceDetails is a Places details payload with its embedded review cap.
type PlaceDetails struct {
	PlaceID string         `json:"place_id"`
	Name    string         `json:"name"`
	Rating  float64        `json:"rating"`
	Reviews []PlacesReview `json:"reviews"`
}

// BusinessReview is one Business Profile review. StarRating is an enum
// (ONE..FIVE); CreateTime is RFC3339.
type BusinessReview struct {
	ReviewID   string          `json:"reviewId"`
	Reviewer   string          `json:"reviewerDisplayName"`
	StarRating string          `json:"starRating"`
	Comment    string          `json:"comment"`
	CreateTime string          `json:"createTime"`
	UpdateTime string          `json:"updateTime"`
	ReplyText  string          `json:"replyComment"`
	Extra      map[string]any  `json:"-"`
	Raw        json.RawMessage `json:"-"`
}

// ManualReviewInput is a manually entered review. Rating is already on the
// canonical 0-10 scale.
type ManualReviewInput struct {
	ListingID   string         `json:"listingId"`
	GuestName   string         `json:"guestName"`
	Comment     string         `json:"comment"`
	Rating      *float64       `json:"rating"`
	SubmittedAt string         `json:"submittedAt"` // RFC3339 or "2006-01-02 15:04:05"
	Metadata    map[string]any `json:"metadata"`
}
