// Package normalize maps raw provider payloads into the canonical Review
// record. Every function here is pure and deterministic: the same payload
// always yields the same Review (including its ExternalID), so re-running an
// import never creates duplicates.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

// Google star ratings (1-5) are doubled onto the canonical 0-10 scale so one
// scale flows through aggregation. Hostaway and manual ratings are already
// 0-10 and pass through untouched.
const googleScale = 2.0

var starRatings = map[string]float64{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// Hostaway maps one property-API review item.
func Hostaway(item domain.HostawayReview) (domain.Review, error) {
	ref := fmt.Sprintf("hostaway:%d", item.ID)

	submitted, err := ParseTimestamp(item.SubmittedAt)
	if err != nil {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: err.Error()}
	}

	rating := item.Rating
	if rating == nil && len(item.Categories) > 0 {
		rating = categoryMean(item.Categories)
	}

	extra := item.Extra
	if extra == nil {
		extra = HostawayExtras(item.Raw)
	}
	meta := cloneMeta(extra)
	meta["type"] = item.Type
	meta["channelName"] = item.Channel
	meta["listingName"] = item.ListingName
	meta["providerStatus"] = item.Status

	return domain.Review{
		ExternalID:  fmt.Sprintf("%s-%d-%d", domain.SourceHostaway, item.ListingID, item.ID),
		Source:      domain.SourceHostaway,
		GuestName:   item.GuestName,
		Comment:     item.PublicText,
		Rating:      rating,
		Status:      domain.StatusPending,
		SubmittedAt: submitted,
		Metadata:    meta,
		Raw:         item.Raw,
	}, nil
}

// Places maps one of the at-most-five reviews a details call returns.
// placeID keys the ExternalID; the review timestamp disambiguates items
// within one place.
func Places(placeID string, item domain.PlacesReview) (domain.Review, error) {
	ref := fmt.Sprintf("google_places:%s:%d", placeID, item.Time)

	if item.Time <= 0 {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: "missing review time"}
	}
	submitted := time.Unix(item.Time, 0).UTC()

	var rating *float64
	if item.Rating > 0 {
		r := item.Rating * googleScale
		rating = &r
	}

	extra := item.Extra
	if extra == nil {
		extra = PlacesExtras(item.Raw)
	}
	meta := cloneMeta(extra)
	meta["authorUrl"] = item.AuthorURL
	meta["language"] = item.Language
	meta["relativeTimeDescription"] = item.RelativeTimeDesc
	meta["placeId"] = placeID

	return domain.Review{
		ExternalID:  fmt.Sprintf("%s-%s-%d", domain.SourceGooglePlaces, placeID, item.Time),
		Source:      domain.SourceGooglePlaces,
		GuestName:   item.AuthorName,
		Comment:     item.Text,
		Rating:      rating,
		Status:      domain.StatusPending,
		SubmittedAt: submitted,
		Metadata:    meta,
		Raw:         item.Raw,
	}, nil
}

// Business maps one Business Profile review. StarRating arrives as an enum
// word (ONE..FIVE).
func Business(locationRef string, item domain.BusinessReview) (domain.Review, error) {
	ref := fmt.Sprintf("google_business:%s:%s", locationRef, item.ReviewID)

	if item.ReviewID == "" {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: "missing reviewId"}
	}
	submitted, err := ParseTimestamp(item.CreateTime)
	if err != nil {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: err.Error()}
	}

	var rating *float64
	if stars, ok := starRatings[strings.ToUpper(item.StarRating)]; ok {
		r := stars * googleScale
		rating = &r
	}

	extra := item.Extra
	if extra == nil {
		extra = BusinessExtras(item.Raw)
	}

	// the v4 API nests the owner reply under reviewReply.comment; older
	// payloads carry it flat as replyComment
	reply := item.ReplyText
	if reply == "" && len(item.Raw) > 0 {
		var m map[string]any
		if err := json.Unmarshal(item.Raw, &m); err == nil {
			reply = LookupStr(m, "reviewReply.comment")
		}
	}

	meta := cloneMeta(extra)
	meta["locationRef"] = locationRef
	meta["updateTime"] = item.UpdateTime
	if reply != "" {
		meta["replyComment"] = reply
	}

	return domain.Review{
		ExternalID:  fmt.Sprintf("%s-%s-%s", domain.SourceGoogleBusiness, locationRef, item.ReviewID),
		Source:      domain.SourceGoogleBusiness,
		GuestName:   item.Reviewer,
		Comment:     item.Comment,
		Rating:      rating,
		Status:      domain.StatusPending,
		SubmittedAt: submitted,
		Metadata:    meta,
		Raw:         item.Raw,
	}, nil
}

// Manual maps an operator-entered review. Rating is already canonical.
func Manual(in domain.ManualReviewInput) (domain.Review, error) {
	ref := fmt.Sprintf("manual:%s", in.ListingID)

	if in.ListingID == "" {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: "missing listingId"}
	}
	submitted := time.Now().UTC()
	if in.SubmittedAt != "" {
		t, err := ParseTimestamp(in.SubmittedAt)
		if err != nil {
			return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: err.Error()}
		}
		submitted = t
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 10) {
		return domain.Review{}, &domain.NormalizationError{Ref: ref, Message: "rating out of 0-10 range"}
	}

	lid := in.ListingID
	return domain.Review{
		ExternalID:  fmt.Sprintf("%s-%s-%d", domain.SourceManual, in.ListingID, submitted.Unix()),
		Source:      domain.SourceManual,
		ListingID:   &lid,
		GuestName:   in.GuestName,
		Comment:     in.Comment,
		Rating:      in.Rating,
		Status:      domain.StatusPending,
		SubmittedAt: submitted,
		Metadata:    cloneMeta(in.Metadata),
	}, nil
}

// categoryMean is the arithmetic mean of category ratings rounded to one
// decimal place.
func categoryMean(cats []domain.HostawayCategory) *float64 {
	if len(cats) == 0 {
		return nil
	}
	var sum float64
	for _, c := range cats {
		sum += c.Rating
	}
	m := math.Round(sum/float64(len(cats))*10) / 10
	return &m
}

// ParseTimestamp accepts unix epoch seconds, RFC3339/ISO-8601, or
// "2006-01-02 15:04:05" and returns UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs <= 0 {
			return time.Time{}, fmt.Errorf("non-positive epoch %q", s)
		}
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func cloneMeta(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+4)
	for k, v := range in {
		out[k] = v
	}
	return out
}
