package app

import (
	"math"
	"time"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

// ComputeStats aggregates an already-materialized review set for one listing.
// It must produce the same numbers as the push-down query in storage/mysql:
// averages are over rated reviews only and rounded to two decimals, unrated
// reviews count toward totals but no rating bucket, and an empty set yields
// average 0 with empty maps rather than an absent stats object.
func ComputeStats(reviews []domain.Review) domain.AggregateStats {
	stats := domain.AggregateStats{
		RatingBreakdown:  map[int]int{},
		ChannelBreakdown: map[string]int{},
	}

	var sum float64
	var rated int
	var last *time.Time

	for _, r := range reviews {
		stats.TotalReviews++
		if r.Status == domain.StatusApproved {
			stats.ApprovedReviews++
		}
		stats.ChannelBreakdown[string(r.Source)]++

		if r.Rating != nil {
			rated++
			sum += *r.Rating
			if b := int(math.Floor(*r.Rating)); b >= 1 && b <= 10 {
				stats.RatingBreakdown[b]++
			}
		}

		if last == nil || r.SubmittedAt.After(*last) {
			t := r.SubmittedAt
			last = &t
		}
	}

	if rated > 0 {
		stats.AverageRating = math.Round(sum/float64(rated)*100) / 100
	}
	stats.LastReviewDate = last
	return stats
}
