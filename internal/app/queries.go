package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// GetListingStats aggregates in memory over the listing's reviews. Zero
// reviews still yields a stats object with average 0 and empty maps.
func (s *QueryService) GetListingStats(ctx context.Context, listingID string) (domain.AggregateStats, error) {
	key := "stats:" + listingID
	var stats domain.AggregateStats
	if ok, _ := s.cache.Get(ctx, key, &stats); ok {
		return stats, nil
	}

	if _, err := s.repo.GetListing(ctx, listingID); err != nil {
		return domain.AggregateStats{}, err
	}
	reviews, err := s.repo.ListReviewsByListing(ctx, listingID)
	if err != nil {
		return domain.AggregateStats{}, err
	}
	stats = ComputeStats(reviews)

	if err := s.cache.Set(ctx, key, stats, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
	return stats, nil
}

// ListingsPage is the joined result of the concurrent count and row queries.
type ListingsPage struct {
	Items []domain.ListingWithStats `json:"items"`
	Total int                       `json:"total"`
}

// QueryListings runs the push-down aggregation plan. The count query and the
// row query have no ordering dependency, so they run concurrently and join
// before responding.
func (s *QueryService) QueryListings(ctx context.Context, q domain.ListingQuery) (ListingsPage, error) {
	q = normalizeQuery(q)
	key := CacheKey("listings", queryParams(q))

	var page ListingsPage
	if ok, _ := s.cache.Get(ctx, key, &page); ok {
		return page, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	var items []domain.ListingWithStats
	var total int
	g.Go(func() error {
		var err error
		items, err = s.repo.QueryListingsWithAggregates(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountListings(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return ListingsPage{}, err
	}

	page = ListingsPage{Items: items, Total: total}
	if err := s.cache.Set(ctx, key, page, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("listings cache write failed")
	}
	return page, nil
}

// normalizeQuery applies defaults so that equivalent queries expressed
// differently produce identical plans and cache keys.
func normalizeQuery(q domain.ListingQuery) domain.ListingQuery {
	if q.Sort != domain.SortAsc {
		q.Sort = domain.SortDesc
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.MinReviews < 0 {
		q.MinReviews = 0
	}
	return q
}

func queryParams(q domain.ListingQuery) map[string]string {
	p := map[string]string{
		"minReviews": strconv.Itoa(q.MinReviews),
		"sort":       string(q.Sort),
		"limit":      strconv.Itoa(q.Limit),
		"offset":     strconv.Itoa(q.Offset),
	}
	if q.MinRating != nil {
		p["minRating"] = fmt.Sprintf("%.2f", *q.MinRating)
	}
	if q.MaxRating != nil {
		p["maxRating"] = fmt.Sprintf("%.2f", *q.MaxRating)
	}
	if len(q.Channels) > 0 {
		chans := make([]string, len(q.Channels))
		for i, c := range q.Channels {
			chans[i] = string(c)
		}
		sort.Strings(chans)
		p["channels"] = strings.Join(chans, ",")
	}
	return p
}
