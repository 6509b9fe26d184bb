package mysql

import (
	"strings"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

const insertReviewSQL = `
INSERT INTO reviews
  (id, external_id, source, listing_id, guest_name, comment, rating, status,
   approved_by, submitted_at, created_at, updated_at, metadata, raw)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const reviewColumns = `
  id, external_id, source, listing_id, guest_name, comment, rating, status,
  approved_by, submitted_at, created_at, updated_at, metadata, raw`

const findReviewByExternalIDSQL = `
SELECT` + reviewColumns + `
FROM reviews
WHERE external_id = ?
`

const getReviewSQL = `
SELECT` + reviewColumns + `
FROM reviews
WHERE id = ?
`

const listReviewsByListingSQL = `
SELECT` + reviewColumns + `
FROM reviews
WHERE listing_id = ?
ORDER BY submitted_at DESC, id DESC
`

const updateReviewStatusSQL = `
UPDATE reviews
SET status = ?, approved_by = ?, updated_at = UTC_TIMESTAMP()
WHERE id = ?
`

const insertListingSQL = `
INSERT INTO listings (id, external_id, name, slug, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const listingColumns = ` id, external_id, name, slug, created_at, updated_at`

const findListingBySlugSQL = `
SELECT` + listingColumns + `
FROM listings
WHERE slug = ?
`

const findListingByExternalIDSQL = `
SELECT` + listingColumns + `
FROM listings
WHERE external_id = ?
`

const getListingSQL = `
SELECT` + listingColumns + `
FROM listings
WHERE id = ?
`

const insertIngestRunSQL = `
INSERT INTO ingest_runs (source, locator, imported, skipped, failed)
VALUES (?, ?, ?, ?, ?)
`

// aggregateBase is the grouped core of the push-down plan. The channel
// allow-list goes into the JOIN condition so excluded channels never count;
// COALESCE(AVG,0) matches the in-memory aggregator, which reports 0 when no
// review carries a rating.
const aggregateBase = `
SELECT
  l.id, l.external_id, l.name, l.slug, l.created_at, l.updated_at,
  COUNT(r.id)                                            AS total_reviews,
  COALESCE(SUM(CASE WHEN r.status = 'approved' THEN 1 ELSE 0 END), 0) AS approved_reviews,
  COALESCE(ROUND(AVG(r.rating), 2), 0)                   AS avg_rating,
  MAX(r.submitted_at)                                    AS last_review
FROM listings l
LEFT JOIN reviews r ON r.listing_id = l.id`

// breakdownSQLPrefix feeds the rating/channel breakdown maps for one page of
// listings in a single grouped pass; FLOOR(NULL) groups unrated reviews so
// they still count toward the channel totals.
const breakdownSQLPrefix = `
SELECT listing_id, source, FLOOR(rating) AS bucket, COUNT(*) AS cnt
FROM reviews
WHERE listing_id IN (`

// buildListingQuery renders the plan object into parameterized SQL. Only
// fixed fragments are concatenated; every user-supplied value travels as an
// argument.
func buildListingQuery(q domain.ListingQuery, countOnly bool) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString(aggregateBase)
	if len(q.Channels) > 0 {
		b.WriteString(" AND r.source IN (")
		b.WriteString(placeholders(len(q.Channels)))
		b.WriteString(")")
		for _, c := range q.Channels {
			args = append(args, string(c))
		}
	}
	b.WriteString("\nGROUP BY l.id, l.external_id, l.name, l.slug, l.created_at, l.updated_at")

	having := []string{"COUNT(r.id) >= ?"}
	args = append(args, q.MinReviews)
	if q.MinRating != nil {
		having = append(having, "COALESCE(AVG(r.rating), 0) >= ?")
		args = append(args, *q.MinRating)
	}
	if q.MaxRating != nil {
		having = append(having, "COALESCE(AVG(r.rating), 0) <= ?")
		args = append(args, *q.MaxRating)
	}
	b.WriteString("\nHAVING ")
	b.WriteString(strings.Join(having, " AND "))

	if countOnly {
		return "SELECT COUNT(*) FROM (" + b.String() + ") AS agg", args
	}

	// zero-review listings last regardless of direction, then average per
	// direction, then review count, then name for full determinism
	dir := "DESC"
	if q.Sort == domain.SortAsc {
		dir = "ASC"
	}
	b.WriteString("\nORDER BY (COUNT(r.id) = 0) ASC, avg_rating " + dir + ", total_reviews DESC, l.name ASC")
	b.WriteString("\nLIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	return b.String(), args
}

func buildBreakdownQuery(listingIDs []string, channels []domain.Source) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString(breakdownSQLPrefix)
	b.WriteString(placeholders(len(listingIDs)))
	b.WriteString(")")
	for _, id := range listingIDs {
		args = append(args, id)
	}
	if len(channels) > 0 {
		b.WriteString(" AND source IN (")
		b.WriteString(placeholders(len(channels)))
		b.WriteString(")")
		for _, c := range channels {
			args = append(args, string(c))
		}
	}
	b.WriteString("\nGROUP BY listing_id, source, FLOOR(rating)")
	return b.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
