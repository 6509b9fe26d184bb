package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// dupErr reports whether err is a MySQL duplicate-key violation on an index
// whose name contains hint.
func dupErr(err error, hint string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return false
	}
	return strings.Contains(me.Message, hint)
}

// ---- reviews ----

func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) (domain.Review, error) {
	meta, err := json.Marshal(rv.Metadata)
	if err != nil {
		return domain.Review{}, err
	}
	raw := rv.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	_, err = r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.ExternalID,
		string(rv.Source),
		valStr(rv.ListingID),
		rv.GuestName,
		rv.Comment,
		valF64(rv.Rating),
		string(rv.Status),
		valStr(rv.ApprovedBy),
		rv.SubmittedAt.UTC(),
		rv.CreatedAt.UTC(),
		rv.UpdatedAt.UTC(),
		string(meta),
		string(raw),
	)
	if dupErr(err, "external_id") {
		return domain.Review{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) FindReviewByExternalID(ctx context.Context, externalID string) (*domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, findReviewByExternalIDSQL, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *Repo) UpdateReviewStatus(ctx context.Context, id string, status domain.Status, approverRef string) (domain.Review, error) {
	res, err := r.db.ExecContext(ctx, updateReviewStatusSQL, string(status), approverRef, id)
	if err != nil {
		return domain.Review{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for a no-op update too; only trust it after a
		// read confirms the row is missing
		if _, gerr := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id)); errors.Is(gerr, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
	}
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

func (r *Repo) ListReviewsByListing(ctx context.Context, listingID string) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listReviewsByListingSQL, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(row rowScanner) (domain.Review, error) {
	var rv domain.Review
	var (
		source, status        string
		listingID, approvedBy sql.NullString
		rating                sql.NullFloat64
		meta, raw             []byte
	)
	if err := row.Scan(
		&rv.ID,
		&rv.ExternalID,
		&source,
		&listingID,
		&rv.GuestName,
		&rv.Comment,
		&rating,
		&status,
		&approvedBy,
		&rv.SubmittedAt,
		&rv.CreatedAt,
		&rv.UpdatedAt,
		&meta,
		&raw,
	); err != nil {
		return domain.Review{}, err
	}
	rv.Source = domain.Source(source)
	rv.Status = domain.Status(status)
	if listingID.Valid {
		s := listingID.String
		rv.ListingID = &s
	}
	if approvedBy.Valid {
		s := approvedBy.String
		rv.ApprovedBy = &s
	}
	if rating.Valid {
		f := rating.Float64
		rv.Rating = &f
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rv.Metadata); err != nil {
			return domain.Review{}, err
		}
	}
	if len(raw) > 0 {
		rv.Raw = append(json.RawMessage(nil), raw...)
	}
	return rv, nil
}

// ---- listings ----

func (r *Repo) InsertListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	_, err := r.db.ExecContext(ctx, insertListingSQL,
		l.ID, l.ExternalID, l.Name, l.Slug, l.CreatedAt.UTC(), l.UpdatedAt.UTC())
	if dupErr(err, "slug") {
		return domain.Listing{}, domain.ErrSlugTaken
	}
	if dupErr(err, "external_id") {
		return domain.Listing{}, domain.ErrDuplicate
	}
	if err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

func (r *Repo) FindListingBySlug(ctx context.Context, slug string) (*domain.Listing, error) {
	return r.findListing(ctx, findListingBySlugSQL, slug)
}

func (r *Repo) FindListingByExternalID(ctx context.Context, externalID string) (*domain.Listing, error) {
	return r.findListing(ctx, findListingByExternalIDSQL, externalID)
}

func (r *Repo) findListing(ctx context.Context, query, arg string) (*domain.Listing, error) {
	var l domain.Listing
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&l.ID, &l.ExternalID, &l.Name, &l.Slug, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	l, err := r.findListing(ctx, getListingSQL, id)
	if err != nil {
		return domain.Listing{}, err
	}
	if l == nil {
		return domain.Listing{}, domain.ErrNotFound
	}
	return *l, nil
}

// ---- push-down aggregation ----

func (r *Repo) QueryListingsWithAggregates(ctx context.Context, q domain.ListingQuery) ([]domain.ListingWithStats, error) {
	query, args := buildListingQuery(q, false)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ListingWithStats
	var ids []string
	for rows.Next() {
		var lw domain.ListingWithStats
		var last sql.NullTime
		if err := rows.Scan(
			&lw.Listing.ID, &lw.Listing.ExternalID, &lw.Listing.Name, &lw.Listing.Slug,
			&lw.Listing.CreatedAt, &lw.Listing.UpdatedAt,
			&lw.Stats.TotalReviews, &lw.Stats.ApprovedReviews, &lw.Stats.AverageRating,
			&last,
		); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time.UTC()
			lw.Stats.LastReviewDate = &t
		}
		lw.Stats.RatingBreakdown = map[int]int{}
		lw.Stats.ChannelBreakdown = map[string]int{}
		out = append(out, lw)
		ids = append(ids, lw.Listing.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.fillBreakdowns(ctx, out, ids, q.Channels); err != nil {
		return nil, err
	}
	return out, nil
}

// fillBreakdowns populates the rating/channel maps for one result page in a
// single grouped pass over reviews.
func (r *Repo) fillBreakdowns(ctx context.Context, page []domain.ListingWithStats, ids []string, channels []domain.Source) error {
	byID := make(map[string]*domain.ListingWithStats, len(page))
	for i := range page {
		byID[page[i].Listing.ID] = &page[i]
	}

	query, args := buildBreakdownQuery(ids, channels)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var listingID, source string
		var bucket sql.NullInt64
		var cnt int
		if err := rows.Scan(&listingID, &source, &bucket, &cnt); err != nil {
			return err
		}
		lw, ok := byID[listingID]
		if !ok {
			continue
		}
		lw.Stats.ChannelBreakdown[source] += cnt
		if bucket.Valid && bucket.Int64 >= 1 && bucket.Int64 <= 10 {
			lw.Stats.RatingBreakdown[int(bucket.Int64)] += cnt
		}
	}
	return rows.Err()
}

func (r *Repo) CountListings(ctx context.Context, q domain.ListingQuery) (int, error) {
	query, args := buildListingQuery(q, true)
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ---- audit ----

func (r *Repo) LogIngestRun(ctx context.Context, run domain.IngestRun) error {
	_, err := r.db.ExecContext(ctx, insertIngestRunSQL,
		string(run.Source), run.Locator, run.Imported, run.Skipped, run.Failed)
	return err
}
