package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/app"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu       sync.Mutex
	reviews  map[string]domain.Review // by external id
	listings map[string]domain.Listing // by id
	runs     []domain.IngestRun

	slugRaces int // InsertListing returns ErrSlugTaken this many times

	queryRows []domain.ListingWithStats
	total     int
	lastQuery domain.ListingQuery

	// afterInsert runs after each successful review insert (for cancellation tests)
	afterInsert func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		reviews:  map[string]domain.Review{},
		listings: map[string]domain.Listing{},
	}
}

func (f *fakeRepo) InsertReview(ctx context.Context, r domain.Review) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[r.ExternalID]; ok {
		return domain.Review{}, domain.ErrDuplicate
	}
	f.reviews[r.ExternalID] = r
	if f.afterInsert != nil {
		f.afterInsert()
	}
	return r, nil
}

func (f *fakeRepo) FindReviewByExternalID(ctx context.Context, externalID string) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reviews[externalID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (f *fakeRepo) UpdateReviewStatus(ctx context.Context, id string, status domain.Status, approverRef string) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ext, r := range f.reviews {
		if r.ID == id {
			r.Status = status
			r.ApprovedBy = &approverRef
			f.reviews[ext] = r
			return r, nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (f *fakeRepo) InsertListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slugRaces > 0 {
		f.slugRaces--
		return domain.Listing{}, domain.ErrSlugTaken
	}
	for _, existing := range f.listings {
		if existing.Slug == l.Slug {
			return domain.Listing{}, domain.ErrSlugTaken
		}
	}
	f.listings[l.ID] = l
	return l, nil
}

func (f *fakeRepo) FindListingBySlug(ctx context.Context, slug string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.Slug == slug {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) FindListingByExternalID(ctx context.Context, externalID string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.listings {
		if l.ExternalID == externalID {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetListing(ctx context.Context, id string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[id]; ok {
		return l, nil
	}
	return domain.Listing{}, domain.ErrNotFound
}

func (f *fakeRepo) ListReviewsByListing(ctx context.Context, listingID string) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if r.ListingID != nil && *r.ListingID == listingID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) QueryListingsWithAggregates(ctx context.Context, q domain.ListingQuery) ([]domain.ListingWithStats, error) {
	f.mu.Lock()
	f.lastQuery = q
	f.mu.Unlock()
	return f.queryRows, nil
}

func (f *fakeRepo) CountListings(ctx context.Context, q domain.ListingQuery) (int, error) {
	return f.total, nil
}

func (f *fakeRepo) LogIngestRun(ctx context.Context, run domain.IngestRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) { return false, nil }
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	return nil
}
func (c *fakeCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	return nil
}

type fakeHostaway struct {
	items []domain.HostawayReview
	err   error
}

func (f *fakeHostaway) FetchReviews(ctx context.Context, listingID string) ([]domain.HostawayReview, error) {
	return f.items, f.err
}

type fakePlaces struct {
	details domain.PlaceDetails
	err     error
}

func (f *fakePlaces) Search(ctx context.Context, query string, geo *domain.GeoFilter) ([]domain.RawPlace, error) {
	return nil, f.err
}
func (f *fakePlaces) FetchDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	return f.details, f.err
}

type fakeBusiness struct {
	items []domain.BusinessReview
	err   error
}

func (f *fakeBusiness) FetchReviews(ctx context.Context, locationRef string) ([]domain.BusinessReview, error) {
	return f.items, f.err
}

func newService(repo *fakeRepo, ha *fakeHostaway) (*app.IngestionService, *fakeCache) {
	cache := &fakeCache{}
	return app.NewIngestionService(ha, &fakePlaces{}, &fakeBusiness{}, repo, cache), cache
}

func hostawayItems(n int) []domain.HostawayReview {
	items := make([]domain.HostawayReview, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, domain.HostawayReview{
			ID:          int64(i),
			ListingID:   155613,
			ListingName: "29 Shoreditch Heights",
			GuestName:   fmt.Sprintf("Guest %d", i),
			PublicText:  "nice",
			SubmittedAt: "2020-08-21 22:45:14",
			Categories:  []domain.HostawayCategory{{Category: "cleanliness", Rating: 10}},
		})
	}
	return items
}

// ---- tests ----

func TestImportFromSource_IdempotentReingest(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(3)})

	res, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Errors)

	res2, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Imported)
	assert.Equal(t, 3, res2.Skipped)
}

func TestImportFromSource_PartialFailureNeverAborts(t *testing.T) {
	items := hostawayItems(3)
	items[1].SubmittedAt = "not-a-timestamp"

	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: items})

	res, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "hostaway:2", res.Errors[0].Ref)
}

func TestImportFromSource_AutoApprove(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(1)})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{AutoApprove: true})
	require.NoError(t, err)

	rv, err := repo.FindReviewByExternalID(context.Background(), "hostaway-155613-1")
	require.NoError(t, err)
	require.NotNil(t, rv)
	assert.Equal(t, domain.StatusApproved, rv.Status)
	require.NotNil(t, rv.ApprovedBy)
	assert.Equal(t, app.SystemApprover, *rv.ApprovedBy)
}

func TestImportFromSource_DefaultStatusIsPending(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(1)})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)

	rv, _ := repo.FindReviewByExternalID(context.Background(), "hostaway-155613-1")
	require.NotNil(t, rv)
	assert.Equal(t, domain.StatusPending, rv.Status)
	assert.Nil(t, rv.ApprovedBy)
}

func TestImportFromSource_EmptyFetchIsNotAnError(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{})

	res, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	assert.True(t, res.NoItems)
	assert.Equal(t, 0, res.Imported)
	assert.Empty(t, res.Errors)
}

func TestImportFromSource_ProviderFetchErrorAborts(t *testing.T) {
	provErr := &domain.ProviderError{Provider: "hostaway", Kind: domain.KindQuotaExceeded, HTTPStatus: 429}
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{err: provErr})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsProviderKind(err, domain.KindQuotaExceeded))
}

// A deployment without a provider's credentials leaves that client nil; an
// import from it must answer with a provider error, never dereference it.
func TestImportFromSource_UnconfiguredClient(t *testing.T) {
	repo := newFakeRepo()
	svc := app.NewIngestionService(nil, nil, nil, repo, &fakeCache{})

	for src, locator := range map[domain.Source]string{
		domain.SourceHostaway:       "",
		domain.SourceGooglePlaces:   "ChIJabc",
		domain.SourceGoogleBusiness: "accounts/1/locations/2",
	} {
		_, err := svc.ImportFromSource(context.Background(), src, locator, domain.ImportOptions{})
		require.Error(t, err, src)
		assert.True(t, domain.IsProviderKind(err, domain.KindUnreachable), "%s: %v", src, err)
	}
}

func TestImportFromSource_ManualIsNotImportable(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceManual, "", domain.ImportOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidLocator)
}

func TestImportFromSource_CancelKeepsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := newFakeRepo()
	repo.afterInsert = cancel // cancel after the first successful insert

	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(5)})

	res, err := svc.ImportFromSource(ctx, domain.SourceHostaway, "", domain.ImportOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Imported)
}

func TestImportFromSource_DiscoversListing(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(2)})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)

	l, err := repo.FindListingByExternalID(context.Background(), "hostaway-155613")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "29-shoreditch-heights", l.Slug)

	// one listing for both reviews
	assert.Len(t, repo.listings, 1)
	rv, _ := repo.FindReviewByExternalID(context.Background(), "hostaway-155613-2")
	require.NotNil(t, rv)
	require.NotNil(t, rv.ListingID)
	assert.Equal(t, l.ID, *rv.ListingID)
}

func TestImportFromSource_TargetListingWins(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(1)})

	target := "listing-42"
	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{TargetListingID: &target})
	require.NoError(t, err)

	rv, _ := repo.FindReviewByExternalID(context.Background(), "hostaway-155613-1")
	require.NotNil(t, rv)
	require.NotNil(t, rv.ListingID)
	assert.Equal(t, target, *rv.ListingID)
	assert.Empty(t, repo.listings, "no listing should be discovered when a target is given")
}

func TestCreateListing_SlugCollisionProbing(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{})

	a, err := svc.CreateListing(context.Background(), "ext-1", "New Listing")
	require.NoError(t, err)
	assert.Equal(t, "new-listing", a.Slug)

	b, err := svc.CreateListing(context.Background(), "ext-2", "New Listing")
	require.NoError(t, err)
	assert.Equal(t, "new-listing-1", b.Slug)
}

func TestCreateListing_RetriesOnInsertRace(t *testing.T) {
	repo := newFakeRepo()
	repo.slugRaces = 1 // first insert loses a concurrent race on the unique index
	svc, _ := newService(repo, &fakeHostaway{})

	l, err := svc.CreateListing(context.Background(), "ext-1", "New Listing")
	require.NoError(t, err)
	assert.Equal(t, "new-listing-1", l.Slug)
}

func TestCreateManualReview_DedupeAndInvalidate(t *testing.T) {
	repo := newFakeRepo()
	svc, cache := newService(repo, &fakeHostaway{})

	l, err := svc.CreateListing(context.Background(), "ext-1", "Manual Home")
	require.NoError(t, err)

	in := domain.ManualReviewInput{
		ListingID:   l.ID,
		GuestName:   "Walk-in",
		Comment:     "left a note at the desk",
		SubmittedAt: "2024-02-02T08:00:00Z",
	}
	rv, err := svc.CreateManualReview(context.Background(), in, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, rv.Status)

	_, err = svc.CreateManualReview(context.Background(), in, false)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	found := false
	for _, p := range cache.invalidated {
		if strings.HasPrefix(p, "stats:"+l.ID) {
			found = true
		}
	}
	assert.True(t, found, "listing stats cache must be invalidated, got %v", cache.invalidated)
}

func TestSetReviewStatus(t *testing.T) {
	repo := newFakeRepo()
	svc, cache := newService(repo, &fakeHostaway{items: hostawayItems(1)})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	stored, _ := repo.FindReviewByExternalID(context.Background(), "hostaway-155613-1")
	require.NotNil(t, stored)

	rv, err := svc.SetReviewStatus(context.Background(), stored.ID, domain.StatusApproved, "admin@flex")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, rv.Status)

	_, err = svc.SetReviewStatus(context.Background(), stored.ID, domain.StatusPending, "admin@flex")
	assert.Error(t, err, "pending is not a valid moderation target")

	_, err = svc.SetReviewStatus(context.Background(), "missing", domain.StatusRejected, "admin@flex")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NotEmpty(t, cache.invalidated)
}

func TestImportFromSource_LogsRun(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newService(repo, &fakeHostaway{items: hostawayItems(2)})

	_, err := svc.ImportFromSource(context.Background(), domain.SourceHostaway, "", domain.ImportOptions{})
	require.NoError(t, err)
	require.Len(t, repo.runs, 1)
	assert.Equal(t, 2, repo.runs[0].Imported)
	assert.Equal(t, domain.SourceHostaway, repo.runs[0].Source)
}

func TestImportFromSource_GooglePlaces(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	places := &fakePlaces{details: domain.PlaceDetails{
		PlaceID: "ChIJabc",
		Name:    "Shoreditch Lofts",
		Reviews: []domain.PlacesReview{
			{AuthorName: "Maria", Rating: 4, Text: "Lovely", Time: 1700000000},
			{AuthorName: "Tom", Rating: 5, Text: "Great", Time: 1700000100},
		},
	}}
	svc := app.NewIngestionService(&fakeHostaway{}, places, &fakeBusiness{}, repo, cache)

	res, err := svc.ImportFromSource(context.Background(), domain.SourceGooglePlaces, "ChIJabc", domain.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)

	l, _ := repo.FindListingByExternalID(context.Background(), "ChIJabc")
	require.NotNil(t, l)
	assert.Equal(t, "shoreditch-lofts", l.Slug)

	_, err = svc.ImportFromSource(context.Background(), domain.SourceGooglePlaces, "", domain.ImportOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidLocator)
}
