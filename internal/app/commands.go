package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/observability"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/normalize"
)

// SystemApprover is recorded as the approver when an import auto-approves.
const SystemApprover = "system:ingestor"

// IngestionService drives one-shot imports and the review write paths.
type IngestionService struct {
	hostaway domain.HostawayClient
	places   domain.PlacesClient
	business domain.BusinessClient
	repo     domain.ReviewRepository
	cache    domain.Cache
}

func NewIngestionService(
	hostaway domain.HostawayClient,
	places domain.PlacesClient,
	business domain.BusinessClient,
	repo domain.ReviewRepository,
	cache domain.Cache,
) *IngestionService {
	return &IngestionService{
		hostaway: hostaway,
		places:   places,
		business: business,
		repo:     repo,
		cache:    cache,
	}
}

// pendingItem is one raw item after normalization, before dedupe/persist.
// A normalization failure rides along as err so the batch keeps going.
type pendingItem struct {
	ref         string
	review      domain.Review
	listingExt  string // provider listing key, for resolution
	listingName string
	err         error
}

// ImportFromSource fetches raw items from one provider, normalizes,
// deduplicates on ExternalID, and persists. A provider failure on the
// initial fetch aborts the call (there is nothing to import); per-item
// failures are captured into the result and never abort the batch.
// Cancellation between items returns the partial result accumulated so far.
func (s *IngestionService) ImportFromSource(ctx context.Context, source domain.Source, locator string, opts domain.ImportOptions) (domain.ImportResult, error) {
	var res domain.ImportResult

	items, err := s.fetch(ctx, source, locator)
	if err != nil {
		return res, err
	}
	if len(items) == 0 {
		res.NoItems = true
		s.logRun(ctx, source, locator, res)
		return res, nil
	}

	now := time.Now().UTC()
	listingCache := map[string]*string{} // provider listing key -> listing id
	touched := map[string]struct{}{}

	for _, it := range items {
		if cerr := ctx.Err(); cerr != nil {
			s.logRun(ctx, source, locator, res)
			return res, cerr
		}

		if it.err != nil {
			res.Errors = append(res.Errors, domain.ItemError{Ref: it.ref, Message: it.err.Error()})
			observability.ObserveImport(string(source), "error")
			continue
		}

		existing, derr := s.repo.FindReviewByExternalID(ctx, it.review.ExternalID)
		if derr != nil {
			res.Errors = append(res.Errors, domain.ItemError{Ref: it.ref, Message: derr.Error()})
			observability.ObserveImport(string(source), "error")
			continue
		}
		if existing != nil {
			res.Skipped++
			observability.ObserveImport(string(source), "skipped")
			continue
		}

		rv := it.review
		rv.ID = uuid.NewString()
		rv.CreatedAt = now
		rv.UpdatedAt = now
		if opts.AutoApprove {
			rv.Status = domain.StatusApproved
			approver := SystemApprover
			rv.ApprovedBy = &approver
		}

		if opts.TargetListingID != nil {
			rv.ListingID = opts.TargetListingID
		} else if rv.ListingID == nil && it.listingExt != "" {
			lid, lerr := s.resolveListing(ctx, listingCache, it.listingExt, it.listingName)
			if lerr != nil {
				res.Errors = append(res.Errors, domain.ItemError{Ref: it.ref, Message: lerr.Error()})
				observability.ObserveImport(string(source), "error")
				continue
			}
			rv.ListingID = lid
		}

		if _, ierr := s.repo.InsertReview(ctx, rv); ierr != nil {
			res.Errors = append(res.Errors, domain.ItemError{Ref: it.ref, Message: ierr.Error()})
			observability.ObserveImport(string(source), "error")
			continue
		}
		res.Imported++
		observability.ObserveImport(string(source), "imported")
		if rv.ListingID != nil {
			touched[*rv.ListingID] = struct{}{}
		}
	}

	for id := range touched {
		s.invalidateListing(ctx, id)
	}
	s.logRun(ctx, source, locator, res)
	return res, nil
}

// notConfigured covers deployments that left a provider's credentials unset:
// the client stays nil and imports from it fail fast instead of panicking.
func notConfigured(source domain.Source) error {
	return &domain.ProviderError{
		Provider: string(source),
		Kind:     domain.KindUnreachable,
		Message:  "client not configured",
	}
}

func (s *IngestionService) fetch(ctx context.Context, source domain.Source, locator string) ([]pendingItem, error) {
	switch source {
	case domain.SourceHostaway:
		if s.hostaway == nil {
			return nil, notConfigured(source)
		}
		raw, err := s.hostaway.FetchReviews(ctx, locator)
		if err != nil {
			return nil, err
		}
		items := make([]pendingItem, 0, len(raw))
		for _, r := range raw {
			it := pendingItem{
				ref:         fmt.Sprintf("hostaway:%d", r.ID),
				listingExt:  hostawayListingKey(r.ListingID),
				listingName: r.ListingName,
			}
			it.review, it.err = normalize.Hostaway(r)
			items = append(items, it)
		}
		return items, nil

	case domain.SourceGooglePlaces:
		if locator == "" {
			return nil, domain.ErrInvalidLocator
		}
		if s.places == nil {
			return nil, notConfigured(source)
		}
		det, err := s.places.FetchDetails(ctx, locator)
		if err != nil {
			return nil, err
		}
		items := make([]pendingItem, 0, len(det.Reviews))
		for _, r := range det.Reviews {
			it := pendingItem{
				ref:         fmt.Sprintf("google_places:%s:%d", det.PlaceID, r.Time),
				listingExt:  det.PlaceID,
				listingName: det.Name,
			}
			it.review, it.err = normalize.Places(det.PlaceID, r)
			items = append(items, it)
		}
		return items, nil

	case domain.SourceGoogleBusiness:
		if locator == "" {
			return nil, domain.ErrInvalidLocator
		}
		if s.business == nil {
			return nil, notConfigured(source)
		}
		raw, err := s.business.FetchReviews(ctx, locator)
		if err != nil {
			return nil, err
		}
		items := make([]pendingItem, 0, len(raw))
		for _, r := range raw {
			it := pendingItem{
				ref:        fmt.Sprintf("google_business:%s:%s", locator, r.ReviewID),
				listingExt: locator,
			}
			it.review, it.err = normalize.Business(locator, r)
			items = append(items, it)
		}
		return items, nil

	default:
		// manual entries arrive through CreateManualReview, not imports
		return nil, domain.ErrInvalidLocator
	}
}

func hostawayListingKey(listingID int64) string {
	if listingID == 0 {
		return ""
	}
	return "hostaway-" + strconv.FormatInt(listingID, 10)
}

// resolveListing finds the listing matching a provider key, creating it on
// first sight (listings discovered during ingestion).
func (s *IngestionService) resolveListing(ctx context.Context, runCache map[string]*string, externalID, name string) (*string, error) {
	if id, ok := runCache[externalID]; ok {
		return id, nil
	}
	l, err := s.repo.FindListingByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		if name == "" {
			name = externalID
		}
		created, cerr := s.CreateListing(ctx, externalID, name)
		if cerr != nil {
			return nil, cerr
		}
		l = &created
	}
	id := l.ID
	runCache[externalID] = &id
	return &id, nil
}

// CreateListing allocates a unique slug by collision probing. The repo maps
// unique-index violations to ErrSlugTaken, so two concurrent creations of
// the same base name resolve by retrying with the next suffix instead of
// surfacing a constraint error.
func (s *IngestionService) CreateListing(ctx context.Context, externalID, name string) (domain.Listing, error) {
	base := Slugify(name)
	now := time.Now().UTC()

	n := 0
	for {
		slug := slugCandidate(base, n)
		existing, err := s.repo.FindListingBySlug(ctx, slug)
		if err != nil {
			return domain.Listing{}, err
		}
		if existing != nil {
			n++
			continue
		}
		l, err := s.repo.InsertListing(ctx, domain.Listing{
			ID:         uuid.NewString(),
			ExternalID: externalID,
			Name:       name,
			Slug:       slug,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if errors.Is(err, domain.ErrSlugTaken) {
			n++
			continue
		}
		if err != nil {
			return domain.Listing{}, err
		}
		s.invalidateListing(ctx, l.ID)
		return l, nil
	}
}

// CreateManualReview runs an operator-entered review through the same
// normalize/dedupe path as imports.
func (s *IngestionService) CreateManualReview(ctx context.Context, in domain.ManualReviewInput, autoApprove bool) (domain.Review, error) {
	rv, err := normalize.Manual(in)
	if err != nil {
		return domain.Review{}, err
	}
	if _, err := s.repo.GetListing(ctx, in.ListingID); err != nil {
		return domain.Review{}, fmt.Errorf("listing %s: %w", in.ListingID, err)
	}
	existing, err := s.repo.FindReviewByExternalID(ctx, rv.ExternalID)
	if err != nil {
		return domain.Review{}, err
	}
	if existing != nil {
		return domain.Review{}, domain.ErrDuplicate
	}

	now := time.Now().UTC()
	rv.ID = uuid.NewString()
	rv.CreatedAt = now
	rv.UpdatedAt = now
	if autoApprove {
		rv.Status = domain.StatusApproved
		approver := SystemApprover
		rv.ApprovedBy = &approver
	}

	out, err := s.repo.InsertReview(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	s.invalidateListing(ctx, in.ListingID)
	return out, nil
}

// SetReviewStatus approves or rejects a review and evicts every cache key
// scoped to its listing.
func (s *IngestionService) SetReviewStatus(ctx context.Context, id string, status domain.Status, approverRef string) (domain.Review, error) {
	if !status.Valid() || status == domain.StatusPending {
		return domain.Review{}, fmt.Errorf("invalid target status %q", status)
	}
	rv, err := s.repo.UpdateReviewStatus(ctx, id, status, approverRef)
	if err != nil {
		return domain.Review{}, err
	}
	if rv.ListingID != nil {
		s.invalidateListing(ctx, *rv.ListingID)
	}
	return rv, nil
}

// invalidateListing is best-effort: cache failures are logged, never bubbled.
func (s *IngestionService) invalidateListing(ctx context.Context, listingID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, "stats:"+listingID); err != nil {
		log.Warn().Err(err).Str("listing", listingID).Msg("stats cache invalidation failed")
	}
	if err := s.cache.InvalidatePrefix(ctx, "listings:"); err != nil {
		log.Warn().Err(err).Msg("listings cache invalidation failed")
	}
}

func (s *IngestionService) logRun(ctx context.Context, source domain.Source, locator string, res domain.ImportResult) {
	if err := s.repo.LogIngestRun(ctx, domain.IngestRun{
		Source:   source,
		Locator:  locator,
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Failed:   len(res.Errors),
	}); err != nil {
		log.Warn().Err(err).Str("source", string(source)).Msg("ingest run audit write failed")
	}
}
