package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/app"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
)

type Handlers struct {
	Q   *app.QueryService
	Ing *app.IngestionService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/listings", h.queryListings)
	s.mux.Get("/v1/listings/{id}/stats", h.listingStats)
	s.mux.Post("/v1/listings", h.createListing)
	s.mux.Post("/v1/reviews", h.createManualReview)
	s.mux.Post("/v1/reviews/{id}/status", h.setReviewStatus)
	s.mux.Post("/v1/imports/{source}", h.importFromSource)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// parseListingQuery maps validated query parameters onto the plan object.
// Defaults are applied downstream so omitted and explicit-default params
// land on the same cache key.
func parseListingQuery(r *http.Request) (domain.ListingQuery, error) {
	var q domain.ListingQuery
	get := r.URL.Query().Get

	if v := get("minReviews"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errors.New("minReviews must be a non-negative integer")
		}
		q.MinReviews = n
	}
	for _, p := range []struct {
		name string
		dst  **float64
	}{{"minRating", &q.MinRating}, {"maxRating", &q.MaxRating}} {
		if v := get(p.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 10 {
				return q, errors.New(p.name + " must be a number between 0 and 10")
			}
			*p.dst = &f
		}
	}
	if v := get("channels"); v != "" {
		for _, c := range strings.Split(v, ",") {
			src := domain.Source(strings.TrimSpace(c))
			if !src.Valid() {
				return q, errors.New("unknown channel " + string(src))
			}
			q.Channels = append(q.Channels, src)
		}
	}
	switch get("sort") {
	case "", "desc":
		q.Sort = domain.SortDesc
	case "asc":
		q.Sort = domain.SortAsc
	default:
		return q, errors.New("sort must be asc or desc")
	}
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			return q, errors.New("limit must be an integer between 1 and 100")
		}
		q.Limit = n
	}
	if v := get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errors.New("offset must be a non-negative integer")
		}
		q.Offset = n
	}
	return q, nil
}

func (h *Handlers) queryListings(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	page, err := h.Q.QueryListings(r.Context(), q)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Query failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) listingStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.Q.GetListingStats(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "listing not found")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Stats failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) createListing(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ExternalID string `json:"externalId"`
		Name       string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "name is required")
		return
	}
	l, err := h.Ing.CreateListing(r.Context(), body.ExternalID, body.Name)
	if errors.Is(err, domain.ErrDuplicate) {
		writeProblem(w, http.StatusConflict, "Conflict", "listing external id already exists")
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *Handlers) createManualReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		domain.ManualReviewInput
		AutoApprove bool `json:"autoApprove"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	rv, err := h.Ing.CreateManualReview(r.Context(), body.ManualReviewInput, body.AutoApprove)
	var nerr *domain.NormalizationError
	switch {
	case errors.As(err, &nerr):
		writeProblem(w, http.StatusBadRequest, "Invalid review", nerr.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "listing not found")
	case errors.Is(err, domain.ErrDuplicate):
		writeProblem(w, http.StatusConflict, "Conflict", "review already exists")
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "Create failed", err.Error())
	default:
		writeJSON(w, http.StatusCreated, rv)
	}
}

func (h *Handlers) setReviewStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Status     domain.Status `json:"status"`
		ApprovedBy string        `json:"approvedBy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	rv, err := h.Ing.SetReviewStatus(r.Context(), id, body.Status, body.ApprovedBy)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
	case err != nil:
		writeProblem(w, http.StatusBadRequest, "Update failed", err.Error())
	default:
		writeJSON(w, http.StatusOK, rv)
	}
}

type importResponse struct {
	Success bool                `json:"success"`
	Result  domain.ImportResult `json:"result"`
	Message string              `json:"message,omitempty"`
}

func (h *Handlers) importFromSource(w http.ResponseWriter, r *http.Request) {
	source := domain.Source(chi.URLParam(r, "source"))
	if !source.Valid() {
		writeProblem(w, http.StatusBadRequest, "Invalid source", "unknown source "+string(source))
		return
	}
	var body struct {
		Locator         string  `json:"locator"`
		AutoApprove     bool    `json:"autoApprove"`
		TargetListingID *string `json:"targetListingId"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	res, err := h.Ing.ImportFromSource(r.Context(), source, body.Locator, domain.ImportOptions{
		AutoApprove:     body.AutoApprove,
		TargetListingID: body.TargetListingID,
	})
	if err != nil {
		var pe *domain.ProviderError
		switch {
		case errors.Is(err, domain.ErrInvalidLocator):
			writeProblem(w, http.StatusBadRequest, "Invalid locator", err.Error())
		case errors.As(err, &pe):
			writeProblem(w, http.StatusBadGateway, "Source unavailable", pe.Error())
		default:
			writeProblem(w, http.StatusInternalServerError, "Import failed", err.Error())
		}
		return
	}

	// partial failures are still a successful run
	resp := importResponse{Success: true, Result: res}
	if res.NoItems {
		resp.Message = "no items found at source"
	}
	writeJSON(w, http.StatusOK, resp)
}
