// Package googleplaces wraps the Places text-search and details endpoints.
// Details payloads carry at most five reviews; that cap is the provider's.
package googleplaces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/observability"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/normalize"
)

const service = "google_places"

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, minDelay time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("googleplaces: API key is required")
	}
	if base == "" {
		base = "https://maps.googleapis.com/maps/api/place"
	}
	if minDelay <= 0 {
		minDelay = 200 * time.Millisecond
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 15 * time.Second},
		rl:   rate.NewLimiter(rate.Every(minDelay), 1),
	}, nil
}

type searchEnvelope struct {
	Status  string            `json:"status"`
	Message string            `json:"error_message"`
	Results []domain.RawPlace `json:"results"`
}

type detailsEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"error_message"`
	Result  struct {
		PlaceID string            `json:"place_id"`
		Name    string            `json:"name"`
		Rating  float64           `json:"rating"`
		Reviews []json.RawMessage `json:"reviews"`
	} `json:"result"`
}

func (c *Client) Search(ctx context.Context, query string, geo *domain.GeoFilter) ([]domain.RawPlace, error) {
	q := url.Values{"query": {query}, "key": {c.key}}
	if geo != nil {
		q.Set("location", fmt.Sprintf("%f,%f", geo.Lat, geo.Lng))
		q.Set("radius", fmt.Sprintf("%d", geo.RadiusM))
	}

	var env searchEnvelope
	if err := c.get(ctx, c.base+"/textsearch/json?"+q.Encode(), "/textsearch", &env); err != nil {
		return nil, err
	}
	if err := c.apiStatus(env.Status, env.Message); err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (c *Client) FetchDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	q := url.Values{
		"place_id": {placeID},
		"fields":   {"place_id,name,rating,reviews"},
		"key":      {c.key},
	}

	var env detailsEnvelope
	if err := c.get(ctx, c.base+"/details/json?"+q.Encode(), "/details", &env); err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := c.apiStatus(env.Status, env.Message); err != nil {
		return domain.PlaceDetails{}, err
	}

	det := domain.PlaceDetails{
		PlaceID: env.Result.PlaceID,
		Name:    env.Result.Name,
		Rating:  env.Result.Rating,
	}
	if det.PlaceID == "" {
		det.PlaceID = placeID
	}
	for _, raw := range env.Result.Reviews {
		var rv domain.PlacesReview
		if err := json.Unmarshal(raw, &rv); err != nil {
			rv = domain.PlacesReview{}
		}
		rv.Raw = append(json.RawMessage(nil), raw...)
		rv.Extra = normalize.PlacesExtras(rv.Raw)
		det.Reviews = append(det.Reviews, rv)
	}
	return det, nil
}

// apiStatus maps the Places body-level status field; the HTTP layer answers
// 200 even for denied or malformed requests.
func (c *Client) apiStatus(status, message string) error {
	var kind domain.ProviderKind
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED":
		kind = domain.KindAccessDenied
	case "OVER_QUERY_LIMIT":
		kind = domain.KindQuotaExceeded
	case "INVALID_REQUEST":
		kind = domain.KindInvalidRequest
	case "NOT_FOUND":
		kind = domain.KindNotFound
	default:
		kind = domain.KindUnknown
	}
	if message == "" {
		message = status
	}
	return &domain.ProviderError{Provider: service, Kind: kind, Message: message}
}

func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		return &domain.ProviderError{Provider: service, Kind: domain.KindUnreachable, Message: err.Error()}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusOK {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.ProviderError{
		Provider:   service,
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		Message:    strings.TrimSpace(string(b)),
		HTTPStatus: resp.StatusCode,
	}
}
