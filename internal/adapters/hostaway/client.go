// Package hostaway is the property-management API client. Every outbound
// call waits on a min-delay rate limiter shared by the client instance, so
// concurrent callers serialize through one clock.
package hostaway

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

const service = "hostaway"

type Client struct {
	base string
	key  string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base, key string, minDelay time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("hostaway: API key is required")
	}
	if minDelay <= 0 {
		minDelay = 200 * time.Millisecond
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 15 * time.Second},
		// burst 1: the limiter's internal lock serializes concurrent
		// callers and enforces minDelay between consecutive requests.
		rl: rate.NewLimiter(rate.Every(minDelay), 1),
	}, nil
}

type reviewsEnvelope struct {
	Status string            `json:"status"`
	Result []json.RawMessage `json:"result"`
}

// FetchReviews returns every review the property API holds for one listing,
// or all listings when listingID is empty (full sync).
func (c *Client) FetchReviews(ctx context.Context, listingID string) ([]domain.HostawayReview, error) {
	u := c.base + "/reviews"
	if listingID != "" {
		u += "?listingMapId=" + url.QueryEscape(listingID)
	}

	var env reviewsEnvelope
	if err := c.get(ctx, u, "/reviews", &env); err != nil {
		return nil, err
	}

	out := make([]domain.HostawayReview, 0, len(env.Result))
	for _, raw := range env.Result {
		var item domain.HostawayReview
		if err := json.Unmarshal(raw, &item); err != nil {
			// keep the malformed item; the normalizer surfaces it as a
			// per-item error instead of dropping it silently
			item = domain.HostawayReview{}
		}
		item.Raw = append(json.RawMessage(nil), raw...)
		item.Extra = normalize.HostawayExtras(item.Raw)
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
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
