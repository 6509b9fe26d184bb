// Package googlebiz wraps the Business Profile reviews API: paged review
// listing behind a bearer token, with exactly one refresh-and-replay on 401.
package googlebiz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/adapters/observability"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/domain"
	"github.com/swarajb-778/FlexApp-Reviews-Dashboard-sub001/internal/normalize"
)

const (
	service  = "google_business"
	pageSize = 50
)

// Credentials carry what a token refresh needs.
type Credentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type Client struct {
	base  string
	hc    *http.Client
	rl    *rate.Limiter
	creds Credentials

	mu    sync.Mutex
	token string
}

func New(base string, creds Credentials, minDelay time.Duration) (*Client, error) {
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("googlebiz: refresh token is required")
	}
	if minDelay <= 0 {
		minDelay = 200 * time.Millisecond
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 15 * time.Second},
		rl:    rate.NewLimiter(rate.Every(minDelay), 1),
		creds: creds,
	}, nil
}

type reviewsPage struct {
	Reviews       []json.RawMessage `json:"reviews"`
	NextPageToken string            `json:"nextPageToken"`
	TotalCount    int               `json:"totalReviewCount"`
}

// FetchReviews walks every page of reviews for one location.
func (c *Client) FetchReviews(ctx context.Context, locationRef string) ([]domain.BusinessReview, error) {
	if locationRef == "" {
		return nil, domain.ErrInvalidLocator
	}

	var out []domain.BusinessReview
	pageToken := ""
	for {
		q := url.Values{"pageSize": {fmt.Sprintf("%d", pageSize)}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}
		u := fmt.Sprintf("%s/%s/reviews?%s", c.base, locationRef, q.Encode())

		var page reviewsPage
		if err := c.withAuthRetry(ctx, func() error {
			return c.get(ctx, u, "/reviews", &page)
		}); err != nil {
			return nil, err
		}

		for _, raw := range page.Reviews {
			var rv domain.BusinessReview
			if err := json.Unmarshal(raw, &rv); err != nil {
				rv = domain.BusinessReview{}
			}
			rv.Raw = append(json.RawMessage(nil), raw...)
			rv.Extra = normalize.BusinessExtras(rv.Raw)
			out = append(out, rv)
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
		page = reviewsPage{}
	}
}

// withAuthRetry attempts fn; on an authorization failure it performs exactly
// one token refresh plus one replay, never looping. A failed refresh clears
// the token so the next construction re-initializes it.
func (c *Client) withAuthRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if !domain.IsProviderKind(err, domain.KindUnauthorized) {
		return err
	}
	if rerr := c.refreshToken(ctx); rerr != nil {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return &domain.ProviderError{
			Provider: service,
			Kind:     domain.KindAccessDenied,
			Message:  fmt.Sprintf("token refresh failed: %v", rerr),
		}
	}
	return fn()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) refreshToken(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.creds.ClientID},
		"client_secret": {c.creds.ClientSecret},
		"refresh_token": {c.creds.RefreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.creds.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, "/token", 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, "/token", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("token endpoint %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}
	if tr.AccessToken == "" {
		return fmt.Errorf("token endpoint returned empty access_token")
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.mu.Unlock()
	return nil
}

func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) get(ctx context.Context, u, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if t := c.bearer(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
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
