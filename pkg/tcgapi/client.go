// Package tcgapi provides a client for the Pokemon TCG API card and set
// endpoints.
package tcgapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the Pokemon TCG API operations used by this application.
type Client interface {
	// CardPrices looks up the best-matching card by name and returns it
	// with its TCGPlayer price variants. Returns (nil, nil) when the query
	// succeeds but matches no card.
	CardPrices(ctx context.Context, name string) (*Card, error)
	// Sets lists all card sets.
	Sets(ctx context.Context) ([]Set, error)
}

// Card is a single card from the /v2/cards endpoint, trimmed to the fields
// this application reads.
type Card struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	TCGPlayer *TCGPlayer `json:"tcgplayer,omitempty"`
}

// TCGPlayer holds the TCGPlayer pricing block attached to a card.
type TCGPlayer struct {
	URL       string          `json:"url"`
	UpdatedAt string          `json:"updatedAt"`
	Prices    TCGPlayerPrices `json:"prices"`
}

// TCGPlayerPrices carries the per-variant price points. Variants absent
// from the payload decode as nil.
type TCGPlayerPrices struct {
	Normal          *PricePoints `json:"normal,omitempty"`
	Holofoil        *PricePoints `json:"holofoil,omitempty"`
	ReverseHolofoil *PricePoints `json:"reverseHolofoil,omitempty"`
}

// PricePoints is a TCGPlayer price spread in USD.
type PricePoints struct {
	Low    *float64 `json:"low,omitempty"`
	Mid    *float64 `json:"mid,omitempty"`
	High   *float64 `json:"high,omitempty"`
	Market *float64 `json:"market,omitempty"`
}

// Set is a card set from the /v2/sets endpoint.
type Set struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	PrintedTotal int    `json:"printedTotal"`
	Total        int    `json:"total"`
	ReleaseDate  string `json:"releaseDate"`
}

// StatusError reports a non-success HTTP status from the API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tcgapi: unexpected status %d", e.StatusCode)
}

// Option configures the TCG API client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default client-side throttle.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Pokemon TCG API client. The API key may be empty;
// unauthenticated requests get a lower rate quota upstream, so calls are
// throttled client-side (default 2 req/s).
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.pokemontcg.io",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(2, 2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// get issues a GET request and returns the response body. Non-2xx statuses
// are returned as *StatusError.
func (c *httpClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, eris.Wrap(err, "tcgapi: rate limit wait")
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "tcgapi: build request")
	}
	req.Header.Set("User-Agent", "cardintel/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "tcgapi: read body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return body, nil
}

func (c *httpClient) CardPrices(ctx context.Context, name string) (*Card, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("name:%q", name))
	query.Set("pageSize", "1")

	body, err := c.get(ctx, "/v2/cards", query)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Card `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "tcgapi: decode cards response")
	}
	if len(payload.Data) == 0 {
		return nil, nil
	}
	return &payload.Data[0], nil
}

func (c *httpClient) Sets(ctx context.Context) ([]Set, error) {
	var all []Set
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", fmt.Sprintf("%d", page))
		query.Set("pageSize", "250")

		body, err := c.get(ctx, "/v2/sets", query)
		if err != nil {
			return nil, err
		}

		var payload struct {
			Data       []Set `json:"data"`
			Count      int   `json:"count"`
			TotalCount int   `json:"totalCount"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, eris.Wrap(err, "tcgapi: decode sets response")
		}

		all = append(all, payload.Data...)
		if len(all) >= payload.TotalCount || len(payload.Data) == 0 {
			break
		}
	}
	return all, nil
}
