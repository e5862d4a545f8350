// Package pokeapi implements catalog.Provider against the PokeAPI REST API.
//
// The API has no notion of price or stock, so the client assigns them from an
// injectable random source when items are fetched: price 10..99, stock 5..19.
package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/pokemart/internal/catalog"
)

// DefaultBaseURL is the public PokeAPI endpoint.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// DefaultConcurrency bounds parallel detail requests.
const DefaultConcurrency = 8

// Rand is the random source used for price and stock assignment.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Client fetches catalog data over HTTP.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int

	mu  sync.Mutex // guards rng; detail fetches run in parallel
	rng Rand
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client (default: 30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithConcurrency bounds parallel detail requests.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithRand sets the random source for price and stock.
func WithRand(r Rand) Option {
	return func(c *Client) { c.rng = r }
}

// New creates a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		concurrency: DefaultConcurrency,
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listResponse struct {
	Results []namedResource `json:"results"`
}

type pokemonDetail struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Height int    `json:"height"`
	Weight int    `json:"weight"`
	Types  []struct {
		Slot int           `json:"slot"`
		Type namedResource `json:"type"`
	} `json:"types"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Versions     struct {
			GenerationV struct {
				BlackWhite struct {
					Animated struct {
						FrontDefault string `json:"front_default"`
					} `json:"animated"`
				} `json:"black-white"`
			} `json:"generation-v"`
		} `json:"versions"`
	} `json:"sprites"`
}

// FetchCatalog lists the first limit pokémon and fetches their details
// concurrently. Any failed request fails the whole load.
func (c *Client) FetchCatalog(ctx context.Context, limit int) ([]catalog.Item, error) {
	if limit <= 0 {
		limit = 151
	}
	listURL := fmt.Sprintf("%s/pokemon?limit=%d", c.baseURL, limit)

	var list listResponse
	if err := c.getJSON(ctx, listURL, &list); err != nil {
		return nil, &catalog.LoadError{Op: "list", Err: err}
	}

	slog.Debug("fetching pokemon details", "count", len(list.Results), "concurrency", c.concurrency)

	items := make([]catalog.Item, len(list.Results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, res := range list.Results {
		g.Go(func() error {
			detailURL, err := c.resolve(res.URL)
			if err != nil {
				return &catalog.LoadError{Op: "detail " + res.Name, Err: err}
			}
			var d pokemonDetail
			if err := c.getJSON(gctx, detailURL, &d); err != nil {
				return &catalog.LoadError{Op: "detail " + res.Name, Err: err}
			}
			items[i] = c.toItem(i+1, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Info("catalog fetched", "items", len(items))
	return items, nil
}

// FetchAvailableTypes lists the type taxonomy, minus the placeholder types
// "unknown" and "shadow".
func (c *Client) FetchAvailableTypes(ctx context.Context) ([]string, error) {
	var list listResponse
	if err := c.getJSON(ctx, c.baseURL+"/type", &list); err != nil {
		return nil, &catalog.LoadError{Op: "types", Err: err}
	}
	types := make([]string, 0, len(list.Results))
	for _, r := range list.Results {
		if r.Name == "unknown" || r.Name == "shadow" {
			continue
		}
		types = append(types, r.Name)
	}
	return types, nil
}

func (c *Client) toItem(position int, d pokemonDetail) catalog.Item {
	id := d.ID
	if id <= 0 {
		id = position
	}
	types := make([]string, 0, len(d.Types))
	for _, t := range d.Types {
		types = append(types, t.Type.Name)
	}
	image := d.Sprites.Versions.GenerationV.BlackWhite.Animated.FrontDefault
	if image == "" {
		image = d.Sprites.FrontDefault
	}

	c.mu.Lock()
	price := 10 + c.rng.IntN(90)
	stock := 5 + c.rng.IntN(15)
	c.mu.Unlock()

	return catalog.Normalize(catalog.Item{
		ID:     id,
		Name:   d.Name,
		Types:  types,
		Price:  decimal.NewFromInt(int64(price)),
		Stock:  stock,
		Height: d.Height,
		Weight: d.Weight,
		Image:  image,
	})
}

// resolve accepts absolute detail URLs and ones relative to the base URL.
func (c *Client) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse detail url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %s", rawURL, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
