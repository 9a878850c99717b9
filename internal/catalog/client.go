// Package catalog asks the collections subgraph whether an item exists. It
// is the hard dependency of pick creation: when it cannot answer, the whole
// operation fails.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const existenceQuery = `query getItem($id: String!) { items(where: { id: $id }, first: 1) { id } }`

type Client struct {
	url   string
	http  *http.Client
	cache *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

type Option func(*Client)

// WithCache adds a Redis read-through cache for positive lookups.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = client
		c.ttl = ttl
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

func New(subgraphURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		url:  subgraphURL,
		http: &http.Client{Timeout: 10 * time.Second},
		ttl:  time.Hour,
		log:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ItemExists reports whether the catalog knows the item. Only positive
// answers are cached: an item absent now may be published later.
func (c *Client) ItemExists(ctx context.Context, itemID string) (bool, error) {
	if c.cached(ctx, itemID) {
		return true, nil
	}

	payload, err := json.Marshal(map[string]any{
		"query":     existenceQuery,
		"variables": map[string]string{"id": itemID},
	})
	if err != nil {
		return false, fmt.Errorf("marshal item query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("build item query: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("query collections subgraph: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("collections subgraph returned status %d", resp.StatusCode)
	}

	var decoded struct {
		Data struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode collections subgraph response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return false, fmt.Errorf("collections subgraph error: %s", decoded.Errors[0].Message)
	}

	exists := len(decoded.Data.Items) > 0
	if exists {
		c.remember(ctx, itemID)
	}
	return exists, nil
}

func (c *Client) cacheKey(itemID string) string {
	return "catalog:item:" + itemID
}

func (c *Client) cached(ctx context.Context, itemID string) bool {
	if c.cache == nil {
		return false
	}
	err := c.cache.Get(ctx, c.cacheKey(itemID)).Err()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		// A broken cache only costs a subgraph round trip.
		c.log.Warn().Err(err).Msg("item cache read failed")
		return false
	}
	return true
}

func (c *Client) remember(ctx context.Context, itemID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(itemID), "1", c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("item cache write failed")
	}
}
