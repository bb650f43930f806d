// Package cashaccounts resolves CashAccount handles through a lookup server.
package cashaccounts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/mrz1836/cashgate/internal/metrics"
	"github.com/mrz1836/cashgate/internal/upstream"
	gateerr "github.com/mrz1836/cashgate/pkg/errors"
)

// Name identifies the lookup server in metrics and logs.
const Name = "cashaccounts"

// Cache defaults.
const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 10000
)

// ErrNoAccount is returned when a handle resolves to nothing.
var ErrNoAccount = &gateerr.GateError{
	Code:     "NO_ACCOUNT",
	Message:  "No account could be found with the requested parameters.",
	Status:   http.StatusInternalServerError,
	ExitCode: gateerr.ExitNotFound,
}

// ErrInvalidHandle is returned when a handle is not name#number[.collision].
var ErrInvalidHandle = &gateerr.GateError{
	Code:     "INVALID_HANDLE",
	Message:  "Not a valid CashAccount",
	Status:   http.StatusInternalServerError,
	ExitCode: gateerr.ExitInput,
}

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,99}#[0-9]{3,}(\.[0-9]{1,10})?$`)

// Handle is a parsed CashAccount identifier.
type Handle struct {
	Name      string
	Number    string
	Collision string
}

// ParseHandle builds a handle from route parameters. account may carry the
// whole identifier as name#number[.collision], in which case number and
// collision are taken from it.
func ParseHandle(account, number, collision string) Handle {
	h := Handle{Name: account, Number: number, Collision: collision}

	if name, rest, ok := strings.Cut(account, "#"); ok {
		h.Name = name
		h.Number = rest
		h.Collision = ""
		if n, c, hasCollision := strings.Cut(rest, "."); hasCollision {
			h.Number = n
			h.Collision = c
		}
	}
	return h
}

// String renders name#number[.collision].
func (h Handle) String() string {
	s := h.Name + "#" + h.Number
	if h.Collision != "" {
		s += "." + h.Collision
	}
	return s
}

// Valid reports whether the handle is well formed.
func (h Handle) Valid() bool {
	return handlePattern.MatchString(h.String())
}

// Options configures the lookup client.
type Options struct {
	upstream.Options

	// TTL of cached lookups. Zero disables caching.
	TTL time.Duration

	// Capacity bounds the number of cached entries.
	Capacity uint64
}

// Client calls the CashAccount lookup server.
type Client struct {
	http  *upstream.Client
	cache *ttlcache.Cache[string, map[string]any]
	ttl   time.Duration
}

// New creates a lookup client. The cache cleanup goroutine runs until Close.
func New(opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}

	c := &Client{
		http: upstream.NewClient(Name, &opts.Options),
		ttl:  opts.TTL,
	}

	if c.ttl > 0 {
		capacity := opts.Capacity
		if capacity == 0 {
			capacity = DefaultCapacity
		}
		c.cache = ttlcache.New[string, map[string]any](
			ttlcache.WithTTL[string, map[string]any](c.ttl),
			ttlcache.WithCapacity[string, map[string]any](capacity),
			ttlcache.WithDisableTouchOnHit[string, map[string]any](),
		)
		go c.cache.Start()
	}

	return c
}

// Close stops the cache cleanup goroutine.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Stop()
	}
}

// Lookup resolves a handle to its account record.
func (c *Client) Lookup(ctx context.Context, h Handle) (map[string]any, error) {
	if !h.Valid() {
		return nil, ErrNoAccount
	}

	path := "account/" + url.PathEscape(h.Number) + "/" + url.PathEscape(h.Name)
	if h.Collision != "" {
		path += "/" + url.PathEscape(h.Collision)
	}

	return c.cached(ctx, "lookup:"+h.String(), path, ErrNoAccount, func(out map[string]any) (map[string]any, error) {
		if len(out) == 0 || out["identifier"] == nil {
			return nil, ErrNoAccount
		}
		return out, nil
	})
}

// Check returns every registration matching name#number along with the
// inclusion proofs.
func (c *Client) Check(ctx context.Context, h Handle) (map[string]any, error) {
	h.Collision = ""
	if !h.Valid() {
		return nil, ErrInvalidHandle
	}

	path := "lookup/" + url.PathEscape(h.Number) + "/" + url.PathEscape(h.Name)
	return c.cached(ctx, "check:"+h.String(), path, nil, func(out map[string]any) (map[string]any, error) {
		if len(out) == 0 {
			return nil, ErrNoAccount
		}
		camelResults(out)
		return out, nil
	})
}

// ReverseLookup returns the accounts registered to a cash address.
func (c *Client) ReverseLookup(ctx context.Context, cashAddr string) (map[string]any, error) {
	path := "reverselookup/" + url.PathEscape(cashAddr)
	return c.cached(ctx, "reverse:"+cashAddr, path, nil, func(out map[string]any) (map[string]any, error) {
		if len(out) == 0 {
			return nil, ErrNoAccount
		}
		camelResults(out)
		return out, nil
	})
}

// cached serves key from the cache, or fetches path, shapes it and caches
// the shaped result. A 404 becomes notFound when it is set.
func (c *Client) cached(ctx context.Context, key, path string, notFound error, shape func(map[string]any) (map[string]any, error)) (map[string]any, error) {
	if c.cache != nil {
		if item := c.cache.Get(key); item != nil {
			metrics.Global.RecordCacheHit()
			return item.Value(), nil
		}
		metrics.Global.RecordCacheMiss()
	}

	var out map[string]any
	if err := c.http.GetJSON(ctx, path, nil, &out); err != nil {
		var httpErr *upstream.HTTPError
		if notFound != nil && errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			return nil, notFound
		}
		return nil, fmt.Errorf("%s %s: %w", Name, path, err)
	}

	shaped, err := shape(out)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(key, shaped, ttlcache.DefaultTTL)
	}
	return shaped, nil
}

// camelResults rewrites the snake_case keys of every entry in out["results"].
func camelResults(out map[string]any) {
	results, ok := out["results"].([]any)
	if !ok {
		return
	}
	for i, r := range results {
		if m, isMap := r.(map[string]any); isMap {
			results[i] = CamelKeys(m)
		}
	}
}

// CamelKeys returns a copy of m with snake_case keys rewritten to camelCase.
func CamelKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[camel(k)] = v
	}
	return out
}

func camel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]))
			b.WriteString(p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}
