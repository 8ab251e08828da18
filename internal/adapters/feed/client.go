// Package feed pulls product payloads from the upstream catalog API.
package feed

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"travel_booking/internal/adapters/observability"
	"travel_booking/internal/domain"
)

const maxAttempts = 4

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API (tries current endpoints first, falls back to legacy ones) ----

// ListProductIDs returns product ids in the order the feed lists them.
func (c *Client) ListProductIDs(ctx context.Context) ([]string, error) {
	var raw any
	if err := c.getFirst(ctx, "list", []string{
		c.base + "/products",
		c.base + "/catalog",
	}, &raw); err != nil {
		return nil, err
	}
	return extractIDs(raw)
}

func (c *Client) GetProduct(ctx context.Context, id string) (map[string]any, error) {
	esc := url.PathEscape(id)
	var out map[string]any
	return out, c.getFirst(ctx, "product", []string{
		c.base + "/products/" + esc,
		c.base + "/product/" + esc, // legacy
	}, &out)
}

// extractIDs accepts a bare array or an {"items"|"data"|"products": [...]}
// envelope whose entries are ids or objects carrying an "id".
func extractIDs(raw any) ([]string, error) {
	if m, ok := raw.(map[string]any); ok {
		for _, k := range []string{"items", "data", "products"} {
			if v, ok := m[k]; ok {
				raw = v
				break
			}
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("feed: unexpected listing shape %T", raw)
	}
	ids := make([]string, 0, len(list))
	for _, it := range list {
		switch t := it.(type) {
		case string:
			ids = append(ids, t)
		case float64:
			ids = append(ids, strconv.FormatInt(int64(t), 10))
		case map[string]any:
			switch id := t["id"].(type) {
			case string:
				ids = append(ids, id)
			case float64:
				ids = append(ids, strconv.FormatInt(int64(id), 10))
			}
		}
	}
	return ids, nil
}

// ---- Internals ----

func (c *Client) getFirst(ctx context.Context, endpoint string, urls []string, out any) error {
	var last error
	for _, u := range urls {
		if err := c.get(ctx, endpoint, u, out); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				last = err
				continue // try next pattern
			}
			return err // non-404: stop early
		}
		return nil
	}
	if last != nil {
		return last
	}
	return errors.New("no candidate URL succeeded")
}

// get performs one rate-limited GET and decodes the JSON body into out.
// 429 and transient 5xx answers are retried, honoring Retry-After.
func (c *Client) get(ctx context.Context, endpoint, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		wait, err := c.attempt(ctx, endpoint, u, out)
		if err == nil {
			return nil
		}
		if wait < 0 {
			return err
		}
		lastErr = err
		if wait == 0 {
			wait = backoff(i)
		}
		if i == maxAttempts-1 || !sleepCtx(ctx, wait) {
			break
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return lastErr
}

// attempt issues a single request. A negative wait marks err as final; any
// other wait is the server-requested delay before retrying (0 = use backoff).
func (c *Client) attempt(ctx context.Context, endpoint, u string, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return -1, err
	}
	req.Header.Set("X-API-Key", c.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "travel-booking-ingestor/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("feed", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("feed", endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return -1, fmt.Errorf("feed: decode %s: %w", endpoint, err)
		}
		return -1, nil
	}
	if final := statusErr(endpoint, resp.StatusCode); final != nil {
		return -1, final
	}
	if retryable(resp.StatusCode) {
		return retryAfter(resp), fmt.Errorf("feed: %s answered %d", endpoint, resp.StatusCode)
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return -1, fmt.Errorf("feed: %s bad status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
}

func statusErr(endpoint string, code int) error {
	switch code {
	case http.StatusNotFound, http.StatusGone, http.StatusUnauthorized, http.StatusForbidden:
		return &domain.UpstreamError{Service: "feed", Endpoint: endpoint, Status: code}
	}
	return nil
}

func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date); 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
