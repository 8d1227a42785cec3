package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sentinels for the two terminal outcomes a caller may want to branch on.
var (
	ErrMaxRetries         = errors.New("max retries exceeded")
	ErrAllProvidersFailed = errors.New("all providers failed")
)

const bodyExcerptLen = 300

// Result is the outcome of one logical fetch: the final HTTP status, the raw
// payload, the URL that answered, and a terminal error if any. A Result with
// Err != nil carries no usable Body, but Status may still identify the
// terminal HTTP code (e.g. 404).
type Result struct {
	Status int
	Body   []byte
	URL    string
	Err    error
}

func (r Result) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	return json.Unmarshal(r.Body, v)
}

// Config for a Client. Sleep is injectable so tests don't wait out backoffs;
// nil means time.Sleep.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Sleep      func(time.Duration)
}

// Client performs GET/POST with bounded retries. Transport failures and the
// statuses {429, 500, 502, 503} are retried with a doubling backoff starting
// at Backoff; a ratelimit-reset header extends the delay when it asks for
// more. Any other non-200 status is terminal and surfaced immediately with a
// truncated body excerpt. Every call is independent: no state is kept
// between fetches.
type Client struct {
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	sleep      func(time.Duration)
}

func New(cfg Config) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		sleep:      cfg.Sleep,
	}
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) Result {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *Client) Post(ctx context.Context, url string, body any, headers map[string]string) Result {
	raw, err := json.Marshal(body)
	if err != nil {
		return Result{URL: url, Err: err}
	}
	hdrs := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		hdrs[k] = v
	}
	return c.do(ctx, http.MethodPost, url, raw, hdrs)
}

// GetFailover tries each provider base URL in the given strict order and
// returns the first successful Result. Callers must not assume which
// provider answered beyond Result.URL.
func (c *Client) GetFailover(ctx context.Context, providers []string, path string, headers map[string]string) Result {
	for _, base := range providers {
		url := strings.TrimRight(base, "/") + path
		res := c.Get(ctx, url, headers)
		if res.Err == nil {
			return res
		}
		zap.L().Warn("provider failed, trying next",
			zap.String("url", url), zap.Error(res.Err))
	}
	return Result{URL: path, Err: fmt.Errorf("%w: %s", ErrAllProvidersFailed, path)}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) Result {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return Result{URL: url, Err: err}
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return Result{URL: url, Err: ctx.Err()}
			}
			if attempt < c.maxRetries-1 {
				c.sleep(c.backoffDelay(attempt, nil))
			}
			continue
		}

		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return Result{Status: resp.StatusCode, Body: payload, URL: url}
		case retryable(resp.StatusCode):
			lastErr = fmt.Errorf("transient status %d", resp.StatusCode)
			wait := c.backoffDelay(attempt, resp.Header)
			zap.L().Warn("retryable status, backing off",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait))
			if attempt < c.maxRetries-1 {
				c.sleep(wait)
			}
		default:
			return Result{
				Status: resp.StatusCode,
				URL:    url,
				Err:    fmt.Errorf("HTTP %d: %s", resp.StatusCode, excerpt(payload)),
			}
		}
	}

	return Result{URL: url, Err: fmt.Errorf("%w: %v", ErrMaxRetries, lastErr)}
}

// backoffDelay doubles per attempt; a ratelimit-reset header (seconds) wins
// when it asks for a longer wait.
func (c *Client) backoffDelay(attempt int, hdr http.Header) time.Duration {
	wait := c.backoff * (1 << attempt)
	if hdr == nil {
		return wait
	}
	if reset := hdr.Get("ratelimit-reset"); reset != "" {
		if secs, err := strconv.Atoi(reset); err == nil {
			if hinted := time.Duration(secs) * time.Second; hinted > wait {
				wait = hinted
			}
		}
	}
	return wait
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

func excerpt(body []byte) string {
	if len(body) > bodyExcerptLen {
		body = body[:bodyExcerptLen]
	}
	return string(body)
}
