package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beaconchain_verifier/internal/fetch"
)

func newTestClient(retries int, sleeps *[]time.Duration) *fetch.Client {
	return fetch.New(fetch.Config{
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		Backoff:    2 * time.Second,
		Sleep: func(d time.Duration) {
			*sleeps = append(*sleeps, d)
		},
	})
}

func TestGet_RetriesThenSucceeds(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	c := newTestClient(3, &sleeps)

	res := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, int32(3), calls)
	// Two 429s, so exactly two backoff delays: 2s then 4s.
	require.Len(t, sleeps, 2)
	assert.Equal(t, 2*time.Second, sleeps[0])
	assert.Equal(t, 4*time.Second, sleeps[1])
}

func TestGet_TerminalStatusNoRetry(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	c := newTestClient(3, &sleeps)

	res := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, res.Err)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Contains(t, res.Err.Error(), "HTTP 404")
	assert.Contains(t, res.Err.Error(), "nope")
	assert.Equal(t, int32(1), calls, "a terminal status must never be retried")
	assert.Empty(t, sleeps)
}

func TestGet_RateLimitResetHintExtendsBackoff(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("ratelimit-reset", "9")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	c := newTestClient(3, &sleeps)

	res := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, res.Err)
	require.Len(t, sleeps, 1)
	assert.Equal(t, 9*time.Second, sleeps[0], "reset hint longer than the backoff must win")
}

func TestGet_MaxRetriesExceeded(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var sleeps []time.Duration
	c := newTestClient(3, &sleeps)

	res := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, fetch.ErrMaxRetries))
	// No sleep after the final attempt.
	assert.Len(t, sleeps, 2)
}

func TestGetFailover_OrderedProviders(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"from":"good"}`))
	}))
	defer good.Close()

	var sleeps []time.Duration
	c := newTestClient(3, &sleeps)

	res := c.GetFailover(context.Background(), []string{bad.URL, good.URL}, "/path", nil)
	require.NoError(t, res.Err)
	assert.Contains(t, res.URL, good.URL)
}

func TestGetFailover_AllFail(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer bad.Close()

	var sleeps []time.Duration
	c := newTestClient(1, &sleeps)

	res := c.GetFailover(context.Background(), []string{bad.URL, bad.URL}, "/path", nil)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, fetch.ErrAllProvidersFailed))
}

func TestPost_SendsJSONAndHeaders(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())

	var gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	c := newTestClient(1, &sleeps)

	res := c.Post(context.Background(), srv.URL, map[string]int{"epoch": 1}, map[string]string{"Authorization": "Bearer k"})
	require.NoError(t, res.Err)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer k", gotAuth)
}
