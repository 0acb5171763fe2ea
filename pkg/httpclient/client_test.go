package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "giftregistry-link-preview/1.0", r.UserAgent())
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := New(fastConfig()).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BlocksPrivateNetworks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request must not reach a loopback server")
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.BlockPrivateNetworks = true
	_, err := New(cfg).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.RetryWaitMin = time.Hour
	cfg.RetryWaitMax = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(cfg).Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCircuitBreakerClient_Trips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 0
	cbCfg := DefaultCircuitBreakerConfig("test-trip")
	cbCfg.MinRequests = 2
	cb := NewCircuitBreakerClient(New(cfg), cbCfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 2; i++ {
		_, err := cb.Get(context.Background(), srv.URL)
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.True(t, serr.Temporary())
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Get(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

func TestCircuitBreakerClient_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cbCfg := DefaultCircuitBreakerConfig("test-4xx")
	cbCfg.MinRequests = 1
	cb := NewCircuitBreakerClient(New(fastConfig()), cbCfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		resp, err := cb.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/gone" {
			w.WriteHeader(http.StatusGone)
		}
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ok")
	require.NoError(t, err)
	assert.NoError(t, CheckStatus(resp))
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/gone")
	require.NoError(t, err)
	err = CheckStatus(resp)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusGone, serr.StatusCode)
	assert.False(t, serr.Temporary())
	assert.True(t, IsClientError(serr.StatusCode))
	assert.Contains(t, err.Error(), "/gone")
}
