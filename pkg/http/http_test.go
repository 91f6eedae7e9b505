package http_test

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/storefront/pkg/http"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["event"]})
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL).Body(map[string]string{"event": "low-stock"}).Send()
	require.NoError(t, err)
	assert.True(t, resp.OK())

	var out map[string]string
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "low-stock", out["echo"])
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(gohttp.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(gohttp.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusNoContent, resp.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, _ *gohttp.Request) {
		calls.Add(1)
		w.WriteHeader(gohttp.StatusBadRequest)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.EqualValues(t, 1, calls.Load())
}

func TestCancelledContextStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := http.Get("http://127.0.0.1:1").WithContext(ctx).Retry(5, time.Second).Send()
	require.Error(t, err)
}
