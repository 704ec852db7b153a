package design

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/forge/internal/httpclient"
)

func testClient(t *testing.T, srv *httptest.Server, apiKey string) *Client {
	t.Helper()
	c, err := newClient(Config{Endpoint: srv.URL + "/enrich", APIKey: apiKey, CacheSize: 8, Logger: zap.NewNop().Sugar()},
		httpclient.Wrap(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestEnrich(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/enrich", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"markup": `<div class="card"></div>`})
	}))
	defer srv.Close()

	markup, err := testClient(t, srv, "secret").Enrich(context.Background(), Request{
		Kind: "component", Name: "TaskCard", Framework: "react", Theme: "dark",
		Palette: map[string]string{"primary": "#4f46e5"},
	})
	require.NoError(t, err)
	assert.Equal(t, `<div class="card"></div>`, markup)
	assert.Equal(t, "TaskCard", got.Name)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "#4f46e5", got.Palette["primary"])
}

func TestEnrichCachesIdenticalRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"markup": "<p/>"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv, "")
	req := Request{Kind: "page", Name: "Home", Framework: "vue"}
	for i := 0; i < 3; i++ {
		markup, err := c.Enrich(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "<p/>", markup)
	}
	assert.EqualValues(t, 1, calls.Load())

	_, err := c.Enrich(context.Background(), Request{Kind: "page", Name: "About", Framework: "vue"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestEnrichFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		errPart string
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
			errPart: "status 503",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
			errPart: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := testClient(t, srv, "")
			_, err := c.Enrich(context.Background(), Request{Kind: "component", Name: "X"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Equal(t, 0, c.cache.Len(), "failures are not cached")
		})
	}
}

func TestEnrichHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := testClient(t, srv, "").Enrich(ctx, Request{Kind: "component", Name: "Slow"})
	require.Error(t, err)
}

func TestNewClientRejectsPrivateEndpoints(t *testing.T) {
	for _, endpoint := range []string{"http://localhost:9000/enrich", "ftp://design.example.com", "http://10.0.0.8/enrich", ""} {
		_, err := NewClient(Config{Endpoint: endpoint})
		assert.Error(t, err, endpoint)
	}

	c, err := NewClient(Config{Endpoint: "https://design.example.com/enrich"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
