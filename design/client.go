// Package design is the optional design-system enrichment collaborator. It
// asks an external service for styled markup for a component or page and
// caches answers for the lifetime of the process.
package design

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/internal/httpclient"
	"github.com/teranos/forge/logger"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultCacheSize = 256

	// maxResponseBytes bounds how much markup one response may carry
	maxResponseBytes = 1 << 20
)

// Request describes the artifact to enrich.
type Request struct {
	Kind      string            `json:"kind"`
	Name      string            `json:"name"`
	Framework string            `json:"framework"`
	Theme     string            `json:"theme,omitempty"`
	Palette   map[string]string `json:"palette,omitempty"`
	Props     map[string]any    `json:"props,omitempty"`
}

type response struct {
	Markup string `json:"markup"`
}

// Config holds design client configuration.
type Config struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration      // zero = DefaultTimeout
	CacheSize int                // zero = DefaultCacheSize
	Logger    *zap.SugaredLogger // nil = component logger
}

// Client posts enrichment requests to a design service.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *httpclient.Client
	cache      *lru.Cache[string, string]
	logger     *zap.SugaredLogger
}

// NewClient validates the endpoint and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.ComponentLogger("design")
	}

	hc := httpclient.New(cfg.Timeout)
	if _, err := hc.ValidateURL(cfg.Endpoint); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "invalid design endpoint %q", cfg.Endpoint),
			"set design.endpoint to a public http(s) URL or disable design enrichment",
		)
	}
	return newClient(cfg, hc)
}

func newClient(cfg Config, hc *httpclient.Client) (*Client, error) {
	cache, err := lru.New[string, string](cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create design cache")
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: hc,
		cache:      cache,
		logger:     cfg.Logger,
	}, nil
}

// Enrich returns markup for req. Identical requests are answered from cache.
func (c *Client) Enrich(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal design request")
	}
	key := string(body)
	if markup, ok := c.cache.Get(key); ok {
		c.logger.Debugw("Design cache hit", logger.FieldComponent, req.Name)
		return markup, nil
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to create design request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "failed to reach design service")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", errors.Wrap(err, "failed to read design response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("design service returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "failed to decode design response")
	}

	c.cache.Add(key, out.Markup)
	c.logger.Debugw("Design markup received",
		logger.FieldComponent, req.Name,
		logger.FieldEndpoint, c.endpoint,
		logger.FieldSize, len(out.Markup),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return out.Markup, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
