package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultCacheTime  = 30 * time.Minute
	DefaultRetries    = 2
	DefaultRetryDelay = time.Second

	defaultCacheSize = 256
	keyPrefix        = "translations"
)

type ClientConfig struct {
	BaseURL    string
	StaleTime  time.Duration
	CacheTime  time.Duration
	// Retries defaults to DefaultRetries; a negative value disables retrying.
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
}

type cached struct {
	data      map[string]any
	fetchedAt time.Time
}

// Client fetches namespace objects from the translation API and keeps them in a
// shared query cache. Entries are fresh for StaleTime and evicted after CacheTime.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *lru.LRU[string, cached]
	group      singleflight.Group
	staleTime  time.Duration
	retries    uint64
	retryDelay time.Duration
	flightTTL  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

type ClientOption func(*Client)

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(cfg ClientConfig, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = DefaultStaleTime
	}
	if cfg.CacheTime <= 0 {
		cfg.CacheTime = DefaultCacheTime
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		cache:      lru.NewLRU[string, cached](defaultCacheSize, nil, cfg.CacheTime),
		staleTime:  cfg.StaleTime,
		retries:    uint64(cfg.Retries),
		retryDelay: cfg.RetryDelay,
		flightTTL:  time.Duration(cfg.Retries+1)*(timeout+cfg.RetryDelay),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey identifies one namespace in one base language.
func CacheKey(namespace, lang string) string {
	return keyPrefix + "|" + namespace + "|" + lang
}

// Cached returns whatever is cached for the namespace, fresh or stale.
func (c *Client) Cached(namespace, locale string) (map[string]any, bool) {
	e, ok := c.cache.Get(CacheKey(namespace, BaseLanguage(locale)))
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Fetch returns the namespace object, from the cache while it is fresh. Concurrent
// fetches of the same key share one request. When a refetch fails, stale data is
// still returned alongside the error.
func (c *Client) Fetch(ctx context.Context, namespace, locale string) (map[string]any, error) {
	lang := BaseLanguage(locale)
	key := CacheKey(namespace, lang)

	prev, hit := c.cache.Get(key)
	if hit && c.now().Sub(prev.fetchedAt) < c.staleTime {
		return prev.data, nil
	}

	// The shared request outlives any single caller; each caller stops waiting
	// on its own ctx below.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTTL)
		defer cancel()
		data, err := c.fetchWithRetry(fetchCtx, namespace, lang)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, cached{data: data, fetchedAt: c.now()})
		return data, nil
	})

	select {
	case <-ctx.Done():
		if hit {
			return prev.data, ctx.Err()
		}
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("translation fetch failed", "namespace", namespace, "language", lang, "error", res.Err)
			if hit {
				return prev.data, res.Err
			}
			return nil, res.Err
		}
		return res.Val.(map[string]any), nil
	}
}

// Preload warms the cache for several namespaces at once.
func (c *Client) Preload(ctx context.Context, locale string, namespaces ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, ns := range namespaces {
		g.Go(func() error {
			_, err := c.Fetch(ctx, ns, locale)
			return err
		})
	}
	return g.Wait()
}

// Invalidate drops the namespace in every language. An empty namespace drops everything.
// Long-lived callers use it after learning of a publish; the next Fetch goes to the API.
func (c *Client) Invalidate(namespace string) {
	if namespace == "" {
		c.cache.Purge()
		return
	}
	prefix := CacheKey(namespace, "")
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("translation API returned status %d", e.status)
}

func (c *Client) fetchWithRetry(ctx context.Context, namespace, lang string) (map[string]any, error) {
	var data map[string]any
	backoff := retry.WithMaxRetries(c.retries, retry.NewConstant(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		data, err = c.fetch(ctx, namespace, lang)
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok && se.status < http.StatusInternalServerError {
			return err
		}
		return retry.RetryableError(err)
	})
	return data, err
}

func (c *Client) fetch(ctx context.Context, namespace, lang string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/api/translations/namespace/%s?language=%s",
		c.baseURL, url.PathEscape(namespace), url.QueryEscape(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", namespace, lang, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &statusError{status: resp.StatusCode}
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", namespace, lang, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
