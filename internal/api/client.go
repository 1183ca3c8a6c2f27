package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decorbook/internal/config"
	"decorbook/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cachePrefix = "api:"

// Client talks to the marketplace REST API. A client built by NewPublic sends
// no credentials; WithSession derives one that attaches the session's bearer
// token to every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration

	session SessionSource
}

// NewPublic constructs an unauthenticated client for public reads.
func NewPublic(cfg config.APIConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		l := zerolog.Nop()
		logger = &l
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    newRateLimiter(cfg.RateLimit),
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for public GET endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// WithSession returns a copy that authenticates with src. Responses of the
// copy are never cached.
func (c *Client) WithSession(src SessionSource) *Client {
	cp := *c
	cp.session = src
	return &cp
}

// Authenticated reports whether the client carries a session source.
func (c *Client) Authenticated() bool {
	return c.session != nil
}

// InvalidateCache drops every cached public response. Called after catalog
// mutations so the next read sees fresh data.
func (c *Client) InvalidateCache(ctx context.Context) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.redis.Del(ctx, iter.Val()).Err()
	}
}

type request struct {
	method string
	route  string // metrics label, e.g. /bookings/:id
	path   string
	query  url.Values
	body   any
	cache  bool
}

func (c *Client) get(ctx context.Context, route, path string, query url.Values, out any) error {
	return c.send(ctx, request{method: http.MethodGet, route: route, path: path, query: query}, out)
}

func (c *Client) getCached(ctx context.Context, route, path string, query url.Values, out any) error {
	return c.send(ctx, request{method: http.MethodGet, route: route, path: path, query: query, cache: true}, out)
}

func (c *Client) post(ctx context.Context, route, path string, body, out any) error {
	return c.send(ctx, request{method: http.MethodPost, route: route, path: path, body: body}, out)
}

func (c *Client) put(ctx context.Context, route, path string, body, out any) error {
	return c.send(ctx, request{method: http.MethodPut, route: route, path: path, body: body}, out)
}

func (c *Client) patch(ctx context.Context, route, path string, query url.Values, body, out any) error {
	return c.send(ctx, request{method: http.MethodPatch, route: route, path: path, query: query, body: body}, out)
}

func (c *Client) delete(ctx context.Context, route, path string, out any) error {
	return c.send(ctx, request{method: http.MethodDelete, route: route, path: path}, out)
}

func (c *Client) send(ctx context.Context, r request, out any) error {
	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	useCache := r.cache && c.session == nil
	cacheKey := cachePrefix + r.path + "?" + r.query.Encode()
	if useCache && c.readCache(ctx, cacheKey, out) {
		return nil
	}

	var token, limiterKey string
	limiterKey = "public"
	if c.session != nil {
		sess, err := c.session.Session(ctx)
		if err != nil {
			return err
		}
		if sess == nil || sess.AccessToken == "" {
			return ErrUnauthorized
		}
		token = sess.AccessToken
		limiterKey = sess.Email
	}

	if err := c.limiter.wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req, token)

	start := time.Now()
	raw, err := c.do(req)
	code := 0
	var apiErr *Error
	switch {
	case err == nil:
		code = http.StatusOK
	case asError(err, &apiErr):
		code = apiErr.StatusCode
	}
	metrics.ObserveAPI(r.method, r.route, code, time.Since(start))

	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("method", r.method).
			Str("route", r.route).
			Str("request_id", req.Header.Get("X-Request-ID")).
			Msg("api request failed")
		return err
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", r.method, r.route, err)
		}
	}
	if useCache {
		c.writeCache(ctx, cacheKey, raw)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, newError(resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *Client) addHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID(req.Context()))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		metrics.IncCache(false)
		return false
	}
	if out != nil {
		if err := json.Unmarshal(val, out); err != nil {
			metrics.IncCache(false)
			return false
		}
	}
	metrics.IncCache(true)
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, raw []byte) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	_ = c.redis.Set(ctx, key, raw, c.cacheTTL).Err()
}

type requestIDKey struct{}

// ContextWithRequestID makes outgoing requests reuse id instead of minting one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
