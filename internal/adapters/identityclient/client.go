package identityclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog/log"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/metrics"
)

// Client обращается к сервису идентификации за подтверждёнными адресами.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	cache      domain.Cache
	cacheTTL   time.Duration
}

var _ domain.IdentityService = (*Client)(nil)

// Option настраивает клиент.
type Option func(*Client)

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache включает кэширование найденных адресов.
func WithCache(cache domain.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// New создаёт клиент сервиса идентификации.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type emailResponse struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// VerifiedEmail возвращает подтверждённый адрес получателя. Пустая строка
// означает, что адреса нет или он не подтверждён; это не ошибка.
func (c *Client) VerifiedEmail(ctx context.Context, recipientID string) (string, error) {
	if email, ok := c.fromCache(ctx, recipientID); ok {
		return email, nil
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/v1/users", url.PathEscape(recipientID), "email")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("identity", "verified_email", "users", start, err)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("identity request failed: status %d: %s", resp.StatusCode, string(data))
	}

	var payload emailResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !payload.Verified {
		return "", nil
	}

	c.toCache(ctx, recipientID, payload.Email)
	return payload.Email, nil
}

func (c *Client) fromCache(ctx context.Context, recipientID string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	value, err := c.cache.Get(ctx, cacheKey(recipientID))
	if err != nil || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

func (c *Client) toCache(ctx context.Context, recipientID, email string) {
	if c.cache == nil || email == "" {
		return
	}
	if err := c.cache.Set(ctx, cacheKey(recipientID), []byte(email), c.cacheTTL); err != nil {
		log.Warn().Err(err).Str("recipient", recipientID).Msg("identity: не удалось закэшировать адрес")
	}
}

func cacheKey(recipientID string) string {
	return "identity:email:" + recipientID
}
