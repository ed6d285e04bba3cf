// Package slotgw is the HTTP client for the slot source: the remote service
// that knows which open slots a mentor/offering has on a given date. The
// gateway's answer is ground truth; no conflict reconciliation happens here.
package slotgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"mentorhub/internal/models"
)

// Client calls the slot source availability endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	limiter *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// slotsResponse is the wire shape of GET /api/v1/slots.
type slotsResponse struct {
	Slots []models.TimeSlot `json:"slots"`
}

// New constructs a client with baseURL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache configures optional Redis caching for slot lookups. Probing
// a month re-requests up to 31 dates; the cache keeps month navigation from
// hammering the gateway.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit caps outgoing gateway requests.
func (c *Client) UseRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 || burst <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ListOpenSlots fetches the open slots for one mentor/offering on one date.
// Slots come back already filtered for booking conflicts and mentor
// unavailability by the gateway.
func (c *Client) ListOpenSlots(ctx context.Context, mentorID, offeringID string, date time.Time) ([]models.TimeSlot, error) {
	dateStr := models.DateKey(date)
	endpoint := fmt.Sprintf("%s/api/v1/mentors/%s/slots?offering_id=%s&date=%s",
		c.baseURL, url.PathEscape(mentorID), url.QueryEscape(offeringID), url.QueryEscape(dateStr))
	cacheKey := fmt.Sprintf("slots:%s:%s:%s", mentorID, offeringID, dateStr)

	var resp slotsResponse
	if c.readCache(ctx, cacheKey, &resp) {
		return resp.Slots, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	c.writeCache(ctx, cacheKey, resp)
	return resp.Slots, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// HealthCheck checks whether the slot source is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/healthz", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}
