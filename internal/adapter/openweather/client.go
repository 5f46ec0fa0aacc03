// Package openweather implements domain.WeatherProvider on top of the
// OpenWeatherMap current-weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/couchcryptid/climate-resilience-monitor/internal/observability"
	"github.com/couchcryptid/climate-resilience-monitor/internal/retry"
	"github.com/jonboulle/clockwork"
)

var (
	errRateLimited = errors.New("rate limited")
	errMalformed   = errors.New("incomplete weather payload")
)

// RetryPolicy controls how failed requests are retried before falling back to
// synthetic data. MaxRetries is shared by every failure kind. Timeouts are
// never retried.
type RetryPolicy struct {
	MaxRetries     int
	RateLimitDelay time.Duration // wait after HTTP 429
	RetryDelay     time.Duration // wait after any other failure
}

// DefaultRetryPolicy returns the provider's free-tier policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		RateLimitDelay: 2 * time.Second,
		RetryDelay:     time.Second,
	}
}

// Client fetches current conditions and never surfaces provider failures:
// after the retry budget is spent it returns a reading synthesized from the
// city baseline.
type Client struct {
	apiKey     string
	country    string
	baseURL    string
	httpClient *http.Client
	policy     RetryPolicy
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	missingKeyOnce sync.Once
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithClock replaces the clock used for retry delays.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithRand replaces the random source used for fallback jitter.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) { c.rng = rng }
}

// NewClient creates an OpenWeatherMap client. country is appended to every
// city query ("Delhi,IN").
func NewClient(apiKey, country string, timeout time.Duration, policy RetryPolicy, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		country: country,
		baseURL: "https://api.openweathermap.org/data/2.5",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		policy:  policy,
		clock:   clockwork.NewRealClock(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentWeather returns a live reading for the city, or a fallback reading
// once retries are exhausted. The only error is the context's.
func (c *Client) CurrentWeather(ctx context.Context, city domain.City) (*domain.WeatherSnapshot, error) {
	if c.apiKey == "" {
		c.missingKeyOnce.Do(func() {
			c.logger.Error("weather API key not configured, serving fallback readings")
		})
		return c.fallback(city), nil
	}

	for attempt := 0; ; attempt++ {
		snap, err := c.fetch(ctx, city)
		if err == nil {
			c.metrics.WeatherRequests.WithLabelValues("success").Inc()
			return snap, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var delay time.Duration
		switch {
		case isTimeout(err):
			c.metrics.WeatherRequests.WithLabelValues("timeout").Inc()
			c.logger.Warn("weather fetch timed out, using fallback", "city", city.Name, "error", err)
			return c.fallback(city), nil
		case errors.Is(err, errRateLimited):
			c.metrics.WeatherRequests.WithLabelValues("rate_limited").Inc()
			delay = c.policy.RateLimitDelay
		default:
			c.metrics.WeatherRequests.WithLabelValues("error").Inc()
			delay = c.policy.RetryDelay
		}

		if attempt >= c.policy.MaxRetries {
			c.logger.Warn("weather fetch failed, using fallback",
				"city", city.Name,
				"attempts", attempt+1,
				"error", err,
			)
			return c.fallback(city), nil
		}

		c.logger.Debug("weather fetch failed, retrying",
			"city", city.Name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := retry.Sleep(ctx, c.clock, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) fetch(ctx context.Context, city domain.City) (*domain.WeatherSnapshot, error) {
	params := url.Values{
		"q":     {fmt.Sprintf("%s,%s", city.Name, c.country)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("openweather API status %d: %w", resp.StatusCode, errRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return owResp.snapshot(c.clock.Now())
}

func (c *Client) fallback(city domain.City) *domain.WeatherSnapshot {
	c.metrics.WeatherFallbacks.Inc()
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	snap := domain.FallbackWeather(city, c.rng)
	return &snap
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// OpenWeatherMap API response types.

type response struct {
	Main    *mainBlock         `json:"main"`
	Weather []conditionBlock   `json:"weather"`
	Wind    *windBlock         `json:"wind"`
	Rain    map[string]float64 `json:"rain"` // keyed by interval: "1h", "3h"
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

type conditionBlock struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

func (r response) snapshot(observedAt time.Time) (*domain.WeatherSnapshot, error) {
	if r.Main == nil || r.Wind == nil || len(r.Weather) == 0 {
		return nil, errMalformed
	}

	rain := r.Rain["1h"]
	if rain == 0 {
		rain = r.Rain["3h"]
	}

	return &domain.WeatherSnapshot{
		Temp:        r.Main.Temp,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		Description: r.Weather[0].Description,
		Icon:        r.Weather[0].Icon,
		Condition:   r.Weather[0].Main,
		Rain:        rain,
		Source:      domain.SourceLive,
		ObservedAt:  observedAt,
	}, nil
}
