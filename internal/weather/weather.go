// Package weather fetches today's conditions from OpenWeatherMap and turns
// them into a recommended outfit category.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/closetlog/internal/models"
)

const (
	// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultThrottle is the minimum interval between network fetches.
	DefaultThrottle = time.Hour
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("weather: no OpenWeatherMap API key configured")

// Coordinates is a location on Earth.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Info is today's weather summary.
type Info struct {
	Temperature         float64   `json:"temperature"`
	TempMin             float64   `json:"tempMin"`
	TempMax             float64   `json:"tempMax"`
	Description         string    `json:"description"`
	Icon                string    `json:"icon"`
	RecommendedCategory string    `json:"recommendedCategory"`
	FetchedAt           time.Time `json:"fetchedAt"`
}

type condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
	} `json:"main"`
	Weather []condition `json:"weather"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp    float64 `json:"temp"`
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
	} `json:"list"`
}

// Source provides today's weather. *Client implements it.
type Source interface {
	Fetch(ctx context.Context, at Coordinates) (Info, error)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Lang     string
	Throttle time.Duration
	Location *time.Location
	Clock    func() time.Time
}

// Client talks to OpenWeatherMap. Fetch results are cached for the throttle
// interval.
type Client struct {
	opts   Options
	client *http.Client
	logger *slog.Logger

	mu        sync.Mutex
	last      *Info
	lastFetch time.Time
}

// NewClient creates a client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Fetch returns today's weather, reusing the cached result when the last
// successful fetch is younger than the throttle interval.
func (c *Client) Fetch(ctx context.Context, at Coordinates) (Info, error) {
	c.mu.Lock()
	if c.last != nil && c.opts.Clock().Sub(c.lastFetch) < c.opts.Throttle {
		info := *c.last
		c.mu.Unlock()
		c.logger.Debug("weather served from cache", "fetched_at", info.FetchedAt)
		return info, nil
	}
	c.mu.Unlock()
	return c.Refresh(ctx, at)
}

// Refresh always hits the network. Current conditions and the forecast are
// fetched concurrently; a failed forecast falls back to the current
// temperature for today's range.
func (c *Client) Refresh(ctx context.Context, at Coordinates) (Info, error) {
	if c.opts.APIKey == "" {
		return Info{}, ErrNoAPIKey
	}

	var cur currentResponse
	var fc *forecastResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.get(gctx, "weather", at, &cur); err != nil {
			return fmt.Errorf("current weather: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var f forecastResponse
		if err := c.get(gctx, "forecast", at, &f); err != nil {
			c.logger.Warn("forecast unavailable, using current temperature", "error", err)
			return nil
		}
		fc = &f
		return nil
	})
	if err := g.Wait(); err != nil {
		return Info{}, err
	}

	now := c.opts.Clock()
	lo, hi := cur.Main.Temp, cur.Main.Temp
	if fc != nil {
		if mn, mx, ok := todayRange(fc, now, c.opts.Location); ok {
			lo, hi = mn, mx
		}
	}

	info := Info{
		Temperature:         cur.Main.Temp,
		TempMin:             lo,
		TempMax:             hi,
		RecommendedCategory: RecommendCategory(lo, hi),
		FetchedAt:           now,
	}
	if len(cur.Weather) > 0 {
		info.Description = cur.Weather[0].Description
		info.Icon = cur.Weather[0].Icon
	}

	c.mu.Lock()
	c.last = &info
	c.lastFetch = now
	c.mu.Unlock()

	c.logger.Info("weather fetched", "temp", info.Temperature, "min", lo, "max", hi, "category", info.RecommendedCategory)
	return info, nil
}

// Cached returns the last fetched weather, if any.
func (c *Client) Cached() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Info{}, false
	}
	return *c.last, true
}

func todayRange(fc *forecastResponse, now time.Time, loc *time.Location) (lo, hi float64, ok bool) {
	start := models.StartOfDay(now, loc)
	end := start.AddDate(0, 0, 1)
	for _, item := range fc.List {
		t := time.Unix(item.Dt, 0)
		if t.Before(start) || !t.Before(end) {
			continue
		}
		if !ok || item.Main.TempMin < lo {
			lo = item.Main.TempMin
		}
		if !ok || item.Main.TempMax > hi {
			hi = item.Main.TempMax
		}
		ok = true
	}
	return lo, hi, ok
}

func (c *Client) get(ctx context.Context, endpoint string, at Coordinates, dst any) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	q.Set("appid", c.opts.APIKey)
	q.Set("units", "metric")
	if c.opts.Lang != "" {
		q.Set("lang", c.opts.Lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling OpenWeatherMap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("OpenWeatherMap returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
