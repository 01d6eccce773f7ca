// Package weather fetches forecasts used to ground trip advice.
//
// It talks to the Open-Meteo forecast API, which needs no API key. Day hikes
// get an hourly forecast for the start date; longer trips get a daily
// forecast across the date range. The summary is a short plain-text string
// suitable for prompt injection and for storing on a trip.
package weather

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
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Risk thresholds for the derived flags, in km/h and mm.
const (
	highWindKmh   = 40.0
	highGustKmh   = 60.0
	heavyPrecipMM = 10.0
)

// Service fetches forecast summaries for a location and date range.
type Service interface {
	// Forecast returns a short human-readable summary for the given
	// coordinates and inclusive date range (YYYY-MM-DD). A single-day range
	// uses hourly resolution.
	Forecast(ctx context.Context, lat, lon float64, startDate, endDate string) (*Summary, error)
}

// Summary is a condensed forecast with derived risk flags.
type Summary struct {
	Text        string `json:"text"`
	HighWind    bool   `json:"high_wind"`
	HighGusts   bool   `json:"high_gusts"`
	HeavyPrecip bool   `json:"heavy_precip"`
}

// Opts holds configuration options for the weather client.
type Opts struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the weather client.
type Option func(*Opts)

// WithBaseURL overrides the forecast endpoint, used in tests.
func WithBaseURL(u string) Option {
	return func(o *Opts) {
		o.BaseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// Client is the Open-Meteo-backed Service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a forecast client with the given options.
func NewClient(opts ...Option) *Client {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: cfg.BaseURL, http: cfg.HTTPClient}
}

type hourlyResponse struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		Precipitation []float64 `json:"precipitation"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
		WindGusts     []float64 `json:"wind_gusts_10m"`
	} `json:"hourly"`
}

type dailyResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		Precipitation []float64 `json:"precipitation_sum"`
		WindSpeedMax  []float64 `json:"wind_speed_10m_max"`
		WindGustsMax  []float64 `json:"wind_gusts_10m_max"`
	} `json:"daily"`
}

func (c *Client) Forecast(ctx context.Context, lat, lon float64, startDate, endDate string) (*Summary, error) {
	if endDate == "" {
		endDate = startDate
	}
	if startDate == "" {
		return nil, fmt.Errorf("forecast requires a start date")
	}
	if startDate == endDate {
		return c.hourly(ctx, lat, lon, startDate)
	}
	return c.daily(ctx, lat, lon, startDate, endDate)
}

func (c *Client) hourly(ctx context.Context, lat, lon float64, date string) (*Summary, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("hourly", "temperature_2m,precipitation,wind_speed_10m,wind_gusts_10m")
	q.Set("start_date", date)
	q.Set("end_date", date)
	q.Set("timezone", "auto")

	var resp hourlyResponse
	if err := c.get(ctx, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Hourly.Time) == 0 {
		return nil, fmt.Errorf("forecast response has no hourly data")
	}

	minT, maxT := minMax(resp.Hourly.Temperature)
	totalPrecip := sum(resp.Hourly.Precipitation)
	maxWind := max64(resp.Hourly.WindSpeed)
	maxGust := max64(resp.Hourly.WindGusts)

	s := &Summary{
		HighWind:    maxWind >= highWindKmh,
		HighGusts:   maxGust >= highGustKmh,
		HeavyPrecip: totalPrecip >= heavyPrecipMM,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.0f to %.0f C, %.1f mm precipitation, wind up to %.0f km/h", date, minT, maxT, totalPrecip, maxWind)
	appendRiskNotes(&b, s)
	s.Text = b.String()
	return s, nil
}

func (c *Client) daily(ctx context.Context, lat, lon float64, startDate, endDate string) (*Summary, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,wind_gusts_10m_max")
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	q.Set("timezone", "auto")

	var resp dailyResponse
	if err := c.get(ctx, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Daily.Time) == 0 {
		return nil, fmt.Errorf("forecast response has no daily data")
	}

	minT := min64(resp.Daily.TempMin)
	maxT := max64(resp.Daily.TempMax)
	maxDayPrecip := max64(resp.Daily.Precipitation)
	maxWind := max64(resp.Daily.WindSpeedMax)
	maxGust := max64(resp.Daily.WindGustsMax)

	s := &Summary{
		HighWind:    maxWind >= highWindKmh,
		HighGusts:   maxGust >= highGustKmh,
		HeavyPrecip: maxDayPrecip >= heavyPrecipMM,
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s to %s: lows near %.0f C, highs near %.0f C, wettest day %.1f mm, wind up to %.0f km/h",
		startDate, endDate, minT, maxT, maxDayPrecip, maxWind)
	appendRiskNotes(&b, s)
	s.Text = b.String()
	return s, nil
}

func (c *Client) get(ctx context.Context, q url.Values, out any) error {
	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build forecast request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Client.get forecast request failed", "error", err)
		return fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("Client.get forecast API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("forecast API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode forecast response: %w", err)
	}
	return nil
}

func appendRiskNotes(b *strings.Builder, s *Summary) {
	if s.HeavyPrecip {
		b.WriteString(". Significant precipitation expected")
	}
	if s.HighGusts {
		b.WriteString(". Strong gusts expected")
	} else if s.HighWind {
		b.WriteString(". Sustained high wind expected")
	}
}

func minMax(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func min64(vals []float64) float64 {
	lo, _ := minMax(vals)
	return lo
}

func max64(vals []float64) float64 {
	_, hi := minMax(vals)
	return hi
}

func sum(vals []float64) float64 {
	var t float64
	for _, v := range vals {
		t += v
	}
	return t
}
