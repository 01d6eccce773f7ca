package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const hourlyBody = `{
	"hourly": {
		"time": ["2026-09-12T06:00", "2026-09-12T12:00", "2026-09-12T18:00"],
		"temperature_2m": [8.2, 17.5, 12.1],
		"precipitation": [0.0, 0.4, 0.1],
		"wind_speed_10m": [10.0, 22.0, 15.0],
		"wind_gusts_10m": [18.0, 35.0, 25.0]
	}
}`

const dailyStormBody = `{
	"daily": {
		"time": ["2026-09-12", "2026-09-13", "2026-09-14"],
		"temperature_2m_max": [14.0, 11.0, 16.0],
		"temperature_2m_min": [3.0, 1.5, 4.0],
		"precipitation_sum": [2.0, 18.5, 0.0],
		"wind_speed_10m_max": [25.0, 48.0, 20.0],
		"wind_gusts_10m_max": [40.0, 72.0, 30.0]
	}
}`

func testServer(t *testing.T, body string, wantParam, wantValue string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get(wantParam); got != wantValue {
			t.Errorf("expected %s=%s, got %q", wantParam, wantValue, got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestForecastSingleDayUsesHourly(t *testing.T) {
	srv := testServer(t, hourlyBody, "hourly", "temperature_2m,precipitation,wind_speed_10m,wind_gusts_10m")
	c := NewClient(WithBaseURL(srv.URL))

	s, err := c.Forecast(context.Background(), 47.49, -120.82, "2026-09-12", "2026-09-12")
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if !strings.Contains(s.Text, "8 to 18 C") {
		t.Errorf("expected temperature range in summary, got %q", s.Text)
	}
	if s.HighWind || s.HighGusts || s.HeavyPrecip {
		t.Errorf("expected no risk flags for calm day, got %+v", s)
	}
}

func TestForecastMultiDayFlagsRisks(t *testing.T) {
	srv := testServer(t, dailyStormBody, "daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,wind_gusts_10m_max")
	c := NewClient(WithBaseURL(srv.URL))

	s, err := c.Forecast(context.Background(), 47.49, -120.82, "2026-09-12", "2026-09-14")
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if !s.HighWind || !s.HighGusts || !s.HeavyPrecip {
		t.Errorf("expected all risk flags set, got %+v", s)
	}
	if !strings.Contains(s.Text, "Strong gusts expected") {
		t.Errorf("expected gust warning in summary, got %q", s.Text)
	}
	if !strings.Contains(s.Text, "Significant precipitation expected") {
		t.Errorf("expected precipitation warning in summary, got %q", s.Text)
	}
}

func TestForecastEmptyEndDateDefaultsToStart(t *testing.T) {
	srv := testServer(t, hourlyBody, "end_date", "2026-09-12")
	c := NewClient(WithBaseURL(srv.URL))
	if _, err := c.Forecast(context.Background(), 47.49, -120.82, "2026-09-12", ""); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
}

func TestForecastMissingStartDate(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:0"))
	if _, err := c.Forecast(context.Background(), 0, 0, "", ""); err == nil {
		t.Fatal("expected error for missing start date")
	}
}

func TestForecastAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()
	c := NewClient(WithBaseURL(srv.URL))
	if _, err := c.Forecast(context.Background(), 0, 0, "2026-09-12", "2026-09-12"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
