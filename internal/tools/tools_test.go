package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/TrailPeak/TrailScout/internal/weather"
)

// stubWeather implements weather.Service for testing.
type stubWeather struct {
	summary *weather.Summary
	err     error
	calls   []string // "startDate..endDate"
}

func (s *stubWeather) Forecast(ctx context.Context, lat, lon float64, startDate, endDate string) (*weather.Summary, error) {
	s.calls = append(s.calls, startDate+".."+endDate)
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func seedUser(t *testing.T, st store.Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	if err := st.CreateUser(models.User{ID: id, Name: "Ada", Location: "Seattle, WA", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	st := store.NewInMemoryStore()
	if _, err := NewRegistry(NewGetUserGearTool(st), NewGetUserGearTool(st)); err == nil {
		t.Fatal("expected error for duplicate tool names")
	}
}

func TestRegistryDefinitionsAndLookup(t *testing.T) {
	st := store.NewInMemoryStore()
	ws := &stubWeather{summary: &weather.Summary{Text: "clear"}}
	reg, err := NewRegistry(
		NewCreateTripTool(st, ws),
		NewGetUserGearTool(st),
		NewGetUserProfileTool(st),
		NewUpdatePreferencesTool(st),
		NewAddGearToTripTool(st),
		NewGetWeatherForecastTool(ws),
	)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defs := reg.Definitions()
	if len(defs) != 6 {
		t.Fatalf("expected 6 definitions, got %d", len(defs))
	}
	if defs[0].Function.Name != "createTrip" {
		t.Errorf("expected registration order preserved, got %q first", defs[0].Function.Name)
	}
	if _, ok := reg.Get("getUserGear"); !ok {
		t.Error("expected getUserGear to be registered")
	}
	if _, ok := reg.Get("unknown"); ok {
		t.Error("unknown tool should not resolve")
	}
}

func TestCreateTripAttachesWeather(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	ws := &stubWeather{summary: &weather.Summary{Text: "sunny, wind up to 15 km/h"}}
	tool := NewCreateTripTool(st, ws)

	out, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"name": "Enchantments", "location": "Leavenworth, WA",
		"latitude": 47.49, "longitude": -120.82,
		"start_date": "2026-09-12", "end_date": "2026-09-14",
		"trip_type": "multi_day",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result struct {
		TripID         string `json:"trip_id"`
		WeatherSummary string `json:"weather_summary"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if result.TripID == "" {
		t.Fatal("expected trip_id in result")
	}
	if result.WeatherSummary != "sunny, wind up to 15 km/h" {
		t.Errorf("expected weather summary, got %q", result.WeatherSummary)
	}
	trip, err := st.GetTrip(result.TripID)
	if err != nil {
		t.Fatalf("trip not persisted: %v", err)
	}
	if trip.WeatherSummary == "" {
		t.Error("expected weather summary stored on trip")
	}
}

func TestCreateTripWeatherFailureIsBestEffort(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	ws := &stubWeather{err: errors.New("service down")}
	tool := NewCreateTripTool(st, ws)

	out, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"name": "Loop", "location": "X",
		"latitude": 1.0, "longitude": 1.0,
		"start_date": "2026-09-12", "end_date": "2026-09-12",
		"trip_type": "day_hike",
	})
	if err != nil {
		t.Fatalf("Execute should succeed despite weather failure: %v", err)
	}
	if strings.Contains(out, "weather_summary") {
		t.Errorf("expected no weather summary in result, got %q", out)
	}
}

func TestCreateTripRejectsInvalid(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	tool := NewCreateTripTool(st, nil)
	_, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"name": "Backwards", "location": "X",
		"start_date": "2026-09-14", "end_date": "2026-09-12",
		"trip_type": "overnight",
	})
	if err == nil {
		t.Fatal("expected error for end date before start date")
	}
}

func TestGetUserGearEmptyCloset(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	tool := NewGetUserGearTool(st)
	out, err := tool.Execute(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != noGearMessage {
		t.Errorf("expected explicit no-gear message, got %q", out)
	}
}

func TestGetUserGearEmbedsIDs(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	now := time.Now().UTC()
	st.AddGearItem(models.GearItem{ID: "g1", UserID: "u1", Name: "Tarptent", Category: "shelter", WeightGrams: 680, CreatedAt: now})
	tool := NewGetUserGearTool(st)

	out, err := tool.Execute(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result struct {
		Gear []string `json:"gear"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if len(result.Gear) != 1 {
		t.Fatalf("expected 1 gear line, got %d", len(result.Gear))
	}
	line := result.Gear[0]
	if !strings.HasSuffix(line, "[g1]") {
		t.Errorf("expected embedded id at end of line, got %q", line)
	}
	if resolveGearRef(line) != "g1" {
		t.Errorf("listing line should round-trip through resolveGearRef, got %q", resolveGearRef(line))
	}
}

func TestGetUserProfileIncludesPreferences(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	tool := NewGetUserProfileTool(st)

	out, err := tool.Execute(context.Background(), "u1", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result struct {
		Name    string                       `json:"name"`
		Profile map[string]map[string]string `json:"profile"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if result.Name != "Ada" {
		t.Errorf("expected user name, got %q", result.Name)
	}
	if len(result.Profile) != len(models.AllPreferenceKeys()) {
		t.Errorf("expected a total profile, got %d keys", len(result.Profile))
	}
	if result.Profile["pack_style"]["confidence"] != "default" {
		t.Errorf("expected default confidence for untouched key, got %+v", result.Profile["pack_style"])
	}
}

func TestUpdatePreferencesAppliesMergeRules(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	tool := NewUpdatePreferencesTool(st)

	out, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"updates": []interface{}{
			map[string]interface{}{"key": "pack_style", "value": "ultralight", "confidence": "confirmed", "evidence": "I always go ultralight"},
			map[string]interface{}{"key": "pack_style", "value": "comfort", "confidence": "inferred"},
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result struct {
		Applied   int `json:"applied"`
		Conflicts int `json:"conflicts"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if result.Applied != 1 {
		t.Errorf("expected 1 applied update, got %d", result.Applied)
	}
	if result.Conflicts != 1 {
		t.Errorf("expected 1 conflict from inferred disagreement, got %d", result.Conflicts)
	}

	raw, _ := st.GetPreferenceDocument("u1")
	if !strings.Contains(string(raw), `"ultralight"`) {
		t.Error("expected confirmed value persisted")
	}
}

func TestAddGearToTripSkipsUnresolvable(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	now := time.Now().UTC()
	st.CreateTrip(models.Trip{ID: "trip1", UserID: "u1", Name: "Loop", Location: "X",
		StartDate: "2026-10-01", EndDate: "2026-10-01", TripType: models.TripTypeDayHike, CreatedAt: now, UpdatedAt: now})
	st.AddGearItem(models.GearItem{ID: "g1", UserID: "u1", Name: "Tent", CreatedAt: now})
	st.AddGearItem(models.GearItem{ID: "g2", UserID: "u1", Name: "Stove", CreatedAt: now})
	tool := NewAddGearToTripTool(st)

	out, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"trip_id": "trip1",
		"gear": []interface{}{
			"g1",
			"Stove, 85g [g2]",
			"Phantom item [nope]",
			"",
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var result struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if result.Added != 2 {
		t.Errorf("expected 2 added, got %d", result.Added)
	}
	linked, _ := st.ListTripGear("trip1")
	if len(linked) != 2 {
		t.Errorf("expected 2 linked items, got %d", len(linked))
	}
}

func TestAddGearToTripRejectsForeignTrip(t *testing.T) {
	st := store.NewInMemoryStore()
	seedUser(t, st, "u1")
	seedUser(t, st, "u2")
	now := time.Now().UTC()
	st.CreateTrip(models.Trip{ID: "trip1", UserID: "u2", Name: "Theirs", Location: "X",
		StartDate: "2026-10-01", EndDate: "2026-10-01", TripType: models.TripTypeDayHike, CreatedAt: now, UpdatedAt: now})
	tool := NewAddGearToTripTool(st)
	if _, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"trip_id": "trip1", "gear": []interface{}{"g1"},
	}); err == nil {
		t.Fatal("expected error linking gear to another user's trip")
	}
}

func TestGetWeatherForecastDayHikeForcesHourly(t *testing.T) {
	ws := &stubWeather{summary: &weather.Summary{Text: "calm", HighWind: false}}
	tool := NewGetWeatherForecastTool(ws)

	out, err := tool.Execute(context.Background(), "u1", map[string]interface{}{
		"latitude": 47.0, "longitude": -120.0,
		"start_date": "2026-09-12", "end_date": "2026-09-14",
		"trip_type": "day_hike",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(ws.calls) != 1 || ws.calls[0] != "2026-09-12..2026-09-12" {
		t.Errorf("expected day hike collapsed to single-day range, got %v", ws.calls)
	}
	var summary weather.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("bad result JSON: %v", err)
	}
	if summary.Text != "calm" {
		t.Errorf("unexpected summary %q", summary.Text)
	}
}

func TestGetWeatherForecastMissingCoordinates(t *testing.T) {
	tool := NewGetWeatherForecastTool(&stubWeather{})
	if _, err := tool.Execute(context.Background(), "u1", map[string]interface{}{"start_date": "2026-09-12"}); err == nil {
		t.Fatal("expected error for missing coordinates")
	}
}
