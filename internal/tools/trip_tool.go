package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/TrailPeak/TrailScout/internal/weather"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// CreateTripTool creates a trip record and attaches a forecast when one can
// be fetched. Weather is best effort: a forecast failure never fails the tool.
type CreateTripTool struct {
	store   store.Store
	weather weather.Service
}

// NewCreateTripTool creates a new trip creation tool instance.
func NewCreateTripTool(st store.Store, ws weather.Service) *CreateTripTool {
	return &CreateTripTool{store: st, weather: ws}
}

func (t *CreateTripTool) Name() string { return "createTrip" }

// GetToolDefinition returns the OpenAI tool definition for creating trips.
func (t *CreateTripTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "createTrip",
			Description: openai.String("Create a hiking or backpacking trip for the user. Attaches a weather forecast for the trip window when coordinates are provided."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"name":       map[string]interface{}{"type": "string", "description": "Short trip name, e.g. 'Enchantments thru-hike'"},
					"location":   map[string]interface{}{"type": "string", "description": "Trailhead or area name"},
					"latitude":   map[string]interface{}{"type": "number"},
					"longitude":  map[string]interface{}{"type": "number"},
					"start_date": map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
					"end_date":   map[string]interface{}{"type": "string", "description": "YYYY-MM-DD, same as start_date for day hikes"},
					"trip_type": map[string]interface{}{
						"type": "string",
						"enum": []string{"day_hike", "overnight", "multi_day"},
					},
					"notes": map[string]interface{}{"type": "string"},
				},
				"required": []string{"name", "location", "start_date", "end_date", "trip_type"},
			},
		},
	}
}

func (t *CreateTripTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	name, _ := args["name"].(string)
	location, _ := args["location"].(string)
	lat, _ := args["latitude"].(float64)
	lon, _ := args["longitude"].(float64)
	startDate, _ := args["start_date"].(string)
	endDate, _ := args["end_date"].(string)
	tripTypeStr, _ := args["trip_type"].(string)
	notes, _ := args["notes"].(string)

	now := time.Now().UTC()
	trip := models.Trip{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Location:  location,
		Latitude:  lat,
		Longitude: lon,
		StartDate: startDate,
		EndDate:   endDate,
		TripType:  models.TripType(tripTypeStr),
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := trip.Validate(); err != nil {
		return "", fmt.Errorf("invalid trip: %w", err)
	}
	if err := t.store.CreateTrip(trip); err != nil {
		slog.Error("CreateTripTool.Execute: failed to create trip", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to create trip: %w", err)
	}
	slog.Info("CreateTripTool.Execute: trip created", "tripID", trip.ID, "userID", userID, "tripType", trip.TripType)

	result := map[string]interface{}{"trip_id": trip.ID}
	if t.weather != nil && (lat != 0 || lon != 0) {
		summary, err := t.weather.Forecast(ctx, lat, lon, startDate, endDate)
		if err != nil {
			slog.Warn("CreateTripTool.Execute: forecast unavailable", "error", err, "tripID", trip.ID)
		} else {
			if err := t.store.UpdateTripWeather(trip.ID, summary.Text); err != nil {
				slog.Warn("CreateTripTool.Execute: failed to store weather summary", "error", err, "tripID", trip.ID)
			}
			result["weather_summary"] = summary.Text
		}
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}
	return string(out), nil
}
