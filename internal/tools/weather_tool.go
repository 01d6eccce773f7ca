package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/TrailPeak/TrailScout/internal/weather"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// GetWeatherForecastTool fetches a forecast for arbitrary coordinates and
// dates. Day hikes and single-day ranges get hourly resolution.
type GetWeatherForecastTool struct {
	weather weather.Service
}

// NewGetWeatherForecastTool creates a new forecast tool instance.
func NewGetWeatherForecastTool(ws weather.Service) *GetWeatherForecastTool {
	return &GetWeatherForecastTool{weather: ws}
}

func (t *GetWeatherForecastTool) Name() string { return "getWeatherForecast" }

// GetToolDefinition returns the OpenAI tool definition for fetching forecasts.
func (t *GetWeatherForecastTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "getWeatherForecast",
			Description: openai.String("Get a weather forecast with risk flags for coordinates and a date range. Single-day ranges and day hikes use hourly resolution."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"latitude":   map[string]interface{}{"type": "number"},
					"longitude":  map[string]interface{}{"type": "number"},
					"start_date": map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
					"end_date":   map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
					"trip_type": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"day_hike", "overnight", "multi_day"},
						"description": "Hint; day_hike forces hourly resolution",
					},
				},
				"required": []string{"latitude", "longitude", "start_date"},
			},
		},
	}
}

func (t *GetWeatherForecastTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	lat, latOK := args["latitude"].(float64)
	lon, lonOK := args["longitude"].(float64)
	if !latOK || !lonOK {
		return "", fmt.Errorf("latitude and longitude are required numbers")
	}
	startDate, _ := args["start_date"].(string)
	endDate, _ := args["end_date"].(string)
	tripType, _ := args["trip_type"].(string)

	// A day hike is forecast at hourly resolution even when the caller sends
	// a wider window.
	if tripType == "day_hike" {
		endDate = startDate
	}

	summary, err := t.weather.Forecast(ctx, lat, lon, startDate, endDate)
	if err != nil {
		slog.Error("GetWeatherForecastTool.Execute: forecast failed", "error", err, "userID", userID)
		return "", fmt.Errorf("forecast failed: %w", err)
	}

	out, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("failed to serialize forecast: %w", err)
	}
	return string(out), nil
}
