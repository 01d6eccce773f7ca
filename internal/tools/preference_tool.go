package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/prefs"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// UpdatePreferencesTool lets the backend record preference updates it inferred
// from conversation. Updates pass through the same merge rules as extractor
// output, so a backend claim never overwrites a user-confirmed value.
type UpdatePreferencesTool struct {
	store store.Store
}

// NewUpdatePreferencesTool creates a new preference update tool instance.
func NewUpdatePreferencesTool(st store.Store) *UpdatePreferencesTool {
	return &UpdatePreferencesTool{store: st}
}

func (t *UpdatePreferencesTool) Name() string { return "updateUserPreferences" }

// GetToolDefinition returns the OpenAI tool definition for preference updates.
func (t *UpdatePreferencesTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "updateUserPreferences",
			Description: openai.String("Record durable hiking preferences learned from the conversation. Only stable preferences, never trip-specific requests."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"updates": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"key":        map[string]interface{}{"type": "string", "description": "Preference key, e.g. pack_style"},
								"value":      map[string]interface{}{"type": "string"},
								"confidence": map[string]interface{}{"type": "string", "enum": []string{"inferred", "confirmed"}},
								"evidence":   map[string]interface{}{"type": "string", "description": "Short quote from the user supporting the update"},
							},
							"required": []string{"key", "value", "confidence"},
						},
					},
				},
				"required": []string{"updates"},
			},
		},
	}
}

func (t *UpdatePreferencesTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	rawUpdates, ok := args["updates"].([]interface{})
	if !ok {
		return "", fmt.Errorf("updates is required and must be an array")
	}

	var updates []models.PreferenceUpdate
	for _, raw := range rawUpdates {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := m["key"].(string)
		value, _ := m["value"].(string)
		confidence, _ := m["confidence"].(string)
		evidence, _ := m["evidence"].(string)
		updates = append(updates, models.PreferenceUpdate{
			Key:        models.PreferenceKey(key),
			Value:      value,
			Confidence: models.Confidence(confidence),
			Evidence:   evidence,
		})
	}

	now := time.Now().UTC()
	raw, err := t.store.GetPreferenceDocument(userID)
	if err != nil {
		return "", fmt.Errorf("failed to load preferences: %w", err)
	}
	doc := prefs.ParseDocument(raw, now)
	result := prefs.Apply(doc, updates, now)

	saved, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize preference document: %w", err)
	}
	if err := t.store.SavePreferenceDocument(userID, saved); err != nil {
		slog.Error("UpdatePreferencesTool.Execute: failed to save preferences", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to save preferences: %w", err)
	}
	slog.Info("UpdatePreferencesTool.Execute: preferences updated",
		"userID", userID, "applied", result.Applied, "conflicts", result.ConflictsAdded)

	out, err := json.Marshal(map[string]interface{}{
		"applied":   len(result.Applied),
		"conflicts": len(result.ConflictsAdded),
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}
	return string(out), nil
}
