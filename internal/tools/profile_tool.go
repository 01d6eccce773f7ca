package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrailPeak/TrailScout/internal/prefs"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// GetUserProfileTool returns the user's identity and full preference profile.
type GetUserProfileTool struct {
	store store.Store
}

// NewGetUserProfileTool creates a new profile lookup tool instance.
func NewGetUserProfileTool(st store.Store) *GetUserProfileTool {
	return &GetUserProfileTool{store: st}
}

func (t *GetUserProfileTool) Name() string { return "getUserProfile" }

// GetToolDefinition returns the OpenAI tool definition for reading the profile.
func (t *GetUserProfileTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "getUserProfile",
			Description: openai.String("Get the user's name, home location, and full hiking preference profile with confidence levels."),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (t *GetUserProfileTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	user, err := t.store.GetUser(userID)
	if err != nil {
		slog.Error("GetUserProfileTool.Execute: failed to load user", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	raw, err := t.store.GetPreferenceDocument(userID)
	if err != nil {
		return "", fmt.Errorf("failed to load preferences: %w", err)
	}
	doc := prefs.ParseDocument(raw, time.Now().UTC())

	profile := make(map[string]map[string]string, len(doc.Profile))
	for key, entry := range doc.Profile {
		profile[string(key)] = map[string]string{
			"value":      entry.Value,
			"confidence": string(entry.Confidence),
		}
	}
	out, err := json.Marshal(map[string]interface{}{
		"name":     user.Name,
		"location": user.Location,
		"profile":  profile,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize profile: %w", err)
	}
	return string(out), nil
}
