package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// noGearMessage is returned when the user has no saved gear, so the backend
// states that plainly instead of inventing an inventory.
const noGearMessage = "The user has no saved gear yet."

// GetUserGearTool lists the user's gear closet. Each item is rendered as a
// single string with the item ID embedded in brackets so the backend can pass
// items back to addGearToTrip by reference.
type GetUserGearTool struct {
	store store.Store
}

// NewGetUserGearTool creates a new gear listing tool instance.
func NewGetUserGearTool(st store.Store) *GetUserGearTool {
	return &GetUserGearTool{store: st}
}

func (t *GetUserGearTool) Name() string { return "getUserGear" }

// GetToolDefinition returns the OpenAI tool definition for listing gear.
func (t *GetUserGearTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "getUserGear",
			Description: openai.String("List the gear the user owns. Each entry embeds the gear item id in brackets, e.g. 'Tarptent [a1b2]'."),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (t *GetUserGearTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	items, err := t.store.ListGearByUser(userID)
	if err != nil {
		slog.Error("GetUserGearTool.Execute: failed to list gear", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to list gear: %w", err)
	}
	if len(items) == 0 {
		return noGearMessage, nil
	}

	// The bracketed id stays last so it can be recovered from the string.
	lines := make([]string, 0, len(items))
	for _, g := range items {
		line := g.Name
		if g.Category != "" {
			line = fmt.Sprintf("%s (%s)", line, g.Category)
		}
		if g.WeightGrams > 0 {
			line = fmt.Sprintf("%s, %dg", line, g.WeightGrams)
		}
		lines = append(lines, fmt.Sprintf("%s [%s]", line, g.ID))
	}
	out, err := json.Marshal(map[string]interface{}{"gear": lines})
	if err != nil {
		return "", fmt.Errorf("failed to serialize gear list: %w", err)
	}
	return string(out), nil
}
