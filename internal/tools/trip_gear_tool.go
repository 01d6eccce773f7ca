package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// embeddedIDRe recovers the gear item id from a getUserGear listing string,
// e.g. "Tarptent (shelter), 680g [a1b2]".
var embeddedIDRe = regexp.MustCompile(`\[([^\[\]]+)\]\s*$`)

// AddGearToTripTool links gear items to a trip. Gear may be referenced by raw
// id or by the bracketed listing string from getUserGear. Unresolvable
// references are skipped silently; the count reflects what was linked.
type AddGearToTripTool struct {
	store store.Store
}

// NewAddGearToTripTool creates a new trip gear linking tool instance.
func NewAddGearToTripTool(st store.Store) *AddGearToTripTool {
	return &AddGearToTripTool{store: st}
}

func (t *AddGearToTripTool) Name() string { return "addGearToTrip" }

// GetToolDefinition returns the OpenAI tool definition for linking gear to trips.
func (t *AddGearToTripTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "addGearToTrip",
			Description: openai.String("Attach gear items from the user's closet to a trip. Accepts raw gear ids or the bracketed strings returned by getUserGear."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"trip_id": map[string]interface{}{"type": "string"},
					"gear": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"trip_id", "gear"},
			},
		},
	}
}

func (t *AddGearToTripTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	tripID, _ := args["trip_id"].(string)
	if tripID == "" {
		return "", fmt.Errorf("trip_id is required")
	}
	rawGear, ok := args["gear"].([]interface{})
	if !ok {
		return "", fmt.Errorf("gear is required and must be an array")
	}

	trip, err := t.store.GetTrip(tripID)
	if err != nil {
		return "", fmt.Errorf("failed to load trip %s: %w", tripID, err)
	}
	if trip.UserID != userID {
		return "", fmt.Errorf("trip %s does not belong to this user", tripID)
	}

	added := 0
	for _, raw := range rawGear {
		ref, _ := raw.(string)
		id := resolveGearRef(ref)
		if id == "" {
			continue
		}
		item, err := t.store.GetGearItem(id)
		if err != nil || item.UserID != userID {
			slog.Debug("AddGearToTripTool.Execute: skipping unresolvable gear reference", "ref", ref, "userID", userID)
			continue
		}
		if err := t.store.AddGearToTrip(tripID, id); err != nil {
			slog.Warn("AddGearToTripTool.Execute: failed to link gear", "error", err, "tripID", tripID, "gearID", id)
			continue
		}
		added++
	}
	slog.Info("AddGearToTripTool.Execute: gear linked", "tripID", tripID, "requested", len(rawGear), "added", added)

	out, err := json.Marshal(map[string]interface{}{"added": added})
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}
	return string(out), nil
}

// resolveGearRef extracts a gear id from either a raw id or a listing string
// with an embedded bracketed id.
func resolveGearRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if m := embeddedIDRe.FindStringSubmatch(ref); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ref
}
