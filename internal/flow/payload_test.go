package flow

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExtractPayloadFencedBlock(t *testing.T) {
	text := "Here is your packing list:\n```json\n{\"items\": [\"tent\", \"stove\"]}\n```\nHave a great trip!"
	prose, payload := ExtractPayload(text)
	if payload == nil {
		t.Fatal("expected a payload")
	}
	var parsed struct {
		Items []string `json:"items"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Errorf("unexpected payload %s", payload)
	}
	if strings.Contains(prose, "```") {
		t.Errorf("fence not removed from prose: %q", prose)
	}
	if !strings.Contains(prose, "Have a great trip!") {
		t.Errorf("prose after the block lost: %q", prose)
	}
}

func TestExtractPayloadUnlabelledFence(t *testing.T) {
	text := "```\n[1, 2, 3]\n```"
	_, payload := ExtractPayload(text)
	if string(payload) != "[1, 2, 3]" {
		t.Errorf("expected array payload, got %q", payload)
	}
}

func TestExtractPayloadBareJSON(t *testing.T) {
	text := `{"trip_id": "abc", "weather": "clear"}`
	prose, payload := ExtractPayload(text)
	if prose != "" {
		t.Errorf("expected empty prose, got %q", prose)
	}
	if !json.Valid(payload) {
		t.Errorf("expected valid payload, got %q", payload)
	}
}

func TestExtractPayloadPlainText(t *testing.T) {
	text := "Bring a rain shell and warm layers."
	prose, payload := ExtractPayload(text)
	if payload != nil {
		t.Errorf("expected no payload, got %q", payload)
	}
	if prose != text {
		t.Errorf("prose changed: %q", prose)
	}
}

func TestExtractPayloadInvalidFenceStaysProse(t *testing.T) {
	text := "Notes:\n```json\n{not valid json\n```"
	prose, payload := ExtractPayload(text)
	if payload != nil {
		t.Errorf("expected no payload for invalid JSON, got %q", payload)
	}
	if !strings.Contains(prose, "{not valid json") {
		t.Errorf("invalid block should remain in prose: %q", prose)
	}
}
