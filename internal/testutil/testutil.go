// Package testutil provides common test utilities and helpers for TrailScout tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TrailPeak/TrailScout/internal/api"
	"github.com/TrailPeak/TrailScout/internal/flow"
	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/orchestrator"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/TrailPeak/TrailScout/internal/tools"
)

// NoopSleeper skips poll delays in tests.
type NoopSleeper struct{}

func (NoopSleeper) Sleep(ctx context.Context, d time.Duration) error { return nil }

var _ flow.Sleeper = NoopSleeper{}

// NewTestServer creates an API server over in-memory dependencies and the
// given scripted backend.
func NewTestServer(t *testing.T, client genai.ClientInterface) (*api.Server, store.Store) {
	t.Helper()
	st := store.NewInMemoryStore()
	reg, err := tools.NewRegistry(
		tools.NewGetUserGearTool(st),
		tools.NewGetUserProfileTool(st),
		tools.NewUpdatePreferencesTool(st),
		tools.NewAddGearToTripTool(st),
	)
	if err != nil {
		t.Fatalf("failed to build tool registry: %v", err)
	}
	orch := orchestrator.New(st, client, reg, orchestrator.WithSleeper(NoopSleeper{}))
	return api.NewServer(st, orch), st
}

// SeedTestUser creates a user with a fixed ID for handler tests.
func SeedTestUser(t *testing.T, st store.Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := st.CreateUser(models.User{
		ID: id, Name: "Ada", Location: "Seattle, WA",
		Latitude: 47.6, Longitude: -122.3,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
