package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/testutil"
)

const allowVerdict = `{"in_scope": true, "reason": "hiking"}`

func TestChatHandlerSuccess(t *testing.T) {
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: allowVerdict},
		genai.FakeStep{Status: models.RunCompleted, Text: "Bring microspikes."},
	)
	server, st := testutil.NewTestServer(t, client)
	testutil.SeedTestUser(t, st, "u1")

	req := testutil.CreateHTTPRequest(t, "POST", "/chat",
		map[string]string{"user_id": "u1", "message": "is there still snow on the pass"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "chat success")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing result: %v", resp)
	}
	if result["text"] != "Bring microspikes." {
		t.Errorf("unexpected text %v", result["text"])
	}
}

func TestChatHandlerValidation(t *testing.T) {
	server, _ := testutil.NewTestServer(t, genai.NewFakeClient())

	cases := []struct {
		name string
		body interface{}
	}{
		{"missing user", map[string]string{"message": "hi"}},
		{"missing message", map[string]string{"user_id": "u1"}},
		{"too long", map[string]string{"user_id": "u1", "message": strings.Repeat("a", models.MaxChatMessageLength+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.CreateHTTPRequest(t, "POST", "/chat", tc.body)
			rr := httptest.NewRecorder()
			server.Handler().ServeHTTP(rr, req)
			testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, tc.name)
			testutil.AssertJSONResponse(t, rr, "error")
		})
	}
}

func TestChatHandlerUnknownUser(t *testing.T) {
	server, _ := testutil.NewTestServer(t, genai.NewFakeClient())

	req := testutil.CreateHTTPRequest(t, "POST", "/chat",
		map[string]string{"user_id": "ghost", "message": "hello there"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "chat unknown user")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestCreateUserHandler(t *testing.T) {
	server, st := testutil.NewTestServer(t, genai.NewFakeClient())

	req := testutil.CreateHTTPRequest(t, "POST", "/users",
		map[string]interface{}{"name": "Kim", "location": "Boulder, CO", "latitude": 40.0, "longitude": -105.3})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create user")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected generated user id")
	}
	user, err := st.GetUser(id)
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if user.Name != "Kim" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestCreateUserHandlerRequiresName(t *testing.T) {
	server, _ := testutil.NewTestServer(t, genai.NewFakeClient())

	req := testutil.CreateHTTPRequest(t, "POST", "/users", map[string]string{"location": "Nowhere"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "create user without name")
}

func TestGetPreferencesHandler(t *testing.T) {
	server, st := testutil.NewTestServer(t, genai.NewFakeClient())
	testutil.SeedTestUser(t, st, "u1")

	req := testutil.CreateHTTPRequest(t, "GET", "/users/u1/preferences", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get preferences")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	profile, ok := result["profile"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing profile: %v", result)
	}
	if len(profile) != len(models.AllPreferenceKeys()) {
		t.Errorf("expected total profile, got %d keys", len(profile))
	}
}

func TestGetPreferencesHandlerUnknownUser(t *testing.T) {
	server, _ := testutil.NewTestServer(t, genai.NewFakeClient())

	req := testutil.CreateHTTPRequest(t, "GET", "/users/ghost/preferences", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "preferences unknown user")
}

func TestAddGearHandler(t *testing.T) {
	server, st := testutil.NewTestServer(t, genai.NewFakeClient())
	testutil.SeedTestUser(t, st, "u1")

	req := testutil.CreateHTTPRequest(t, "POST", "/users/u1/gear",
		map[string]interface{}{"name": "Tarptent", "category": "shelter", "weight_grams": 680})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "add gear")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("expected gear id")
	}
	items, _ := st.ListGearByUser("u1")
	if len(items) != 1 || items[0].Name != "Tarptent" {
		t.Errorf("gear not persisted: %+v", items)
	}
}

func TestAddGearHandlerValidation(t *testing.T) {
	server, st := testutil.NewTestServer(t, genai.NewFakeClient())
	testutil.SeedTestUser(t, st, "u1")

	req := testutil.CreateHTTPRequest(t, "POST", "/users/u1/gear", map[string]string{"category": "shelter"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "gear without name")
}

func TestResetThreadHandler(t *testing.T) {
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: allowVerdict},
		genai.FakeStep{Status: models.RunCompleted, Text: "Hi."},
	)
	server, st := testutil.NewTestServer(t, client)
	testutil.SeedTestUser(t, st, "u1")

	// Establish a thread first.
	chatReq := testutil.CreateHTTPRequest(t, "POST", "/chat",
		map[string]string{"user_id": "u1", "message": "thinking about a hike this weekend"})
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, chatReq)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "chat before reset")

	req := testutil.CreateHTTPRequest(t, "POST", "/admin/users/u1/reset-thread", nil)
	rr = httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "reset thread")
	user, _ := st.GetUser("u1")
	if user.ThreadID != "" {
		t.Errorf("expected thread cleared, got %q", user.ThreadID)
	}
}

func TestHealthHandler(t *testing.T) {
	server, _ := testutil.NewTestServer(t, genai.NewFakeClient())

	req := testutil.CreateHTTPRequest(t, "GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, "ok")
}
