package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/prefs"
	"github.com/google/uuid"
)

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	resp, err := s.orch.HandleMessage(r.Context(), req.UserID, req.Message)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
			return
		}
		slog.Error("Server.chatHandler: turn failed", "error", err, "userID", req.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var body struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Location  string  `json:"location"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("Server.createUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if body.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("name is required"))
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        body.ID,
		Name:      body.Name,
		Location:  body.Location,
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.CreateUser(user); err != nil {
		slog.Error("Server.createUserHandler: failed to create user", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create user"))
		return
	}
	slog.Info("Server.createUserHandler: user created", "userID", user.ID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("User created", map[string]string{"id": user.ID}))
}

func (s *Server) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	raw, err := s.st.GetPreferenceDocument(userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
			return
		}
		slog.Error("Server.getPreferencesHandler: failed to load preferences", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load preferences"))
		return
	}
	doc := prefs.ParseDocument(raw, time.Now().UTC())
	writeJSONResponse(w, http.StatusOK, models.Success(doc))
}

func (s *Server) addGearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	userID := r.PathValue("id")
	if _, err := s.st.GetUser(userID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
			return
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load user"))
		return
	}

	var body struct {
		Name        string `json:"name"`
		Category    string `json:"category"`
		WeightGrams int    `json:"weight_grams"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		slog.Warn("Server.addGearHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	item := models.GearItem{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        body.Name,
		Category:    body.Category,
		WeightGrams: body.WeightGrams,
		Notes:       body.Notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.AddGearItem(item); err != nil {
		slog.Error("Server.addGearHandler: failed to add gear", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add gear"))
		return
	}
	slog.Info("Server.addGearHandler: gear added", "userID", userID, "gearID", item.ID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Gear added", map[string]string{"id": item.ID}))
}

func (s *Server) resetThreadHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := s.orch.ResetThread(r.Context(), userID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
			return
		}
		slog.Error("Server.resetThreadHandler: reset failed", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset thread"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Thread reset", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}
