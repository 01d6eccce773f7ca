// Package models defines the core data structures for TrailScout.
//
// It includes domain entities (users, trips, gear), chat turn types, and the
// API response envelope shared across modules.
package models

import (
	"errors"
	"time"
)

// TripType hints at the shape of a trip; it drives forecast granularity.
type TripType string

const (
	// TripTypeDayHike is a single-day outing.
	TripTypeDayHike TripType = "day_hike"
	// TripTypeOvernight is a one-night trip.
	TripTypeOvernight TripType = "overnight"
	// TripTypeMultiDay is anything longer.
	TripTypeMultiDay TripType = "multi_day"
)

// IsValidTripType checks if the given trip type is supported.
func IsValidTripType(tt TripType) bool {
	switch tt {
	case TripTypeDayHike, TripTypeOvernight, TripTypeMultiDay:
		return true
	default:
		return false
	}
}

// Validation constants for input validation
const (
	// MaxChatMessageLength is the maximum accepted inbound message length.
	MaxChatMessageLength = 4096
	// MaxEvidenceLength is the maximum stored evidence snippet length.
	MaxEvidenceLength = 160
	// MaxGearNameLength is the maximum accepted gear item name length.
	MaxGearNameLength = 200
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID      = errors.New("user id cannot be empty")
	ErrEmptyMessage     = errors.New("message cannot be empty")
	ErrMessageTooLong   = errors.New("message exceeds maximum length")
	ErrUserNotFound     = errors.New("user not found")
	ErrTripNotFound     = errors.New("trip not found")
	ErrGearNotFound     = errors.New("gear item not found")
	ErrEmptyTripName    = errors.New("trip name cannot be empty")
	ErrInvalidTripDates = errors.New("trip end date precedes start date")
	ErrEmptyGearName    = errors.New("gear name cannot be empty")
	ErrGearNameTooLong  = errors.New("gear name exceeds maximum length")
)

// User is a TrailScout account. ThreadID is the durable reasoning-backend
// thread reference; clearing it forces a fresh thread (and fresh question
// state) on the next interaction.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ThreadID  string    `json:"thread_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trip is a planned hike.
type Trip struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	StartDate      string    `json:"start_date"` // YYYY-MM-DD
	EndDate        string    `json:"end_date"`   // YYYY-MM-DD
	TripType       TripType  `json:"trip_type"`
	Notes          string    `json:"notes,omitempty"`
	WeatherSummary string    `json:"weather_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks trip fields before persistence.
func (t *Trip) Validate() error {
	if t.UserID == "" {
		return ErrEmptyUserID
	}
	if t.Name == "" {
		return ErrEmptyTripName
	}
	if t.StartDate != "" && t.EndDate != "" && t.EndDate < t.StartDate {
		return ErrInvalidTripDates
	}
	return nil
}

// GearItem is one piece of owned gear.
type GearItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	WeightGrams int       `json:"weight_grams,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks gear fields before persistence.
func (g *GearItem) Validate() error {
	if g.UserID == "" {
		return ErrEmptyUserID
	}
	if g.Name == "" {
		return ErrEmptyGearName
	}
	if len(g.Name) > MaxGearNameLength {
		return ErrGearNameTooLong
	}
	return nil
}

// ChatRequest is one inbound user turn.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Validate checks the chat request before processing.
func (c *ChatRequest) Validate() error {
	if c.UserID == "" {
		return ErrEmptyUserID
	}
	if c.Message == "" {
		return ErrEmptyMessage
	}
	if len(c.Message) > MaxChatMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ChatResponse is the shaped result of one turn. Payload carries an optional
// structured UI-card block extracted from the assistant's reply.
type ChatResponse struct {
	Text          string          `json:"text"`
	Payload       interface{}     `json:"payload,omitempty"`
	AskedQuestion string          `json:"asked_question,omitempty"`
	Applied       []PreferenceKey `json:"applied_preferences,omitempty"`
	OutOfScope    bool            `json:"out_of_scope,omitempty"`
	ScopeReason   string          `json:"scope_reason,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates a successful operation.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a failed operation.
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard envelope for HTTP endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// APIResponseBuilder builds APIResponse values fluently.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new builder.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and result.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
