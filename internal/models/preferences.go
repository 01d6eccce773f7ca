// Package models defines the core data structures for TrailScout.
//
// This file defines the durable user-preference vocabulary: the closed set of
// preference keys, the allowed values per key, confidence tiers, and the
// persisted preference document shared across modules.
package models

import (
	"time"
)

// PreferenceKey identifies one stable user preference. The set of keys is
// closed; every profile holds an entry for every key.
type PreferenceKey string

const (
	PrefPackStyle          PreferenceKey = "pack_style"
	PrefRainTolerance      PreferenceKey = "rain_tolerance"
	PrefFootwearPreference PreferenceKey = "footwear_preference"
	PrefShelterPreference  PreferenceKey = "shelter_preference"
	PrefSleepSystem        PreferenceKey = "sleep_system"
	PrefStovePreference    PreferenceKey = "stove_preference"
	PrefWaterTreatment     PreferenceKey = "water_treatment"
	PrefNavigationStyle    PreferenceKey = "navigation_style"
	PrefTerrainPreference  PreferenceKey = "terrain_preference"
	PrefPacePreference     PreferenceKey = "pace_preference"
	PrefCampStyle          PreferenceKey = "camp_style"
	PrefFoodStyle          PreferenceKey = "food_style"
	PrefLayeringStyle      PreferenceKey = "layering_style"
	PrefSunProtection      PreferenceKey = "sun_protection"
	PrefBugProtection      PreferenceKey = "bug_protection"
	PrefTrekkingPoles      PreferenceKey = "trekking_poles"
	PrefGroupPreference    PreferenceKey = "group_preference"
	PrefFitnessLevel       PreferenceKey = "fitness_level"
)

// preferenceVocabulary maps every key to its allowed values. The first value
// in each slice is the account-creation default for that key.
var preferenceVocabulary = map[PreferenceKey][]string{
	PrefPackStyle:          {"balanced", "ultralight", "light", "comfort"},
	PrefRainTolerance:      {"light_rain_ok", "avoid_rain", "steady_rain_ok"},
	PrefFootwearPreference: {"hiking_shoes", "trail_runners", "boots", "sandals"},
	PrefShelterPreference:  {"tent", "tarp", "hammock", "hut"},
	PrefSleepSystem:        {"sleeping_bag", "quilt"},
	PrefStovePreference:    {"canister", "alcohol", "wood", "no_stove"},
	PrefWaterTreatment:     {"filter", "tablets", "boil", "none"},
	PrefNavigationStyle:    {"gps_app", "paper_map", "gps_device", "signage"},
	PrefTerrainPreference:  {"mixed", "forest", "alpine", "ridge", "valley"},
	PrefPacePreference:     {"moderate", "slow", "fast"},
	PrefCampStyle:          {"either", "established_sites", "dispersed"},
	PrefFoodStyle:          {"ready_made", "cook_meals", "cold_soak"},
	PrefLayeringStyle:      {"standard", "minimal", "warm"},
	PrefSunProtection:      {"moderate", "high", "low"},
	PrefBugProtection:      {"moderate", "high", "low"},
	PrefTrekkingPoles:      {"sometimes", "yes", "no"},
	PrefGroupPreference:    {"either", "solo", "small_group", "large_group"},
	PrefFitnessLevel:       {"intermediate", "beginner", "advanced"},
}

// AllPreferenceKeys returns the full closed key set in a stable order.
func AllPreferenceKeys() []PreferenceKey {
	return []PreferenceKey{
		PrefPackStyle, PrefRainTolerance, PrefFootwearPreference,
		PrefShelterPreference, PrefSleepSystem, PrefStovePreference,
		PrefWaterTreatment, PrefNavigationStyle, PrefTerrainPreference,
		PrefPacePreference, PrefCampStyle, PrefFoodStyle,
		PrefLayeringStyle, PrefSunProtection, PrefBugProtection,
		PrefTrekkingPoles, PrefGroupPreference, PrefFitnessLevel,
	}
}

// IsValidPreferenceKey checks whether the given key is part of the vocabulary.
func IsValidPreferenceKey(key PreferenceKey) bool {
	_, ok := preferenceVocabulary[key]
	return ok
}

// AllowedValues returns the allowed value set for a key, or nil for unknown keys.
func AllowedValues(key PreferenceKey) []string {
	vals, ok := preferenceVocabulary[key]
	if !ok {
		return nil
	}
	out := make([]string, len(vals))
	copy(out, vals)
	return out
}

// IsAllowedValue checks whether value is in the key's allowed set.
func IsAllowedValue(key PreferenceKey, value string) bool {
	for _, v := range preferenceVocabulary[key] {
		if v == value {
			return true
		}
	}
	return false
}

// DefaultValue returns the account-creation default for a key.
func DefaultValue(key PreferenceKey) string {
	vals := preferenceVocabulary[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Confidence is the tier attached to a stored preference value.
type Confidence string

const (
	// ConfidenceDefault marks a value that was never supplied by the user.
	ConfidenceDefault Confidence = "default"
	// ConfidenceInferred marks a value implied by the user's phrasing.
	ConfidenceInferred Confidence = "inferred"
	// ConfidenceConfirmed marks a value the user stated explicitly.
	ConfidenceConfirmed Confidence = "confirmed"
)

// IsValidConfidence checks whether c is one of the three tiers.
func IsValidConfidence(c Confidence) bool {
	switch c {
	case ConfidenceDefault, ConfidenceInferred, ConfidenceConfirmed:
		return true
	default:
		return false
	}
}

// rank orders confidence tiers for merge comparisons.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceConfirmed:
		return 2
	case ConfidenceInferred:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether c is the same tier as other or higher.
func (c Confidence) AtLeast(other Confidence) bool {
	return c.rank() >= other.rank()
}

// PreferenceEntry is the stored state for one preference key.
type PreferenceEntry struct {
	Value      string     `json:"value"`
	Confidence Confidence `json:"confidence"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Evidence   string     `json:"evidence,omitempty"`
}

// PreferenceProfile is a total mapping from every PreferenceKey to an entry.
type PreferenceProfile map[PreferenceKey]PreferenceEntry

// NewDefaultProfile returns a fully populated profile with every key at its
// default value and default confidence.
func NewDefaultProfile(now time.Time) PreferenceProfile {
	profile := make(PreferenceProfile, len(preferenceVocabulary))
	for _, key := range AllPreferenceKeys() {
		profile[key] = PreferenceEntry{
			Value:      DefaultValue(key),
			Confidence: ConfidenceDefault,
			UpdatedAt:  now,
		}
	}
	return profile
}

// PreferenceUpdate is one candidate change produced by extraction or by the
// update_user_preferences tool.
type PreferenceUpdate struct {
	Key        PreferenceKey `json:"key"`
	Value      string        `json:"value"`
	Confidence Confidence    `json:"confidence"`
	Evidence   string        `json:"evidence,omitempty"`
}

// PreferenceConflict records a disagreement with a previously confirmed value.
// Conflicts are append-only; they are never mutated or resolved in place.
type PreferenceConflict struct {
	Key       PreferenceKey `json:"key"`
	OldValue  string        `json:"old_value"`
	NewValue  string        `json:"new_value"`
	Evidence  string        `json:"evidence,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// QuestionState tracks clarifying-question scheduling for one conversation
// thread. It is reset whenever the thread ID changes.
type QuestionState struct {
	ThreadID         string          `json:"thread_id"`
	UserTurn         int             `json:"user_turn"`
	LastQuestionTurn int             `json:"last_question_turn"`
	LastQuestionKey  PreferenceKey   `json:"last_question_key,omitempty"`
	AskedKeys        []PreferenceKey `json:"asked_keys,omitempty"`
}

// HasAsked reports whether key has ever been asked on this account.
func (qs *QuestionState) HasAsked(key PreferenceKey) bool {
	for _, k := range qs.AskedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// PreferenceDocument is the opaque per-user preference blob persisted by the
// store. It must round-trip: writing it and reading it back yields an
// equivalent document after normalization.
type PreferenceDocument struct {
	Profile       PreferenceProfile    `json:"profile"`
	Conflicts     []PreferenceConflict `json:"conflicts"`
	QuestionState QuestionState        `json:"question_state"`
}
