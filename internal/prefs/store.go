// Package prefs implements the durable user-preference subsystem: the
// confidence-tiered preference document, the merge algorithm that applies
// candidate updates to it, the lexical extractor that produces those
// candidates from free text, and the clarifying-question scheduler.
//
// Everything in this package is pure with respect to I/O; persistence of the
// document is the caller's concern.
package prefs

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// NewDocument returns a fully populated preference document with every key at
// its default value. Accounts are created with this; the profile is never
// partial.
func NewDocument(now time.Time) *models.PreferenceDocument {
	return &models.PreferenceDocument{
		Profile:   models.NewDefaultProfile(now),
		Conflicts: []models.PreferenceConflict{},
	}
}

// Normalize repairs a loaded document in place: missing or invalid fields are
// replaced by defaults. It never fails; a completely empty document becomes a
// fresh default one.
func Normalize(doc *models.PreferenceDocument, now time.Time) {
	if doc.Profile == nil {
		doc.Profile = models.NewDefaultProfile(now)
	}
	for _, key := range models.AllPreferenceKeys() {
		entry, ok := doc.Profile[key]
		if !ok {
			doc.Profile[key] = models.PreferenceEntry{
				Value:      models.DefaultValue(key),
				Confidence: models.ConfidenceDefault,
				UpdatedAt:  now,
			}
			continue
		}
		changed := false
		if !models.IsAllowedValue(key, entry.Value) {
			entry.Value = models.DefaultValue(key)
			entry.Confidence = models.ConfidenceDefault
			entry.Evidence = ""
			changed = true
		}
		if !models.IsValidConfidence(entry.Confidence) {
			entry.Confidence = models.ConfidenceDefault
			changed = true
		}
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = now
			changed = true
		}
		if changed {
			doc.Profile[key] = entry
		}
	}
	// Strip any keys outside the closed vocabulary.
	for key := range doc.Profile {
		if !models.IsValidPreferenceKey(key) {
			delete(doc.Profile, key)
		}
	}
	if doc.Conflicts == nil {
		doc.Conflicts = []models.PreferenceConflict{}
	}
	if doc.QuestionState.AskedKeys == nil {
		doc.QuestionState.AskedKeys = []models.PreferenceKey{}
	}
}

// ParseDocument decodes a persisted preference blob and normalizes it.
// Malformed JSON yields a fresh default document rather than an error.
func ParseDocument(raw []byte, now time.Time) *models.PreferenceDocument {
	if len(raw) == 0 {
		return NewDocument(now)
	}
	var doc models.PreferenceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Warn("prefs.ParseDocument: malformed preference document, resetting to defaults", "error", err)
		return NewDocument(now)
	}
	Normalize(&doc, now)
	return &doc
}

// ApplyResult reports what Apply did to the document.
type ApplyResult struct {
	Applied        []models.PreferenceUpdate
	ConflictsAdded []models.PreferenceConflict
}

// Apply merges candidate updates into the document in input order.
//
// Per update: invalid key/value/confidence is silently skipped. If the current
// entry is confirmed and the incoming value differs, a conflict is recorded;
// a non-confirmed update then stops (a confirmed fact is never demoted by a
// lower-confidence signal) while a confirmed update proceeds to overwrite (an
// explicit correction wins). Writing an unchanged value never downgrades an
// already-confirmed entry. Apply is idempotent: the same update applied twice
// yields the same entry and no conflict on the second application.
func Apply(doc *models.PreferenceDocument, updates []models.PreferenceUpdate, now time.Time) ApplyResult {
	var result ApplyResult
	for _, update := range updates {
		if !models.IsValidPreferenceKey(update.Key) ||
			!models.IsAllowedValue(update.Key, update.Value) ||
			!models.IsValidConfidence(update.Confidence) {
			slog.Debug("prefs.Apply: skipping invalid update", "key", update.Key, "value", update.Value, "confidence", update.Confidence)
			continue
		}

		current := doc.Profile[update.Key]

		if current.Confidence == models.ConfidenceConfirmed && current.Value != update.Value {
			conflict := models.PreferenceConflict{
				Key:       update.Key,
				OldValue:  current.Value,
				NewValue:  update.Value,
				Evidence:  update.Evidence,
				Timestamp: now,
			}
			doc.Conflicts = append(doc.Conflicts, conflict)
			result.ConflictsAdded = append(result.ConflictsAdded, conflict)
			if update.Confidence != models.ConfidenceConfirmed {
				slog.Info("prefs.Apply: confirmed value protected from lower-confidence update",
					"key", update.Key, "current", current.Value, "incoming", update.Value)
				continue
			}
			slog.Info("prefs.Apply: confirmed value overwritten by explicit correction",
				"key", update.Key, "old", current.Value, "new", update.Value)
		}

		confidence := update.Confidence
		if current.Value == update.Value && current.Confidence == models.ConfidenceConfirmed {
			// Repeated inferred confirmations never downgrade an unchanged
			// confirmed value.
			confidence = models.ConfidenceConfirmed
		}

		doc.Profile[update.Key] = models.PreferenceEntry{
			Value:      update.Value,
			Confidence: confidence,
			UpdatedAt:  now,
			Evidence:   update.Evidence,
		}
		result.Applied = append(result.Applied, update)
	}
	return result
}

// BeginTurn advances the per-thread question state for one inbound user
// message. If the thread changed (or was cleared), the question state is
// reset first; asked_keys survives the reset because keys are asked at most
// once per account, ever.
func BeginTurn(doc *models.PreferenceDocument, threadID string) {
	if doc.QuestionState.ThreadID != threadID {
		asked := doc.QuestionState.AskedKeys
		doc.QuestionState = models.QuestionState{
			ThreadID:  threadID,
			AskedKeys: asked,
		}
	}
	doc.QuestionState.UserTurn++
}

// SerializeProfile renders the profile as a compact context block for prompt
// injection: one "key: value (confidence)" line per key, defaults included so
// the backend can see what is and is not known.
func SerializeProfile(profile models.PreferenceProfile) string {
	out := ""
	for _, key := range models.AllPreferenceKeys() {
		entry := profile[key]
		out += string(key) + ": " + entry.Value + " (" + string(entry.Confidence) + ")\n"
	}
	return out
}
