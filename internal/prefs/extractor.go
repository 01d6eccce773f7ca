// Package prefs: lexical preference extraction from free text.
package prefs

import (
	"regexp"
	"strings"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// ExtractContext carries the question context for the direct-answer path.
type ExtractContext struct {
	// LastAskedKey is the key of the most recently asked preference question,
	// if any.
	LastAskedKey models.PreferenceKey
	// LastAskedKeyIsDefault reports whether that key is still at default
	// confidence (the question was never answered).
	LastAskedKeyIsDefault bool
}

var (
	firstPersonRe = regexp.MustCompile(`(?i)\b(i|i'm|im|i've|my)\b`)
	explicitRe    = regexp.MustCompile(`(?i)\bi\s+(?:really\s+)?(?:prefer|love|hate|always|usually|tend to|don't mind|dont mind)\b`)
	implicitRe    = regexp.MustCompile(`(?i)\bi\s+(?:avoid|only|won't|wont|can't|cant)\b|\bbecause\b`)
	tripScopedRe  = regexp.MustCompile(`(?i)\b(?:for this trip|this time|just this once|on this trip)\b`)
	stableRe      = regexp.MustCompile(`(?i)\b(?:always|never|usually|generally|every trip|in general)\b`)

	affirmations = map[string]bool{"yes": true, "yeah": true, "yep": true, "sure": true, "definitely": true}
	negations    = map[string]bool{"no": true, "nope": true, "nah": true}

	punctRe = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Extract turns one user message into candidate preference updates. It is
// pure and deterministic: no I/O, no clock, no randomness.
//
// The direct-answer path runs first: when a question was just asked and its
// key is still at default confidence, a match against that key's value set
// produces one confirmed update and suppresses the heuristic detectors for
// that key. The free-text path requires first-person phrasing plus explicit
// or implicit preference language, and is suppressed entirely when the
// message is scoped to a single trip without stable-preference language.
func Extract(message string, ctx ExtractContext) []models.PreferenceUpdate {
	var updates []models.PreferenceUpdate
	answered := models.PreferenceKey("")

	if ctx.LastAskedKey != "" && ctx.LastAskedKeyIsDefault {
		if value, ok := MatchDirectAnswer(message, ctx.LastAskedKey); ok {
			updates = append(updates, models.PreferenceUpdate{
				Key:        ctx.LastAskedKey,
				Value:      value,
				Confidence: models.ConfidenceConfirmed,
				Evidence:   truncateEvidence(message),
			})
			answered = ctx.LastAskedKey
		}
	}

	if !hasFreeTextMarkers(message) {
		return updates
	}
	if tripScopedRe.MatchString(message) && !stableRe.MatchString(message) {
		// A one-off statement must not overwrite a standing preference.
		return updates
	}

	confidence := models.ConfidenceInferred
	if explicitRe.MatchString(message) {
		confidence = models.ConfidenceConfirmed
	}

	lowered := strings.ToLower(message)
	evidence := truncateEvidence(message)
	for _, det := range detectors {
		if det.key == answered {
			continue
		}
		value, ok := det.match(lowered)
		if !ok || !models.IsAllowedValue(det.key, value) {
			continue
		}
		updates = append(updates, models.PreferenceUpdate{
			Key:        det.key,
			Value:      value,
			Confidence: confidence,
			Evidence:   evidence,
		})
	}
	return updates
}

// hasFreeTextMarkers gates the heuristic path: first-person phrasing AND
// either explicit-preference or implicit language. Third-person and
// hypothetical statements never become durable preferences.
func hasFreeTextMarkers(message string) bool {
	if !firstPersonRe.MatchString(message) {
		return false
	}
	return explicitRe.MatchString(message) || implicitRe.MatchString(message)
}

// MatchDirectAnswer attempts to match a message against one key's closed
// value set: exact token match (case/punctuation-insensitive), yes/no
// handled specially, and single-word options allowed to match as a loose
// substring of the message.
func MatchDirectAnswer(message string, key models.PreferenceKey) (string, bool) {
	normalized := normalizeText(message)
	if normalized == "" {
		return "", false
	}
	tokens := strings.Fields(normalized)

	allowed := models.AllowedValues(key)

	// yes/no answers map onto keys whose value set carries yes/no options.
	if containsValue(allowed, "yes") && containsValue(allowed, "no") {
		for _, tok := range tokens {
			if affirmations[tok] {
				return "yes", true
			}
			if negations[tok] {
				return "no", true
			}
		}
	}

	for _, value := range allowed {
		valueText := normalizeText(strings.ReplaceAll(value, "_", " "))
		if valueText == "" {
			continue
		}
		if normalized == valueText {
			return value, true
		}
		if !strings.Contains(valueText, " ") {
			// Single-word option: loose match anywhere in the message.
			for _, tok := range tokens {
				if tok == valueText {
					return value, true
				}
			}
			if strings.Contains(normalized, valueText) {
				return value, true
			}
		} else if strings.Contains(" "+normalized+" ", " "+valueText+" ") {
			return value, true
		}
	}
	return "", false
}

func containsValue(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// truncateEvidence bounds the stored snippet to the evidence limit, appending
// an ellipsis marker when the message was cut.
func truncateEvidence(message string) string {
	runes := []rune(message)
	if len(runes) <= models.MaxEvidenceLength {
		return message
	}
	return string(runes[:models.MaxEvidenceLength-1]) + "…"
}
