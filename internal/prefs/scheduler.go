// Package prefs: clarifying-question scheduling.
package prefs

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// MinTurnGap is the minimum number of user turns between two questions.
const MinTurnGap = 10

// priorityKeys is the fixed high-impact ordering. Only these keys are ever
// asked about; the first eligible one wins.
var priorityKeys = []models.PreferenceKey{
	models.PrefPackStyle,
	models.PrefRainTolerance,
	models.PrefFootwearPreference,
	models.PrefShelterPreference,
	models.PrefFoodStyle,
	models.PrefFitnessLevel,
}

var (
	onTopicRe = regexp.MustCompile(`(?i)\b(hike|hiking|trail|backpack|backpacking|camp|camping|gear|trip|trek|summit|mountain|overnight)\b`)
	adviceRe  = regexp.MustCompile(`(?i)\b(packing list|pack list|what should i (pack|bring|wear)|what do i need|help me plan|plan(ning)? a trip|what gear|recommend|suggestion)`)
)

// Question is a single-choice clarifying question to inject into the next
// outbound prompt.
type Question struct {
	Key     models.PreferenceKey
	Prompt  string
	Options []string
}

// MaybeAsk decides whether to inject exactly one clarifying question this
// turn. All gates must hold: the turn-gap rate limit, an on-topic message, an
// advice-shaped request, and an unasked priority key still at default
// confidence. On success it records the ask in the question state; each key
// is asked at most once per account, ever, even if never answered.
func MaybeAsk(doc *models.PreferenceDocument, message string) *Question {
	qs := &doc.QuestionState

	if qs.LastQuestionTurn > 0 && qs.UserTurn-qs.LastQuestionTurn < MinTurnGap {
		return nil
	}
	if !onTopicRe.MatchString(message) {
		return nil
	}
	if !adviceRe.MatchString(message) {
		return nil
	}

	for _, key := range priorityKeys {
		entry, ok := doc.Profile[key]
		if !ok || entry.Confidence != models.ConfidenceDefault {
			continue
		}
		if qs.HasAsked(key) {
			continue
		}

		question := buildQuestion(key)
		qs.LastQuestionTurn = qs.UserTurn
		qs.LastQuestionKey = key
		qs.AskedKeys = append(qs.AskedKeys, key)
		slog.Info("prefs.MaybeAsk: scheduling clarifying question", "key", key, "turn", qs.UserTurn)
		return question
	}
	return nil
}

// buildQuestion renders a single-choice question enumerating the key's
// allowed values.
func buildQuestion(key models.PreferenceKey) *Question {
	options := models.AllowedValues(key)
	readable := make([]string, len(options))
	for i, opt := range options {
		readable[i] = strings.ReplaceAll(opt, "_", " ")
	}
	prompt := fmt.Sprintf(
		"To tailor my advice: for %s, which fits you best? Options: %s.",
		strings.ReplaceAll(string(key), "_", " "),
		strings.Join(readable, ", "),
	)
	return &Question{Key: key, Prompt: prompt, Options: options}
}
