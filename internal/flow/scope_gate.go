package flow

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/prefs"
)

const (
	classifierPollInterval = 400 * time.Millisecond
	classifierTimeout      = 8 * time.Second
)

// maxClassifierPolls bounds the poll loop to the classifier timeout.
const maxClassifierPolls = int(classifierTimeout / classifierPollInterval)

const classifierSystemPrompt = `You are a scope classifier for a hiking and backpacking trip assistant. ` +
	`Decide whether the user message is in scope: hiking, backpacking, camping, trail running, ` +
	`outdoor gear, trip planning, fitness for hiking, trail conditions, or mountain weather. ` +
	`Respond with only a JSON object: {"in_scope": true|false, "reason": "short explanation"}.`

// denyPatterns is the tier-1 deny list. It blocks only unambiguous off-topic
// categories; anything borderline falls through to the classifier.
var denyPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)\b(solve|equation|algebra|calculus|integral|derivative|homework|math problem)\b`), "math or homework help"},
	{regexp.MustCompile(`(?i)\b(election|senator|congress|president|political party|politics|vote for|ballot)\b`), "politics"},
	{regexp.MustCompile(`(?i)\b(dating|girlfriend|boyfriend|tinder|romantic|relationship advice|breakup|crush on)\b`), "dating or relationship advice"},
}

// ScopeDecision is the outcome of classifying one user message.
type ScopeDecision struct {
	Allow  bool
	Reason string
}

// ScopeGate decides whether a message belongs to the assistant's domain.
// Tier 1 is a synchronous deny list; tier 2 asks the backend on an ephemeral
// thread and fails open on timeout or malformed output.
type ScopeGate struct {
	client  genai.ClientInterface
	sleeper Sleeper
}

// NewScopeGate creates a scope gate backed by the given classifier client.
func NewScopeGate(client genai.ClientInterface, sleeper Sleeper) *ScopeGate {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &ScopeGate{client: client, sleeper: sleeper}
}

// Classify gates one user message. lastAskedKey carries the key of a
// still-pending preference question, if any; a message that directly answers
// it skips classification entirely. Callers pass an empty key once the
// question has been answered.
func (g *ScopeGate) Classify(ctx context.Context, message string, lastAskedKey models.PreferenceKey) ScopeDecision {
	for _, p := range denyPatterns {
		if p.re.MatchString(message) {
			slog.Info("ScopeGate.Classify: denied by tier-1 pattern", "reason", p.reason)
			return ScopeDecision{Allow: false, Reason: p.reason}
		}
	}

	// Answers to the system's own questions are always in scope.
	if lastAskedKey != "" {
		if _, ok := prefs.MatchDirectAnswer(message, lastAskedKey); ok {
			slog.Debug("ScopeGate.Classify: direct answer to asked question, skipping classifier", "key", lastAskedKey)
			return ScopeDecision{Allow: true}
		}
	}
	return g.classifyRemote(ctx, message)
}

// classifyRemote runs the tier-2 ephemeral classifier conversation. Any
// failure along the way fails open.
func (g *ScopeGate) classifyRemote(ctx context.Context, message string) ScopeDecision {
	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	threadID, err := g.client.CreateThread(ctx)
	if err != nil {
		slog.Warn("ScopeGate.classifyRemote: thread creation failed, failing open", "error", err)
		return ScopeDecision{Allow: true}
	}
	run, err := g.client.StartRun(ctx, threadID, genai.RunRequest{
		SystemPrompt: classifierSystemPrompt,
		Message:      message,
	})
	if err != nil {
		slog.Warn("ScopeGate.classifyRemote: classifier run failed, failing open", "error", err)
		return ScopeDecision{Allow: true}
	}

	for polls := 0; !run.Status.IsTerminal(); polls++ {
		if polls >= maxClassifierPolls {
			slog.Warn("ScopeGate.classifyRemote: classifier timed out, failing open")
			return ScopeDecision{Allow: true}
		}
		if err := g.sleeper.Sleep(ctx, classifierPollInterval); err != nil {
			return ScopeDecision{Allow: true}
		}
		run, err = g.client.GetRun(ctx, threadID, run.ID)
		if err != nil {
			slog.Warn("ScopeGate.classifyRemote: classifier poll failed, failing open", "error", err)
			return ScopeDecision{Allow: true}
		}
	}
	if run.Status != models.RunCompleted {
		slog.Warn("ScopeGate.classifyRemote: classifier run not completed, failing open", "status", run.Status)
		return ScopeDecision{Allow: true}
	}

	text, err := g.client.LatestAssistantText(ctx, threadID)
	if err != nil {
		return ScopeDecision{Allow: true}
	}
	var verdict struct {
		InScope bool   `json:"in_scope"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &verdict); err != nil {
		slog.Warn("ScopeGate.classifyRemote: malformed classifier output, failing open", "error", err)
		return ScopeDecision{Allow: true}
	}
	if !verdict.InScope {
		slog.Info("ScopeGate.classifyRemote: denied by classifier", "reason", verdict.Reason)
		return ScopeDecision{Allow: false, Reason: verdict.Reason}
	}
	return ScopeDecision{Allow: true}
}
