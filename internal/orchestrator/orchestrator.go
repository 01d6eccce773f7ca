// Package orchestrator composes one full conversational turn: scope gating,
// preference extraction and merging, question scheduling, the tool dispatch
// loop, and response shaping.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/TrailPeak/TrailScout/internal/flow"
	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/prefs"
	"github.com/TrailPeak/TrailScout/internal/store"
	"github.com/TrailPeak/TrailScout/internal/tools"
)

const (
	// apologyMessage is returned when a run fails; backend failures degrade
	// to a user-visible message, never a crash.
	apologyMessage = "Sorry, I ran into a problem answering that. Please try again."

	outOfScopeMessage = "I can only help with hiking, backpacking, and trip planning. Is there a trip or piece of gear I can help you with?"
)

const systemPromptHeader = `You are TrailScout, a hiking and backpacking trip assistant. ` +
	`Give concrete, practical advice grounded in the user's preference profile below. ` +
	`Use the available tools to look up gear, create trips, fetch weather, and record stable preferences you learn. ` +
	`Preferences marked (default) are assumptions, not facts the user stated.`

// Opts holds configuration options for the orchestrator.
type Opts struct {
	Sleeper flow.Sleeper
	Now     func() time.Time
}

// Option defines a configuration option for orchestrator construction.
type Option func(*Opts)

// WithSleeper overrides poll sleeping, used in tests.
func WithSleeper(s flow.Sleeper) Option {
	return func(o *Opts) {
		o.Sleeper = s
	}
}

// WithNow overrides the clock, used in tests.
func WithNow(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Orchestrator is the top-level entry point for user turns. Turns for the
// same user are serialized; the preference document is read once and written
// once per turn.
type Orchestrator struct {
	store    store.Store
	client   genai.ClientInterface
	registry *tools.Registry
	gate     *flow.ScopeGate
	runLoop  *flow.RunLoop
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an orchestrator over the given collaborators.
func New(st store.Store, client genai.ClientInterface, registry *tools.Registry, opts ...Option) *Orchestrator {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator{
		store:    st,
		client:   client,
		registry: registry,
		gate:     flow.NewScopeGate(client, cfg.Sleeper),
		runLoop:  flow.NewRunLoop(client, registry, cfg.Sleeper),
		now:      cfg.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user mutex, creating it on first use.
func (o *Orchestrator) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[userID] = lock
	}
	return lock
}

// HandleMessage processes one inbound user message and returns the shaped
// response. Concurrent calls for the same user are serialized.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, message string) (*models.ChatResponse, error) {
	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := o.store.GetUser(userID)
	if err != nil {
		return nil, err
	}

	threadID := user.ThreadID
	if threadID == "" {
		threadID, err = o.client.CreateThread(ctx)
		if err != nil {
			slog.Error("Orchestrator.HandleMessage: failed to create thread", "error", err, "userID", userID)
			return &models.ChatResponse{Text: apologyMessage}, nil
		}
		if err := o.store.UpdateUserThread(userID, threadID); err != nil {
			return nil, fmt.Errorf("failed to persist thread: %w", err)
		}
		slog.Info("Orchestrator.HandleMessage: new thread created", "userID", userID, "threadID", threadID)
	}

	now := o.now().UTC()
	raw, err := o.store.GetPreferenceDocument(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	doc := prefs.ParseDocument(raw, now)
	prefs.BeginTurn(doc, threadID)

	lastAskedKey := doc.QuestionState.LastQuestionKey
	lastAskedIsDefault := lastAskedKey != "" &&
		doc.Profile[lastAskedKey].Confidence == models.ConfidenceDefault

	// The direct-answer bypass only applies while the asked key is still
	// unanswered; once confirmed, value words in later messages must not
	// skip classification.
	bypassKey := models.PreferenceKey("")
	if lastAskedIsDefault {
		bypassKey = lastAskedKey
	}
	decision := o.gate.Classify(ctx, message, bypassKey)
	if !decision.Allow {
		if err := o.savePreferences(userID, doc); err != nil {
			return nil, err
		}
		slog.Info("Orchestrator.HandleMessage: message out of scope", "userID", userID, "reason", decision.Reason)
		return &models.ChatResponse{
			Text:        outOfScopeMessage,
			OutOfScope:  true,
			ScopeReason: decision.Reason,
		}, nil
	}

	updates := prefs.Extract(message, prefs.ExtractContext{
		LastAskedKey:          lastAskedKey,
		LastAskedKeyIsDefault: lastAskedIsDefault,
	})
	result := prefs.Apply(doc, updates, now)
	question := prefs.MaybeAsk(doc, message)

	// The document is written exactly once per turn, before the run, so the
	// backend's preference tool sees this turn's extractor updates.
	if err := o.savePreferences(userID, doc); err != nil {
		return nil, err
	}

	req := genai.RunRequest{
		SystemPrompt: o.buildSystemPrompt(user, doc, question, now),
		Message:      message,
		Tools:        o.registry.Definitions(),
	}
	text, err := o.runLoop.Run(ctx, flow.Session{UserID: userID, ThreadID: threadID}, req)
	if err != nil {
		slog.Error("Orchestrator.HandleMessage: run failed", "error", err, "userID", userID)
		return &models.ChatResponse{Text: apologyMessage}, nil
	}

	prose, payload := flow.ExtractPayload(text)
	resp := &models.ChatResponse{Text: prose}
	if payload != nil {
		resp.Payload = json.RawMessage(payload)
	}
	if question != nil {
		resp.AskedQuestion = question.Prompt
		// The question rides on the assistant's answer even if the backend
		// chose not to voice it.
		if !strings.Contains(prose, question.Prompt) {
			resp.Text = strings.TrimSpace(prose + "\n\n" + question.Prompt)
		}
	}
	for _, u := range result.Applied {
		resp.Applied = append(resp.Applied, u.Key)
	}
	slog.Debug("Orchestrator.HandleMessage: turn complete",
		"userID", userID, "applied", len(result.Applied), "conflicts", len(result.ConflictsAdded), "askedQuestion", question != nil)
	return resp, nil
}

// ResetThread clears the user's durable thread reference, forcing a fresh
// thread and fresh question state on the next message.
func (o *Orchestrator) ResetThread(ctx context.Context, userID string) error {
	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.UpdateUserThread(userID, ""); err != nil {
		return err
	}
	slog.Info("Orchestrator.ResetThread: thread reference cleared", "userID", userID)
	return nil
}

func (o *Orchestrator) savePreferences(userID string, doc *models.PreferenceDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize preference document: %w", err)
	}
	if err := o.store.SavePreferenceDocument(userID, raw); err != nil {
		return fmt.Errorf("failed to save preference document: %w", err)
	}
	return nil
}

func (o *Orchestrator) buildSystemPrompt(user *models.User, doc *models.PreferenceDocument, question *prefs.Question, now time.Time) string {
	var b strings.Builder
	b.WriteString(systemPromptHeader)
	fmt.Fprintf(&b, "\n\nToday's date: %s.", now.Format("2006-01-02"))
	if user.Name != "" {
		fmt.Fprintf(&b, "\nUser: %s.", user.Name)
	}
	if user.Location != "" {
		fmt.Fprintf(&b, "\nHome location: %s.", user.Location)
	}
	b.WriteString("\n\nPreference profile:\n")
	b.WriteString(prefs.SerializeProfile(doc.Profile))
	if question != nil {
		fmt.Fprintf(&b, "\nAfter answering, ask the user exactly this question: %q", question.Prompt)
	}
	return b.String()
}
