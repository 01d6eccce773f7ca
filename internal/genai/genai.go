// Package genai provides the reasoning backend for TrailScout conversations.
//
// The backend exposes thread and run semantics: a thread is a durable
// conversation, a run is one processing cycle of a submitted message that may
// pass through requires_action rounds before reaching a terminal state. The
// OpenAI implementation keeps thread state client-side and maps tool-call
// responses from the chat completions API onto the requires_action state.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

var (
	// ErrNoChoicesReturned indicates the completions API returned an empty choice list.
	ErrNoChoicesReturned = errors.New("no choices returned")
	// ErrThreadNotFound indicates an unknown thread ID.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrRunNotFound indicates an unknown run ID for the given thread.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotWaiting indicates tool outputs were submitted to a run that is
	// not in the requires_action state.
	ErrRunNotWaiting = errors.New("run is not waiting for tool outputs")
)

// Run is the observable state of one backend processing cycle.
type Run struct {
	ID        string
	Status    models.RunState
	ToolCalls []models.ToolCall
}

// RunRequest carries one user message into a thread together with the system
// prompt and tool definitions active for this turn.
type RunRequest struct {
	SystemPrompt string
	Message      string
	Tools        []openai.ChatCompletionToolParam
}

// ClientInterface is the backend contract consumed by the run loop and the
// scope gate. Implementations must be safe for concurrent use across threads.
type ClientInterface interface {
	// CreateThread creates a new empty conversation thread and returns its ID.
	CreateThread(ctx context.Context) (string, error)
	// StartRun appends the request's user message to the thread and begins a
	// run. The returned run may already be in a terminal or requires_action
	// state.
	StartRun(ctx context.Context, threadID string, req RunRequest) (*Run, error)
	// GetRun returns the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	// SubmitToolOutputs answers every pending tool call of a requires_action
	// run in one batch and advances the run.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (*Run, error)
	// LatestAssistantText returns the most recent assistant message on the thread.
	LatestAssistantText(ctx context.Context, threadID string) (string, error)
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the OpenAI client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option defines a configuration option for client construction.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel sets the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// thread holds the client-side conversation state for one thread.
type thread struct {
	mu            sync.Mutex
	messages      []openai.ChatCompletionMessageParamUnion
	tools         []openai.ChatCompletionToolParam
	runs          map[string]*Run
	lastAssistant string
}

// Client implements ClientInterface on top of the OpenAI chat completions API.
type Client struct {
	chat  chatService
	model openai.ChatModel

	mu      sync.Mutex
	threads map[string]*thread
}

// NewClient initializes the OpenAI-backed client. The API key comes from
// options or the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("NewClient: genai client created", "model", cfg.Model)
	return &Client{
		chat:    &cli.Chat.Completions,
		model:   cfg.Model,
		threads: make(map[string]*thread),
	}, nil
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	id := "thread_" + uuid.NewString()
	c.mu.Lock()
	c.threads[id] = &thread{runs: make(map[string]*Run)}
	c.mu.Unlock()
	slog.Debug("Client.CreateThread: created thread", "threadID", id)
	return id, nil
}

func (c *Client) getThread(id string) (*thread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	th, ok := c.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return th, nil
}

// getOrCreateThread registers unknown thread IDs on first use. Thread state
// is process-local while thread references are durable, so a persisted ID
// seen after a restart resumes as a fresh thread instead of failing the turn.
func (c *Client) getOrCreateThread(id string) *thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	th, ok := c.threads[id]
	if !ok {
		th = &thread{runs: make(map[string]*Run)}
		c.threads[id] = th
		slog.Debug("Client.getOrCreateThread: registered unknown thread", "threadID", id)
	}
	return th
}

func (c *Client) StartRun(ctx context.Context, threadID string, req RunRequest) (*Run, error) {
	th := c.getOrCreateThread(threadID)
	th.mu.Lock()
	defer th.mu.Unlock()

	// The system prompt is refreshed each turn so injected context (date,
	// profile, question directive) stays current across the thread's life.
	if len(th.messages) > 0 && th.messages[0].OfSystem != nil {
		th.messages = th.messages[1:]
	}
	th.messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(req.SystemPrompt)}, th.messages...)
	th.messages = append(th.messages, openai.UserMessage(req.Message))
	th.tools = req.Tools

	run := &Run{ID: "run_" + uuid.NewString(), Status: models.RunQueued}
	th.runs[run.ID] = run
	slog.Debug("Client.StartRun: starting run", "threadID", threadID, "runID", run.ID, "toolCount", len(req.Tools))

	if err := c.advance(ctx, th, run); err != nil {
		return copyRun(run), err
	}
	return copyRun(run), nil
}

func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	th, err := c.getThread(threadID)
	if err != nil {
		return nil, err
	}
	th.mu.Lock()
	defer th.mu.Unlock()
	run, ok := th.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return copyRun(run), nil
}

func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (*Run, error) {
	th, err := c.getThread(threadID)
	if err != nil {
		return nil, err
	}
	th.mu.Lock()
	defer th.mu.Unlock()
	run, ok := th.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	if run.Status != models.RunRequiresAction {
		return nil, ErrRunNotWaiting
	}
	if len(outputs) != len(run.ToolCalls) {
		return nil, fmt.Errorf("expected %d tool outputs, got %d", len(run.ToolCalls), len(outputs))
	}

	for _, out := range outputs {
		th.messages = append(th.messages, openai.ToolMessage(out.Output, out.ToolCallID))
	}
	run.ToolCalls = nil
	slog.Debug("Client.SubmitToolOutputs: outputs submitted", "threadID", threadID, "runID", runID, "outputCount", len(outputs))

	if err := c.advance(ctx, th, run); err != nil {
		return copyRun(run), err
	}
	return copyRun(run), nil
}

func (c *Client) LatestAssistantText(ctx context.Context, threadID string) (string, error) {
	th, err := c.getThread(threadID)
	if err != nil {
		return "", err
	}
	th.mu.Lock()
	defer th.mu.Unlock()
	return th.lastAssistant, nil
}

// advance performs one chat completion over the thread's current messages and
// maps the result onto the run. Called with th.mu held.
func (c *Client) advance(ctx context.Context, th *thread, run *Run) error {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: th.messages,
	}
	if len(th.tools) > 0 {
		params.Tools = th.tools
	}

	run.Status = models.RunInProgress
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		run.Status = models.RunFailed
		slog.Error("Client.advance: completion request failed", "error", err, "runID", run.ID)
		return fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		run.Status = models.RunFailed
		slog.Error("Client.advance: completion returned no choices", "runID", run.ID)
		return ErrNoChoicesReturned
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		th.messages = append(th.messages, openai.AssistantMessage(msg.Content))
		th.lastAssistant = msg.Content
		run.Status = models.RunCompleted
		return nil
	}

	// The assistant message carrying the tool calls must precede the tool
	// result messages that reference its tool_call_ids.
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	pending := make([]models.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
		pending = append(pending, models.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: []byte(tc.Function.Arguments),
			},
		})
	}
	th.messages = append(th.messages, openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(msg.Content),
			},
			ToolCalls: toolCalls,
		},
	})
	run.Status = models.RunRequiresAction
	run.ToolCalls = pending
	slog.Debug("Client.advance: run requires action", "runID", run.ID, "toolCallCount", len(pending))
	return nil
}

func copyRun(r *Run) *Run {
	out := &Run{ID: r.ID, Status: r.Status}
	out.ToolCalls = append(out.ToolCalls, r.ToolCalls...)
	return out
}
