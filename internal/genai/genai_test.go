package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements chatService for testing. Responses are played
// back in order; the last one repeats.
type mockChatService struct {
	responses []*openai.ChatCompletion
	err       error
	calls     []openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	i := len(m.calls) - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func textCompletion(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func toolCompletion(id, name, args string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{ID: id, Function: openai.ChatCompletionMessageToolCallFunction{Name: name, Arguments: args}},
				},
			}},
		},
	}
}

func testClient(chat chatService) *Client {
	return &Client{chat: chat, model: openai.ChatModelGPT4oMini, threads: make(map[string]*thread)}
}

func TestStartRunCompletes(t *testing.T) {
	mock := &mockChatService{responses: []*openai.ChatCompletion{textCompletion("Bring layers.")}}
	c := testClient(mock)

	threadID, err := c.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread failed: %v", err)
	}
	run, err := c.StartRun(context.Background(), threadID, RunRequest{SystemPrompt: "sys", Message: "what should I pack"})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != models.RunCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	text, err := c.LatestAssistantText(context.Background(), threadID)
	if err != nil {
		t.Fatalf("LatestAssistantText failed: %v", err)
	}
	if text != "Bring layers." {
		t.Errorf("unexpected assistant text %q", text)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(mock.calls))
	}
}

func TestToolCallsBecomeRequiresAction(t *testing.T) {
	mock := &mockChatService{responses: []*openai.ChatCompletion{
		toolCompletion("call_1", "getUserGear", "{}"),
		textCompletion("You own a tent."),
	}}
	c := testClient(mock)

	threadID, _ := c.CreateThread(context.Background())
	run, err := c.StartRun(context.Background(), threadID, RunRequest{SystemPrompt: "sys", Message: "what gear do I have"})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != models.RunRequiresAction {
		t.Fatalf("expected requires_action, got %s", run.Status)
	}
	if len(run.ToolCalls) != 1 || run.ToolCalls[0].Function.Name != "getUserGear" {
		t.Fatalf("unexpected tool calls: %+v", run.ToolCalls)
	}

	run, err = c.SubmitToolOutputs(context.Background(), threadID, run.ID,
		[]models.ToolOutput{{ToolCallID: "call_1", Output: `{"gear":["Tent [g1]"]}`}})
	if err != nil {
		t.Fatalf("SubmitToolOutputs failed: %v", err)
	}
	if run.Status != models.RunCompleted {
		t.Fatalf("expected completed after outputs, got %s", run.Status)
	}
	text, _ := c.LatestAssistantText(context.Background(), threadID)
	if text != "You own a tent." {
		t.Errorf("unexpected assistant text %q", text)
	}
}

func TestSubmitToolOutputsRejectsMismatch(t *testing.T) {
	mock := &mockChatService{responses: []*openai.ChatCompletion{toolCompletion("call_1", "getUserProfile", "{}")}}
	c := testClient(mock)

	threadID, _ := c.CreateThread(context.Background())
	run, _ := c.StartRun(context.Background(), threadID, RunRequest{Message: "hi"})
	if _, err := c.SubmitToolOutputs(context.Background(), threadID, run.ID, nil); err == nil {
		t.Fatal("expected error for missing outputs")
	}
}

func TestStartRunServiceError(t *testing.T) {
	mock := &mockChatService{err: errors.New("service failure")}
	c := testClient(mock)

	threadID, _ := c.CreateThread(context.Background())
	run, err := c.StartRun(context.Background(), threadID, RunRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error from failing service")
	}
	if run == nil || run.Status != models.RunFailed {
		t.Errorf("expected failed run state, got %+v", run)
	}
}

func TestStartRunNoChoices(t *testing.T) {
	mock := &mockChatService{responses: []*openai.ChatCompletion{{}}}
	c := testClient(mock)

	threadID, _ := c.CreateThread(context.Background())
	_, err := c.StartRun(context.Background(), threadID, RunRequest{Message: "hi"})
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestSystemPromptRefreshedPerRun(t *testing.T) {
	mock := &mockChatService{responses: []*openai.ChatCompletion{textCompletion("ok")}}
	c := testClient(mock)

	threadID, _ := c.CreateThread(context.Background())
	if _, err := c.StartRun(context.Background(), threadID, RunRequest{SystemPrompt: "first", Message: "a"}); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if _, err := c.StartRun(context.Background(), threadID, RunRequest{SystemPrompt: "second", Message: "b"}); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	last := mock.calls[len(mock.calls)-1]
	sys := last.Messages[0].OfSystem
	if sys == nil {
		t.Fatal("expected leading system message")
	}
	if sys.Content.OfString.Value != "second" {
		t.Errorf("expected refreshed system prompt, got %q", sys.Content.OfString.Value)
	}
	// One system message only, the first turn's was replaced.
	for _, m := range last.Messages[1:] {
		if m.OfSystem != nil {
			t.Error("found stale system message in thread")
		}
	}
}

func TestUnknownThreadAndRun(t *testing.T) {
	c := testClient(&mockChatService{responses: []*openai.ChatCompletion{textCompletion("ok")}})
	threadID, _ := c.CreateThread(context.Background())
	if _, err := c.GetRun(context.Background(), threadID, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := c.LatestAssistantText(context.Background(), "missing"); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestStartRunResumesPersistedThread(t *testing.T) {
	// Thread references outlive the process; a run on an ID this client has
	// never seen must register the thread and proceed.
	mock := &mockChatService{responses: []*openai.ChatCompletion{textCompletion("Welcome back.")}}
	c := testClient(mock)

	run, err := c.StartRun(context.Background(), "thread_from_previous_process", RunRequest{SystemPrompt: "sys", Message: "hi again"})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != models.RunCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	text, err := c.LatestAssistantText(context.Background(), "thread_from_previous_process")
	if err != nil {
		t.Fatalf("LatestAssistantText failed: %v", err)
	}
	if text != "Welcome back." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestNewClientNoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error when API key not provided, got nil")
	}
}

func TestNewClientWithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}
