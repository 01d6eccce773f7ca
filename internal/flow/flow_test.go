package flow

import (
	"context"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// fakeSleeper records requested delays and returns immediately.
type fakeSleeper struct {
	sleeps []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	return nil
}

// stubTool is a minimal registry entry for run loop tests.
type stubTool struct {
	name   string
	result string
	err    error
	calls  []map[string]interface{}
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name: s.name,
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (s *stubTool) Execute(ctx context.Context, userID string, args map[string]interface{}) (string, error) {
	s.calls = append(s.calls, args)
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}
