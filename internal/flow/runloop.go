package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
	"github.com/TrailPeak/TrailScout/internal/tools"
)

const (
	// maxRunIterations bounds the loop by iteration count, not wall clock;
	// a backend that never reaches a terminal state cannot hang a turn.
	maxRunIterations = 10
	// maxStalledPolls bounds consecutive queued/in_progress polls that show
	// no state change before the turn is abandoned.
	maxStalledPolls = 8

	runPollInterval = 400 * time.Millisecond
)

// ErrRunFailed is returned when the backend reports a failed run.
var ErrRunFailed = fmt.Errorf("backend run failed")

// Session identifies whose turn is being processed and on which thread.
type Session struct {
	UserID   string
	ThreadID string
}

// RunLoop drives one assistant turn to a terminal state, executing tool calls
// through the registry as the backend requests them.
type RunLoop struct {
	client   genai.ClientInterface
	registry *tools.Registry
	sleeper  Sleeper
}

// NewRunLoop creates a run loop. A nil sleeper uses real time.
func NewRunLoop(client genai.ClientInterface, registry *tools.Registry, sleeper Sleeper) *RunLoop {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &RunLoop{client: client, registry: registry, sleeper: sleeper}
}

// Run submits the request and loops until the run completes, fails, or the
// iteration bound is hit. It returns the final assistant text.
func (rl *RunLoop) Run(ctx context.Context, session Session, req genai.RunRequest) (string, error) {
	run, err := rl.client.StartRun(ctx, session.ThreadID, req)
	if err != nil {
		slog.Error("RunLoop.Run: failed to start run", "error", err, "userID", session.UserID)
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	slog.Debug("RunLoop.Run: run started", "runID", run.ID, "status", run.Status, "userID", session.UserID)

	stalled := 0
	for i := 0; i < maxRunIterations; i++ {
		switch run.Status {
		case models.RunCompleted:
			return rl.client.LatestAssistantText(ctx, session.ThreadID)

		case models.RunFailed, models.RunCancelled:
			slog.Error("RunLoop.Run: run ended without completing", "runID", run.ID, "status", run.Status, "userID", session.UserID)
			return "", fmt.Errorf("%w: run %s ended in state %s", ErrRunFailed, run.ID, run.Status)

		case models.RunRequiresAction:
			outputs := rl.executeToolCalls(ctx, session, run.ToolCalls)
			run, err = rl.client.SubmitToolOutputs(ctx, session.ThreadID, run.ID, outputs)
			if err != nil {
				slog.Error("RunLoop.Run: failed to submit tool outputs", "error", err, "userID", session.UserID)
				return "", fmt.Errorf("failed to submit tool outputs: %w", err)
			}
			stalled = 0

		case models.RunQueued, models.RunInProgress:
			stalled++
			if stalled > maxStalledPolls {
				slog.Error("RunLoop.Run: run stalled", "runID", run.ID, "status", run.Status, "polls", stalled)
				return "", fmt.Errorf("run %s stalled in state %s", run.ID, run.Status)
			}
			if err := rl.sleeper.Sleep(ctx, runPollInterval); err != nil {
				return "", err
			}
			run, err = rl.client.GetRun(ctx, session.ThreadID, run.ID)
			if err != nil {
				return "", fmt.Errorf("failed to poll run: %w", err)
			}

		default:
			return "", fmt.Errorf("run %s in unknown state %q", run.ID, run.Status)
		}
	}
	slog.Error("RunLoop.Run: iteration limit reached", "runID", run.ID, "status", run.Status, "userID", session.UserID)
	return "", fmt.Errorf("run %s exceeded %d iterations", run.ID, maxRunIterations)
}

// executeToolCalls runs every call in the batch sequentially and collects one
// output per call. A failing tool is reported to the backend as data, never
// as a loop abort.
func (rl *RunLoop) executeToolCalls(ctx context.Context, session Session, calls []models.ToolCall) []models.ToolOutput {
	outputs := make([]models.ToolOutput, 0, len(calls))
	for _, call := range calls {
		name := call.Function.Name
		slog.Info("RunLoop.executeToolCalls: executing tool", "tool", name, "toolCallID", call.ID, "userID", session.UserID)

		output := rl.executeOne(ctx, session, call)
		outputs = append(outputs, models.ToolOutput{ToolCallID: call.ID, Output: output})
	}
	return outputs
}

func (rl *RunLoop) executeOne(ctx context.Context, session Session, call models.ToolCall) string {
	tool, ok := rl.registry.Get(call.Function.Name)
	if !ok {
		slog.Warn("RunLoop.executeOne: unknown tool requested", "tool", call.Function.Name)
		return errorOutput(fmt.Sprintf("unknown tool %q", call.Function.Name))
	}
	args, err := parseToolArgs(call.Function.Arguments)
	if err != nil {
		slog.Warn("RunLoop.executeOne: bad tool arguments", "tool", call.Function.Name, "error", err)
		return errorOutput(fmt.Sprintf("invalid arguments: %s", err))
	}
	result, err := tool.Execute(ctx, session.UserID, args)
	if err != nil {
		slog.Warn("RunLoop.executeOne: tool execution failed", "tool", call.Function.Name, "error", err)
		return errorOutput(err.Error())
	}
	return result
}

// parseToolArgs decodes tool-call arguments, tolerating both a JSON object
// and a JSON string containing an encoded object.
func parseToolArgs(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var direct map[string]interface{}
	if err := json.Unmarshal(raw, &direct); err == nil {
		if direct == nil {
			direct = map[string]interface{}{}
		}
		return direct, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		var nested map[string]interface{}
		if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
			return nil, fmt.Errorf("string argument is not a JSON object: %w", err)
		}
		if nested == nil {
			nested = map[string]interface{}{}
		}
		return nested, nil
	}
	return nil, fmt.Errorf("arguments are neither a JSON object nor an encoded string")
}

func errorOutput(message string) string {
	out, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal error"}`
	}
	return string(out)
}
