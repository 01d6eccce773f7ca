// Package models defines run and tool-call structures for the reasoning
// backend protocol.
package models

import (
	"encoding/json"
)

// RunState is the lifecycle state of one backend processing cycle.
type RunState string

const (
	// RunQueued means the backend has accepted the message but not started.
	RunQueued RunState = "queued"
	// RunInProgress means the backend is working on the run.
	RunInProgress RunState = "in_progress"
	// RunRequiresAction means tool calls are pending and the run cannot
	// progress until every call receives exactly one output.
	RunRequiresAction RunState = "requires_action"
	// RunCompleted is terminal success.
	RunCompleted RunState = "completed"
	// RunFailed is terminal failure.
	RunFailed RunState = "failed"
	// RunCancelled is terminal. It is accepted from the backend but never
	// produced internally; cancellation support is reserved for later.
	RunCancelled RunState = "cancelled"
)

// IsTerminal reports whether the run can make no further progress.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	default:
		return false
	}
}

// ToolCall is a structured request from the backend to execute a named tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and raw JSON arguments of a tool call.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolOutput is the serialized result for one tool call. Every pending
// ToolCall in a requires_action batch must receive exactly one ToolOutput
// before the batch is submitted.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}
