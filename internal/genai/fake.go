package genai

import (
	"context"
	"fmt"
	"sync"

	"github.com/TrailPeak/TrailScout/internal/models"
)

// FakeStep is one scripted run state for the fake backend. When Status is
// completed, Text becomes the thread's latest assistant message.
type FakeStep struct {
	Status    models.RunState
	ToolCalls []models.ToolCall
	Text      string
}

// FakeClient is a deterministic in-memory backend for tests. A run consumes
// scripted steps in order: StartRun takes the first step, each GetRun poll on
// a queued or in_progress run takes the next, and SubmitToolOutputs takes the
// next after a requires_action step. When the script runs out the run holds
// its last state.
type FakeClient struct {
	mu    sync.Mutex
	steps []FakeStep
	next  int

	threads  map[string]string // thread id -> latest assistant text
	nthreads int
	runOwner map[string]string // run id -> thread id
	runState map[string]*Run
	nruns    int

	// Requests records every StartRun request in order.
	Requests []RunRequest
	// Outputs records every SubmitToolOutputs batch in order.
	Outputs [][]models.ToolOutput
	// StartRunErr, when set, is returned by the next StartRun call.
	StartRunErr error
}

// NewFakeClient creates a fake backend that plays back the given steps.
func NewFakeClient(steps ...FakeStep) *FakeClient {
	return &FakeClient{
		steps:    steps,
		threads:  make(map[string]string),
		runOwner: make(map[string]string),
		runState: make(map[string]*Run),
	}
}

// ThreadCount reports how many threads have been created.
func (f *FakeClient) ThreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nthreads
}

func (f *FakeClient) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nthreads++
	id := fmt.Sprintf("fake_thread_%d", f.nthreads)
	f.threads[id] = ""
	return id, nil
}

func (f *FakeClient) StartRun(ctx context.Context, threadID string, req RunRequest) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartRunErr != nil {
		err := f.StartRunErr
		f.StartRunErr = nil
		return nil, err
	}
	if _, ok := f.threads[threadID]; !ok {
		// Mirrors the real client: a durable thread reference from a previous
		// process resumes as a fresh thread.
		f.threads[threadID] = ""
	}
	f.Requests = append(f.Requests, req)
	f.nruns++
	run := &Run{ID: fmt.Sprintf("fake_run_%d", f.nruns)}
	f.runOwner[run.ID] = threadID
	f.runState[run.ID] = run
	f.applyNextStep(run)
	return copyRun(run), nil
}

func (f *FakeClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runState[runID]
	if !ok || f.runOwner[runID] != threadID {
		return nil, ErrRunNotFound
	}
	if run.Status == models.RunQueued || run.Status == models.RunInProgress {
		f.applyNextStep(run)
	}
	return copyRun(run), nil
}

func (f *FakeClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (*Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runState[runID]
	if !ok || f.runOwner[runID] != threadID {
		return nil, ErrRunNotFound
	}
	if run.Status != models.RunRequiresAction {
		return nil, ErrRunNotWaiting
	}
	f.Outputs = append(f.Outputs, outputs)
	run.ToolCalls = nil
	f.applyNextStep(run)
	return copyRun(run), nil
}

func (f *FakeClient) LatestAssistantText(ctx context.Context, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.threads[threadID]
	if !ok {
		return "", ErrThreadNotFound
	}
	return text, nil
}

// applyNextStep moves the run to the next scripted state, if any. Called with
// f.mu held.
func (f *FakeClient) applyNextStep(run *Run) {
	if f.next >= len(f.steps) {
		return
	}
	step := f.steps[f.next]
	f.next++
	run.Status = step.Status
	run.ToolCalls = append([]models.ToolCall(nil), step.ToolCalls...)
	if step.Status == models.RunCompleted {
		f.threads[f.runOwner[run.ID]] = step.Text
	}
}
