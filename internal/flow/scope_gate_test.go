package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/TrailPeak/TrailScout/internal/genai"
	"github.com/TrailPeak/TrailScout/internal/models"
)

func TestScopeGateTierOneDeny(t *testing.T) {
	// The classifier must never be consulted for tier-1 categories.
	client := genai.NewFakeClient()
	gate := NewScopeGate(client, &fakeSleeper{})

	cases := []string{
		"can you solve this equation for my homework",
		"who should I vote for in the election",
		"I need dating advice for my crush on a coworker",
	}
	for _, message := range cases {
		decision := gate.Classify(context.Background(), message, "")
		if decision.Allow {
			t.Errorf("expected deny for %q", message)
		}
		if decision.Reason == "" {
			t.Errorf("expected a reason for %q", message)
		}
	}
	if client.ThreadCount() != 0 {
		t.Errorf("tier-1 denials must not create classifier threads, got %d", client.ThreadCount())
	}
}

func TestScopeGateDirectAnswerSkipsClassifier(t *testing.T) {
	// A denying classifier proves the bypass: the answer must still pass.
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: `{"in_scope": false, "reason": "nope"}`},
	)
	gate := NewScopeGate(client, &fakeSleeper{})

	decision := gate.Classify(context.Background(), "ultralight", models.PrefPackStyle)
	if !decision.Allow {
		t.Fatal("direct answer to an asked question must be allowed")
	}
	if client.ThreadCount() != 0 {
		t.Errorf("direct answer must skip the classifier, got %d threads", client.ThreadCount())
	}
}

func TestScopeGateClassifierAllow(t *testing.T) {
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: `{"in_scope": true, "reason": "gear question"}`},
	)
	gate := NewScopeGate(client, &fakeSleeper{})

	decision := gate.Classify(context.Background(), "what kind of sleeping pad is warm enough for shoulder season", "")
	if !decision.Allow {
		t.Errorf("expected allow, got %+v", decision)
	}
	if client.ThreadCount() != 1 {
		t.Errorf("expected one ephemeral thread, got %d", client.ThreadCount())
	}
}

func TestScopeGateClassifierDeny(t *testing.T) {
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: `{"in_scope": false, "reason": "recipe question"}`},
	)
	gate := NewScopeGate(client, &fakeSleeper{})

	decision := gate.Classify(context.Background(), "how do I bake sourdough", "")
	if decision.Allow {
		t.Fatal("expected deny from classifier")
	}
	if decision.Reason != "recipe question" {
		t.Errorf("expected classifier reason, got %q", decision.Reason)
	}
}

func TestScopeGateMalformedVerdictFailsOpen(t *testing.T) {
	client := genai.NewFakeClient(
		genai.FakeStep{Status: models.RunCompleted, Text: "I think this is fine"},
	)
	gate := NewScopeGate(client, &fakeSleeper{})

	if decision := gate.Classify(context.Background(), "borderline question", ""); !decision.Allow {
		t.Error("malformed classifier output must fail open")
	}
}

func TestScopeGateBackendErrorFailsOpen(t *testing.T) {
	client := genai.NewFakeClient()
	client.StartRunErr = errors.New("backend down")
	gate := NewScopeGate(client, &fakeSleeper{})

	if decision := gate.Classify(context.Background(), "borderline question", ""); !decision.Allow {
		t.Error("backend failure must fail open")
	}
}

func TestScopeGateStuckClassifierFailsOpen(t *testing.T) {
	// A classifier that never terminates is abandoned after the poll budget.
	client := genai.NewFakeClient(genai.FakeStep{Status: models.RunInProgress})
	sleeper := &fakeSleeper{}
	gate := NewScopeGate(client, sleeper)

	if decision := gate.Classify(context.Background(), "borderline question", ""); !decision.Allow {
		t.Error("stuck classifier must fail open")
	}
	if len(sleeper.sleeps) != maxClassifierPolls {
		t.Errorf("expected %d polls before giving up, got %d", maxClassifierPolls, len(sleeper.sleeps))
	}
}

func TestScopeGateFailedRunFailsOpen(t *testing.T) {
	client := genai.NewFakeClient(genai.FakeStep{Status: models.RunFailed})
	gate := NewScopeGate(client, &fakeSleeper{})

	if decision := gate.Classify(context.Background(), "borderline question", ""); !decision.Allow {
		t.Error("failed classifier run must fail open")
	}
}
