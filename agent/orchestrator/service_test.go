package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
	promptx "github.com/remitai/agentcore/agent/prompt"
	specialistx "github.com/remitai/agentcore/agent/specialist"
)

type fakeClassifier struct {
	out   contractx.Classification
	err   error
	calls int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (contractx.Classification, error) {
	f.calls++
	if f.err != nil {
		return contractx.Classification{}, f.err
	}
	return f.out, nil
}

type fakeRunner struct {
	reply     string
	fragments []string
	err       error
	streaming bool
	tasks     []string
}

func (f *fakeRunner) Run(_ context.Context, task string) (string, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeRunner) RunStream(_ context.Context, task string) (*schema.StreamReader[string], error) {
	f.tasks = append(f.tasks, task)
	if !f.streaming {
		return nil, fmt.Errorf("%w: streaming is disabled", contractx.ErrSpecialist)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray(f.fragments), nil
}

func (f *fakeRunner) SupportsStreaming() bool {
	return f.streaming
}

type fakeRegistry struct {
	classifier contractx.Classifier
	rate       contractx.Runner
	planner    contractx.Runner
}

func (f *fakeRegistry) Classifier() contractx.Classifier     { return f.classifier }
func (f *fakeRegistry) RateInquiry() contractx.Runner        { return f.rate }
func (f *fakeRegistry) TransactionPlanner() contractx.Runner { return f.planner }

func newTestOrchestrator(t *testing.T, store historyx.Store, registry contractx.Registry) *Orchestrator {
	t.Helper()
	o, err := New(context.Background(), store, registry, specialistx.NewDispatcher(promptx.LoadPromptSet()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func drain(t *testing.T, reader *schema.StreamReader[string]) ([]string, error) {
	t.Helper()
	defer reader.Close()

	var fragments []string
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return fragments, nil
		}
		if err != nil {
			return fragments, err
		}
		if chunk == "" {
			continue
		}
		fragments = append(fragments, chunk)
	}
}

func lastAssistantTurn(t *testing.T, store historyx.Store, conversationID string) string {
	t.Helper()
	turns, err := store.Turns(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == historyx.RoleAssistant {
			return turns[i].Content
		}
	}
	return ""
}

func TestChatInvalidMessage(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, historyx.NewMemoryStore(), &fakeRegistry{
		classifier: &fakeClassifier{},
		rate:       &fakeRunner{},
		planner:    &fakeRunner{},
	})

	_, err := o.Chat(context.Background(), "   ", ChatContext{ConversationID: "c1"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestChatRateInquiryPath(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{reply: "1 ADA is currently 0.35 iUSD."}
	cls := &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentRateInquiry, Raw: "rate_inquiry"}}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: cls,
		rate:       rate,
		planner:    &fakeRunner{},
	})

	reply, err := o.Chat(context.Background(), "what is the price of ADA?", ChatContext{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "1 ADA is currently 0.35 iUSD." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if cls.calls != 1 {
		t.Fatalf("expected classifier called once, got %d", cls.calls)
	}
	if len(rate.tasks) != 1 {
		t.Fatalf("expected one specialist run, got %d", len(rate.tasks))
	}
	if !strings.Contains(rate.tasks[0], "PREVIOUS CHAT HISTORY:") {
		t.Fatalf("task missing history snapshot: %q", rate.tasks[0])
	}
	if !strings.Contains(rate.tasks[0], "what is the price of ADA?") {
		t.Fatalf("task missing message: %q", rate.tasks[0])
	}

	turns, err := store.Turns(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected user+assistant turns, got %d", len(turns))
	}
	if turns[0].Role != historyx.RoleUser || turns[1].Role != historyx.RoleAssistant {
		t.Fatalf("unexpected turn roles: %#v", turns)
	}
	if turns[1].Content != reply {
		t.Fatalf("assistant turn does not match reply: %q", turns[1].Content)
	}
}

func TestChatDefaultsApplied(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	planner := &fakeRunner{reply: "Here is your plan."}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentTransactionPlan, Raw: "transaction_plan"}},
		rate:       &fakeRunner{},
		planner:    planner,
	})

	if _, err := o.Chat(context.Background(), "send 100 ADA to my sister", ChatContext{}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	turns, err := store.Turns(context.Background(), DefaultConversationID)
	if err != nil {
		t.Fatalf("Turns() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected turns under default conversation, got %d", len(turns))
	}
	if len(planner.tasks) != 1 || !strings.Contains(planner.tasks[0], "user_id=99") {
		t.Fatalf("expected default user id in task, got %#v", planner.tasks)
	}
}

func TestChatUnknownIntentRejected(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{}
	planner := &fakeRunner{}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentUnknown, Raw: "greeting"}},
		rate:       rate,
		planner:    planner,
	})

	reply, err := o.Chat(context.Background(), "hello there", ChatContext{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(reply, "unexpected classification: 'greeting'") {
		t.Fatalf("unexpected rejection reply: %q", reply)
	}
	if len(rate.tasks) != 0 || len(planner.tasks) != 0 {
		t.Fatal("no specialist may run on rejection")
	}
	if got := lastAssistantTurn(t, store, "c1"); got != reply {
		t.Fatalf("rejection must be recorded as assistant turn, got %q", got)
	}
}

func TestChatClassifierFailureRejects(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{err: errors.New("router timeout")},
		rate:       &fakeRunner{},
		planner:    &fakeRunner{},
	})

	reply, err := o.Chat(context.Background(), "hello", ChatContext{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("classifier failure must reject, not error: %v", err)
	}
	if !strings.Contains(reply, "router timeout") {
		t.Fatalf("rejection should carry the raw failure, got %q", reply)
	}
}

func TestChatSpecialistFailure(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{err: errors.New("model unavailable")}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentRateInquiry, Raw: "rate_inquiry"}},
		rate:       rate,
		planner:    &fakeRunner{},
	})

	_, err := o.Chat(context.Background(), "quote 100 ADA", ChatContext{ConversationID: "c1"})
	if !errors.Is(err, contractx.ErrSpecialist) {
		t.Fatalf("expected ErrSpecialist, got %v", err)
	}

	got := lastAssistantTurn(t, store, "c1")
	if !strings.Contains(got, "I ran into an error") {
		t.Fatalf("failure must still record an assistant turn, got %q", got)
	}
}

func TestChatStreamFragmentsMatchHistory(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{
		streaming: true,
		fragments: []string{"1 ADA ", "is currently ", "0.35 iUSD."},
	}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentRateInquiry, Raw: "rate_inquiry"}},
		rate:       rate,
		planner:    &fakeRunner{},
	})

	fragments, err := drain(t, o.ChatStream(context.Background(), "what is the price of ADA?", ChatContext{ConversationID: "c1"}))
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %#v", len(fragments), fragments)
	}

	full := strings.Join(fragments, "")
	if got := lastAssistantTurn(t, store, "c1"); got != full {
		t.Fatalf("persisted turn %q != streamed concatenation %q", got, full)
	}
}

func TestChatStreamNonStreamingRunner(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{streaming: false, reply: "1 ADA is currently 0.35 iUSD."}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentRateInquiry, Raw: "rate_inquiry"}},
		rate:       rate,
		planner:    &fakeRunner{},
	})

	fragments, err := drain(t, o.ChatStream(context.Background(), "what is the price of ADA?", ChatContext{ConversationID: "c1"}))
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if len(fragments) != 1 || fragments[0] != "1 ADA is currently 0.35 iUSD." {
		t.Fatalf("expected whole reply as one fragment, got %#v", fragments)
	}
	if got := lastAssistantTurn(t, store, "c1"); got != fragments[0] {
		t.Fatalf("persisted turn %q != fragment %q", got, fragments[0])
	}
}

func TestChatStreamValidationError(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, historyx.NewMemoryStore(), &fakeRegistry{
		classifier: &fakeClassifier{},
		rate:       &fakeRunner{},
		planner:    &fakeRunner{},
	})

	fragments, err := drain(t, o.ChatStream(context.Background(), "   ", ChatContext{ConversationID: "c1"}))
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fragments) != 0 {
		t.Fatalf("expected no fragments before validation error, got %#v", fragments)
	}
}

func TestChatStreamRejectionIsSingleFragment(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentUnknown, Raw: "greeting"}},
		rate:       &fakeRunner{},
		planner:    &fakeRunner{},
	})

	fragments, err := drain(t, o.ChatStream(context.Background(), "hello", ChatContext{ConversationID: "c1"}))
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if len(fragments) != 1 || !strings.Contains(fragments[0], "unexpected classification") {
		t.Fatalf("expected single rejection fragment, got %#v", fragments)
	}
	if got := lastAssistantTurn(t, store, "c1"); got != fragments[0] {
		t.Fatalf("persisted turn %q != fragment %q", got, fragments[0])
	}
}

func TestChatStreamSpecialistFailure(t *testing.T) {
	t.Parallel()

	store := historyx.NewMemoryStore()
	rate := &fakeRunner{streaming: true, err: errors.New("model unavailable")}

	o := newTestOrchestrator(t, store, &fakeRegistry{
		classifier: &fakeClassifier{out: contractx.Classification{Intent: contractx.IntentRateInquiry, Raw: "rate_inquiry"}},
		rate:       rate,
		planner:    &fakeRunner{},
	})

	fragments, err := drain(t, o.ChatStream(context.Background(), "quote 100 ADA", ChatContext{ConversationID: "c1"}))
	if !errors.Is(err, contractx.ErrSpecialist) {
		t.Fatalf("expected ErrSpecialist, got %v", err)
	}
	if len(fragments) != 1 || !strings.Contains(fragments[0], "I ran into an error") {
		t.Fatalf("expected one error fragment, got %#v", fragments)
	}
	if got := lastAssistantTurn(t, store, "c1"); got != fragments[0] {
		t.Fatalf("failure turn %q != error fragment %q", got, fragments[0])
	}
}
