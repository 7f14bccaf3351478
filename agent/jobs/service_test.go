package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
	orchestratorx "github.com/remitai/agentcore/agent/orchestrator"
)

type fakeChatter struct {
	fragments []string
	err       error
	messages  []string
	contexts  []orchestratorx.ChatContext
}

func (f *fakeChatter) ChatStream(_ context.Context, message string, chatCtx orchestratorx.ChatContext) *schema.StreamReader[string] {
	f.messages = append(f.messages, message)
	f.contexts = append(f.contexts, chatCtx)

	reader, writer := schema.Pipe[string](len(f.fragments) + 1)
	go func() {
		defer writer.Close()
		for _, fragment := range f.fragments {
			writer.Send(fragment, nil)
		}
		if f.err != nil {
			writer.Send("", f.err)
		}
	}()
	return reader
}

type fakeVerifier struct {
	ok     bool
	err    error
	proofs []string
}

func (f *fakeVerifier) Verify(_ context.Context, proofRef string) (bool, error) {
	f.proofs = append(f.proofs, proofRef)
	if f.err != nil {
		return false, f.err
	}
	return f.ok, nil
}

func awaitTerminal(t *testing.T, s *Service, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if job.Status != StatusProcessing {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never left processing", jobID)
	return Job{}
}

func TestSubmitEmptyMessage(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeChatter{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Submit(context.Background(), "   ", Context{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitCompletesWithResult(t *testing.T) {
	t.Parallel()

	chatter := &fakeChatter{fragments: []string{"1 ADA ", "= 0.35 iUSD"}}
	s, err := New(chatter)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	job, err := s.Submit(context.Background(), "what is the ADA rate?", Context{
		ConversationID: "c1",
		UserID:         99,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.HasPrefix(job.ID, "job_") {
		t.Fatalf("unexpected job id: %q", job.ID)
	}
	if job.Status != StatusProcessing {
		t.Fatalf("expected processing on submit, got %s", job.Status)
	}

	done := awaitTerminal(t, s, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error=%q)", done.Status, done.Error)
	}
	if done.Result != "1 ADA = 0.35 iUSD" {
		t.Fatalf("unexpected result: %q", done.Result)
	}
	if done.Error != "" {
		t.Fatalf("completed job must carry no error, got %q", done.Error)
	}
	if len(chatter.contexts) != 1 || chatter.contexts[0].ConversationID != "c1" || chatter.contexts[0].UserID != 99 {
		t.Fatalf("unexpected chat context: %#v", chatter.contexts)
	}
}

func TestSubmitFailedRun(t *testing.T) {
	t.Parallel()

	chatter := &fakeChatter{
		fragments: []string{"partial "},
		err:       errors.New("specialist failed: model unavailable"),
	}
	s, err := New(chatter)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	job, err := s.Submit(context.Background(), "quote 100 ADA", Context{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	done := awaitTerminal(t, s, job.ID)
	if done.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	if !strings.Contains(done.Error, "model unavailable") {
		t.Fatalf("unexpected error: %q", done.Error)
	}
	if done.Result != "" {
		t.Fatalf("failed job must not expose a result, got %q", done.Result)
	}
}

func TestSubmitPaymentRequired(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{ok: true}
	s, err := New(&fakeChatter{}, WithPaymentVerifier(verifier))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Submit(context.Background(), "quote 100 ADA", Context{})
	if !errors.Is(err, contractx.ErrPaymentRequired) {
		t.Fatalf("expected ErrPaymentRequired, got %v", err)
	}
	if len(verifier.proofs) != 0 {
		t.Fatalf("verifier must not run without a proof, got %#v", verifier.proofs)
	}
}

func TestSubmitPaymentRejected(t *testing.T) {
	t.Parallel()

	chatter := &fakeChatter{}
	s, err := New(chatter, WithPaymentVerifier(&fakeVerifier{ok: false}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Submit(context.Background(), "quote 100 ADA", Context{PaymentProof: "purchase-123"})
	if !errors.Is(err, contractx.ErrPaymentRejected) {
		t.Fatalf("expected ErrPaymentRejected, got %v", err)
	}
	if len(chatter.messages) != 0 {
		t.Fatal("rejected payment must not start a run")
	}
}

func TestSubmitPaymentVerifierError(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeChatter{}, WithPaymentVerifier(&fakeVerifier{err: errors.New("masumi unreachable")}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Submit(context.Background(), "quote 100 ADA", Context{PaymentProof: "purchase-123"})
	if !errors.Is(err, contractx.ErrPaymentRejected) {
		t.Fatalf("expected ErrPaymentRejected, got %v", err)
	}
}

func TestSubmitPaymentVerified(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{ok: true}
	chatter := &fakeChatter{fragments: []string{"ok"}}
	s, err := New(chatter, WithPaymentVerifier(verifier))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	job, err := s.Submit(context.Background(), "quote 100 ADA", Context{PaymentProof: "purchase-123"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(verifier.proofs) != 1 || verifier.proofs[0] != "purchase-123" {
		t.Fatalf("unexpected proofs: %#v", verifier.proofs)
	}

	done := awaitTerminal(t, s, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
}

func TestStatusNotFound(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeChatter{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Status(context.Background(), "job_missing")
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobIDsAreUnique(t *testing.T) {
	t.Parallel()

	s, err := New(&fakeChatter{fragments: []string{"ok"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		job, err := s.Submit(context.Background(), "hello", Context{})
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if seen[job.ID] {
			t.Fatalf("duplicate job id: %s", job.ID)
		}
		seen[job.ID] = true
	}
}
