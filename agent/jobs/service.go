package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/remitai/agentcore/agent/contract"
	orchestratorx "github.com/remitai/agentcore/agent/orchestrator"
)

// Status is the externally visible lifecycle of a job. There is exactly
// one transition out of StatusProcessing.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

const jobIDPrefix = "job_"

// Context carries the routing and payment context for one submission.
type Context struct {
	ConversationID string
	UserID         int64
	PaymentProof   string
}

// Job is the stored record for one asynchronous run.
type Job struct {
	ID        string    `json:"job_id"`
	Status    Status    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chatter is the orchestration surface the job service drives.
type Chatter interface {
	ChatStream(ctx context.Context, message string, chatCtx orchestratorx.ChatContext) *schema.StreamReader[string]
}

// Service accepts paid jobs and runs them in the background. Payment is
// verified strictly before any job state is allocated: a rejected payment
// leaves no job behind.
type Service struct {
	chatter  Chatter
	verifier contractx.PaymentVerifier
	timeout  time.Duration
	now      func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Job
}

type Option func(*Service)

// WithPaymentVerifier enables payment gating on Submit. Without it, jobs
// run unpaid (local development mode).
func WithPaymentVerifier(v contractx.PaymentVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

// WithRunTimeout bounds a single background run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(chatter Chatter, opts ...Option) (*Service, error) {
	if chatter == nil {
		return nil, fmt.Errorf("%w: chatter is nil", contractx.ErrValidation)
	}

	s := &Service{
		chatter: chatter,
		timeout: 5 * time.Minute,
		now:     time.Now,
		jobs:    make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit validates the request, gates on payment, then allocates the job
// and starts the run. The returned job is already in StatusProcessing.
func (s *Service) Submit(ctx context.Context, message string, jobCtx Context) (Job, error) {
	if strings.TrimSpace(message) == "" {
		return Job{}, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	if s.verifier != nil {
		proof := strings.TrimSpace(jobCtx.PaymentProof)
		if proof == "" {
			return Job{}, fmt.Errorf("%w: missing payment proof", contractx.ErrPaymentRequired)
		}
		ok, err := s.verifier.Verify(ctx, proof)
		if err != nil {
			return Job{}, fmt.Errorf("%w: %v", contractx.ErrPaymentRejected, err)
		}
		if !ok {
			return Job{}, fmt.Errorf("%w: payment not confirmed", contractx.ErrPaymentRejected)
		}
	}

	now := s.now().UTC()
	job := &Job{
		ID:        jobIDPrefix + uuid.NewString(),
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.run(job.ID, message, jobCtx)

	log.Info().
		Str("job_id", job.ID).
		Str("conversation_id", jobCtx.ConversationID).
		Msg("job accepted")
	return *job, nil
}

// Status returns a snapshot of the job, or ErrNotFound.
func (s *Service) Status(_ context.Context, jobID string) (Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.RUnlock()
		return Job{}, fmt.Errorf("%w: job %q", contractx.ErrNotFound, jobID)
	}
	snapshot := *job
	s.mu.RUnlock()
	return snapshot, nil
}

func (s *Service) run(jobID, message string, jobCtx Context) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reader := s.chatter.ChatStream(ctx, message, orchestratorx.ChatContext{
		ConversationID: jobCtx.ConversationID,
		UserID:         jobCtx.UserID,
	})
	defer reader.Close()

	var b strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.finish(jobID, StatusFailed, b.String(), err)
			return
		}
		b.WriteString(chunk)
	}

	s.finish(jobID, StatusCompleted, b.String(), nil)
}

// finish applies the single terminal transition. A job already out of
// StatusProcessing is left untouched.
func (s *Service) finish(jobID string, status Status, result string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != StatusProcessing {
		return
	}

	job.Status = status
	job.UpdatedAt = s.now().UTC()
	switch status {
	case StatusCompleted:
		job.Result = result
	case StatusFailed:
		job.Error = cause.Error()
		log.Error().Str("job_id", jobID).Err(cause).Msg("job failed")
	}
}
