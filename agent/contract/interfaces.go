package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Classifier issues exactly one classification request per call.
type Classifier interface {
	Classify(ctx context.Context, message string) (Classification, error)
}

// Runner executes a rendered specialist task against a language model.
// RunStream is only called when SupportsStreaming reports true; callers
// that need incremental output branch on the capability flag instead of
// probing for errors.
type Runner interface {
	Run(ctx context.Context, task string) (string, error)
	RunStream(ctx context.Context, task string) (*schema.StreamReader[string], error)
	SupportsStreaming() bool
}

type Registry interface {
	Classifier() Classifier
	RateInquiry() Runner
	TransactionPlanner() Runner
}

// PaymentVerifier confirms a payment proof reference against the payment
// service. Consulted by job submission only when seller verification is
// configured.
type PaymentVerifier interface {
	Verify(ctx context.Context, proofRef string) (bool, error)
}
