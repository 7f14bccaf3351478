package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
)

// routingTaskFormat wraps the raw user message into the single-shot routing
// task. History is deliberately not part of the prompt; classification is
// single-turn.
const routingTaskFormat = "Analyze the user's message: '%s'. Output ONLY the primary intent as a single, exact string: 'rate_inquiry' or 'transaction_plan'."

type classifierImpl struct {
	runner compose.Runnable[map[string]any, *schema.Message]
}

func New(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (contractx.Classifier, error) {
	runner, err := compileRoutingGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile routing graph: %v", contractx.ErrClassifier, err)
	}
	return &classifierImpl{runner: runner}, nil
}

func (c *classifierImpl) Classify(ctx context.Context, message string) (contractx.Classification, error) {
	if strings.TrimSpace(message) == "" {
		return contractx.Classification{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	msg, err := c.runner.Invoke(ctx, map[string]any{
		"input": fmt.Sprintf(routingTaskFormat, message),
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: router invoke: %v", contractx.ErrClassifier, err)
	}
	if msg == nil {
		return contractx.Classification{}, fmt.Errorf("%w: empty router response", contractx.ErrClassifier)
	}

	raw := strings.TrimSpace(msg.Content)
	return contractx.Classification{
		Intent: MatchIntent(raw),
		Raw:    raw,
	}, nil
}

// MatchIntent maps a raw router reply to an Intent by substring. The
// tolerance is deliberate: model output is not guaranteed to be an exact
// literal, so "RATE_INQUIRY." or "I'd say rate_inquiry" still route.
func MatchIntent(raw string) contractx.Intent {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(normalized, "rate"):
		return contractx.IntentRateInquiry
	case strings.Contains(normalized, "transaction"), strings.Contains(normalized, "plan"):
		return contractx.IntentTransactionPlan
	default:
		return contractx.IntentUnknown
	}
}
