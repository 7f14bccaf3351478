package nodes

import (
	"context"
	"fmt"

	contractx "github.com/remitai/agentcore/agent/contract"
)

// ClassifyIntent runs the router on the raw message only; history is not
// part of the classification prompt. A failing classifier call degrades to
// IntentUnknown carrying the error text, so the run continues into the
// rejection path instead of bubbling a transport error to the caller.
func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	cls contractx.Classifier,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	classification, err := cls.Classify(ctx, in.Text)
	if err != nil {
		in.Classification = contractx.Classification{
			Intent: contractx.IntentUnknown,
			Raw:    err.Error(),
		}
		return in, nil
	}

	in.Classification = classification
	return in, nil
}
