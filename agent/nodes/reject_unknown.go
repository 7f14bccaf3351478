package nodes

import (
	"context"
	"fmt"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
)

// rejectionFormat names the raw router output verbatim so an operator can
// see what the model actually said.
const rejectionFormat = "Failed to classify your request. The router returned an unexpected classification: '%s'. Please rephrase your query."

// RejectUnknown is the terminal fail-fast path; classification is not
// retried. The rejection text is still recorded as the assistant turn.
func RejectUnknown(
	ctx context.Context,
	in *GraphState,
	store historyx.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Reply = fmt.Sprintf(rejectionFormat, in.Classification.Raw)
	in.Rejected = true

	if err := store.Append(ctx, in.ConversationID, historyx.RoleAssistant, in.Reply); err != nil {
		return nil, err
	}
	return in, nil
}
