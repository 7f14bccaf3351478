package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
)

// AppendAssistantTurn persists the specialist output as a single assistant
// turn. The rejection path records its own turn, so it skips this node.
func AppendAssistantTurn(
	ctx context.Context,
	in *GraphState,
	store historyx.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Reply) == "" {
		return nil, fmt.Errorf("%w: specialist returned empty message", contractx.ErrSpecialist)
	}

	if err := store.Append(ctx, in.ConversationID, historyx.RoleAssistant, in.Reply); err != nil {
		return nil, err
	}
	return in, nil
}

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply", contractx.ErrValidation)
	}
	return GraphOutput{Reply: reply, Rejected: in.Rejected}, nil
}
