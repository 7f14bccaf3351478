package nodes

import (
	"context"
	"fmt"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
)

// AppendUserTurn records the inbound message before anything else runs, so
// a failing run still leaves the user turn in history. It also takes the
// prompt snapshot used by the specialist task.
func AppendUserTurn(
	ctx context.Context,
	in *GraphState,
	store historyx.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if err := store.Append(ctx, in.ConversationID, historyx.RoleUser, in.Text); err != nil {
		return nil, err
	}

	snapshot, err := store.Recent(ctx, in.ConversationID, historyx.DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	in.History = snapshot
	return in, nil
}
