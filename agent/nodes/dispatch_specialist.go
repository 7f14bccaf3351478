package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/remitai/agentcore/agent/contract"
	historyx "github.com/remitai/agentcore/agent/history"
	specialistx "github.com/remitai/agentcore/agent/specialist"
)

const specialistFailureFormat = "I ran into an error while processing your request: %v. Please try again."

// ResolveSpecialist renders the task for the classified intent. The
// history snapshot is prepended so the specialist sees recent context; the
// classifier never does.
func ResolveSpecialist(
	in *GraphState,
	dispatcher *specialistx.Dispatcher,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	cfg, task, err := dispatcher.Resolve(in.Classification.Intent, in.Text, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.History != "" {
		task = in.History + "\n\n" + task
	}

	in.Config = cfg
	in.Task = task
	return in, nil
}

// PickRunner maps a routable intent to its runner. IntentUnknown never
// reaches this point; the classify branch diverts it first.
func PickRunner(intent contractx.Intent, models contractx.Registry) (contractx.Runner, error) {
	switch intent {
	case contractx.IntentRateInquiry:
		return models.RateInquiry(), nil
	case contractx.IntentTransactionPlan:
		return models.TransactionPlanner(), nil
	default:
		return nil, fmt.Errorf("%w: intent=%q", contractx.ErrDispatch, intent)
	}
}

// ExecuteSpecialist runs the resolved task to completion. On failure it
// appends a best-effort assistant turn describing the error, so every user
// turn stays paired even when the run fails, then propagates the error.
func ExecuteSpecialist(
	ctx context.Context,
	in *GraphState,
	models contractx.Registry,
	store historyx.Store,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	runner, err := PickRunner(in.Classification.Intent, models)
	if err != nil {
		return nil, err
	}

	reply, err := runner.Run(ctx, in.Task)
	if err != nil {
		return nil, FailTurn(ctx, in, store, err)
	}

	in.Reply = strings.TrimSpace(reply)
	return in, nil
}

// FailTurn converts a specialist failure into history state plus a wrapped
// error: the assistant turn carries the human-readable description, the
// returned error carries the cause for the job layer.
func FailTurn(
	ctx context.Context,
	in *GraphState,
	store historyx.Store,
	cause error,
) error {
	in.Reply = fmt.Sprintf(specialistFailureFormat, cause)

	if appendErr := store.Append(ctx, in.ConversationID, historyx.RoleAssistant, in.Reply); appendErr != nil {
		log.Warn().
			Err(appendErr).
			Str("conversation_id", in.ConversationID).
			Msg("failed to record assistant failure turn")
	}

	if errors.Is(cause, contractx.ErrSpecialist) {
		return cause
	}
	return fmt.Errorf("%w: %v", contractx.ErrSpecialist, cause)
}
