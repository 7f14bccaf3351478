package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/remitai/agentcore/agent/contract"
	nodesx "github.com/remitai/agentcore/agent/nodes"
)

const (
	nodeValidateRequest     = "validate_request"
	nodeAppendUserTurn      = "append_user_turn"
	nodeClassifyIntent      = "classify_intent"
	nodeRejectUnknown       = "reject_unknown"
	nodeResolveSpecialist   = "resolve_specialist"
	nodeExecuteSpecialist   = "execute_specialist"
	nodeAppendAssistantTurn = "append_assistant_turn"
	nodeFinalizeReply       = "finalize_reply"
)

// compileGraph wires one conversation turn end to end. The branch after
// classification splits the rejection path from the specialist path; both
// converge on finalize_reply.
func (o *Orchestrator) compileGraph(ctx context.Context) (compose.Runnable[nodesx.GraphInput, nodesx.GraphOutput], error) {
	g := compose.NewGraph[nodesx.GraphInput, nodesx.GraphOutput]()

	if err := g.AddLambdaNode(nodeValidateRequest, compose.InvokableLambda(
		func(_ context.Context, in nodesx.GraphInput) (*nodesx.GraphState, error) {
			return nodesx.ValidateRequest(in, o.now)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeValidateRequest, err)
	}

	if err := g.AddLambdaNode(nodeAppendUserTurn, compose.InvokableLambda(
		func(ctx context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.AppendUserTurn(ctx, in, o.store)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeAppendUserTurn, err)
	}

	if err := g.AddLambdaNode(nodeClassifyIntent, compose.InvokableLambda(
		func(ctx context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.ClassifyIntent(ctx, in, o.models.Classifier())
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeClassifyIntent, err)
	}

	if err := g.AddLambdaNode(nodeRejectUnknown, compose.InvokableLambda(
		func(ctx context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.RejectUnknown(ctx, in, o.store)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeRejectUnknown, err)
	}

	if err := g.AddLambdaNode(nodeResolveSpecialist, compose.InvokableLambda(
		func(_ context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.ResolveSpecialist(in, o.dispatcher)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeResolveSpecialist, err)
	}

	if err := g.AddLambdaNode(nodeExecuteSpecialist, compose.InvokableLambda(
		func(ctx context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.ExecuteSpecialist(ctx, in, o.models, o.store)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeExecuteSpecialist, err)
	}

	if err := g.AddLambdaNode(nodeAppendAssistantTurn, compose.InvokableLambda(
		func(ctx context.Context, in *nodesx.GraphState) (*nodesx.GraphState, error) {
			return nodesx.AppendAssistantTurn(ctx, in, o.store)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeAppendAssistantTurn, err)
	}

	if err := g.AddLambdaNode(nodeFinalizeReply, compose.InvokableLambda(
		func(_ context.Context, in *nodesx.GraphState) (nodesx.GraphOutput, error) {
			return nodesx.FinalizeReply(in)
		},
	)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", nodeFinalizeReply, err)
	}

	if err := g.AddEdge(compose.START, nodeValidateRequest); err != nil {
		return nil, fmt.Errorf("add edge start->%s: %w", nodeValidateRequest, err)
	}
	if err := g.AddEdge(nodeValidateRequest, nodeAppendUserTurn); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeValidateRequest, nodeAppendUserTurn, err)
	}
	if err := g.AddEdge(nodeAppendUserTurn, nodeClassifyIntent); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeAppendUserTurn, nodeClassifyIntent, err)
	}

	branch := compose.NewGraphBranch(
		func(_ context.Context, in *nodesx.GraphState) (string, error) {
			if in.Classification.Intent == contractx.IntentUnknown {
				return nodeRejectUnknown, nil
			}
			return nodeResolveSpecialist, nil
		},
		map[string]bool{
			nodeRejectUnknown:     true,
			nodeResolveSpecialist: true,
		},
	)
	if err := g.AddBranch(nodeClassifyIntent, branch); err != nil {
		return nil, fmt.Errorf("add classify branch: %w", err)
	}

	if err := g.AddEdge(nodeResolveSpecialist, nodeExecuteSpecialist); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeResolveSpecialist, nodeExecuteSpecialist, err)
	}
	if err := g.AddEdge(nodeExecuteSpecialist, nodeAppendAssistantTurn); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeExecuteSpecialist, nodeAppendAssistantTurn, err)
	}
	if err := g.AddEdge(nodeAppendAssistantTurn, nodeFinalizeReply); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeAppendAssistantTurn, nodeFinalizeReply, err)
	}
	if err := g.AddEdge(nodeRejectUnknown, nodeFinalizeReply); err != nil {
		return nil, fmt.Errorf("add edge %s->%s: %w", nodeRejectUnknown, nodeFinalizeReply, err)
	}
	if err := g.AddEdge(nodeFinalizeReply, compose.END); err != nil {
		return nil, fmt.Errorf("add edge %s->end: %w", nodeFinalizeReply, err)
	}

	runner, err := g.Compile(ctx, compose.WithGraphName("orchestrator.conversation_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile conversation graph: %w", err)
	}
	return runner, nil
}
