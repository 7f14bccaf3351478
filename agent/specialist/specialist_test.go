package specialist

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
	toolx "github.com/remitai/agentcore/agent/tool"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

type executedCall struct {
	tool string
	args map[string]any
}

func recordingExecutor(calls *[]executedCall, result contractx.ToolResult) toolx.Executor {
	return func(_ context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		*calls = append(*calls, executedCall{tool: tool, args: args})
		result.Tool = tool
		return result, nil
	}
}

func TestRunDirectReplyWithoutTools(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "How much ADA would you like to send?"},
		},
	}
	var calls []executedCall

	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeTransactionPlanner,
		fake,
		"planner prompt",
		toolx.InfosForAgent(contractx.AgentTypeTransactionPlanner),
		recordingExecutor(&calls, contractx.ToolResult{}),
		false,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	out, err := spec.Run(context.Background(), "send money to my sister")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "How much ADA would you like to send?" {
		t.Fatalf("unexpected reply: %q", out)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no tool executions, got %#v", calls)
	}
	if fake.idx != 1 {
		t.Fatalf("expected a single model call, got %d", fake.idx)
	}
}

func TestRunToolPath(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						Function: schema.FunctionCall{
							Name:      toolx.ToolSwapQuote,
							Arguments: `{"amount_ada":100}`,
						},
					},
				},
			},
			{Role: schema.Assistant, Content: "100 ADA gets you about 35 iUSD."},
		},
	}
	var calls []executedCall

	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeRateInquiry,
		fake,
		"rate prompt",
		toolx.InfosForAgent(contractx.AgentTypeRateInquiry),
		recordingExecutor(&calls, contractx.ToolResult{Result: "ok"}),
		false,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	out, err := spec.Run(context.Background(), "quote 100 ADA")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "100 ADA gets you about 35 iUSD." {
		t.Fatalf("unexpected reply: %q", out)
	}
	if len(calls) != 1 {
		t.Fatalf("expected one tool execution, got %d", len(calls))
	}
	if calls[0].tool != toolx.ToolSwapQuote {
		t.Fatalf("unexpected tool: %s", calls[0].tool)
	}
	if calls[0].args["amount_ada"] != float64(100) {
		t.Fatalf("unexpected args: %#v", calls[0].args)
	}
}

func TestRunRejectsDisallowedTool(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						Function: schema.FunctionCall{
							Name:      toolx.ToolPayeesSearch,
							Arguments: `{"user_id":99,"query":"sister"}`,
						},
					},
				},
			},
		},
	}
	var calls []executedCall

	// Rate inquiry agents are not bound to payees.search.
	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeRateInquiry,
		fake,
		"rate prompt",
		toolx.InfosForAgent(contractx.AgentTypeRateInquiry),
		recordingExecutor(&calls, contractx.ToolResult{}),
		false,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Run(context.Background(), "quote please")
	if !errors.Is(err, contractx.ErrSpecialist) {
		t.Fatalf("expected ErrSpecialist, got %v", err)
	}
	if !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("unexpected error message: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("disallowed tool must not execute, got %#v", calls)
	}
}

func TestRunEmptyTask(t *testing.T) {
	t.Parallel()

	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeRateInquiry,
		&fakeToolCallingModel{},
		"rate prompt",
		toolx.InfosForAgent(contractx.AgentTypeRateInquiry),
		func(context.Context, string, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, nil
		},
		false,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	_, err = spec.Run(context.Background(), "   ")
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRunStreamDisabled(t *testing.T) {
	t.Parallel()

	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeRateInquiry,
		&fakeToolCallingModel{},
		"rate prompt",
		toolx.InfosForAgent(contractx.AgentTypeRateInquiry),
		func(context.Context, string, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, nil
		},
		false,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	if spec.SupportsStreaming() {
		t.Fatal("expected SupportsStreaming to be false")
	}
	_, err = spec.RunStream(context.Background(), "quote 100 ADA")
	if !errors.Is(err, contractx.ErrSpecialist) {
		t.Fatalf("expected ErrSpecialist, got %v", err)
	}
}

func TestRunStreamDirectReply(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: "How much ADA would you like to send?"},
		},
	}

	spec, err := newSpecialist(
		context.Background(),
		contractx.AgentTypeTransactionPlanner,
		fake,
		"planner prompt",
		toolx.InfosForAgent(contractx.AgentTypeTransactionPlanner),
		func(context.Context, string, map[string]any) (contractx.ToolResult, error) {
			return contractx.ToolResult{}, nil
		},
		true,
	)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	sr, err := spec.RunStream(context.Background(), "send money to my sister")
	if err != nil {
		t.Fatalf("RunStream() error = %v", err)
	}
	defer sr.Close()

	var got strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got.WriteString(chunk)
	}
	if got.String() != "How much ADA would you like to send?" {
		t.Fatalf("unexpected streamed reply: %q", got.String())
	}
}
