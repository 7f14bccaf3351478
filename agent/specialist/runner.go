package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
	toolx "github.com/remitai/agentcore/agent/tool"
)

// specialistImpl runs one intent category: a tool-planning pass with the
// agent's bound tools, local tool execution, then a final answer pass with
// the tool results folded back into the prompt.
type specialistImpl struct {
	agentType    contractx.AgentType
	toolRunner   compose.Runnable[map[string]any, *schema.Message]
	answerRunner compose.Runnable[map[string]any, *schema.Message]
	executor     toolx.Executor
	allowedTools map[string]struct{}
	streaming    bool
}

var _ contractx.Runner = (*specialistImpl)(nil)

func newSpecialist(
	ctx context.Context,
	agentType contractx.AgentType,
	chatModel einomodel.ToolCallingChatModel,
	systemPrompt string,
	infos []*schema.ToolInfo,
	executor toolx.Executor,
	streaming bool,
) (*specialistImpl, error) {
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools for agent=%s: %v", contractx.ErrSpecialist, agentType, err)
	}
	toolRunner, err := compileMessageGraph(ctx, toolModel, systemPrompt, fmt.Sprintf("specialist.%s.tool_planning", agentType))
	if err != nil {
		return nil, fmt.Errorf("%w: compile tool planning graph: %v", contractx.ErrSpecialist, err)
	}
	answerRunner, err := compileMessageGraph(ctx, chatModel, systemPrompt, fmt.Sprintf("specialist.%s.answer", agentType))
	if err != nil {
		return nil, fmt.Errorf("%w: compile answer graph: %v", contractx.ErrSpecialist, err)
	}

	allowedTools := make(map[string]struct{}, len(infos))
	for _, t := range infos {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			continue
		}
		allowedTools[t.Name] = struct{}{}
	}

	return &specialistImpl{
		agentType:    agentType,
		toolRunner:   toolRunner,
		answerRunner: answerRunner,
		executor:     executor,
		allowedTools: allowedTools,
		streaming:    streaming,
	}, nil
}

func (s *specialistImpl) SupportsStreaming() bool {
	return s.streaming
}

func (s *specialistImpl) Run(ctx context.Context, task string) (string, error) {
	input, direct, err := s.prepare(ctx, task)
	if err != nil {
		return "", err
	}
	if direct != "" {
		return direct, nil
	}

	msg, err := s.answerRunner.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: answer invoke: %v", contractx.ErrSpecialist, err)
	}
	content := strings.TrimSpace(messageContent(msg))
	if content == "" {
		return "", fmt.Errorf("%w: specialist message is empty", contractx.ErrSpecialist)
	}
	return content, nil
}

func (s *specialistImpl) RunStream(ctx context.Context, task string) (*schema.StreamReader[string], error) {
	if !s.streaming {
		return nil, fmt.Errorf("%w: streaming is disabled for agent=%s", contractx.ErrSpecialist, s.agentType)
	}

	input, direct, err := s.prepare(ctx, task)
	if err != nil {
		return nil, err
	}
	if direct != "" {
		return schema.StreamReaderFromArray([]string{direct}), nil
	}

	msgStream, err := s.answerRunner.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: answer stream: %v", contractx.ErrSpecialist, err)
	}

	return schema.StreamReaderWithConvert(msgStream, func(m *schema.Message) (string, error) {
		if m == nil || m.Content == "" {
			return "", schema.ErrNoValue
		}
		return m.Content, nil
	}), nil
}

// prepare runs tool planning and execution. It returns either the input
// payload for the answer pass, or a direct reply when the model answered
// without requesting tools (e.g. asking for a missing amount).
func (s *specialistImpl) prepare(ctx context.Context, task string) (map[string]any, string, error) {
	trimmed := strings.TrimSpace(task)
	if trimmed == "" {
		return nil, "", fmt.Errorf("%w: task is required", contractx.ErrValidation)
	}

	planMsg, err := s.toolRunner.Invoke(ctx, map[string]any{"input": trimmed})
	if err != nil {
		return nil, "", fmt.Errorf("%w: tool planning invoke: %v", contractx.ErrSpecialist, err)
	}
	if planMsg == nil {
		return nil, "", fmt.Errorf("%w: empty tool planning response", contractx.ErrSpecialist)
	}

	toolRequests, err := toToolRequests(planMsg.ToolCalls)
	if err != nil {
		return nil, "", err
	}

	if len(toolRequests) == 0 {
		content := strings.TrimSpace(planMsg.Content)
		if content == "" {
			return nil, "", fmt.Errorf("%w: specialist produced neither tool calls nor a message", contractx.ErrSpecialist)
		}
		return nil, content, nil
	}

	results := make([]contractx.ToolResult, 0, len(toolRequests))
	for _, tr := range toolRequests {
		if _, ok := s.allowedTools[tr.Tool]; !ok {
			return nil, "", fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSpecialist, tr.Tool, s.agentType)
		}
		result, err := s.executor(ctx, tr.Tool, tr.Args)
		if err != nil {
			return nil, "", fmt.Errorf("%w: execute tool=%s: %v", contractx.ErrSpecialist, tr.Tool, err)
		}
		results = append(results, result)
	}

	payload := map[string]any{
		"task":         trimmed,
		"tool_results": results,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal answer payload: %v", contractx.ErrValidation, err)
	}
	return map[string]any{"input": string(encoded)}, "", nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSpecialist)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSpecialist, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}

func messageContent(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Content
}
