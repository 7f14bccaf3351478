package specialist

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/remitai/agentcore/agent/contract"
	promptx "github.com/remitai/agentcore/agent/prompt"
	toolx "github.com/remitai/agentcore/agent/tool"
)

// Dispatcher maps a known intent to its static SpecialistConfig and renders
// the task template for one message.
type Dispatcher struct {
	configs map[contractx.Intent]contractx.SpecialistConfig
}

func NewDispatcher(prompts promptx.PromptSet) *Dispatcher {
	return &Dispatcher{
		configs: map[contractx.Intent]contractx.SpecialistConfig{
			contractx.IntentRateInquiry: {
				AgentType:    contractx.AgentTypeRateInquiry,
				Role:         "Rate Inquiry Specialist",
				Goal:         "Answer user questions about cryptocurrency exchange rates using the provided tools.",
				Backstory:    prompts.RateInquiry,
				Tools:        []string{toolx.ToolRatesGet, toolx.ToolSwapQuote},
				TaskTemplate: prompts.RateTask,
			},
			contractx.IntentTransactionPlan: {
				AgentType:    contractx.AgentTypeTransactionPlanner,
				Role:         "Transaction Planner",
				Goal:         "Help users prepare a remittance transaction by finding the recipient and getting a quote for the specified amount.",
				Backstory:    prompts.TransactionPlanner,
				Tools:        []string{toolx.ToolPayeesSearch, toolx.ToolSwapQuote},
				TaskTemplate: prompts.TransactionTask,
			},
		},
	}
}

// Resolve fails with ErrDispatch for IntentUnknown or anything else without
// a registered config; the orchestrator rejects unknown intents before
// dispatch, so reaching that path indicates a routing bug.
func (d *Dispatcher) Resolve(intent contractx.Intent, message string, userID int64) (contractx.SpecialistConfig, string, error) {
	if strings.TrimSpace(message) == "" {
		return contractx.SpecialistConfig{}, "", fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	cfg, ok := d.configs[intent]
	if !ok {
		return contractx.SpecialistConfig{}, "", fmt.Errorf("%w: intent=%q", contractx.ErrDispatch, intent)
	}

	task := strings.NewReplacer(
		"{message}", message,
		"{user_id}", strconv.FormatInt(userID, 10),
	).Replace(cfg.TaskTemplate)

	return cfg, task, nil
}
