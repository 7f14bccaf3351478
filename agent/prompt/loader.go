package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/router.txt
	routerRaw string

	//go:embed template/rate_inquiry.txt
	rateInquiryRaw string

	//go:embed template/transaction_planner.txt
	transactionPlannerRaw string

	//go:embed template/rate_task.txt
	rateTaskRaw string

	//go:embed template/transaction_task.txt
	transactionTaskRaw string
)

// PromptSet holds loaded prompt content. System prompts describe the agent
// profiles; task templates carry {message} and {user_id} placeholders.
type PromptSet struct {
	Router             string
	RateInquiry        string
	TransactionPlanner string
	RateTask           string
	TransactionTask    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time, trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Router:             strings.TrimSpace(routerRaw),
		RateInquiry:        strings.TrimSpace(rateInquiryRaw),
		TransactionPlanner: strings.TrimSpace(transactionPlannerRaw),
		RateTask:           strings.TrimSpace(rateTaskRaw),
		TransactionTask:    strings.TrimSpace(transactionTaskRaw),
	}
}
