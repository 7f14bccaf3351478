package contract

// Intent is the classified category of a user message. It is derived per
// message and never persisted.
type Intent string

const (
	IntentRateInquiry     Intent = "rate_inquiry"
	IntentTransactionPlan Intent = "transaction_plan"
	IntentUnknown         Intent = "unknown"
)

type AgentType string

const (
	AgentTypeRouter             AgentType = "router"
	AgentTypeRateInquiry        AgentType = "rate_inquiry"
	AgentTypeTransactionPlanner AgentType = "transaction_planner"
)

// Classification carries the derived intent together with the raw model
// reply. The raw reply is kept verbatim so rejection messages can name it.
type Classification struct {
	Intent Intent `json:"intent"`
	Raw    string `json:"raw"`
}

// SpecialistConfig is the static execution profile for one intent category.
type SpecialistConfig struct {
	AgentType    AgentType `json:"agent_type"`
	Role         string    `json:"role"`
	Goal         string    `json:"goal"`
	Backstory    string    `json:"backstory"`
	Tools        []string  `json:"tools,omitempty"`
	TaskTemplate string    `json:"task_template"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Payee is a saved remittance contact, distinct from the global directory.
type Payee struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	Wallet     string `json:"wallet"`
	Currency   string `json:"currency"`
	Relation   string `json:"relation,omitempty"`
	MatchScore int    `json:"match_score,omitempty"`
}

type RateQuote struct {
	Pair   string  `json:"pair"`
	Rate   float64 `json:"rate"`
	Source string  `json:"source"`
}

type SwapQuote struct {
	InputADA        float64  `json:"input_ada"`
	EstimatedOutput float64  `json:"estimated_output"`
	MinimumOutput   float64  `json:"minimum_output"`
	PriceImpactPct  float64  `json:"price_impact_percent"`
	Route           []string `json:"route,omitempty"`
}
