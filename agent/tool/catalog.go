package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/remitai/agentcore/agent/contract"
	"github.com/remitai/agentcore/pkg/minswap"
)

const (
	ToolPayeesSearch = "payees.search"
	ToolRatesGet     = "rates.get"
	ToolSwapQuote    = "swap.quote"
)

type PayeeSearcher interface {
	SearchPayees(userID int64, query string) []contractx.Payee
}

type RateSource interface {
	MarketRate(ctx context.Context) (contractx.RateQuote, error)
}

type SwapQuoter interface {
	Quote(ctx context.Context, amountADA float64) (contractx.SwapQuote, error)
}

// Executor runs one tool call. Tool failures come back inside the
// ToolResult so the specialist can reason about them; only broken plumbing
// is a Go error.
type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Catalog wires tool definitions to their backing services per agent type.
type Catalog struct {
	payees PayeeSearcher
	rates  RateSource
	swaps  SwapQuoter
}

func NewCatalog(payees PayeeSearcher, rates RateSource, swaps SwapQuoter) *Catalog {
	return &Catalog{payees: payees, rates: rates, swaps: swaps}
}

func (c *Catalog) BuildForAgent(agentType contractx.AgentType) ([]*schema.ToolInfo, Executor) {
	return InfosForAgent(agentType), c.NewExecutor(agentType)
}

func (c *Catalog) NewExecutor(agentType contractx.AgentType) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		switch tool {
		case ToolPayeesSearch:
			return c.executePayeesSearch(args)
		case ToolRatesGet:
			return c.executeRatesGet(ctx, args)
		case ToolSwapQuote:
			return c.executeSwapQuote(ctx, args)
		default:
			return contractx.ToolResult{
				Tool:  tool,
				Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", tool, agentType),
			}, nil
		}
	}
}

func (c *Catalog) executePayeesSearch(args map[string]any) (contractx.ToolResult, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return contractx.ToolResult{Tool: ToolPayeesSearch, Error: err.Error()}, nil
	}
	userID, err := intArg(args, "user_id")
	if err != nil {
		return contractx.ToolResult{Tool: ToolPayeesSearch, Error: err.Error()}, nil
	}

	matches := c.payees.SearchPayees(userID, query)
	if len(matches) == 0 {
		return contractx.ToolResult{
			Tool:  ToolPayeesSearch,
			Error: fmt.Sprintf("no payee matched query=%q for user_id=%d", query, userID),
		}, nil
	}
	return contractx.ToolResult{Tool: ToolPayeesSearch, Result: matches}, nil
}

func (c *Catalog) executeRatesGet(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	pair, _ := stringArg(args, "pair")
	if pair == "" {
		pair = "ADA/iUSD"
	}

	rate, err := c.rates.MarketRate(ctx)
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolRatesGet,
			Error: fmt.Sprintf("live rate unavailable: %v", err),
			Result: map[string]any{
				"pair":          pair,
				"fallback_rate": minswap.FallbackRate,
				"source":        "Fallback Rate",
			},
		}, nil
	}
	rate.Pair = pair
	return contractx.ToolResult{Tool: ToolRatesGet, Result: rate}, nil
}

func (c *Catalog) executeSwapQuote(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	amount, err := floatArg(args, "amount_ada")
	if err != nil {
		return contractx.ToolResult{Tool: ToolSwapQuote, Error: err.Error()}, nil
	}

	quote, err := c.swaps.Quote(ctx, amount)
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolSwapQuote,
			Error: fmt.Sprintf("quote unavailable: %v", err),
			Result: map[string]any{
				"fallback_estimate": fmt.Sprintf("%.6f iUSD", amount*minswap.FallbackRate),
			},
		}, nil
	}
	return contractx.ToolResult{Tool: ToolSwapQuote, Result: quote}, nil
}

func InfosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeRateInquiry:
		return []*schema.ToolInfo{
			{
				Name: ToolRatesGet,
				Desc: "Fetch the real-time ADA to iUSD exchange rate from DEX liquidity.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"pair": {Type: schema.String, Desc: "Trading pair, e.g. ADA/iUSD", Required: false},
				}),
			},
			{
				Name: ToolSwapQuote,
				Desc: "Calculate a specific swap quote from ADA to iUSD for an amount.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"amount_ada": {Type: schema.Number, Desc: "Amount of ADA to swap", Required: true},
				}),
			},
		}
	case contractx.AgentTypeTransactionPlanner:
		return []*schema.ToolInfo{
			{
				Name: ToolPayeesSearch,
				Desc: "Search the user's saved payees by relation or name.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"user_id": {Type: schema.Integer, Desc: "Id of the current user", Required: true},
					"query":   {Type: schema.String, Desc: "Relation or name term from the message", Required: true},
				}),
			},
			{
				Name: ToolSwapQuote,
				Desc: "Calculate a specific swap quote from ADA to iUSD for an amount.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"amount_ada": {Type: schema.Number, Desc: "Amount of ADA to swap", Required: true},
				}),
			},
		}
	default:
		return nil
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return strings.TrimSpace(s), nil
}

func floatArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q must be numeric", key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q must be numeric", key)
	}
}

func intArg(args map[string]any, key string) (int64, error) {
	f, err := floatArg(args, key)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
