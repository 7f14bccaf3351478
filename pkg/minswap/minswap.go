package minswap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/remitai/agentcore/agent/contract"
)

const (
	tokenADA = "lovelace"
	// Mainnet policy id + asset name for iUSD, used for pricing only.
	tokenIUSD = "f66d78b4a3cb3d37afa0ec36461e51ecbde00f26c8f0a68f94b6988069555344"

	lovelacePerADA = 1_000_000
	iusdDecimals   = 1_000_000

	// FallbackRate is the conservative ADA/iUSD estimate used when the
	// aggregator is unreachable.
	FallbackRate = 0.35

	RateSource = "Minswap Aggregator (Mainnet Data)"

	maxResponseSizeBytes = 1 << 20
)

type Config struct {
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"https://agg-api.minswap.org/aggregator"`
	Slippage float64       `envconfig:"SLIPPAGE" split_words:"true" default:"1.0"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// Client quotes ADA to iUSD swaps against the Minswap Aggregator.
type Client struct {
	baseURL    string
	slippage   float64
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("minswap base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid minswap base url: %w", err)
	}

	slippage := cfg.Slippage
	if slippage <= 0 {
		slippage = 1.0
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		slippage: slippage,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type estimateRequest struct {
	Amount          string  `json:"amount"`
	TokenIn         string  `json:"token_in"`
	TokenOut        string  `json:"token_out"`
	Slippage        float64 `json:"slippage"`
	AmountInDecimal bool    `json:"amount_in_decimal"`
}

type estimateHop struct {
	Protocol string `json:"protocol"`
}

type estimateResponse struct {
	AmountOut      json.Number     `json:"amount_out"`
	MinAmountOut   json.Number     `json:"min_amount_out"`
	AvgPriceImpact float64         `json:"avg_price_impact"`
	Paths          [][]estimateHop `json:"paths"`
}

// Quote asks the aggregator for a liquidity quote. Amounts cross the wire
// in lovelace; iUSD comes back with six decimals.
func (c *Client) Quote(ctx context.Context, amountADA float64) (contractx.SwapQuote, error) {
	if amountADA <= 0 {
		return contractx.SwapQuote{}, fmt.Errorf("%w: swap amount must be positive", contractx.ErrValidation)
	}

	payload := estimateRequest{
		Amount:          strconv.FormatInt(int64(amountADA*lovelacePerADA), 10),
		TokenIn:         tokenADA,
		TokenOut:        tokenIUSD,
		Slippage:        c.slippage,
		AmountInDecimal: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("marshal estimate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/estimate", bytes.NewReader(body))
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("build estimate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("execute estimate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("read estimate response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.SwapQuote{}, fmt.Errorf("minswap http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed estimateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("decode estimate response: %w", err)
	}

	amountOut, err := parsed.AmountOut.Float64()
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("parse amount_out: %w", err)
	}
	minOut, err := parsed.MinAmountOut.Float64()
	if err != nil {
		return contractx.SwapQuote{}, fmt.Errorf("parse min_amount_out: %w", err)
	}

	return contractx.SwapQuote{
		InputADA:        amountADA,
		EstimatedOutput: amountOut / iusdDecimals,
		MinimumOutput:   minOut / iusdDecimals,
		PriceImpactPct:  parsed.AvgPriceImpact,
		Route:           routeProtocols(parsed.Paths),
	}, nil
}

// MarketRate is the simple 1 ADA price.
func (c *Client) MarketRate(ctx context.Context) (contractx.RateQuote, error) {
	quote, err := c.Quote(ctx, 1.0)
	if err != nil {
		return contractx.RateQuote{}, err
	}
	return contractx.RateQuote{
		Pair:   "ADA/iUSD",
		Rate:   quote.EstimatedOutput,
		Source: RateSource,
	}, nil
}

func routeProtocols(paths [][]estimateHop) []string {
	seen := make(map[string]struct{})
	var route []string
	for _, path := range paths {
		for _, hop := range path {
			protocol := strings.TrimSpace(hop.Protocol)
			if protocol == "" {
				protocol = "Unknown"
			}
			if _, ok := seen[protocol]; ok {
				continue
			}
			seen[protocol] = struct{}{}
			route = append(route, protocol)
		}
	}
	return route
}
