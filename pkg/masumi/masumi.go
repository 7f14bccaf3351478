package masumi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Masumi payment service to verify payment proofs for
// paid agent jobs.
type Config struct {
	URL             string        `split_words:"true" required:"true"`
	Token           string        `split_words:"true" required:"true"`
	AgentIdentifier string        `split_words:"true" required:"true"`
	Network         string        `split_words:"true" default:"Preprod"`
	Timeout         time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL         string
	token           string
	agentIdentifier string
	network         string
	httpClient      *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("masumi url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		token:           strings.TrimSpace(cfg.Token),
		agentIdentifier: strings.TrimSpace(cfg.AgentIdentifier),
		network:         strings.TrimSpace(cfg.Network),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type paymentStatusResponse struct {
	Data struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Verify checks whether the payment referenced by proofRef is confirmed on
// chain. A missing or unknown proof verifies to false without error; only
// transport and decoding problems are errors.
func (c *Client) Verify(ctx context.Context, proofRef string) (bool, error) {
	proof := strings.TrimSpace(proofRef)
	if proof == "" {
		return false, nil
	}

	endpoint := fmt.Sprintf("%s/payment/%s?agent_identifier=%s&network=%s",
		c.baseURL,
		url.PathEscape(proof),
		url.QueryEscape(c.agentIdentifier),
		url.QueryEscape(c.network),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build payment status request: %w", err)
	}
	req.Header.Set("token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute payment status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read payment status response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return false, fmt.Errorf("masumi http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed paymentStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return false, fmt.Errorf("decode payment status response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(parsed.Data.Status)) {
	case "fundslocked", "funds_locked", "confirmed", "paymentconfirmed":
		return true, nil
	default:
		return false, nil
	}
}
