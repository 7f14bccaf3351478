package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/remitai/agentcore/agent/contract"
	openrouterx "github.com/remitai/agentcore/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// Streaming is the capability flag for specialist output. When off,
	// every run falls back to a single blocking execution and the whole
	// result is emitted as one fragment.
	Streaming bool `envconfig:"STREAMING" split_words:"true" default:"true"`

	RouterModel  string `envconfig:"ROUTER_MODEL" split_words:"true"`
	RateModel    string `envconfig:"RATE_MODEL" split_words:"true"`
	PlannerModel string `envconfig:"PLANNER_MODEL" split_words:"true"`

	RouterTemperature  float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	RateTemperature    float32 `envconfig:"RATE_TEMPERATURE" split_words:"true" default:"-1"`
	PlannerTemperature float32 `envconfig:"PLANNER_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch agentType {
	case contractx.AgentTypeRouter:
		if v := strings.TrimSpace(c.RouterModel); v != "" {
			modelName = v
		}
		if c.RouterTemperature >= 0 {
			temp = c.RouterTemperature
		}
	case contractx.AgentTypeRateInquiry:
		if v := strings.TrimSpace(c.RateModel); v != "" {
			modelName = v
		}
		if c.RateTemperature >= 0 {
			temp = c.RateTemperature
		}
	case contractx.AgentTypeTransactionPlanner:
		if v := strings.TrimSpace(c.PlannerModel); v != "" {
			modelName = v
		}
		if c.PlannerTemperature >= 0 {
			temp = c.PlannerTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
