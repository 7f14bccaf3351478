package specialist

import (
	"context"
	"fmt"

	"github.com/remitai/agentcore/agent/classifier"
	contractx "github.com/remitai/agentcore/agent/contract"
	llmx "github.com/remitai/agentcore/agent/llm"
	promptx "github.com/remitai/agentcore/agent/prompt"
	toolx "github.com/remitai/agentcore/agent/tool"
)

type registryImpl struct {
	classifier contractx.Classifier
	rate       contractx.Runner
	planner    contractx.Runner
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) RateInquiry() contractx.Runner {
	return r.rate
}

func (r *registryImpl) TransactionPlanner() contractx.Runner {
	return r.planner
}

func NewRegistry(ctx context.Context, cfg llmx.Config, catalog *toolx.Catalog) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	routerModelCfg := cfg.OpenRouterFor(contractx.AgentTypeRouter)
	routerModel, err := routerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create router model: %v", contractx.ErrClassifier, err)
	}
	rateModelCfg := cfg.OpenRouterFor(contractx.AgentTypeRateInquiry)
	rateModel, err := rateModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create rate model: %v", contractx.ErrSpecialist, err)
	}
	plannerModelCfg := cfg.OpenRouterFor(contractx.AgentTypeTransactionPlanner)
	plannerModel, err := plannerModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create planner model: %v", contractx.ErrSpecialist, err)
	}

	router, err := classifier.New(ctx, routerModel, prompts.Router)
	if err != nil {
		return nil, err
	}

	rateInfos, rateExecutor := catalog.BuildForAgent(contractx.AgentTypeRateInquiry)
	rate, err := newSpecialist(ctx, contractx.AgentTypeRateInquiry, rateModel, prompts.RateInquiry, rateInfos, rateExecutor, cfg.Streaming)
	if err != nil {
		return nil, err
	}

	plannerInfos, plannerExecutor := catalog.BuildForAgent(contractx.AgentTypeTransactionPlanner)
	planner, err := newSpecialist(ctx, contractx.AgentTypeTransactionPlanner, plannerModel, prompts.TransactionPlanner, plannerInfos, plannerExecutor, cfg.Streaming)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier: router,
		rate:       rate,
		planner:    planner,
	}, nil
}
