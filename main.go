package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	historyx "github.com/remitai/agentcore/agent/history"
	jobsx "github.com/remitai/agentcore/agent/jobs"
	llmx "github.com/remitai/agentcore/agent/llm"
	orchestratorx "github.com/remitai/agentcore/agent/orchestrator"
	promptx "github.com/remitai/agentcore/agent/prompt"
	specialistx "github.com/remitai/agentcore/agent/specialist"
	toolx "github.com/remitai/agentcore/agent/tool"
	usersx "github.com/remitai/agentcore/agent/users"
	configx "github.com/remitai/agentcore/pkg/config"
	loggerx "github.com/remitai/agentcore/pkg/logger"
	masumix "github.com/remitai/agentcore/pkg/masumi"
	minswapx "github.com/remitai/agentcore/pkg/minswap"
	serverx "github.com/remitai/agentcore/server"
)

type AppConfig struct {
	// HistoryBackend selects the conversation store: memory, redis or
	// postgres.
	HistoryBackend string `envconfig:"HISTORY_BACKEND" default:"memory"`
	// PaymentEnabled turns on Masumi payment gating for start_job.
	PaymentEnabled bool          `envconfig:"PAYMENT_ENABLED" default:"false"`
	JobTimeout     time.Duration `envconfig:"JOB_TIMEOUT" default:"5m"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")
	loggerx.Init(*configx.MustNew[loggerx.Config](""))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := buildHistoryStore(ctx, appCfg.HistoryBackend)

	minswapClient, err := minswapx.NewClient(*configx.MustNew[minswapx.Config]("MINSWAP"))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize minswap client")
	}
	catalog := toolx.NewCatalog(usersx.NewDirectory(), minswapClient, minswapClient)

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	models, err := specialistx.NewRegistry(ctx, *llmCfg, catalog)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize model registry")
	}

	orchestrator, err := orchestratorx.New(ctx, store, models, specialistx.NewDispatcher(promptx.LoadPromptSet()))
	if err != nil {
		log.Fatal().Err(err).Msg("initialize orchestrator")
	}

	jobOpts := []jobsx.Option{jobsx.WithRunTimeout(appCfg.JobTimeout)}
	if appCfg.PaymentEnabled {
		masumiCfg := configx.MustNew[masumix.Config]("MASUMI")
		jobOpts = append(jobOpts, jobsx.WithPaymentVerifier(masumix.MustNew(*masumiCfg)))
	}
	jobService, err := jobsx.New(orchestrator, jobOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize job service")
	}

	srv := serverx.New(*configx.MustNew[serverx.Config](""), orchestrator, jobService)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
	log.Info().Msg("shutdown complete")
}

func buildHistoryStore(ctx context.Context, backend string) historyx.Store {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "redis":
		store, err := historyx.NewUpstashRedisStore(*configx.MustNew[historyx.UpstashRedisConfig]("UPSTASH_REDIS"))
		if err != nil {
			log.Fatal().Err(err).Msg("initialize redis history store")
		}
		return store
	case "postgres":
		store, err := historyx.NewBunStore(*configx.MustNew[historyx.BunConfig]("POSTGRES"))
		if err != nil {
			log.Fatal().Err(err).Msg("initialize postgres history store")
		}
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate postgres history store")
		}
		return store
	default:
		return historyx.NewMemoryStore()
	}
}
