// Package server exposes the conversation and job APIs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	jobsx "github.com/remitai/agentcore/agent/jobs"
	orchestratorx "github.com/remitai/agentcore/agent/orchestrator"
)

type Config struct {
	Addr            string        `envconfig:"SERVER_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	AgentIdentifier string        `envconfig:"MASUMI_AGENT_IDENTIFIER"`
}

type Server struct {
	cfg          Config
	orchestrator *orchestratorx.Orchestrator
	jobs         *jobsx.Service
	httpServer   *http.Server
}

func New(cfg Config, orchestrator *orchestratorx.Orchestrator, jobs *jobsx.Service) *Server {
	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		jobs:         jobs,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/remit/start_job", s.handleStartJob)
	mux.HandleFunc("GET /api/remit/status/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /api/remit/availability", s.handleAvailability)
	mux.HandleFunc("GET /api/remit/input_schema", s.handleInputSchema)

	// WriteTimeout stays zero by default; /api/chat holds the response
	// open for the length of a model stream.
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      requestLog(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
