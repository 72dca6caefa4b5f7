package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patchpilot/patchpilot/agent"
	"github.com/patchpilot/patchpilot/config"
	"github.com/patchpilot/patchpilot/emit"
	"github.com/patchpilot/patchpilot/model"
	"github.com/patchpilot/patchpilot/model/anthropic"
	"github.com/patchpilot/patchpilot/model/google"
	"github.com/patchpilot/patchpilot/model/openai"
	"github.com/patchpilot/patchpilot/store"
	"github.com/patchpilot/patchpilot/workflow"
)

func loadConfig() (config.Config, error) {
	if flagConfig == "" {
		return config.Config{}, fmt.Errorf("--config is required")
	}
	return config.Load(flagConfig)
}

func newEmitter(cfg config.Config) emit.Emitter {
	// Events go to stderr; stdout carries the command's result.
	return emit.NewLogEmitter(os.Stderr, cfg.Logging.Format == "json")
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.DSN)
	case "mysql":
		return store.NewMySQLStore(cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newChatModel builds the provider client for one analyzer role. The returned
// close func releases provider resources (only Google holds a connection).
func newChatModel(ctx context.Context, cfg config.Config, roleModel string) (model.ChatModel, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewChatModel(cfg.APIKey, roleModel), noop, nil
	case "openai":
		return openai.NewChatModel(cfg.APIKey, roleModel), noop, nil
	case "google":
		m, err := google.NewChatModel(ctx, cfg.APIKey, roleModel)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// buildEngine wires the four roles, observability, and persistence into a
// ready Engine. The returned cleanup closes provider connections.
func buildEngine(ctx context.Context, cfg config.Config, st store.Store, em emit.Emitter) (*workflow.Engine, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	roleModels := []string{cfg.Models.Security, cfg.Models.Quality, cfg.Models.Logic, cfg.Models.Context}
	chats := make([]model.ChatModel, 0, len(roleModels))
	for _, rm := range roleModels {
		chat, closeFn, err := newChatModel(ctx, cfg, rm)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeFn)
		chats = append(chats, chat)
	}

	opts := []workflow.Option{
		workflow.WithTimeout(cfg.TimeoutDuration()),
		workflow.WithEmitter(em),
		workflow.WithRunStore(st),
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, workflow.WithMetrics(workflow.NewMetrics(reg)))
		go serveMetrics(cfg.Metrics.Addr, reg)
	}

	eng := workflow.New(
		agent.NewSecurityAgent(chats[0]),
		agent.NewQualityAgent(chats[1]),
		agent.NewLogicAgent(chats[2]),
		agent.NewContextAgent(chats[3]),
		opts...,
	)
	return eng, cleanup, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
	}
}
