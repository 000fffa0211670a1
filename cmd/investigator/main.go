// Command investigator runs the incident investigation engine: it loads
// configuration, connects to Postgres, wires the orchestrator and
// free-form agent loop, and serves them over HTTP. Flag/env/.env loading
// follows the teacher's cmd/tarsy/main.go.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sreinvestigator/investigator/pkg/agentloop"
	"github.com/sreinvestigator/investigator/pkg/api"
	"github.com/sreinvestigator/investigator/pkg/cache"
	"github.com/sreinvestigator/investigator/pkg/compactor"
	"github.com/sreinvestigator/investigator/pkg/config"
	"github.com/sreinvestigator/investigator/pkg/executor"
	"github.com/sreinvestigator/investigator/pkg/knowledge"
	"github.com/sreinvestigator/investigator/pkg/llm/grpcclient"
	"github.com/sreinvestigator/investigator/pkg/metrics"
	"github.com/sreinvestigator/investigator/pkg/orchestrator"
	"github.com/sreinvestigator/investigator/pkg/planner"
	"github.com/sreinvestigator/investigator/pkg/store"
	"github.com/sreinvestigator/investigator/pkg/summarizer"
	"github.com/sreinvestigator/investigator/pkg/telemetry"
	"github.com/sreinvestigator/investigator/pkg/tool"
	"github.com/sreinvestigator/investigator/pkg/tool/cloudinventory"
	"github.com/sreinvestigator/investigator/pkg/tool/genericalarms"
	"github.com/sreinvestigator/investigator/pkg/tool/genericlogs"
	"github.com/sreinvestigator/investigator/pkg/tool/vendormetrics"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	st, err := store.Open(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()
	slog.Info("connected to postgres")

	llmClient, err := grpcclient.New(cfg.LLM.Target)
	if err != nil {
		log.Fatalf("dialing llm sidecar: %v", err)
	}
	defer llmClient.Close()

	mtr := metrics.New()
	tracer, shutdownTracer := telemetry.New(telemetry.Config{
		ServiceName:    "investigator",
		TracingEnabled: cfg.Telemetry.TracingEnabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("shutting down tracer", "error", err)
		}
	}()

	if cfg.Telemetry.MetricsAddress != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.Telemetry.MetricsAddress, Handler: metricsMux}
		go func() {
			slog.Info("serving metrics", "address", cfg.Telemetry.MetricsAddress)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	tools := buildToolRegistry(ctx, cfg)

	var retriever knowledge.Retriever = knowledge.NullRetriever{}
	if cfg.Knowledge.Enabled && cfg.Knowledge.Endpoint != "" {
		retriever = knowledge.NewHTTPRetriever(cfg.Knowledge.Endpoint, 10*time.Second)
	}

	toolCache := cache.New(cache.Config{
		MaxSize: cfg.Cache.MaxSize,
		TTLFor: func(toolName string) time.Duration {
			if d, ok := cfg.Cache.TTLs[toolName]; ok {
				return d
			}
			return 0
		},
	})

	exec := executor.New(executor.Config{
		MaxConcurrent: cfg.Executor.MaxConcurrent,
		Timeout:       cfg.Executor.Timeout,
	})

	summarizers := summarizer.NewRegistry()

	pl := planner.New(tools.Names(), cfg.Knowledge.LogGroup)

	orch := orchestrator.New(orchestrator.Config{
		MaxIterations:       cfg.Orchestrator.MaxIterations,
		MaxHypothesesPerRun: cfg.Orchestrator.MaxHypothesesPerRun,
		CompactionPreset:    compactor.Preset(cfg.Compaction.Preset),
		TokenBudget:         cfg.Compaction.TokenBudget,
		KeepToolUses:        cfg.Compaction.KeepToolUses,
	}, llmClient, tools, retriever, toolCache, exec, summarizers, pl, mtr, tracer)

	loop := agentloop.New(agentloop.Config{
		MaxIterations:    cfg.AgentLoop.MaxIterations,
		ContextThreshold: cfg.AgentLoop.ContextThreshold,
		TokenBudget:      cfg.Compaction.TokenBudget,
	}, llmClient, tools, retriever, toolCache, exec, summarizers)

	server := api.NewServer(cfg, st, orch, loop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "address", cfg.Server.Address)
		errCh <- server.Start(cfg.Server.Address)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// buildToolRegistry wires every configured tool backend by its declared
// type. A tool whose type the registry doesn't recognize, or whose
// construction fails, is logged and skipped rather than aborting
// startup — a single misconfigured vendor integration shouldn't prevent
// the engine from serving investigations with its remaining tools.
func buildToolRegistry(ctx context.Context, cfg *config.Config) *tool.Registry {
	reg := tool.NewRegistry()
	for name, tc := range cfg.Tools {
		apiKey := os.Getenv(toolAPIKeyEnv(name))
		switch tc.Type {
		case "vendor_metrics":
			reg.Register(vendormetrics.New(name, tc.Endpoint, apiKey, cfg.Executor.Timeout))
		case "generic_alarms":
			reg.Register(genericalarms.New(name, tc.Endpoint, apiKey, cfg.Executor.Timeout))
		case "generic_logs":
			reg.Register(genericlogs.New(name, tc.Endpoint, apiKey, cfg.Executor.Timeout))
		case "cloud_inventory":
			t, err := cloudinventory.New(ctx, cloudinventory.Config{Name: name, Region: tc.Params["region"]})
			if err != nil {
				slog.Error("constructing cloud_inventory tool", "name", name, "error", err)
				continue
			}
			reg.Register(t)
		default:
			slog.Warn("unknown tool type, skipping", "name", name, "type", tc.Type)
		}
	}
	return reg
}

func toolAPIKeyEnv(toolName string) string {
	return "TOOL_" + toUpperSnake(toolName) + "_API_KEY"
}

func toUpperSnake(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == '-' || r == ' ' {
			out = append(out, '_')
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, byte(r))
	}
	return string(out)
}
