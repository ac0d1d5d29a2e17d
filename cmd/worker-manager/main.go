// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crm-ai-workers/internal/common/aws"
	"crm-ai-workers/internal/common/camunda"
	"crm-ai-workers/internal/common/config"
	"crm-ai-workers/internal/common/credits"
	"crm-ai-workers/internal/common/database"
	"crm-ai-workers/internal/common/llm"
	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/observability"
	"crm-ai-workers/internal/common/promptstore"
	"crm-ai-workers/internal/common/zoho"
	"crm-ai-workers/internal/generation"
	"crm-ai-workers/internal/generation/executor"
	"crm-ai-workers/internal/generation/prompt"
	aicontent "crm-ai-workers/internal/workers/ai-content"
	"crm-ai-workers/pkg/registry"

	// Content Workers (8)
	ab "crm-ai-workers/internal/workers/ai-content/analyze-business"
	ccr "crm-ai-workers/internal/workers/ai-content/command-center-reply"
	gbc "crm-ai-workers/internal/workers/ai-content/generate-blog-content"
	ges "crm-ai-workers/internal/workers/ai-content/generate-email-sequence"
	gom "crm-ai-workers/internal/workers/ai-content/generate-outreach-message"
	gps "crm-ai-workers/internal/workers/ai-content/generate-pipeline-strategy"
	rl "crm-ai-workers/internal/workers/ai-content/research-lead"
	sci "crm-ai-workers/internal/workers/ai-content/suggest-content-improvements"
)

const registryPath = "configs/activity-registry.json"

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client (retries internally on transient errors) ---
	zeebeClient, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Model ---
	model, err := llm.New(ctx, llm.Config{
		Provider:        cfg.GenAI.Provider,
		APIKey:          cfg.GenAI.APIKey,
		Model:           cfg.GenAI.Model,
		BaseURL:         cfg.GenAI.BaseURL,
		Temperature:     cfg.GenAI.Temperature,
		MaxOutputTokens: cfg.GenAI.MaxOutputTokens,
	}, log)
	if err != nil {
		zapLog.Fatal("model init failed", zap.Error(err))
	}
	zapLog.Info("Model client initialized", zap.String("provider", cfg.GenAI.Provider))

	// --- Init PostgreSQL prompt store with retry ---
	var prompts prompt.Store
	if cfg.Prompts.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		store, err := promptstore.New(pg.GetDB(), cfg.Prompts.Table, config.GetDuration(cfg.Prompts.CacheTTLMs), log)
		if err != nil {
			zapLog.Fatal("prompt store init failed", zap.Error(err))
		}
		prompts = store
		zapLog.Info("PostgreSQL prompt store connected successfully", zap.String("table", cfg.Prompts.Table))
	}

	// --- Init Redis credit ledger with retry ---
	var ledger generation.Ledger
	if cfg.Credits.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()

		ledger = credits.NewLedger(rdb.GetClient(), cfg.Credits.KeyPrefix, log)
		zapLog.Info("Redis credit ledger connected successfully")
	}

	// --- Init Elasticsearch pipeline source with retry ---
	var pipeline aicontent.PipelineSource
	if cfg.Database.Elasticsearch.GetURL() != "" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		pipeline = es
		zapLog.Info("Elasticsearch connected successfully", zap.String("leadIndex", cfg.Database.Elasticsearch.LeadIndex))
	} else {
		zapLog.Warn("Elasticsearch not configured, pipeline views fall back to inline leads")
	}

	// --- Init External Service Clients ---
	var leads aicontent.LeadSource
	if cfg.Integrations.Zoho.AuthToken != "" {
		leads = zoho.NewCRMClient(
			cfg.Integrations.Zoho.BaseURL,
			cfg.Integrations.Zoho.AuthToken,
			config.GetDuration(cfg.Integrations.Zoho.Timeout),
		)
	} else {
		zapLog.Warn("Zoho CRM not configured, lead workers require inline leads")
	}

	var alerts generation.Alerter
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		alerts = aws.NewDegradationAlerter(snsClient, cfg.Integrations.AWS.SNS.TopicARN, log)
	}

	zapLog.Info("All external service clients initialized")

	// --- Generation Service ---
	service := generation.NewService(model, generation.Options{
		Prompts:      prompts,
		Ledger:       ledger,
		Logger:       log,
		Alerts:       alerts,
		Policies:     buildPolicies(cfg),
		Costs:        buildCosts(cfg, zapLog),
		Executor:     executor.New(log),
		HistoryTurns: cfg.GenAI.HistoryTurns,
	})

	deps := &aicontent.Dependencies{
		Service:  service,
		Leads:    leads,
		Pipeline: pipeline,
		Logger:   log,
		Obs:      obs,
	}

	// --- START: Register Content Workers ---
	client := zeebeClient.GetClient()
	var workers []worker.JobWorker
	var active []string
	register := func(taskType string, handler worker.JobHandler) {
		if w := camunda.StartWorker(client, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
			active = append(active, taskType)
		}
	}

	if h, err := gom.NewHandler(gom.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create generate-outreach-message handler", zap.Error(err))
	} else {
		register(gom.TaskType, h.Handle)
	}

	if h, err := ges.NewHandler(ges.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create generate-email-sequence handler", zap.Error(err))
	} else {
		register(ges.TaskType, h.Handle)
	}

	if h, err := rl.NewHandler(rl.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create research-lead handler", zap.Error(err))
	} else {
		register(rl.TaskType, h.Handle)
	}

	if h, err := ab.NewHandler(ab.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create analyze-business handler", zap.Error(err))
	} else {
		register(ab.TaskType, h.Handle)
	}

	if h, err := ccr.NewHandler(ccr.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create command-center-reply handler", zap.Error(err))
	} else {
		register(ccr.TaskType, h.Handle)
	}

	if h, err := gps.NewHandler(gps.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create generate-pipeline-strategy handler", zap.Error(err))
	} else {
		register(gps.TaskType, h.Handle)
	}

	if h, err := gbc.NewHandler(gbc.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create generate-blog-content handler", zap.Error(err))
	} else {
		register(gbc.TaskType, h.Handle)
	}

	if h, err := sci.NewHandler(sci.HandlerOptions{AppConfig: cfg, Deps: deps}); err != nil {
		zapLog.Fatal("failed to create suggest-content-improvements handler", zap.Error(err))
	} else {
		register(sci.TaskType, h.Handle)
	}
	zapLog.Info("Content workers registered", zap.Int("active", len(workers)))

	if reg, err := registry.LoadRegistry(registryPath); err != nil {
		zapLog.Warn("activity registry not loaded", zap.String("path", registryPath), zap.Error(err))
	} else if missing := reg.Missing(active); len(missing) > 0 {
		zapLog.Warn("workers without activity registry entry", zap.Strings("taskTypes", missing))
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebeClient.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", err)
			return
		}
		writeStatus(w, http.StatusOK, "ready", nil)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// buildPolicies turns the genai section into per-kind retry policies. Zero
// fields keep the kind's defaults.
func buildPolicies(cfg *config.Config) map[generation.Kind]executor.Policy {
	policies := make(map[generation.Kind]executor.Policy, len(generation.AllKinds))
	for _, k := range generation.AllKinds {
		policies[k] = executor.Policy{
			Name:        k.String(),
			MaxAttempts: cfg.GenAI.MaxAttempts,
			Timeout:     config.GetDuration(cfg.GenAI.Timeouts[k.String()]),
			Backoff:     config.GetDuration(cfg.GenAI.BackoffMs),
		}
	}
	return policies
}

func buildCosts(cfg *config.Config, log *zap.Logger) map[generation.Kind]int {
	costs := make(map[generation.Kind]int, len(cfg.Credits.Costs))
	for name, cost := range cfg.Credits.Costs {
		k, err := generation.ParseKind(name)
		if err != nil {
			log.Warn("ignoring credit cost for unknown kind", zap.String("kind", name))
			continue
		}
		costs[k] = cost
	}
	return costs
}

func writeStatus(w http.ResponseWriter, code int, status string, err error) {
	body := map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
