// Attendant server
//
// WhatsApp concierge bot for the studio: receives provider webhooks, routes
// each message through the handler chain and replies over the Evolution API.
//
// Usage:
//
//	go run ./cmd/attendant                  # Default :3000
//	go run ./cmd/attendant -addr :8090      # Custom port
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/dedup"
	"github.com/studiobotics/attendant/botengine/followup"
	"github.com/studiobotics/attendant/botengine/genai"
	"github.com/studiobotics/attendant/botengine/handoff"
	"github.com/studiobotics/attendant/botengine/observability"
	"github.com/studiobotics/attendant/botengine/orchestrator"
	"github.com/studiobotics/attendant/botengine/router"
	"github.com/studiobotics/attendant/botengine/serializer"
	"github.com/studiobotics/attendant/botengine/store"
	"github.com/studiobotics/attendant/connector"
	"github.com/studiobotics/attendant/gateway"
)

// stdLogger implements the package Logger interfaces using standard library log.
type stdLogger struct{}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	log.Printf("[DEBUG] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

func main() {
	addr := flag.String("addr", ":3000", "HTTP listen address")
	flag.Parse()

	logger := &stdLogger{}
	logger.Info("attendant_starting", "address", *addr)

	cfg := config.Default()
	cfg.Operators = splitEnv("ATTENDANT_OPERATORS")
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reply catalog, hot-reloadable from a JSON file.
	content, err := config.NewContentProvider(os.Getenv("ATTENDANT_CONTENT_FILE"), logger)
	if err != nil {
		log.Fatalf("content catalog failed to load: %v", err)
	}
	if err := content.Watch(ctx); err != nil {
		logger.Warn("content_watch_unavailable", "error", err)
	}

	// Persistence: Postgres when a DSN is given, in-memory otherwise.
	stores, closeStores, err := store.Open(os.Getenv("ATTENDANT_DB_DSN"))
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() {
		if err := closeStores(); err != nil {
			logger.Warn("store_close_failed", "error", err)
		}
	}()

	// Optional tracing.
	if endpoint := os.Getenv("ATTENDANT_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := observability.InitTracer("attendant", endpoint)
		if err != nil {
			logger.Warn("tracing_unavailable", "error", err)
		} else {
			defer func() {
				shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
				defer c()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	// Outbound messaging.
	evolution := connector.NewEvolutionClient(connector.EvolutionClientOptions{
		BaseURL:  os.Getenv("EVOLUTION_API_URL"),
		APIKey:   os.Getenv("EVOLUTION_API_KEY"),
		Instance: os.Getenv("EVOLUTION_INSTANCE"),
	})
	paced := connector.NewPaced(evolution, cfg, logger)
	notifier := connector.NewNotifier(evolution, content, cfg.Operators, logger)
	labeler := connector.NewChatwootLabeler(connector.ChatwootOptions{
		BaseURL:   os.Getenv("CHATWOOT_URL"),
		Token:     os.Getenv("CHATWOOT_TOKEN"),
		AccountID: os.Getenv("CHATWOOT_ACCOUNT_ID"),
	}, logger)

	// Generative fallback.
	model := genai.NewClient(genai.ClientOptions{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_MODEL"),
	})
	responder := genai.NewAdapter(model, stores, content, cfg.MemoryWindow, logger)

	monitor := handoff.NewMonitor(stores.Flow, cfg.MuteWindow, logger)

	reminders := followup.NewScheduler(cfg, stores, paced, content, logger)
	go reminders.Run(ctx)

	chain := router.NewChain(router.Deps{
		Cfg:       cfg,
		Content:   content,
		Stores:    stores,
		Messenger: paced,
		Alerter:   notifier,
		Labeler:   labeler,
		Responder: responder,
		Reminders: reminders,
		Handoff:   monitor,
		Logger:    logger,
	})

	tracker := dedup.New(cfg.DedupTTL)
	stopSweeper := tracker.StartSweeper(0)
	defer stopSweeper()

	orch := orchestrator.New(orchestrator.Options{
		Chain:     chain,
		Stores:    stores,
		Dedup:     tracker,
		Queue:     serializer.New(logger),
		Messenger: paced,
		Alerter:   notifier,
		CallReply: func() string { return content.Current().CallAutoReply },
		Logger:    logger,
	})

	server := &http.Server{
		Addr: *addr,
		Handler: gateway.NewServer(orch, gateway.ServerConfig{
			WebhookToken: os.Getenv("ATTENDANT_WEBHOOK_TOKEN"),
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("attendant_ready", "address", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sig := <-sigCh
	logger.Info("shutdown_signal_received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_failed", "error", err)
	}
	if !orch.Drain(10 * time.Second) {
		logger.Warn("queue_drain_timeout")
	}
	cancel()
	logger.Info("attendant_stopped")
}

func splitEnv(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
