// Tutord is an adaptive tutoring daemon with an HTTP API.
//
// The daemon manages tutoring sessions, evaluates answers, adapts the lesson
// path to the learner's performance, and personalizes curricula with semantic
// content retrieval.
//
// Configuration is loaded from a YAML file and environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	tutord serve
//
//	# Configure via environment
//	SERVER_PORT=9090 GENERATOR_BASE_URL=http://localhost:8000/v1 tutord serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/adaptation"
	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/config"
	"github.com/fyrsmithlabs/tutord/internal/curriculum"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/generator"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/performance"
	"github.com/fyrsmithlabs/tutord/internal/session"
	"github.com/fyrsmithlabs/tutord/internal/sessionstore"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
	"github.com/fyrsmithlabs/tutord/internal/vectorindex"
	"github.com/fyrsmithlabs/tutord/pkg/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tutord",
	Short: "Adaptive tutoring daemon",
	Long: `tutord runs an adaptive tutoring engine behind an HTTP API.

It manages session lifecycle, evaluates learner answers, adapts the lesson
path based on recent performance, and personalizes curricula.`,
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tutord daemon",
	Long: `Start the tutord HTTP server.

Examples:
  # Start with defaults
  tutord serve

  # Start with an explicit config file
  tutord serve --config ./config.yaml`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tutord by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "config file path (default ~/.config/tutord/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "Received signal %v, shutting down gracefully...\n", sig)
		cancel()
	}()

	return run(ctx)
}

// run starts the tutord server and blocks until context cancellation.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Opens the session store and vector index
//  4. Connects the optional LLM generator and NATS sink
//  5. Wires business services (evaluator, engine, manager, pipeline)
//  6. Starts the HTTP server
//  7. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting tutord",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info("Dependencies initialized",
		zap.Bool("llm_enabled", deps.gen != nil),
		zap.Bool("nats_connected", deps.natsConn != nil),
		zap.String("store_path", cfg.Store.Path))

	svcs := initServices(cfg, deps, logger)

	srv := server.NewServer(server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Manager:   svcs.manager,
		Evaluator: svcs.evaluator,
		Engine:    svcs.engine,
		Catalog:   deps.catalog,
		Tracker:   deps.tracker,
		Pipeline:  svcs.pipeline,
		Ledger:    deps.ledger,
		Logger:    logger,
	})

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	// Blocks until context cancellation.
	err = srv.Start(ctx)

	// Persist the vector index before releasing resources.
	snapshotCtx, snapshotCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer snapshotCancel()
	if serr := deps.index.SaveSnapshot(snapshotCtx); serr != nil {
		logger.Warn("Failed to save vector index snapshot", zap.Error(serr))
	}

	return err
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	store    *sessionstore.SQLiteStore
	embedder embeddings.Provider
	index    *vectorindex.Index
	tracker  *performance.Tracker
	catalog  *tutor.Catalog
	ledger   *analytics.ProgressLedger
	gen      generator.Generator
	natsConn *nats.Conn
	events   analytics.EventSink
	reporter analytics.ProgressReporter
	logger   *zap.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	if d.embedder != nil {
		_ = d.embedder.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
}

// initDependencies initializes infrastructure: storage, embeddings, the
// vector index, the optional LLM, and the optional NATS sink.
//
// The LLM and NATS are both optional. Without an LLM the generator is nil and
// every service falls back to deterministic content. A failed NATS connection
// degrades to the no-op sink rather than aborting startup.
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dependencies, error) {
	store, err := sessionstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:  cfg.Embeddings.Provider,
		BaseURL:   cfg.Embeddings.BaseURL,
		Model:     cfg.Embeddings.Model,
		Dimension: cfg.Embeddings.Dimension,
		Timeout:   cfg.Embeddings.Timeout,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	logger.Info("Embedding provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model))

	index := vectorindex.NewIndex(vectorindex.Config{Persister: store}, logger)

	gen, err := initGenerator(cfg, logger)
	if err != nil {
		_ = embedder.Close()
		_ = store.Close()
		return nil, err
	}

	tracker := performance.NewTrackerWithLimit(cfg.Session.MaxHistoryPerUser)
	catalog := tutor.NewCatalog()
	ledger := analytics.NewProgressLedger()

	var events analytics.EventSink = analytics.NopSink{}
	knowledge := vectorindex.NewKnowledgeStateReporter(index, embedder, logger)
	reporter := analytics.MultiReporter{ledger, knowledge}

	var nc *nats.Conn
	if cfg.Analytics.NATSURL != "" {
		nc, err = nats.Connect(cfg.Analytics.NATSURL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(1*time.Second),
		)
		if err != nil {
			logger.Warn("NATS unavailable, analytics events disabled",
				zap.String("url", cfg.Analytics.NATSURL),
				zap.Error(err))
		} else {
			logger.Info("Connected to NATS", zap.String("url", cfg.Analytics.NATSURL))
			sink := analytics.NewNATSSink(nc, cfg.Analytics.SubjectPrefix, logger)
			events = sink
			reporter = append(reporter, sink)
		}
	}

	return &dependencies{
		store:    store,
		embedder: embedder,
		index:    index,
		tracker:  tracker,
		catalog:  catalog,
		ledger:   ledger,
		gen:      gen,
		natsConn: nc,
		events:   events,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// initGenerator builds the LLM-backed content generator when an endpoint is
// configured. A nil generator is valid and means fallback-only content.
func initGenerator(cfg *config.Config, logger *zap.Logger) (generator.Generator, error) {
	if cfg.Generator.BaseURL == "" && cfg.Generator.APIKey == "" {
		logger.Info("No LLM configured, using deterministic content")
		return nil, nil
	}

	apiKey := cfg.Generator.APIKey
	if apiKey == "" {
		// Local OpenAI-compatible servers ignore the token but the client
		// requires one.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Generator.Model),
		openai.WithToken(apiKey),
	}
	if cfg.Generator.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Generator.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	logger.Info("LLM generator initialized",
		zap.String("model", cfg.Generator.Model),
		zap.String("base_url", cfg.Generator.BaseURL))

	return generator.NewLLMGenerator(llm, generator.LLMConfig{
		Timeout:           cfg.Generator.Timeout,
		RequestsPerSecond: cfg.Generator.RateLimit,
	}, logger), nil
}

// services holds the wired business services.
type services struct {
	engine    *adaptation.Engine
	evaluator *performance.Evaluator
	manager   *session.Manager
	pipeline  *curriculum.Pipeline
}

// initServices wires the business services on top of the infrastructure.
func initServices(cfg *config.Config, deps *dependencies, logger *zap.Logger) services {
	engine := adaptation.NewEngine(deps.tracker, deps.gen, logger)
	evaluator := performance.NewEvaluator(deps.tracker, deps.gen, deps.reporter, logger)
	manager := session.NewManager(session.Deps{
		Store:        deps.store,
		Catalog:      deps.catalog,
		Gen:          deps.gen,
		Engine:       engine,
		Events:       deps.events,
		Reporter:     deps.reporter,
		Logger:       logger,
		DefaultSteps: cfg.Session.TotalSteps,
	})
	pipeline := curriculum.NewPipeline(deps.index, deps.embedder, logger)

	return services{
		engine:    engine,
		evaluator: evaluator,
		manager:   manager,
		pipeline:  pipeline,
	}
}
