package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"codebench/internal/auth"
	"codebench/internal/config"
	"codebench/internal/events"
	"codebench/internal/handler"
	"codebench/internal/middleware"
	"codebench/internal/repository/postgres"
	repos3 "codebench/internal/repository/s3"
	serviceAuth "codebench/internal/service/auth"
	serviceCompletion "codebench/internal/service/completion"
	serviceFiletree "codebench/internal/service/filetree"

	svc "codebench/internal/domain/services/completion"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logger *slog.Logger
	if cfg.Environment == "dev" {
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier against the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Prefixed shared-database deployments manage their schema out of band.
	if cfg.TablePrefix == "" {
		if err := postgres.Migrate(cfg.DatabaseURL, logger); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
	}
	nodeStore := postgres.NewNodeStore(repoConfig)
	memberStore := postgres.NewMembershipStore(repoConfig)

	// Blob storage
	s3Client, err := repos3.NewClient(ctx, repos3.ClientConfig{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}
	blobStore, err := repos3.New(ctx, repos3.Config{
		Client:    s3Client,
		Bucket:    cfg.S3Bucket,
		KeyPrefix: cfg.S3KeyPrefix,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to connect to blob store: %v", err)
	}
	logger.Info("blob store connected", "bucket", cfg.S3Bucket)

	// Background event bus for blob cleanup and path repair
	bus := events.NewAsyncBus(logger)
	defer bus.Close()
	bus.Subscribe(func(ev events.Event) {
		switch ev.Type {
		case events.TypeBlobCleanup:
			if err := blobStore.RemoveMany(context.Background(), ev.Keys); err != nil {
				logger.Warn("background blob cleanup failed",
					"project_id", ev.ProjectID,
					"keys", len(ev.Keys),
					"error", err,
				)
			}
		case events.TypeBlobOrphaned:
			logger.Warn("blob keys orphaned",
				"project_id", ev.ProjectID,
				"node_id", ev.NodeID,
				"keys", ev.Keys,
			)
		case events.TypePathRepair:
			logger.Warn("node path needs repair",
				"project_id", ev.ProjectID,
				"node_id", ev.NodeID,
			)
		}
	})

	// Services
	guard := serviceAuth.NewMembershipGuard(memberStore, logger)
	treeService := serviceFiletree.NewService(nodeStore, blobStore, guard, bus, logger)

	providers := []svc.Provider{}
	if cfg.AnthropicAPIKey != "" {
		anthropicProvider, err := serviceCompletion.NewAnthropicProvider(cfg.AnthropicAPIKey)
		if err != nil {
			log.Fatalf("Failed to create anthropic provider: %v", err)
		}
		providers = append(providers, anthropicProvider)
		logger.Info("completion provider registered", "provider", anthropicProvider.Name())
	}
	if cfg.Environment == "dev" || len(providers) == 0 {
		providers = append(providers, serviceCompletion.NewLoremProvider())
		logger.Info("completion provider registered", "provider", "lorem")
	}
	completer, err := serviceCompletion.NewService(providers, cfg.DefaultModel, logger)
	if err != nil {
		log.Fatalf("Failed to setup completion service: %v", err)
	}

	// Handlers
	treeHandler := handler.NewTreeHandler(treeService, logger)
	nodeHandler := handler.NewNodeHandler(treeService, logger)
	contentHandler := handler.NewContentHandler(treeService, logger)
	completionHandler := handler.NewCompletionHandler(completer, logger)
	healthHandler := handler.NewHealthHandler(pool)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Project tree
	mux.HandleFunc("GET /api/projects/{id}/tree", treeHandler.GetTree)

	// Node routes
	mux.HandleFunc("POST /api/projects/{id}/nodes", nodeHandler.CreateNode)
	mux.HandleFunc("PATCH /api/projects/{id}/nodes/{nodeID}", nodeHandler.UpdateNode)
	mux.HandleFunc("DELETE /api/projects/{id}/nodes/{nodeID}", nodeHandler.DeleteNode)

	// Content routes
	mux.HandleFunc("GET /api/projects/{id}/nodes/{nodeID}/content", contentHandler.ReadContent)
	mux.HandleFunc("PUT /api/projects/{id}/nodes/{nodeID}/content", contentHandler.WriteContent)

	// Completion routes
	mux.HandleFunc("POST /api/completions", completionHandler.Complete)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Metrics → Recovery → Auth → Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)
	root = middleware.Metrics()(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
