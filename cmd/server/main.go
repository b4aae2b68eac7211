package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"cabinet/internal/audit"
	"cabinet/internal/auth"
	"cabinet/internal/config"
	"cabinet/internal/handler"
	"cabinet/internal/metrics"
	"cabinet/internal/middleware"
	"cabinet/internal/repository/postgres"
	authSvc "cabinet/internal/service/auth"
	"cabinet/internal/service/hierarchy"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// With LOG_DIR set, logs also land in a timestamped file (five kept)
	logOut := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 5)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"max_subtree_size", cfg.MaxSubtreeSize,
	)

	// Token verification needs a JWKS endpoint. Without one the server only
	// runs in dev, with every request mapped to DEV_OWNER_ID.
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		jwtVerifier = verifier
	} else if cfg.Environment == "prod" {
		log.Fatal("JWKS_URL is required when ENVIRONMENT=prod")
	} else if cfg.DevOwnerID == "" {
		log.Fatal("Set JWKS_URL, or DEV_OWNER_ID for local development")
	}

	// Create pgx connection pool
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

	// Create table names and make sure the schema exists
	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	closureRepo := postgres.NewClosureRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Audit events ride an in-process pub/sub channel; a subscriber drains
	// them into the structured log after each commit.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	defer pubSub.Close()

	recorder := audit.NewPublisher(pubSub, logger)
	auditLogger := audit.NewLogger(pubSub, logger)
	if err := auditLogger.Start(ctx); err != nil {
		log.Fatalf("Failed to start audit logger: %v", err)
	}

	// Create validators and the ownership authorizer
	validator := hierarchy.NewResourceValidator(folderRepo)
	authorizer := authSvc.NewOwnerBasedAuthorizer(folderRepo, fileRepo)

	// Create hierarchy services
	folderService := hierarchy.NewFolderService(
		folderRepo, fileRepo, closureRepo, txManager,
		validator, authorizer, recorder, cfg.MaxSubtreeSize, logger,
	)
	fileService := hierarchy.NewFileService(
		fileRepo, folderRepo, txManager,
		validator, authorizer, recorder, logger,
	)
	treeService := hierarchy.NewTreeService(folderRepo, fileRepo, closureRepo, authorizer, logger)

	// Create handlers
	folderHandler := handler.NewFolderHandler(folderService, logger)
	fileHandler := handler.NewFileHandler(fileService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check and metrics
	mux.HandleFunc("GET /health", treeHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", treeHandler.ListRootChildren)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/name", folderHandler.RenameFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/parent", folderHandler.MoveFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/restore", folderHandler.RestoreFolder)

	// File routes
	mux.HandleFunc("POST /api/files", fileHandler.CreateFile)
	mux.HandleFunc("GET /api/files/{id}", fileHandler.GetFile)
	mux.HandleFunc("PATCH /api/files/{id}/name", fileHandler.RenameFile)
	mux.HandleFunc("PATCH /api/files/{id}/parent", fileHandler.MoveFile)
	mux.HandleFunc("DELETE /api/files/{id}", fileHandler.DeleteFile)
	mux.HandleFunc("POST /api/files/{id}/restore", fileHandler.RestoreFile)

	// Hierarchy read routes
	mux.HandleFunc("GET /api/folders/{id}/children", treeHandler.ListChildren)
	mux.HandleFunc("GET /api/folders/{id}/subtree", treeHandler.GetSubtree)
	mux.HandleFunc("GET /api/folders/{id}/breadcrumbs", treeHandler.GetBreadcrumbs)
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)
	mux.HandleFunc("GET /api/trash", treeHandler.ListTrash)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Metrics → Routes
	httpHandler = middleware.Metrics(httpHandler)

	if jwtVerifier != nil {
		httpHandler = middleware.AuthMiddleware(jwtVerifier, logger)(httpHandler)
	} else {
		logger.Warn("token auth disabled, every request runs as the dev owner",
			"owner_id", cfg.DevOwnerID,
		)
		httpHandler = middleware.StaticAuthMiddleware(cfg.DevOwnerID)(httpHandler)
	}
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server and wait for a shutdown signal
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		} else {
			logger.Info("server stopped")
		}
	}
}
