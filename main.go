package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"hashdrop/internal/archive"
	"hashdrop/internal/database"
	"hashdrop/internal/filesystem"
	"hashdrop/internal/handlers"
	"hashdrop/internal/logging"
	"hashdrop/internal/memory"
	"hashdrop/internal/metadata"
	"hashdrop/internal/metrics"
	"hashdrop/internal/middleware"
	"hashdrop/internal/pipeline"
	"hashdrop/internal/rules"
	"hashdrop/internal/signature"
	"hashdrop/internal/startup"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize metrics
	metrics.InitializeMetrics()
	buildInfo := startup.GetBuildInfo()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	// API token: the environment wins over the stored hash
	if config.APITokenHash == "" {
		hash, err := db.APITokenHash(context.Background())
		if err != nil {
			logging.Warn("Failed to read stored API token: %v", err)
		}
		config.APITokenHash = hash
	}

	// Compile content rules
	scanner := rules.NewScanner()
	scanner.SetMaxScanSize(config.MaxScanSize)
	var diags rules.Diagnostics
	if config.RulesEnabled {
		diags = scanner.Reload(config.RulesDir)
	}
	startup.LogRulesInit(config.RulesEnabled, diags)

	// Initialize pipeline
	extractor := metadata.NewExtractor(signature.NewMagic(), scanner, config.SniffLargeFileLimit)
	coord := pipeline.New(pipelineConfig(config), extractor, scanner)
	recorder := database.NewRecorder(db)
	unsubscribe := coord.Subscribe(recorder)
	startup.LogPipelineInit(config.HashWorkers, config.DefaultAlgorithms)

	collector := metrics.NewCollector(coord, db.Path(), collectorInterval)
	collector.Start()

	// Initialize handlers and router
	h := handlers.New(coord, db, archive.NewZip(), config)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	// Cancelled on shutdown so event streams end instead of holding
	// Shutdown until its timeout.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              ":" + config.Port,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		Handler:           buildHandler(router, config),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // the event stream is long-lived
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(cancelBase)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, metricsSrv, func() {
			startup.LogShutdownStep("Stopping pipeline")
			coord.Close()
			unsubscribe()
			recorder.Close()
			startup.LogShutdownStepComplete("Pipeline stopped")

			collector.Stop()

			startup.LogShutdownStep("Closing database")
			if err := db.Close(); err != nil {
				logging.Warn("Database close error: %v", err)
			} else {
				startup.LogShutdownStepComplete("Database closed")
			}
		})
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		AuthEnabled:     config.APITokenHash != "",
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func pipelineConfig(config *startup.Config) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.Expand.SkipHidden = config.SkipHidden
	pc.Expand.FollowSymlinks = config.FollowSymlinks
	pc.Expand.MaxDepth = config.MaxDepth
	pc.Expand.ChannelBuffer = config.ChannelBuffer
	pc.Digest.Workers = config.HashWorkers
	pc.Digest.ChannelBuffer = config.ChannelBuffer
	pc.ChannelBuffer = config.ChannelBuffer
	pc.RulesDir = config.RulesDir
	return pc
}

// buildHandler wraps the router in the middleware chain. Metrics run
// inside the router so requests are labelled by route template.
func buildHandler(router *mux.Router, config *startup.Config) http.Handler {
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	authed := middleware.Auth(middleware.DefaultAuthConfig(config.APITokenHash))(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	logged := middleware.Logger(loggingConfig)(authed)

	return middleware.Compression(middleware.DefaultCompressionConfig())(logged)
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           metricsMux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	cleanup()
	startup.LogShutdownComplete()
}
